package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DeafMist/trip-planner/internal/config"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{
		"ELASTICSEARCH_ADDR", "ELASTICSEARCH_INDEX", "MONGO_URI", "MONGO_DATABASE",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_CONSUMER_GROUP",
		"PLANNER_MAX_CANDIDATES", "PLANNER_SEARCH_RADIUS", "PLANNER_PARALLEL_SEARCH",
		"PLANNER_TRAVEL_TIMES", "PLANNER_CURRENCY", "LLM_MODEL", "LLM_BASE_URL",
		"AUTOTAG_ENABLED", "VISION_CREDENTIALS_FILE", "INTERACTIONS_METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadWorkerDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "plans", cfg.ElasticsearchIndex)
	require.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	require.Equal(t, "trips", cfg.MongoDatabase)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "travel_requests", cfg.KafkaTopic)
	require.Equal(t, "plan-worker", cfg.KafkaConsumer)
	require.Equal(t, 9, cfg.MaxCandidates)
	require.Equal(t, 10000, cfg.SearchRadius)
	require.False(t, cfg.ParallelSearch)
	require.True(t, cfg.TravelTimes)
	require.Equal(t, "JPY", cfg.Currency)
	require.Equal(t, "gemini-2.5-flash", cfg.LLMModel)
	require.Equal(t, time.Hour, cfg.DedupeTTL)
}

func TestLoadWorkerOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "custom_topic")
	t.Setenv("PLANNER_MAX_CANDIDATES", "15")
	t.Setenv("PLANNER_SEARCH_RADIUS", "20000")
	t.Setenv("PLANNER_PARALLEL_SEARCH", "true")
	t.Setenv("PLANNER_TRAVEL_TIMES", "false")
	t.Setenv("PLANNER_CURRENCY", "EUR")
	t.Setenv("WORKER_DEDUPE_TTL", "30m")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "custom_topic", cfg.KafkaTopic)
	require.Equal(t, 15, cfg.MaxCandidates)
	require.Equal(t, 20000, cfg.SearchRadius)
	require.True(t, cfg.ParallelSearch)
	require.False(t, cfg.TravelTimes)
	require.Equal(t, "EUR", cfg.Currency)
	require.Equal(t, 30*time.Minute, cfg.DedupeTTL)
}

func TestLoadWorkerRejectsNonPositiveCandidates(t *testing.T) {
	isolate(t)
	t.Setenv("PLANNER_MAX_CANDIDATES", "0")

	_, err := config.LoadWorker()
	require.Error(t, err)
}

func TestLoadWorkerReadsEnvFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PLANNER_MAX_CANDIDATES=12\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv never overrides a variable that is present, even when empty.
	require.NoError(t, os.Unsetenv("PLANNER_MAX_CANDIDATES"))
	// An explicitly set variable wins over the file.
	t.Setenv("PLANNER_SEARCH_RADIUS", "5000")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)
	require.Equal(t, 12, cfg.MaxCandidates)
	require.Equal(t, 5000, cfg.SearchRadius)
}

func TestLoadAPI(t *testing.T) {
	isolate(t)
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_PAGE_SIZE", "15")
	t.Setenv("API_MAX_PAGE_SIZE", "200")
	t.Setenv("ELASTICSEARCH_ADDR", "http://api-es:9200")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 15, cfg.DefaultPage)
	require.Equal(t, 200, cfg.MaxPage)
	require.Equal(t, "http://api-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "travel_requests", cfg.KafkaTopic)
}

func TestLoadAPIPageBounds(t *testing.T) {
	isolate(t)
	t.Setenv("API_PAGE_SIZE", "50")
	t.Setenv("API_MAX_PAGE_SIZE", "10")

	_, err := config.LoadAPI()
	require.Error(t, err)
}

func TestLoadRetention(t *testing.T) {
	isolate(t)
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
}

func TestLoadQuiz(t *testing.T) {
	isolate(t)
	t.Setenv("QUIZ_TIMEZONE", "")
	t.Setenv("QUIZ_RUN_ON_START", "true")

	cfg, err := config.LoadQuiz()
	require.NoError(t, err)
	require.Equal(t, "Pacific/Kiritimati", cfg.Timezone)
	require.Equal(t, "5 0 * * *", cfg.Cron)
	require.True(t, cfg.RunOnStart)

	t.Setenv("QUIZ_TIMEZONE", "Not/AZone")
	_, err = config.LoadQuiz()
	require.Error(t, err)
}

func TestLoadInteractionsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.LoadInteractions()
	require.NoError(t, err)
	require.Equal(t, "post_events", cfg.KafkaTopic)
	require.Equal(t, "interactions-worker", cfg.KafkaConsumer)
	require.Equal(t, 10*time.Minute, cfg.DedupeTTL)
	require.Equal(t, "0.0.0.0:9101", cfg.MetricsAddr)
	require.True(t, cfg.AutoTag)
	require.Empty(t, cfg.VisionCredentialsFile)
}

func TestLoadInteractionsAutoTagOff(t *testing.T) {
	isolate(t)
	t.Setenv("AUTOTAG_ENABLED", "false")
	t.Setenv("VISION_CREDENTIALS_FILE", "/secrets/vision.json")

	cfg, err := config.LoadInteractions()
	require.NoError(t, err)
	require.False(t, cfg.AutoTag)
	require.Equal(t, "/secrets/vision.json", cfg.VisionCredentialsFile)
}
