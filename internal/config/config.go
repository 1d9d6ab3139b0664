package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Common contains storage parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
	MongoURI           string
	MongoDatabase      string
}

// Kafka describes one consumed topic.
type Kafka struct {
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaConsumer string
}

// Planner holds the travel-plan pipeline tunables.
type Planner struct {
	MaxCandidates  int
	SearchRadius   int
	ParallelSearch bool
	TravelTimes    bool
	Currency       string
	PromptsFile    string
}

// Credentials locates the secrets and models used for external clients.
type Credentials struct {
	SecretsDir         string
	LLMModel           string
	LLMBaseURL         string
	FirebaseProjectID  string
	FCMCredentialsFile string
}

// Worker holds configuration for the Kafka -> travel plan worker.
type Worker struct {
	Common
	Kafka
	Planner
	Credentials
	DedupeTTL   time.Duration
	MetricsAddr string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	KafkaBrokers []string
	KafkaTopic   string
	BindAddr     string
	DefaultPage  int
	MaxPage      int
}

// Retention configures the search index cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// Quiz configures the daily trivia job.
type Quiz struct {
	Common
	Credentials
	Timezone    string
	Cron        string
	RunOnStart  bool
	PromptsFile string
}

// Interactions configures the post interaction consumer.
type Interactions struct {
	Common
	Kafka
	Credentials
	DedupeTTL   time.Duration
	MetricsAddr string
	// AutoTag enables image label detection for post_created events.
	AutoTag               bool
	VisionCredentialsFile string
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &Worker{
		Common:      loadCommon(),
		Kafka:       loadKafka("travel_requests", "plan-worker"),
		Planner:     loadPlanner(),
		Credentials: loadCredentials(),
		DedupeTTL:   getDuration("WORKER_DEDUPE_TTL", "1h"),
		MetricsAddr: getEnv("WORKER_METRICS_ADDR", "0.0.0.0:9100"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.MaxCandidates <= 0 {
		return nil, fmt.Errorf("PLANNER_MAX_CANDIDATES must be positive")
	}
	if c.SearchRadius <= 0 {
		return nil, fmt.Errorf("PLANNER_SEARCH_RADIUS must be positive")
	}
	if c.LLMModel == "" {
		return nil, fmt.Errorf("LLM_MODEL cannot be empty")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &API{
		Common:       loadCommon(),
		KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "travel_requests"),
		BindAddr:     getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage:  getInt("API_PAGE_SIZE", 20),
		MaxPage:      getInt("API_MAX_PAGE_SIZE", 100),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "2160h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

// LoadQuiz builds a Quiz config from environment variables.
func LoadQuiz() (*Quiz, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &Quiz{
		Common:      loadCommon(),
		Credentials: loadCredentials(),
		Timezone:    getEnv("QUIZ_TIMEZONE", "Pacific/Kiritimati"),
		Cron:        getEnv("QUIZ_CRON", "5 0 * * *"),
		RunOnStart:  getBool("QUIZ_RUN_ON_START", false),
		PromptsFile: getEnv("PROMPTS_FILE", ""),
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return nil, fmt.Errorf("QUIZ_TIMEZONE: %w", err)
	}
	if strings.TrimSpace(c.Cron) == "" {
		return nil, fmt.Errorf("QUIZ_CRON cannot be empty")
	}

	return c, nil
}

// LoadInteractions builds an Interactions config from environment variables.
func LoadInteractions() (*Interactions, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &Interactions{
		Common:      loadCommon(),
		Kafka:       loadKafka("post_events", "interactions-worker"),
		Credentials: loadCredentials(),
		DedupeTTL:   getDuration("INTERACTIONS_DEDUPE_TTL", "10m"),
		MetricsAddr: getEnv("INTERACTIONS_METRICS_ADDR", "0.0.0.0:9101"),

		AutoTag:               getBool("AUTOTAG_ENABLED", true),
		VisionCredentialsFile: getEnv("VISION_CREDENTIALS_FILE", ""),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "plans"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase:      getEnv("MONGO_DATABASE", "trips"),
	}
}

func loadKafka(topic, group string) Kafka {
	return Kafka{
		KafkaBrokers:  splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", topic),
		KafkaConsumer: getEnv("KAFKA_CONSUMER_GROUP", group),
	}
}

func loadPlanner() Planner {
	return Planner{
		MaxCandidates:  getInt("PLANNER_MAX_CANDIDATES", 9),
		SearchRadius:   getInt("PLANNER_SEARCH_RADIUS", 10000),
		ParallelSearch: getBool("PLANNER_PARALLEL_SEARCH", false),
		TravelTimes:    getBool("PLANNER_TRAVEL_TIMES", true),
		Currency:       getEnv("PLANNER_CURRENCY", "JPY"),
		PromptsFile:    getEnv("PROMPTS_FILE", ""),
	}
}

func loadCredentials() Credentials {
	return Credentials{
		SecretsDir:         getEnv("SECRETS_DIR", ""),
		LLMModel:           getEnv("LLM_MODEL", "gemini-2.5-flash"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		FirebaseProjectID:  getEnv("FIREBASE_PROJECT_ID", ""),
		FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
	}
}

// loadDotEnv reads ENV_FILE (default .env) without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv() error {
	path := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
