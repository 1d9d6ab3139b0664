package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/DeafMist/trip-planner/internal/config"
	"github.com/DeafMist/trip-planner/internal/genai"
	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/metrics"
	"github.com/DeafMist/trip-planner/internal/planner"
	"github.com/DeafMist/trip-planner/internal/prompts"
	"github.com/DeafMist/trip-planner/internal/quiz"
	"github.com/DeafMist/trip-planner/internal/store"
)

const runTimeout = 2 * time.Minute

func main() {
	log := logger.New("quiz")
	cfg, err := config.LoadQuiz()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error("load timezone", slog.Any("err", err))
		os.Exit(1)
	}

	tpl, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		log.Error("load prompts", slog.Any("err", err))
		os.Exit(1)
	}

	apiKey, err := planner.EnvSecrets{Dir: cfg.SecretsDir}.Secret(planner.SecretGenAIKey)
	if err != nil {
		log.Error("resolve generative api key", slog.Any("err", err))
		os.Exit(1)
	}
	gen, err := genai.New(genai.Options{
		APIKey:      apiKey,
		Model:       cfg.LLMModel,
		BaseURL:     cfg.LLMBaseURL,
		Temperature: 0.9,
	}, log)
	if err != nil {
		log.Error("init generative client", slog.Any("err", err))
		os.Exit(1)
	}

	mongo, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		log.Error("connect mongo", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongo.Close(closeCtx)
	}()

	generator := quiz.New(gen, tpl, mongo.Quizzes(), loc, metrics.New(), log)
	task := func() { runOnce(ctx, log, generator) }

	scheduler, err := newScheduler(loc, cfg.Cron, task)
	if err != nil {
		log.Error("init scheduler", slog.Any("err", err))
		os.Exit(1)
	}

	if cfg.RunOnStart {
		task()
	}

	scheduler.Start()
	log.Info("quiz scheduler running",
		slog.String("cron", cfg.Cron),
		slog.String("timezone", cfg.Timezone),
	)

	<-ctx.Done()
	log.Info("shutdown signal received")
	if err := scheduler.Shutdown(); err != nil {
		log.Error("scheduler shutdown", slog.Any("err", err))
	}
}

type quizRunner interface {
	Run(ctx context.Context) (quiz.Outcome, error)
}

func runOnce(ctx context.Context, log *slog.Logger, g quizRunner) {
	subCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	outcome, err := g.Run(subCtx)
	if err != nil {
		log.Error("daily quiz failed (will retry on next schedule)", slog.Any("err", err))
		return
	}
	log.Info("daily quiz run finished", slog.String("outcome", string(outcome)))
}

// newScheduler registers the daily job as a singleton so a slow run is
// never overlapped by the next tick.
func newScheduler(loc *time.Location, cron string, task func()) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.CronJob(cron, false),
		gocron.NewTask(task),
		gocron.WithName("daily_quiz"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule quiz job: %w", err)
	}
	return s, nil
}
