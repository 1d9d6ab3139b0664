package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/trip-planner/internal/config"
	"github.com/DeafMist/trip-planner/internal/dedupe"
	"github.com/DeafMist/trip-planner/internal/elasticsearch"
	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/metrics"
	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/notify"
	"github.com/DeafMist/trip-planner/internal/planner"
	"github.com/DeafMist/trip-planner/internal/processing"
	"github.com/DeafMist/trip-planner/internal/prompts"
)

type planRunner interface {
	Run(ctx context.Context, req models.TravelRequest) (planner.Result, error)
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tpl, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		log.Error("load prompts", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	notifier, err := newNotifier(ctx, cfg.Credentials, log)
	if err != nil {
		log.Error("init notifications", slog.Any("err", err))
		os.Exit(1)
	}

	provisioner := planner.NewProvisioner(planner.ExternalClients(
		cfg.Credentials, cfg.Common, planner.EnvSecrets{Dir: cfg.SecretsDir}, log,
	))
	if _, err := provisioner.Clients(ctx); err != nil {
		log.Error("provision clients", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provisioner.Close(closeCtx); err != nil {
			log.Warn("close clients", slog.Any("err", err))
		}
	}()

	m := metrics.New()
	runner := planner.NewRunner(planner.Deps{
		Provisioner: provisioner,
		Prompts:     tpl,
		Planner:     cfg.Planner,
		Notifier:    notifier,
		Indexer:     esClient,
		Metrics:     m,
		Log:         log,
	})

	go metrics.Serve(ctx, cfg.MetricsAddr, m, log)

	cache := dedupe.NewCache(cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
		slog.Int("max_candidates", cfg.MaxCandidates),
		slog.Int("search_radius", cfg.SearchRadius),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		err = processMessage(ctx, log, runner, cache, msg)
		m.DedupeSize("worker", cache.Len())
		if err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !sendToDLQ(ctx, log, dlqWriter, msg, err) {
				if ctx.Err() != nil {
					return
				}
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage decodes one trigger event and runs the pipeline for it.
// The returned error means the event could not be handled and belongs in
// the DLQ; plan failures are written to the plan record instead.
func processMessage(ctx context.Context, log *slog.Logger, runner planRunner, cache *dedupe.Cache, msg kafka.Message) error {
	var event models.TravelRequestCreated
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	req := event.Request
	req.UserID = strings.TrimSpace(req.UserID)
	req.PlanID = strings.TrimSpace(req.PlanID)
	req.City = strings.TrimSpace(req.City)
	if req.UserID == "" || req.PlanID == "" {
		return errors.New("event has no user or plan id")
	}

	key := strings.TrimSpace(event.EventID)
	if key == "" {
		key = processing.BuildEventID(req.UserID, req.PlanID)
	}
	if !cache.Claim(key) {
		log.Debug("duplicate event", slog.String("event_id", key))
		return nil
	}

	res, err := runner.Run(ctx, req)
	if err != nil {
		cache.Release(key)
		return err
	}

	log.Info("travel request handled",
		slog.String("plan_id", req.PlanID),
		slog.String("status", string(res.Status)),
		slog.Int("steps", len(res.Steps)),
	)
	return nil
}

// sendToDLQ writes msg with error context and retries with backoff. It
// reports whether the write succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, w *kafka.Writer, msg kafka.Message, cause error) bool {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range 5 {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}

	log.Error("DLQ write exhausted retries, message will be reprocessed on restart",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}

func newNotifier(ctx context.Context, creds config.Credentials, log *slog.Logger) (notify.Sender, error) {
	if creds.FirebaseProjectID == "" && creds.FCMCredentialsFile == "" {
		log.Warn("no firebase credentials configured, notifications disabled")
		return notify.Noop{Log: log}, nil
	}
	return notify.NewFCM(ctx, creds.FirebaseProjectID, creds.FCMCredentialsFile, log)
}
