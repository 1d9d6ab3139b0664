package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/trip-planner/internal/autotag"
	"github.com/DeafMist/trip-planner/internal/config"
	"github.com/DeafMist/trip-planner/internal/dedupe"
	"github.com/DeafMist/trip-planner/internal/interactions"
	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/metrics"
	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/notify"
	"github.com/DeafMist/trip-planner/internal/store"
)

type eventHandler interface {
	Handle(ctx context.Context, ev models.PostEvent) error
}

func main() {
	log := logger.New("interactions")
	cfg, err := config.LoadInteractions()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

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

	var sender notify.Sender = notify.Noop{Log: log}
	if cfg.FirebaseProjectID != "" || cfg.FCMCredentialsFile != "" {
		fcm, err := notify.NewFCM(ctx, cfg.FirebaseProjectID, cfg.FCMCredentialsFile, log)
		if err != nil {
			log.Error("init notifications", slog.Any("err", err))
			os.Exit(1)
		}
		sender = fcm
	}

	m := metrics.New()
	social := mongo.Social()
	handler := interactions.New(social, sender, m, log)
	if cfg.AutoTag {
		labeler, err := autotag.NewVision(ctx, cfg.VisionCredentialsFile)
		if err != nil {
			log.Error("init vision client", slog.Any("err", err))
			os.Exit(1)
		}
		defer labeler.Close()
		handler.WithAutoTagger(autotag.New(labeler, social, log))
	} else {
		log.Warn("auto tagging disabled")
	}

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

	log.Info("interactions consumer started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.Bool("auto_tag", cfg.AutoTag),
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

		err = processMessage(ctx, log, handler, cache, msg)
		m.DedupeSize("interactions", cache.Len())
		if err != nil {
			log.Warn("process event failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			dlqMsg := kafka.Message{
				Key:   msg.Key,
				Value: msg.Value,
				Headers: append(msg.Headers,
					kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
					kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
					kafka.Header{Key: "error", Value: []byte(err.Error())},
				),
			}
			if dlqErr := dlqWriter.WriteMessages(ctx, dlqMsg); dlqErr != nil {
				log.Error("DLQ write failed, event will be reprocessed on restart", slog.Any("err", dlqErr))
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage decodes one post event and applies it. Events redelivered
// within the dedupe window are skipped by partition and offset.
func processMessage(ctx context.Context, log *slog.Logger, h eventHandler, cache *dedupe.Cache, msg kafka.Message) error {
	var ev models.PostEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if ev.PostID == "" {
		return errors.New("event has no post id")
	}

	key := fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	if !cache.Claim(key) {
		log.Debug("duplicate event", slog.String("key", key))
		return nil
	}
	if err := h.Handle(ctx, ev); err != nil {
		cache.Release(key)
		return err
	}
	return nil
}
