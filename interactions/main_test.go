package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/trip-planner/internal/dedupe"
	"github.com/DeafMist/trip-planner/internal/models"
)

type stubHandler struct {
	events []models.PostEvent
	err    error
}

func (s *stubHandler) Handle(_ context.Context, ev models.PostEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

func TestProcessMessageDecodesAndDedupes(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := dedupe.NewCache(time.Minute)
	h := &stubHandler{}
	msg := kafka.Message{
		Topic:     "post_events",
		Partition: 1,
		Offset:    42,
		Value:     []byte(`{"type":"post_saved","post_id":"p1","user_id":"u1"}`),
	}

	require.NoError(t, processMessage(context.Background(), log, h, cache, msg))
	require.NoError(t, processMessage(context.Background(), log, h, cache, msg))
	require.Len(t, h.events, 1)
	require.Equal(t, models.EventPostSaved, h.events[0].Type)
	require.Equal(t, "u1", h.events[0].UserID)
}

func TestProcessMessageErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := dedupe.NewCache(time.Minute)
	h := &stubHandler{}

	require.Error(t, processMessage(context.Background(), log, h, cache, kafka.Message{Value: []byte("nope")}))
	require.Error(t, processMessage(context.Background(), log, h, cache, kafka.Message{Value: []byte(`{"type":"post_saved"}`)}))
	require.Empty(t, h.events)

	h.err = errors.New("taxonomy missing")
	msg := kafka.Message{Offset: 7, Value: []byte(`{"type":"post_saved","post_id":"p1","user_id":"u1"}`)}
	require.Error(t, processMessage(context.Background(), log, h, cache, msg))

	h.err = nil
	require.NoError(t, processMessage(context.Background(), log, h, cache, msg))
	require.Len(t, h.events, 2)
}

func TestProcessMessageDecodesCreatedPostImages(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := dedupe.NewCache(time.Minute)
	h := &stubHandler{}
	msg := kafka.Message{
		Offset: 3,
		Value:  []byte(`{"type":"post_created","post_id":"p2","after":{"userId":"u1","imageUrls":["https://img/1.jpg","https://img/2.jpg"]}}`),
	}

	require.NoError(t, processMessage(context.Background(), log, h, cache, msg))
	require.Len(t, h.events, 1)
	require.Equal(t, models.EventPostCreated, h.events[0].Type)
	require.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, h.events[0].After.ImageURLs)
	require.Equal(t, 1, cache.Len())
}
