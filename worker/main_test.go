package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/trip-planner/internal/dedupe"
	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/planner"
)

type stubRunner struct {
	reqs []models.TravelRequest
	err  error
}

func (s *stubRunner) Run(_ context.Context, req models.TravelRequest) (planner.Result, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return planner.Result{}, s.err
	}
	return planner.Result{Status: models.StatusCompleted}, nil
}

func eventMessage(t *testing.T, ev models.TravelRequestCreated) kafka.Message {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestProcessMessageRunsOncePerEvent(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := dedupe.NewCache(time.Hour)
	runner := &stubRunner{}

	msg := eventMessage(t, models.TravelRequestCreated{
		EventID: "evt-1",
		Request: models.TravelRequest{UserID: " u1 ", PlanID: "plan-1", City: " Kyoto ", Request: "quiet art and tea"},
	})

	require.NoError(t, processMessage(context.Background(), log, runner, cache, msg))
	require.Len(t, runner.reqs, 1)
	require.Equal(t, "u1", runner.reqs[0].UserID)
	require.Equal(t, "Kyoto", runner.reqs[0].City)

	require.NoError(t, processMessage(context.Background(), log, runner, cache, msg))
	require.Len(t, runner.reqs, 1)
}

func TestProcessMessageDerivesKeyWithoutEventID(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := dedupe.NewCache(time.Hour)
	runner := &stubRunner{}

	msg := eventMessage(t, models.TravelRequestCreated{
		Request: models.TravelRequest{UserID: "u1", PlanID: "plan-1", City: "Kyoto"},
	})

	require.NoError(t, processMessage(context.Background(), log, runner, cache, msg))
	require.NoError(t, processMessage(context.Background(), log, runner, cache, msg))
	require.Len(t, runner.reqs, 1)
}

func TestProcessMessageRejectsBadPayloads(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := dedupe.NewCache(time.Hour)
	runner := &stubRunner{}

	require.Error(t, processMessage(context.Background(), log, runner, cache, kafka.Message{Value: []byte("{not json")}))

	msg := eventMessage(t, models.TravelRequestCreated{EventID: "evt-2", Request: models.TravelRequest{City: "Kyoto"}})
	require.Error(t, processMessage(context.Background(), log, runner, cache, msg))
	require.Empty(t, runner.reqs)
}

func TestProcessMessageReleasesClaimOnRunError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := dedupe.NewCache(time.Hour)
	runner := &stubRunner{err: errors.New("write error status: mongo unreachable")}

	msg := eventMessage(t, models.TravelRequestCreated{
		EventID: "evt-3",
		Request: models.TravelRequest{UserID: "u1", PlanID: "plan-3", City: "Kyoto"},
	})

	require.ErrorContains(t, processMessage(context.Background(), log, runner, cache, msg), "mongo unreachable")
	require.Zero(t, cache.Len())

	runner.err = nil
	require.NoError(t, processMessage(context.Background(), log, runner, cache, msg))
	require.Len(t, runner.reqs, 2)
}
