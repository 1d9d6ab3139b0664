package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/trip-planner/internal/quiz"
)

type stubQuiz struct {
	calls    int
	deadline bool
	err      error
}

func (s *stubQuiz) Run(ctx context.Context) (quiz.Outcome, error) {
	s.calls++
	_, s.deadline = ctx.Deadline()
	return quiz.OutcomeCreated, s.err
}

func TestNewSchedulerRegistersDailyJob(t *testing.T) {
	s, err := newScheduler(time.UTC, "5 0 * * *", func() {})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	require.Equal(t, "daily_quiz", jobs[0].Name())
}

func TestNewSchedulerRejectsBadCron(t *testing.T) {
	_, err := newScheduler(time.UTC, "every day at noon", func() {})
	require.Error(t, err)
}

func TestRunOnceBoundsRunAndSwallowsErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := &stubQuiz{err: errors.New("model unavailable")}

	require.NotPanics(t, func() { runOnce(context.Background(), log, q) })
	require.Equal(t, 1, q.calls)
	require.True(t, q.deadline)
}
