package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/trip-planner/internal/config"
)

type stubPurger struct {
	maxAge time.Duration
	batch  int
	err    error
	calls  int
}

func (s *stubPurger) DeleteOlderThan(_ context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	s.calls++
	s.maxAge = maxAge
	s.batch = batchSize
	return 3, s.err
}

func TestRunOncePassesRetentionWindow(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := &stubPurger{}
	cfg := &config.Retention{MaxAge: 2160 * time.Hour, BatchSize: 500}

	runOnce(context.Background(), log, p, cfg)
	require.Equal(t, 1, p.calls)
	require.Equal(t, 2160*time.Hour, p.maxAge)
	require.Equal(t, 500, p.batch)

	p.err = errors.New("cluster red")
	require.NotPanics(t, func() { runOnce(context.Background(), log, p, cfg) })
	require.Equal(t, 2, p.calls)
}
