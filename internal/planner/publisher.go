package planner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/metrics"
	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/notify"
	"github.com/DeafMist/trip-planner/internal/store"
)

// PlanStore writes lifecycle transitions onto the originating record.
type PlanStore interface {
	MarkProcessing(ctx context.Context, userID, planID string) error
	MarkCompleted(ctx context.Context, userID, planID string, c store.Completion) error
	MarkFailed(ctx context.Context, userID, planID, message string) error
}

// Indexer stores the list-view projection of a completed plan.
type Indexer interface {
	IndexPlan(ctx context.Context, doc models.PlanSummary) error
}

// Publisher owns status writes and the post-completion hooks.
type Publisher struct {
	store    PlanStore
	notifier notify.Sender
	indexer  Indexer
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

func (p *Publisher) Processing(ctx context.Context, req models.TravelRequest) error {
	return p.store.MarkProcessing(ctx, req.UserID, req.PlanID)
}

// Completed writes the plan, optional cost and thumbnail in one update.
func (p *Publisher) Completed(ctx context.Context, req models.TravelRequest, plan Enriched, cost *int) error {
	return p.store.MarkCompleted(ctx, req.UserID, req.PlanID, store.Completion{
		Plan:                    plan.Steps,
		EstimatedTotalCost:      cost,
		ThumbnailPhotoReference: plan.Thumbnail,
	})
}

func (p *Publisher) Failed(ctx context.Context, req models.TravelRequest, message string) error {
	return p.store.MarkFailed(ctx, req.UserID, req.PlanID, message)
}

// AfterCompletion runs the best-effort hooks of a completed run. Failures are
// logged and never reach the caller.
func (p *Publisher) AfterCompletion(ctx context.Context, req models.TravelRequest, plan Enriched, cost *int) {
	log := p.log.With(slog.String("user_id", req.UserID), slog.String("plan_id", req.PlanID))

	p.notifyReady(ctx, log, req)

	if p.indexer == nil {
		return
	}
	summary := models.PlanSummary{
		PlanID:                  req.PlanID,
		UserID:                  req.UserID,
		City:                    req.City,
		Request:                 req.Request,
		PlaceNames:              lo.Map(plan.Steps, func(s models.PlanStep, _ int) string { return s.PlaceName }),
		Steps:                   len(plan.Steps),
		EstimatedTotalCost:      cost,
		ThumbnailPhotoReference: plan.Thumbnail,
		Timestamp:               p.now().UTC(),
	}
	if err := p.indexer.IndexPlan(ctx, summary); err != nil {
		log.Warn("index completed plan", slog.Any("err", err))
	}
}

func (p *Publisher) notifyReady(ctx context.Context, log *slog.Logger, req models.TravelRequest) {
	if req.FCMToken == "" || p.notifier == nil {
		p.metrics.Notification("plan", "skipped")
		return
	}
	id, err := p.notifier.Send(ctx, notify.Message{
		Token: req.FCMToken,
		Title: "Your trip plan is ready",
		Body:  "Your plan for " + req.City + " is ready to view.",
		Data: map[string]string{
			"type":    "plan_ready",
			"plan_id": req.PlanID,
		},
	})
	if errors.Is(err, notify.ErrDisabled) {
		p.metrics.Notification("plan", "skipped")
		return
	}
	if err != nil {
		p.metrics.Notification("plan", "failed")
		log.Warn("plan notification failed", slog.Any("err", err))
		return
	}
	p.metrics.Notification("plan", "sent")
	log.Info("plan notification sent", slog.String("message_id", id))
}

func newPublisher(s PlanStore, notifier notify.Sender, indexer Indexer, m *metrics.Metrics, log *slog.Logger, now func() time.Time) *Publisher {
	if now == nil {
		now = time.Now
	}
	return &Publisher{store: s, notifier: notifier, indexer: indexer, metrics: m, log: logger.OrDiscard(log), now: now}
}
