package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DeafMist/trip-planner/internal/config"
	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/metrics"
	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/notify"
	"github.com/DeafMist/trip-planner/internal/prompts"
)

// Pipeline stage names used in logs, metrics and error messages.
const (
	StageProcessing  = "processing"
	StageGeocode     = "geocode"
	StageDeconstruct = "deconstruct"
	StageDiscover    = "discover"
	StageSynthesize  = "synthesize"
	StageEnrich      = "enrich"
	StageComplete    = "complete"
)

// Deps are the collaborators of a Runner. Notifier, Indexer and Metrics are
// optional.
type Deps struct {
	Provisioner *Provisioner
	Prompts     *prompts.Set
	Planner     config.Planner
	Notifier    notify.Sender
	Indexer     Indexer
	Metrics     *metrics.Metrics
	Log         *slog.Logger
	Now         func() time.Time
}

// Runner executes one travel request end to end.
type Runner struct {
	deps Deps
	log  *slog.Logger
}

// Result is the outcome of one run.
type Result struct {
	Status             models.PlanStatus
	Steps              []models.PlanStep
	EstimatedTotalCost *int
	Thumbnail          string
	Failure            *RunError
}

func NewRunner(d Deps) *Runner {
	if d.Prompts == nil {
		d.Prompts = prompts.Default()
	}
	return &Runner{deps: d, log: logger.OrDiscard(d.Log)}
}

// Run drives the request to completed or error. Stage failures are written
// to the record and reported in Result; the returned error is non-nil only
// when the final status could not be persisted. Cancellation of ctx does
// not interrupt a started run.
func (r *Runner) Run(ctx context.Context, req models.TravelRequest) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	log := r.log.With(slog.String("user_id", req.UserID), slog.String("plan_id", req.PlanID))

	clients, err := r.deps.Provisioner.Clients(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("provision clients: %w", err)
	}
	pub := newPublisher(clients.Store, r.deps.Notifier, r.deps.Indexer, r.deps.Metrics, log, r.deps.Now)

	plan, cost, stage, err := r.execute(ctx, clients, pub, log, req)
	if err != nil {
		return r.fail(ctx, pub, log, req, stage, err)
	}

	r.deps.Metrics.RunFinished(string(models.StatusCompleted), "")
	log.Info("plan completed",
		slog.Int("steps", len(plan.Steps)),
		slog.Int("dropped", len(plan.Dropped)),
	)

	pub.AfterCompletion(ctx, req, plan, cost)

	return Result{
		Status:             models.StatusCompleted,
		Steps:              plan.Steps,
		EstimatedTotalCost: cost,
		Thumbnail:          plan.Thumbnail,
	}, nil
}

func (r *Runner) execute(ctx context.Context, c *Clients, pub *Publisher, log *slog.Logger, req models.TravelRequest) (Enriched, *int, string, error) {
	m := r.deps.Metrics
	cfg := r.deps.Planner

	if err := pub.Processing(ctx, req); err != nil {
		return Enriched{}, nil, StageProcessing, err
	}

	start := time.Now()
	center, err := Locate(ctx, c.Places, req.City)
	m.ObserveStage(StageGeocode, start)
	if err != nil {
		return Enriched{}, nil, StageGeocode, err
	}

	start = time.Now()
	keywords, err := Deconstruct(ctx, c.Generator, r.deps.Prompts, req.City, req.Request)
	m.ObserveStage(StageDeconstruct, start)
	if err != nil {
		return Enriched{}, nil, StageDeconstruct, err
	}
	log.Debug("request deconstructed", slog.Any("keywords", keywords))

	start = time.Now()
	candidates, err := Discover(ctx, c.Places, center, keywords, DiscoverOptions{
		MaxCandidates: cfg.MaxCandidates,
		Radius:        cfg.SearchRadius,
		Parallel:      cfg.ParallelSearch,
		TravelTimes:   cfg.TravelTimes,
	}, log)
	m.ObserveStage(StageDiscover, start)
	if err != nil {
		return Enriched{}, nil, StageDiscover, err
	}

	start = time.Now()
	itinerary, err := Synthesize(ctx, c.Generator, r.deps.Prompts, req.City, req.Request, candidates, cfg.Currency)
	m.ObserveStage(StageSynthesize, start)
	if err != nil {
		return Enriched{}, nil, StageSynthesize, err
	}

	plan, err := Enrich(itinerary.Steps, candidates)
	for _, name := range plan.Dropped {
		log.Warn("dropping step with unknown place", slog.String("place_name", name))
	}
	m.StepsDropped(len(plan.Dropped))
	if err != nil {
		return Enriched{}, nil, StageEnrich, err
	}

	if err := pub.Completed(ctx, req, plan, itinerary.EstimatedTotalCost); err != nil {
		return Enriched{}, nil, StageComplete, err
	}
	return plan, itinerary.EstimatedTotalCost, "", nil
}

func (r *Runner) fail(ctx context.Context, pub *Publisher, log *slog.Logger, req models.TravelRequest, stage string, err error) (Result, error) {
	re := classify(stage, err)
	msg := userMessage(re, req.City)
	r.deps.Metrics.RunFinished(string(models.StatusError), string(re.Kind))
	log.Error("plan run failed",
		slog.String("stage", re.Stage),
		slog.String("kind", string(re.Kind)),
		slog.String("city", req.City),
		slog.Any("err", re.Err),
	)

	result := Result{Status: models.StatusError, Failure: re}
	if werr := pub.Failed(ctx, req, msg); werr != nil {
		return result, fmt.Errorf("write error status: %w", werr)
	}
	return result, nil
}
