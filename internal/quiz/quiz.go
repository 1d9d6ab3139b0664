package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/DeafMist/trip-planner/internal/genai"
	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/metrics"
	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/prompts"
	"github.com/DeafMist/trip-planner/internal/store"
)

// Countries is the rotation of cuisines the daily quiz draws from.
var Countries = []string{
	"Japan", "Italy", "China", "Mexico", "India", "France", "Spain",
	"Greece", "Vietnam", "Turkey", "South Korea", "United States", "Brazil",
	"Argentina", "Peru", "Morocco", "Indonesia",
	"Malaysia", "Germany", "United Kingdom", "Russia", "Portugal", "Hungary",
	"Canada", "Australia", "New Zealand",
	"Sweden", "Philippines",
}

const optionCount = 4

// Outcome of one generation run.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Store keeps one quiz per date.
type Store interface {
	Exists(ctx context.Context, date string) (bool, error)
	Save(ctx context.Context, q models.Quiz) error
}

// Generator creates the quiz of the day.
type Generator struct {
	gen     genai.Generator
	prompts *prompts.Set
	store   Store
	loc     *time.Location
	metrics *metrics.Metrics
	log     *slog.Logger

	now  func() time.Time
	pick func([]string) string
}

func New(gen genai.Generator, tpl *prompts.Set, st Store, loc *time.Location, m *metrics.Metrics, log *slog.Logger) *Generator {
	if tpl == nil {
		tpl = prompts.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{
		gen:     gen,
		prompts: tpl,
		store:   st,
		loc:     loc,
		metrics: m,
		log:     logger.OrDiscard(log),
		now:     time.Now,
		pick:    lo.Sample[string],
	}
}

// DateKey is the quiz document key for t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

// Run generates and stores today's quiz unless one already exists.
func (g *Generator) Run(ctx context.Context) (Outcome, error) {
	outcome, err := g.run(ctx)
	if err != nil {
		outcome = OutcomeFailed
	}
	g.metrics.Quiz(string(outcome))
	return outcome, err
}

func (g *Generator) run(ctx context.Context) (Outcome, error) {
	date := DateKey(g.now(), g.loc)
	log := g.log.With(slog.String("date", date))

	exists, err := g.store.Exists(ctx, date)
	if err != nil {
		return "", err
	}
	if exists {
		log.Warn("quiz already exists, skipping generation")
		return OutcomeSkipped, nil
	}

	country := g.pick(Countries)
	log.Info("generating quiz", slog.String("country", country))

	prompt, err := g.prompts.Render(prompts.Quiz, map[string]string{"Country": country})
	if err != nil {
		return "", fmt.Errorf("render quiz prompt: %w", err)
	}

	var q models.Quiz
	if err := genai.GenerateJSON(ctx, g.gen, prompt, &q); err != nil {
		return "", err
	}
	if err := Validate(q); err != nil {
		return "", err
	}
	q.Country = country
	q.Date = date

	if err := g.store.Save(ctx, q); err != nil {
		if errors.Is(err, store.ErrExists) {
			log.Warn("quiz stored concurrently, keeping existing one")
			return OutcomeSkipped, nil
		}
		return "", err
	}
	log.Info("quiz saved", slog.String("country", country))
	return OutcomeCreated, nil
}

// Validate checks the generated quiz shape.
func Validate(q models.Quiz) error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: empty question", genai.ErrContractViolation)
	}
	if len(q.Options) != optionCount {
		return fmt.Errorf("%w: want %d options, got %d", genai.ErrContractViolation, optionCount, len(q.Options))
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= optionCount {
		return fmt.Errorf("%w: correct option index %d out of range", genai.ErrContractViolation, q.CorrectOptionIndex)
	}
	return nil
}
