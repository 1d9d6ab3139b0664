package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/DeafMist/trip-planner/internal/genai"
	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/processing"
	"github.com/DeafMist/trip-planner/internal/prompts"
)

// Itinerary is the validated synthesizer answer before enrichment.
type Itinerary struct {
	Steps              []models.PlanStep
	EstimatedTotalCost *int
}

type promptCandidate struct {
	PlaceID           string        `json:"place_id"`
	Name              string        `json:"name"`
	Address           string        `json:"address,omitempty"`
	Rating            *float64      `json:"rating,omitempty"`
	Geometry          models.LatLng `json:"geometry"`
	PhotoReferences   []string      `json:"photo_references,omitempty"`
	Types             []string      `json:"types,omitempty"`
	TravelTimeMinutes *int          `json:"travel_time_minutes,omitempty"`
}

type synthesisStep struct {
	Time                string `json:"time"`
	PlaceName           string `json:"place_name"`
	ActivityDescription string `json:"activity_description"`
}

type synthesisAnswer struct {
	Plan               []synthesisStep `json:"plan"`
	EstimatedTotalCost json.RawMessage `json:"estimated_total_cost"`
}

// Synthesize asks the model for a timed plan over the candidates. Place
// names are not checked here; enrichment reconciles them.
func Synthesize(ctx context.Context, gen genai.Generator, tpl *prompts.Set, city, request string, candidates []models.Candidate, currency string) (Itinerary, error) {
	serialized, err := json.MarshalIndent(toPromptCandidates(candidates), "", "  ")
	if err != nil {
		return Itinerary{}, fmt.Errorf("marshal candidates: %w", err)
	}

	prompt, err := tpl.Render(prompts.Synthesize, map[string]string{
		"City":       city,
		"Request":    processing.CleanText(request, maxRequestRunes),
		"Candidates": string(serialized),
		"Currency":   currency,
	})
	if err != nil {
		return Itinerary{}, fmt.Errorf("render synthesize prompt: %w", err)
	}

	raw, err := gen.Generate(ctx, prompt)
	if err != nil {
		return Itinerary{}, err
	}
	return parseItinerary(raw)
}

// parseItinerary accepts either {"plan":[...],"estimated_total_cost":n} or
// a bare step array.
func parseItinerary(raw string) (Itinerary, error) {
	var answer synthesisAnswer
	body := bytes.TrimSpace([]byte(processing.StripCodeFence(raw)))
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &answer.Plan); err != nil {
			return Itinerary{}, fmt.Errorf("%w: %v", ErrContractViolation, err)
		}
	} else if err := genai.DecodeJSON(string(body), &answer); err != nil {
		return Itinerary{}, err
	}

	if len(answer.Plan) == 0 {
		return Itinerary{}, fmt.Errorf("%w: plan has no steps", ErrContractViolation)
	}

	steps := lo.Map(answer.Plan, func(s synthesisStep, _ int) models.PlanStep {
		return models.PlanStep{
			Time:                s.Time,
			PlaceName:           s.PlaceName,
			ActivityDescription: s.ActivityDescription,
		}
	})
	return Itinerary{Steps: steps, EstimatedTotalCost: parseCost(answer.EstimatedTotalCost)}, nil
}

// parseCost keeps a numeric estimate, rounded to an integer. Other shapes,
// negative amounts and amounts outside the int32 range are treated as
// absent.
func parseCost(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	f = math.Round(f)
	if math.IsNaN(f) || f < 0 || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

func toPromptCandidates(candidates []models.Candidate) []promptCandidate {
	return lo.Map(candidates, func(c models.Candidate, _ int) promptCandidate {
		pc := promptCandidate{
			PlaceID:         c.PlaceID,
			Name:            c.Name,
			Address:         c.Address,
			Rating:          c.Rating,
			Geometry:        c.Location,
			PhotoReferences: c.PhotoReferences,
			Types:           c.Types,
		}
		if c.TravelTime != nil {
			m := int(math.Round(c.TravelTime.Minutes()))
			pc.TravelTimeMinutes = &m
		}
		return pc
	})
}
