package planner

import (
	"github.com/DeafMist/trip-planner/internal/models"
)

// Enriched is the reconciled plan.
type Enriched struct {
	Steps     []models.PlanStep
	Thumbnail string
	// Dropped lists place names that matched no candidate, in step order.
	Dropped []string
}

// Enrich attaches id, coordinate and first photo of the first candidate whose
// name equals each step's place name. Steps without a match are dropped. The
// thumbnail is the photo of the first surviving step. Inputs are not
// modified.
func Enrich(steps []models.PlanStep, candidates []models.Candidate) (Enriched, error) {
	byName := make(map[string]models.Candidate, len(candidates))
	for _, c := range candidates {
		if c.Name == "" {
			continue
		}
		if _, ok := byName[c.Name]; !ok {
			byName[c.Name] = c
		}
	}

	out := Enriched{Steps: make([]models.PlanStep, 0, len(steps))}
	for _, step := range steps {
		cand, ok := byName[step.PlaceName]
		if !ok {
			out.Dropped = append(out.Dropped, step.PlaceName)
			continue
		}
		loc := cand.Location
		step.PlaceID = cand.PlaceID
		step.Geometry = &loc
		step.PhotoReference = cand.FirstPhoto()
		out.Steps = append(out.Steps, step)
	}

	if len(out.Steps) == 0 {
		return out, ErrEmptyPlan
	}
	out.Thumbnail = out.Steps[0].PhotoReference
	return out, nil
}
