package planner

import (
	"errors"
	"fmt"

	"github.com/DeafMist/trip-planner/internal/genai"
)

var (
	// ErrNoCoordinates means the destination could not be geocoded.
	ErrNoCoordinates = errors.New("could not find coordinates")
	// ErrNoCandidates means no rated place survived discovery.
	ErrNoCandidates = errors.New("no rated places found")
	// ErrEmptyPlan means enrichment dropped every synthesized step.
	ErrEmptyPlan = errors.New("no plan step matched a discovered place")
	// ErrContractViolation is returned when a model answer has the wrong shape.
	ErrContractViolation = genai.ErrContractViolation
)

// Kind groups run failures for logging and metrics.
type Kind string

const (
	KindInputResolution   Kind = "input_resolution"
	KindExternalService   Kind = "external_service"
	KindContractViolation Kind = "contract_violation"
	KindEmptyResult       Kind = "empty_result"
)

// RunError is the single failure value a run produces.
type RunError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func classify(stage string, err error) *RunError {
	var re *RunError
	if errors.As(err, &re) {
		return re
	}
	kind := KindExternalService
	switch {
	case errors.Is(err, ErrNoCoordinates):
		kind = KindInputResolution
	case errors.Is(err, ErrContractViolation):
		kind = KindContractViolation
	case errors.Is(err, ErrNoCandidates), errors.Is(err, ErrEmptyPlan):
		kind = KindEmptyResult
	}
	return &RunError{Kind: kind, Stage: stage, Err: err}
}

// userMessage is the short text stored in errorMessage.
func userMessage(re *RunError, city string) string {
	switch {
	case errors.Is(re.Err, ErrNoCoordinates):
		return "Could not find coordinates for city: " + city
	case errors.Is(re.Err, ErrNoCandidates):
		return "No rated places were found for this request in " + city
	case errors.Is(re.Err, ErrEmptyPlan):
		return "None of the planned places matched a discovered place"
	case re.Kind == KindContractViolation:
		return "The planning model returned an unexpected answer during " + re.Stage
	default:
		return "An external service failed during " + re.Stage
	}
}
