package planner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/notify"
	"github.com/DeafMist/trip-planner/internal/store"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rating(v float64) *float64 { return &v }

type stubGenerator struct {
	mu        sync.Mutex
	keywords  string
	itinerary string
	err       error
	prompts   []string
	calls     int
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if strings.Contains(prompt, "search_keywords") {
		return s.keywords, nil
	}
	return s.itinerary, nil
}

type stubPlaces struct {
	mu          sync.Mutex
	center      models.LatLng
	noGeocode   bool
	results     map[string][]string
	details     map[string]models.Candidate
	travel      map[string]time.Duration
	travelErr   error
	searchErr   error
	searches    []string
	detailCalls []string
}

func (s *stubPlaces) Geocode(_ context.Context, _ string) (models.LatLng, bool, error) {
	if s.noGeocode {
		return models.LatLng{}, false, nil
	}
	return s.center, true, nil
}

func (s *stubPlaces) Search(_ context.Context, keyword string, _ models.LatLng, _ int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, keyword)
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.results[keyword], nil
}

func (s *stubPlaces) Detail(_ context.Context, id string) (models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailCalls = append(s.detailCalls, id)
	c, ok := s.details[id]
	if !ok {
		return models.Candidate{}, errors.New("unknown place " + id)
	}
	return c, nil
}

func (s *stubPlaces) TravelTimes(_ context.Context, _ models.LatLng, ids []string) (map[string]time.Duration, error) {
	if s.travelErr != nil {
		return nil, s.travelErr
	}
	out := map[string]time.Duration{}
	for _, id := range ids {
		if d, ok := s.travel[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

type stubStore struct {
	statuses   []models.PlanStatus
	completion *store.Completion
	message    string
	failErr    error
}

func (s *stubStore) MarkProcessing(_ context.Context, _, _ string) error {
	s.statuses = append(s.statuses, models.StatusProcessing)
	return nil
}

func (s *stubStore) MarkCompleted(_ context.Context, _, _ string, c store.Completion) error {
	s.statuses = append(s.statuses, models.StatusCompleted)
	s.completion = &c
	return nil
}

func (s *stubStore) MarkFailed(_ context.Context, _, _, message string) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.statuses = append(s.statuses, models.StatusError)
	s.message = message
	return nil
}

func (s *stubStore) last() models.PlanStatus {
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

type stubNotifier struct {
	err  error
	sent []notify.Message
}

func (s *stubNotifier) Send(_ context.Context, msg notify.Message) (string, error) {
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return "", s.err
	}
	return "msg-1", nil
}

type stubIndexer struct {
	docs []models.PlanSummary
}

func (s *stubIndexer) IndexPlan(_ context.Context, doc models.PlanSummary) error {
	s.docs = append(s.docs, doc)
	return nil
}

// kyotoPlaces returns six rated Kyoto candidates spread over three keywords
// with overlapping results.
func kyotoPlaces() *stubPlaces {
	details := map[string]models.Candidate{
		"p-hotel":   {PlaceID: "p-hotel", Name: "Hotel Kanra Kyoto", Rating: rating(4.6), Location: models.LatLng{Lat: 34.99, Lng: 135.75}, PhotoReferences: []string{"ph-hotel"}, Types: []string{"lodging"}},
		"p-museum":  {PlaceID: "p-museum", Name: "Kyoto City KYOCERA Museum of Art", Rating: rating(4.4), Location: models.LatLng{Lat: 35.01, Lng: 135.78}, PhotoReferences: []string{"ph-museum"}},
		"p-tea":     {PlaceID: "p-tea", Name: "Camellia Tea Ceremony", Rating: rating(4.9), Location: models.LatLng{Lat: 34.99, Lng: 135.78}},
		"p-garden":  {PlaceID: "p-garden", Name: "Shoren-in Temple", Rating: rating(4.5), Location: models.LatLng{Lat: 35.00, Lng: 135.78}, PhotoReferences: []string{"ph-garden"}},
		"p-ippodo":  {PlaceID: "p-ippodo", Name: "Ippodo Tea", Rating: rating(4.6), Location: models.LatLng{Lat: 35.01, Lng: 135.76}},
		"p-gallery": {PlaceID: "p-gallery", Name: "Kahitsukan Museum", Rating: rating(4.2), Location: models.LatLng{Lat: 35.00, Lng: 135.77}},
	}
	return &stubPlaces{
		center: models.LatLng{Lat: 35.01, Lng: 135.77},
		results: map[string][]string{
			"quiet art museums":     {"p-museum", "p-gallery", "p-hotel"},
			"traditional tea house": {"p-tea", "p-ippodo", "p-museum"},
			"ryokan":                {"p-hotel", "p-garden"},
		},
		details: details,
	}
}

const kyotoKeywords = "```json\n{\"search_keywords\": [\"quiet art museums\", \"traditional tea house\", \"ryokan\"]}\n```"
