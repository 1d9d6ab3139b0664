package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"googlemaps.github.io/maps"

	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/models"
)

// detailFields is the field mask requested for every candidate.
var detailFields = []string{"place_id", "name", "vicinity", "rating", "geometry", "photos", "types"}

// Client wraps the Google Maps Platform client with the calls the planner
// needs. Every call is single-attempt.
type Client struct {
	maps   *maps.Client
	fields []maps.PlaceDetailsFieldMask
	log    *slog.Logger
}

// New builds a Client for apiKey. Extra options are passed to the maps
// client, e.g. maps.WithBaseURL for tests.
func New(apiKey string, log *slog.Logger, opts ...maps.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("maps api key is empty")
	}
	mc, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	fields := make([]maps.PlaceDetailsFieldMask, 0, len(detailFields))
	for _, f := range detailFields {
		mask, err := maps.ParsePlaceDetailsFieldMask(f)
		if err != nil {
			return nil, fmt.Errorf("parse field mask %q: %w", f, err)
		}
		fields = append(fields, mask)
	}
	return &Client{maps: mc, fields: fields, log: logger.OrDiscard(log)}, nil
}

// Geocode resolves a destination name. ok is false when nothing matched.
func (c *Client) Geocode(ctx context.Context, address string) (models.LatLng, bool, error) {
	results, err := c.maps.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return models.LatLng{}, false, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return models.LatLng{}, false, nil
	}
	loc := results[0].Geometry.Location
	return models.LatLng{Lat: loc.Lat, Lng: loc.Lng}, true, nil
}

// Search runs a text search around center and returns place identifiers in
// the order the service returned them.
func (c *Client) Search(ctx context.Context, keyword string, center models.LatLng, radius int) ([]string, error) {
	resp, err := c.maps.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    keyword,
		Location: &maps.LatLng{Lat: center.Lat, Lng: center.Lng},
		Radius:   uint(radius),
	})
	if err != nil {
		return nil, fmt.Errorf("text search %q: %w", keyword, err)
	}
	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.PlaceID != "" {
			ids = append(ids, r.PlaceID)
		}
	}
	return ids, nil
}

// Detail fetches the candidate fields for one place. A zero rating from the
// service means the place has none and is reported as a nil Rating.
func (c *Client) Detail(ctx context.Context, placeID string) (models.Candidate, error) {
	res, err := c.maps.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields:  c.fields,
	})
	if err != nil {
		return models.Candidate{}, fmt.Errorf("place details %q: %w", placeID, err)
	}
	cand := models.Candidate{
		PlaceID:  res.PlaceID,
		Name:     res.Name,
		Address:  res.Vicinity,
		Location: models.LatLng{Lat: res.Geometry.Location.Lat, Lng: res.Geometry.Location.Lng},
		Types:    res.Types,
	}
	if cand.PlaceID == "" {
		cand.PlaceID = placeID
	}
	if res.Rating > 0 {
		r := float64(res.Rating)
		cand.Rating = &r
	}
	for _, p := range res.Photos {
		if p.PhotoReference != "" {
			cand.PhotoReferences = append(cand.PhotoReferences, p.PhotoReference)
		}
	}
	return cand, nil
}

// TravelTimes returns the driving time from origin to each place, keyed by
// place id. Places the service could not route are absent from the map.
func (c *Client) TravelTimes(ctx context.Context, origin models.LatLng, placeIDs []string) (map[string]time.Duration, error) {
	if len(placeIDs) == 0 {
		return map[string]time.Duration{}, nil
	}
	dests := make([]string, 0, len(placeIDs))
	for _, id := range placeIDs {
		dests = append(dests, "place_id:"+id)
	}
	resp, err := c.maps.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{fmt.Sprintf("%f,%f", origin.Lat, origin.Lng)},
		Destinations: dests,
		Mode:         maps.TravelModeDriving,
	})
	if err != nil {
		return nil, fmt.Errorf("distance matrix: %w", err)
	}
	out := make(map[string]time.Duration, len(placeIDs))
	if len(resp.Rows) == 0 {
		return out, nil
	}
	for i, el := range resp.Rows[0].Elements {
		if i >= len(placeIDs) || el == nil || el.Status != "OK" {
			continue
		}
		out[placeIDs[i]] = el.Duration
	}
	c.log.Debug("travel times fetched", slog.Int("requested", len(placeIDs)), slog.Int("routed", len(out)))
	return out, nil
}
