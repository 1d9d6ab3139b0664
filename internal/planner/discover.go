package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/models"
)

// Places is the geocoding and places contract the pipeline depends on.
type Places interface {
	Geocode(ctx context.Context, address string) (models.LatLng, bool, error)
	Search(ctx context.Context, keyword string, center models.LatLng, radius int) ([]string, error)
	Detail(ctx context.Context, placeID string) (models.Candidate, error)
	TravelTimes(ctx context.Context, origin models.LatLng, placeIDs []string) (map[string]time.Duration, error)
}

// DiscoverOptions bound the discovery call volume.
type DiscoverOptions struct {
	MaxCandidates int
	Radius        int
	Parallel      bool
	TravelTimes   bool
}

// Locate geocodes the destination once.
func Locate(ctx context.Context, p Places, city string) (models.LatLng, error) {
	center, ok, err := p.Geocode(ctx, city)
	if err != nil {
		return models.LatLng{}, err
	}
	if !ok {
		return models.LatLng{}, fmt.Errorf("%w for city %q", ErrNoCoordinates, city)
	}
	return center, nil
}

// Discover searches every keyword around center, merges the identifiers in
// encounter order, fetches details for at most MaxCandidates of them and
// keeps only rated places. Candidate ids are unique even when the details
// service maps several search ids to one place.
func Discover(ctx context.Context, p Places, center models.LatLng, keywords []string, opts DiscoverOptions, log *slog.Logger) ([]models.Candidate, error) {
	log = logger.OrDiscard(log)

	perKeyword, err := searchAll(ctx, p, center, keywords, opts)
	if err != nil {
		return nil, err
	}

	ids := mergeIDs(perKeyword)
	if opts.MaxCandidates > 0 && len(ids) > opts.MaxCandidates {
		ids = ids[:opts.MaxCandidates]
	}

	details := make([]models.Candidate, 0, len(ids))
	for _, id := range ids {
		cand, err := p.Detail(ctx, id)
		if err != nil {
			return nil, err
		}
		details = append(details, cand)
	}
	// Details may answer with a refreshed canonical id, so two search ids
	// can collapse into one place.
	details = lo.UniqBy(details, func(c models.Candidate) string { return c.PlaceID })

	candidates := FilterRated(details)
	log.Info("places discovered",
		slog.Int("keywords", len(keywords)),
		slog.Int("unique_ids", len(ids)),
		slog.Int("rated", len(candidates)),
	)
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	if opts.TravelTimes {
		annotateTravelTimes(ctx, p, center, candidates, log)
	}
	return candidates, nil
}

// FilterRated drops candidates without a rating. Rating is the only predicate.
func FilterRated(candidates []models.Candidate) []models.Candidate {
	return lo.Filter(candidates, func(c models.Candidate, _ int) bool {
		return c.Rating != nil
	})
}

func searchAll(ctx context.Context, p Places, center models.LatLng, keywords []string, opts DiscoverOptions) ([][]string, error) {
	results := make([][]string, len(keywords))
	if !opts.Parallel {
		for i, kw := range keywords {
			ids, err := p.Search(ctx, kw, center, opts.Radius)
			if err != nil {
				return nil, err
			}
			results[i] = ids
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, kw := range keywords {
		g.Go(func() error {
			ids, err := p.Search(gctx, kw, center, opts.Radius)
			if err != nil {
				return err
			}
			results[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// mergeIDs unions identifier lists keeping the first occurrence of each.
func mergeIDs(lists [][]string) []string {
	return lo.Uniq(lo.Flatten(lists))
}

func annotateTravelTimes(ctx context.Context, p Places, center models.LatLng, candidates []models.Candidate, log *slog.Logger) {
	ids := lo.Map(candidates, func(c models.Candidate, _ int) string { return c.PlaceID })
	times, err := p.TravelTimes(ctx, center, ids)
	if err != nil {
		log.Warn("travel times unavailable", slog.Any("err", err))
		return
	}
	for i := range candidates {
		if d, ok := times[candidates[i].PlaceID]; ok {
			candidates[i].TravelTime = &d
		}
	}
}
