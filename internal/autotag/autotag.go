package autotag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/DeafMist/trip-planner/internal/logger"
)

// MinScore is the confidence a label must exceed to become a tag.
const MinScore = 0.75

// Label is one detected image label.
type Label struct {
	Description string
	Score       float32
}

// Labeler detects labels on a publicly reachable image.
type Labeler interface {
	Labels(ctx context.Context, imageURL string) ([]Label, error)
}

// TagWriter stores the aggregated tags of a post.
type TagWriter interface {
	SetAutoTags(ctx context.Context, postID string, tags []string) error
}

// Tagger derives AutoTags for new posts from their images.
type Tagger struct {
	labeler Labeler
	writer  TagWriter
	log     *slog.Logger
}

func New(labeler Labeler, writer TagWriter, log *slog.Logger) *Tagger {
	return &Tagger{labeler: labeler, writer: writer, log: logger.OrDiscard(log)}
}

// Tag labels every image of a post and writes the unique qualifying tags
// in a single update. Nothing is written when no image yields a tag. A
// labeling failure aborts the post without a partial write.
func (t *Tagger) Tag(ctx context.Context, postID string, imageURLs []string) ([]string, error) {
	log := t.log.With(slog.String("post_id", postID))

	urls := lo.FilterMap(imageURLs, func(u string, _ int) (string, bool) {
		u = strings.TrimSpace(u)
		return u, u != ""
	})
	if len(urls) == 0 {
		log.Info("post has no image urls, skipping")
		return nil, nil
	}

	var tags []string
	for _, url := range urls {
		labels, err := t.labeler.Labels(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("label image %s: %w", url, err)
		}
		tags = append(tags, Qualifying(labels)...)
	}
	tags = lo.Uniq(tags)

	if len(tags) == 0 {
		log.Info("no labels above threshold", slog.Int("images", len(urls)))
		return nil, nil
	}
	if err := t.writer.SetAutoTags(ctx, postID, tags); err != nil {
		return nil, err
	}
	log.Info("auto tags written", slog.Int("images", len(urls)), slog.Any("tags", tags))
	return tags, nil
}

// Qualifying keeps the lowercased descriptions of labels scoring above
// MinScore.
func Qualifying(labels []Label) []string {
	return lo.FilterMap(labels, func(l Label, _ int) (string, bool) {
		d := strings.ToLower(strings.TrimSpace(l.Description))
		return d, d != "" && l.Score > MinScore
	})
}
