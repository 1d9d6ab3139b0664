package interactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/metrics"
	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/notify"
	"github.com/DeafMist/trip-planner/internal/store"
)

const fallbackUsername = "Someone"

// Social is the document store surface used by the interaction flows.
type Social interface {
	UserToken(ctx context.Context, userID string) (*models.UserToken, error)
	PostTags(ctx context.Context, postID string) ([]string, error)
	Taxonomy(ctx context.Context) (map[string][]string, error)
	IncrementPreferences(ctx context.Context, userID string, deltas map[string]int) error
}

// AutoTagger derives and stores the AutoTags of a new post.
type AutoTagger interface {
	Tag(ctx context.Context, postID string, imageURLs []string) ([]string, error)
}

// Handler applies post interaction events to user preferences and sends
// like notifications.
type Handler struct {
	social   Social
	notifier notify.Sender
	tagger   AutoTagger
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func New(social Social, notifier notify.Sender, m *metrics.Metrics, log *slog.Logger) *Handler {
	return &Handler{social: social, notifier: notifier, metrics: m, log: logger.OrDiscard(log)}
}

// WithAutoTagger enables tagging of post_created events.
func (h *Handler) WithAutoTagger(t AutoTagger) *Handler {
	h.tagger = t
	return h
}

// Handle dispatches one event. Notification failures are logged only.
func (h *Handler) Handle(ctx context.Context, ev models.PostEvent) error {
	log := h.log.With(slog.String("type", ev.Type), slog.String("post_id", ev.PostID))

	var err error
	switch ev.Type {
	case models.EventPostCreated:
		err = h.postCreated(ctx, log, ev)
	case models.EventPostUpdated:
		err = h.postUpdated(ctx, log, ev)
	case models.EventPostSaved:
		err = h.postSaved(ctx, log, ev, 1)
	case models.EventPostUnsaved:
		err = h.postSaved(ctx, log, ev, -1)
	default:
		err = fmt.Errorf("unknown event type %q", ev.Type)
	}

	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	h.metrics.Interaction(ev.Type, outcome)
	return err
}

func (h *Handler) postCreated(ctx context.Context, log *slog.Logger, ev models.PostEvent) error {
	if h.tagger == nil {
		log.Debug("auto tagging disabled, skipping")
		return nil
	}
	if ev.After == nil {
		log.Info("post created without snapshot, skipping")
		return nil
	}
	_, err := h.tagger.Tag(ctx, ev.PostID, ev.After.ImageURLs)
	return err
}

func (h *Handler) postUpdated(ctx context.Context, log *slog.Logger, ev models.PostEvent) error {
	if ev.After == nil {
		log.Info("post update without after snapshot, skipping")
		return nil
	}
	before := ev.Before
	if before == nil {
		before = &models.PostSnapshot{}
	}
	added, removed := lo.Difference(ev.After.LikedBy, before.LikedBy)

	if len(added) > 0 {
		h.notifyLike(ctx, log, ev.PostID, ev.After.AuthorID, added[0])
	}

	if ev.After.LikedBy == nil || ev.After.AutoTags == nil {
		log.Info("update not related to likes or post has no tags, skipping preferences")
		return nil
	}
	switch {
	case len(added) > 0:
		log.Info("post liked", slog.String("user_id", added[0]))
		return h.UpdatePreferences(ctx, added[0], ev.After.AutoTags, 1)
	case len(removed) > 0:
		log.Info("post unliked", slog.String("user_id", removed[0]))
		return h.UpdatePreferences(ctx, removed[0], ev.After.AutoTags, -1)
	}
	return nil
}

func (h *Handler) postSaved(ctx context.Context, log *slog.Logger, ev models.PostEvent, weight int) error {
	tags, err := h.social.PostTags(ctx, ev.PostID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("post not found, cannot update preferences")
		return nil
	}
	if err != nil {
		return err
	}
	return h.UpdatePreferences(ctx, ev.UserID, tags, weight)
}

// UpdatePreferences adds weight to every preferences.<category>.<tag>
// counter whose tag appears in tags, in one atomic update.
func (h *Handler) UpdatePreferences(ctx context.Context, userID string, tags []string, weight int) error {
	if userID == "" || len(tags) == 0 {
		h.log.Info("nothing to score", slog.String("user_id", userID))
		return nil
	}
	taxonomy, err := h.social.Taxonomy(ctx)
	if err != nil {
		return err
	}
	deltas := PreferenceDeltas(taxonomy, tags, weight)
	if len(deltas) == 0 {
		h.log.Info("no post tag matched the taxonomy", slog.String("user_id", userID))
		return nil
	}
	h.log.Info("updating preferences",
		slog.String("user_id", userID),
		slog.Int("weight", weight),
		slog.Int("fields", len(deltas)),
	)
	return h.social.IncrementPreferences(ctx, userID, deltas)
}

// PreferenceDeltas matches tags against each taxonomy category, ignoring
// case, and returns dotted counter paths mapped to weight. Tags that are not
// valid field names are skipped.
func PreferenceDeltas(taxonomy map[string][]string, tags []string, weight int) map[string]int {
	postTags := lo.SliceToMap(tags, func(t string) (string, struct{}) {
		return strings.ToLower(t), struct{}{}
	})
	deltas := map[string]int{}
	for category, valid := range taxonomy {
		if !fieldSafe(category) {
			continue
		}
		for _, tag := range valid {
			tag = strings.ToLower(tag)
			if _, ok := postTags[tag]; !ok || !fieldSafe(tag) {
				continue
			}
			deltas["preferences."+category+"."+tag] = weight
		}
	}
	return deltas
}

func fieldSafe(name string) bool {
	return name != "" && !strings.ContainsAny(name, ".$")
}

func (h *Handler) notifyLike(ctx context.Context, log *slog.Logger, postID, authorID, likerID string) {
	if authorID == "" || authorID == likerID {
		log.Info("author missing or self like, no notification")
		h.metrics.Notification("like", "skipped")
		return
	}
	author, err := h.social.UserToken(ctx, authorID)
	if err != nil {
		log.Warn("load author token", slog.String("author_id", authorID), slog.Any("err", err))
		h.metrics.Notification("like", "skipped")
		return
	}
	if author.FCMToken == "" {
		log.Warn("author has no notification token", slog.String("author_id", authorID))
		h.metrics.Notification("like", "skipped")
		return
	}

	username := fallbackUsername
	if liker, err := h.social.UserToken(ctx, likerID); err == nil && liker.Username != "" {
		username = liker.Username
	}

	id, err := h.notifier.Send(ctx, notify.Message{
		Token: author.FCMToken,
		Title: "New Like! ❤️",
		Body:  username + " liked your post.",
		Data:  map[string]string{"postId": postID, "type": "like"},
	})
	if errors.Is(err, notify.ErrDisabled) {
		h.metrics.Notification("like", "skipped")
		return
	}
	if err != nil {
		log.Error("send like notification", slog.Any("err", err))
		h.metrics.Notification("like", "failed")
		return
	}
	h.metrics.Notification("like", "sent")
	log.Info("like notification sent", slog.String("message_id", id))
}
