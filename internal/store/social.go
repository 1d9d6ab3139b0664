package store

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/DeafMist/trip-planner/internal/models"
)

// TaxonomyDocument is the key of the master tag taxonomy.
const TaxonomyDocument = "master_list"

// SocialStore serves the post interaction flows: user tokens, post tags,
// the tag taxonomy and preference counters.
type SocialStore struct {
	users      *mongo.Collection
	tokens     *mongo.Collection
	posts      *mongo.Collection
	taxonomies *mongo.Collection
	log        *slog.Logger
}

// UserToken loads the notification profile of a user.
func (s *SocialStore) UserToken(ctx context.Context, userID string) (*models.UserToken, error) {
	var tok models.UserToken
	if err := s.tokens.FindOne(ctx, bson.M{"_id": userID}).Decode(&tok); err != nil {
		return nil, fmt.Errorf("get user token %s: %w", userID, notFound(err))
	}
	return &tok, nil
}

// PostTags returns the AutoTags of a post.
func (s *SocialStore) PostTags(ctx context.Context, postID string) ([]string, error) {
	var post models.PostSnapshot
	if err := s.posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post); err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, notFound(err))
	}
	return post.AutoTags, nil
}

// Taxonomy loads the category -> tag list mapping. Non-list fields of the
// document are ignored.
func (s *SocialStore) Taxonomy(ctx context.Context) (map[string][]string, error) {
	var raw bson.M
	if err := s.taxonomies.FindOne(ctx, bson.M{"_id": TaxonomyDocument}).Decode(&raw); err != nil {
		return nil, fmt.Errorf("get taxonomy: %w", notFound(err))
	}
	return taxonomyFromDocument(raw), nil
}

// IncrementPreferences applies all counter deltas to a user in one atomic
// update. Keys are dotted field paths.
func (s *SocialStore) IncrementPreferences(ctx context.Context, userID string, deltas map[string]int) error {
	if len(deltas) == 0 {
		return nil
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, incrementUpdate(deltas))
	if err != nil {
		return fmt.Errorf("increment preferences %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("increment preferences %s: %w", userID, ErrNotFound)
	}
	s.log.Debug("preferences incremented", slog.String("user_id", userID), slog.Int("fields", len(deltas)))
	return nil
}

// SetAutoTags replaces the AutoTags of a post in one update.
func (s *SocialStore) SetAutoTags(ctx context.Context, postID string, tags []string) error {
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": postID}, autoTagsUpdate(tags))
	if err != nil {
		return fmt.Errorf("set auto tags %s: %w", postID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("set auto tags %s: %w", postID, ErrNotFound)
	}
	s.log.Debug("auto tags set", slog.String("post_id", postID), slog.Int("tags", len(tags)))
	return nil
}

func autoTagsUpdate(tags []string) bson.M {
	return bson.M{"$set": bson.M{"AutoTags": tags}}
}

func incrementUpdate(deltas map[string]int) bson.M {
	inc := bson.M{}
	for path, d := range deltas {
		inc[path] = d
	}
	return bson.M{"$inc": inc}
}

func taxonomyFromDocument(raw bson.M) map[string][]string {
	out := make(map[string][]string, len(raw))
	for key, value := range raw {
		if key == "_id" {
			continue
		}
		list, ok := value.(bson.A)
		if !ok {
			continue
		}
		tags := make([]string, 0, len(list))
		for _, item := range list {
			if tag, ok := item.(string); ok {
				tags = append(tags, tag)
			}
		}
		out[key] = tags
	}
	return out
}
