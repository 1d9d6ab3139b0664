package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/DeafMist/trip-planner/internal/models"
)

// Completion is everything written with the completed status.
type Completion struct {
	Plan                    []models.PlanStep
	EstimatedTotalCost      *int
	ThumbnailPhotoReference string
}

// PlanStore reads and mutates plan documents. Each status transition is a
// single atomic partial update on one document.
type PlanStore struct {
	coll *mongo.Collection
}

// Create inserts a new pending travel request.
func (s *PlanStore) Create(ctx context.Context, req models.TravelRequest) error {
	rec := models.PlanRecord{
		TravelRequest: req,
		Status:        models.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert plan %s: %w", req.PlanID, err)
	}
	return nil
}

// Get loads one plan document.
func (s *PlanStore) Get(ctx context.Context, userID, planID string) (*models.PlanRecord, error) {
	var rec models.PlanRecord
	if err := s.coll.FindOne(ctx, planFilter(userID, planID)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("get plan %s: %w", planID, notFound(err))
	}
	return &rec, nil
}

// MarkProcessing sets status=processing.
func (s *PlanStore) MarkProcessing(ctx context.Context, userID, planID string) error {
	return s.update(ctx, userID, planID, processingUpdate())
}

// MarkCompleted writes the plan and status=completed with a server timestamp.
func (s *PlanStore) MarkCompleted(ctx context.Context, userID, planID string, c Completion) error {
	return s.update(ctx, userID, planID, completedUpdate(c))
}

// MarkFailed writes status=error and the message.
func (s *PlanStore) MarkFailed(ctx context.Context, userID, planID, message string) error {
	return s.update(ctx, userID, planID, failedUpdate(message))
}

func (s *PlanStore) update(ctx context.Context, userID, planID string, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, planFilter(userID, planID), update)
	if err != nil {
		return fmt.Errorf("update plan %s: %w", planID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update plan %s: %w", planID, ErrNotFound)
	}
	return nil
}

func planFilter(userID, planID string) bson.M {
	return bson.M{"_id": planID, "userId": userID}
}

func processingUpdate() bson.M {
	return bson.M{"$set": bson.M{"status": models.StatusProcessing}}
}

func completedUpdate(c Completion) bson.M {
	set := bson.M{
		"status": models.StatusCompleted,
		"plan":   c.Plan,
	}
	if c.EstimatedTotalCost != nil {
		set["estimated_total_cost"] = *c.EstimatedTotalCost
	}
	if c.ThumbnailPhotoReference != "" {
		set["thumbnail_photo_reference"] = c.ThumbnailPhotoReference
	}
	return bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updatedAt": true},
	}
}

func failedUpdate(message string) bson.M {
	return bson.M{"$set": bson.M{
		"status":       models.StatusError,
		"errorMessage": message,
	}}
}
