package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DeafMist/trip-planner/internal/models"
)

// QuizStore keeps one quiz document per calendar date.
type QuizStore struct {
	coll *mongo.Collection
}

// Exists reports whether a quiz for date is already stored.
func (s *QuizStore) Exists(ctx context.Context, date string) (bool, error) {
	err := s.coll.FindOne(ctx, bson.M{"_id": date}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check quiz %s: %w", date, err)
	}
	return true, nil
}

// Save inserts q under its date. Quiz documents are write-once: a second
// save for the same date returns ErrExists and leaves the stored quiz
// untouched.
func (s *QuizStore) Save(ctx context.Context, q models.Quiz) error {
	_, err := s.coll.InsertOne(ctx, quizDocument(q, time.Now().UTC()))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("save quiz %s: %w", q.Date, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("save quiz %s: %w", q.Date, err)
	}
	return nil
}

func quizDocument(q models.Quiz, createdAt time.Time) bson.M {
	return bson.M{
		"_id":                q.Date,
		"question":           q.Question,
		"options":            q.Options,
		"correctOptionIndex": q.CorrectOptionIndex,
		"explanation":        q.Explanation,
		"country":            q.Country,
		"date":               q.Date,
		"createdAt":          createdAt,
	}
}
