package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/DeafMist/trip-planner/internal/logger"
)

// Collection names.
const (
	CollectionPlans      = "plans"
	CollectionUsers      = "users"
	CollectionUserTokens = "users_token"
	CollectionPosts      = "posts"
	CollectionTaxonomies = "taxonomies"
	CollectionQuizzes    = "quizzes"
)

// ErrNotFound is returned when a keyed document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrExists is returned when a write-once document is already stored.
var ErrExists = errors.New("document already exists")

// Mongo owns the client connection and hands out typed stores.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	log    *slog.Logger
}

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri, database string, log *slog.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log = logger.OrDiscard(log)
	log.Info("connected to mongo", slog.String("database", database))
	return &Mongo{client: client, db: client.Database(database), log: log}, nil
}

// Ping checks the connection.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Plans returns the plan document store.
func (m *Mongo) Plans() *PlanStore {
	return &PlanStore{coll: m.db.Collection(CollectionPlans)}
}

// Social returns the store used by the interaction flows.
func (m *Mongo) Social() *SocialStore {
	return &SocialStore{
		users:      m.db.Collection(CollectionUsers),
		tokens:     m.db.Collection(CollectionUserTokens),
		posts:      m.db.Collection(CollectionPosts),
		taxonomies: m.db.Collection(CollectionTaxonomies),
		log:        m.log,
	}
}

// Quizzes returns the daily quiz store.
func (m *Mongo) Quizzes() *QuizStore {
	return &QuizStore{coll: m.db.Collection(CollectionQuizzes)}
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
