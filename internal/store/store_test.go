package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/DeafMist/trip-planner/internal/models"
)

func TestCompletedUpdateIsSingleAtomicDocument(t *testing.T) {
	cost := 12000
	steps := []models.PlanStep{{Time: "09:00", PlaceName: "Ryokan", PlaceID: "p1"}}

	update := completedUpdate(Completion{Plan: steps, EstimatedTotalCost: &cost, ThumbnailPhotoReference: "ph"})

	set := update["$set"].(bson.M)
	require.Equal(t, models.StatusCompleted, set["status"])
	require.Equal(t, steps, set["plan"])
	require.Equal(t, 12000, set["estimated_total_cost"])
	require.Equal(t, "ph", set["thumbnail_photo_reference"])
	require.Equal(t, bson.M{"updatedAt": true}, update["$currentDate"])
}

func TestCompletedUpdateOmitsOptionalFields(t *testing.T) {
	update := completedUpdate(Completion{Plan: []models.PlanStep{{PlaceName: "A"}}})

	set := update["$set"].(bson.M)
	require.NotContains(t, set, "estimated_total_cost")
	require.NotContains(t, set, "thumbnail_photo_reference")
}

func TestFailedAndProcessingUpdates(t *testing.T) {
	failed := failedUpdate("Could not find coordinates for city: Atlantis")
	require.Equal(t, bson.M{
		"status":       models.StatusError,
		"errorMessage": "Could not find coordinates for city: Atlantis",
	}, failed["$set"])

	require.Equal(t, bson.M{"status": models.StatusProcessing}, processingUpdate()["$set"])
}

func TestIncrementUpdate(t *testing.T) {
	update := incrementUpdate(map[string]int{
		"preferences.food.ramen":   1,
		"preferences.nature.beach": 1,
	})
	require.Equal(t, bson.M{"$inc": bson.M{
		"preferences.food.ramen":   1,
		"preferences.nature.beach": 1,
	}}, update)
}

func TestTaxonomyFromDocument(t *testing.T) {
	got := taxonomyFromDocument(bson.M{
		"_id":     "master_list",
		"food":    bson.A{"Ramen", "sushi", 3},
		"nature":  bson.A{"beach"},
		"comment": "not a list",
	})
	require.Equal(t, map[string][]string{
		"food":   {"Ramen", "sushi"},
		"nature": {"beach"},
	}, got)
}

func TestQuizDocumentIsWrittenWhole(t *testing.T) {
	at := time.Date(2026, 10, 14, 0, 5, 0, 0, time.UTC)
	doc := quizDocument(models.Quiz{Question: "q", Options: []string{"a", "b", "c", "d"}, Date: "2026-10-14", Country: "Peru"}, at)
	require.Equal(t, "2026-10-14", doc["_id"])
	require.Equal(t, "2026-10-14", doc["date"])
	require.Equal(t, "Peru", doc["country"])
	require.Equal(t, at, doc["createdAt"])
	for key := range doc {
		require.False(t, strings.HasPrefix(key, "$"), "operator %s in insert document", key)
	}
}

func TestAutoTagsUpdateIsSingleSet(t *testing.T) {
	update := autoTagsUpdate([]string{"beach", "sunset"})
	require.Len(t, update, 1)
	require.Equal(t, bson.M{"AutoTags": []string{"beach", "sunset"}}, update["$set"])
}
