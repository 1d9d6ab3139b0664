package models

import "time"

// PlanStatus is the lifecycle field watched by the client application.
type PlanStatus string

const (
	StatusPending    PlanStatus = "pending"
	StatusProcessing PlanStatus = "processing"
	StatusCompleted  PlanStatus = "completed"
	StatusError      PlanStatus = "error"
)

// TravelRequest is the client-authored part of a plan document. It is read
// once at the start of a run and never modified by the pipeline.
type TravelRequest struct {
	UserID   string `json:"user_id" bson:"userId"`
	PlanID   string `json:"plan_id" bson:"_id"`
	City     string `json:"city" bson:"city"`
	Request  string `json:"request" bson:"request"`
	FCMToken string `json:"fcm_token,omitempty" bson:"fcmToken,omitempty"`
}

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// PlanStep is one timed stop of a synthesized itinerary. PlaceID, Geometry
// and PhotoReference are filled in by enrichment.
type PlanStep struct {
	Time                string  `json:"time" bson:"time"`
	PlaceName           string  `json:"place_name" bson:"place_name"`
	ActivityDescription string  `json:"activity_description" bson:"activity_description"`
	PlaceID             string  `json:"place_id,omitempty" bson:"place_id,omitempty"`
	Geometry            *LatLng `json:"geometry,omitempty" bson:"geometry,omitempty"`
	PhotoReference      string  `json:"photo_reference,omitempty" bson:"photo_reference,omitempty"`
}

// PlanRecord is the full plan document as persisted in the document store.
type PlanRecord struct {
	TravelRequest           `bson:",inline"`
	Status                  PlanStatus `json:"status" bson:"status"`
	Plan                    []PlanStep `json:"plan,omitempty" bson:"plan,omitempty"`
	EstimatedTotalCost      *int       `json:"estimated_total_cost,omitempty" bson:"estimated_total_cost,omitempty"`
	ThumbnailPhotoReference string     `json:"thumbnail_photo_reference,omitempty" bson:"thumbnail_photo_reference,omitempty"`
	ErrorMessage            string     `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
	CreatedAt               time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// PlanSummary is the projection of a completed plan stored in the search
// index for list views.
type PlanSummary struct {
	PlanID                  string    `json:"plan_id"`
	UserID                  string    `json:"user_id"`
	City                    string    `json:"city"`
	Request                 string    `json:"request"`
	PlaceNames              []string  `json:"place_names"`
	Steps                   int       `json:"steps"`
	EstimatedTotalCost      *int      `json:"estimated_total_cost,omitempty"`
	ThumbnailPhotoReference string    `json:"thumbnail_photo_reference,omitempty"`
	Timestamp               time.Time `json:"timestamp"`
}

// TravelRequestCreated is the trigger event emitted when a travel request
// document is created.
type TravelRequestCreated struct {
	EventID string        `json:"event_id"`
	Request TravelRequest `json:"request"`
}
