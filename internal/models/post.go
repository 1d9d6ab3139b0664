package models

// Post event types carried on the interactions topic.
const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
	EventPostSaved   = "post_saved"
	EventPostUnsaved = "post_unsaved"
)

// PostSnapshot is the subset of a post document the interaction flows read.
// A nil slice means the field is absent from the document.
type PostSnapshot struct {
	AuthorID  string   `json:"userId" bson:"userId"`
	LikedBy   []string `json:"likedBy" bson:"likedBy"`
	AutoTags  []string `json:"AutoTags" bson:"AutoTags"`
	ImageURLs []string `json:"imageUrls" bson:"imageUrls"`
}

// PostEvent is one interaction event. After is set for post_created,
// Before/After for post_updated, UserID for post_saved and post_unsaved.
type PostEvent struct {
	Type   string        `json:"type"`
	PostID string        `json:"post_id"`
	UserID string        `json:"user_id,omitempty"`
	Before *PostSnapshot `json:"before,omitempty"`
	After  *PostSnapshot `json:"after,omitempty"`
}

// UserToken is the notification profile of a user.
type UserToken struct {
	Username string `bson:"username"`
	FCMToken string `bson:"fcmToken"`
}
