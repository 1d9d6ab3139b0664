package models

import "time"

// Quiz is the daily trivia document, keyed by its date.
type Quiz struct {
	Question           string    `json:"question" bson:"question"`
	Options            []string  `json:"options" bson:"options"`
	CorrectOptionIndex int       `json:"correctOptionIndex" bson:"correctOptionIndex"`
	Explanation        string    `json:"explanation" bson:"explanation"`
	Country            string    `json:"country" bson:"country"`
	Date               string    `json:"date" bson:"date"`
	CreatedAt          time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}
