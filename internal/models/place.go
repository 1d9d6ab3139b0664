package models

import "time"

// Candidate is a venue returned by place discovery, before the synthesizer
// chooses among them. Rating is nil when the places service reports none.
type Candidate struct {
	PlaceID         string         `json:"place_id"`
	Name            string         `json:"name"`
	Address         string         `json:"address"`
	Rating          *float64       `json:"rating,omitempty"`
	Location        LatLng         `json:"geometry"`
	PhotoReferences []string       `json:"photo_references,omitempty"`
	Types           []string       `json:"types,omitempty"`
	TravelTime      *time.Duration `json:"-"`
}

// FirstPhoto returns the first photo reference, or "".
func (c Candidate) FirstPhoto() string {
	if len(c.PhotoReferences) == 0 {
		return ""
	}
	return c.PhotoReferences[0]
}
