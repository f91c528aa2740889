package model

import "time"

// The three community collections below are append-only: rows are created
// and listed, never updated or deleted by the application.
//
// JSON tags use snake_case because that is what the bundled front end reads.

// Alert is a broadcast accessibility alert (e.g. "lift out of order").
type Alert struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultMessageType is used when a community message arrives without a type.
const DefaultMessageType = "chat"

// CommunityMessage is a post in the community feed.
type CommunityMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Message   string    `json:"message"`
	ImageURL  string    `json:"image_url,omitempty"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Route is a saved journey with its accessibility filters
// (e.g. {"wheelchair": true, "avoid_stairs": true}).
type Route struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"user_id,omitempty"`
	StartLocation        string         `json:"start_location"`
	Destination          string         `json:"destination"`
	AccessibilityFilters map[string]any `json:"accessibility_filters"`
	CreatedAt            time.Time      `json:"created_at"`
}
