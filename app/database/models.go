package database

import (
	"time"
)

// Source represents a polled feed endpoint
type Source struct {
	ID     int64
	Name   string
	URL    string // Feed endpoint, unique
	Active bool
}

// Keyword represents a word that triggers article capture
type Keyword struct {
	ID     int64
	Word   string // Unique, case preserved
	Active bool
}

// Article represents a stored entry joined with its source name and matched keywords
type Article struct {
	ID            int64
	Title         string
	Content       string
	URL           string
	SourceID      *int64 // nil once the owning source has been deleted
	SourceName    string
	PublishedDate string // Free-form value taken from the feed
	FoundDate     time.Time
	Keywords      []string
}
