package database

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record already exists")
	ErrKeywordInUse = errors.New("keyword is referenced by stored articles")
)

// RecordResult is the outcome of a check-and-insert of an article
type RecordResult int

const (
	RecordFailed RecordResult = iota
	RecordCreated
	RecordAlreadyExists
)

func (r RecordResult) String() string {
	switch r {
	case RecordCreated:
		return "created"
	case RecordAlreadyExists:
		return "already_exists"
	default:
		return "failed"
	}
}

// NewArticle holds the fields of an entry about to be recorded
type NewArticle struct {
	Title         string
	Content       string
	URL           string
	SourceID      int64
	PublishedDate string
}

// RecordedArticle identifies a newly created article. It is zero unless the
// result is RecordCreated.
type RecordedArticle struct {
	ID        int64
	FoundDate time.Time
}

// ArticleFilter narrows SearchArticles. Empty fields are ignored.
type ArticleFilter struct {
	Keyword string // Case-insensitive substring of a matched keyword
	Source  string // Case-insensitive substring of the source name
	Limit   int
}

const (
	DefaultRecentLimit = 50
	DefaultSearchLimit = 100
	MaxListLimit       = 500
)

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, MaxListLimit)
}
