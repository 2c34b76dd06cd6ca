package api

import (
	"time"

	"github.com/lysyi3m/rss-monitor/app/database"
	"github.com/lysyi3m/rss-monitor/app/feed"
	"github.com/lysyi3m/rss-monitor/app/tasks"
)

type Handler struct {
	sourceRepo  database.SourceRepository
	keywordRepo database.KeywordRepository
	articleRepo database.ArticleRepository
	scheduler   tasks.TaskSchedulerInterface
	generator   *feed.Generator
}

type CreateSourceRequest struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
}

type CreateKeywordRequest struct {
	Word string `json:"word" binding:"required"`
}

type SourceResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

type KeywordResponse struct {
	ID     int64  `json:"id"`
	Word   string `json:"word"`
	Active bool   `json:"active"`
}

type ArticleResponse struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	URL           string   `json:"url"`
	PublishedDate string   `json:"published_date"`
	FoundDate     string   `json:"found_date"`
	SourceID      *int64   `json:"source_id"`
	SourceName    string   `json:"source_name"`
	Keywords      []string `json:"keywords"`
}

type SchedulerResponse struct {
	State          string            `json:"state"`
	Cycles         int64             `json:"cycles"`
	LastStartedAt  *time.Time        `json:"last_started_at,omitempty"`
	LastFinishedAt *time.Time        `json:"last_finished_at,omitempty"`
	NextRunAt      *time.Time        `json:"next_run_at,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	LastStats      *tasks.CycleStats `json:"last_stats,omitempty"`
}

func newSourceResponse(s database.Source) SourceResponse {
	return SourceResponse{ID: s.ID, Name: s.Name, URL: s.URL, Active: s.Active}
}

func newKeywordResponse(k database.Keyword) KeywordResponse {
	return KeywordResponse{ID: k.ID, Word: k.Word, Active: k.Active}
}

func newArticleResponse(a database.Article) ArticleResponse {
	keywords := a.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	return ArticleResponse{
		ID:            a.ID,
		Title:         a.Title,
		Content:       a.Content,
		URL:           a.URL,
		PublishedDate: a.PublishedDate,
		FoundDate:     a.FoundDate.In(time.Local).Format(time.RFC3339),
		SourceID:      a.SourceID,
		SourceName:    a.SourceName,
		Keywords:      keywords,
	}
}

func newSchedulerResponse(s tasks.Status) SchedulerResponse {
	return SchedulerResponse{
		State:          string(s.State),
		Cycles:         s.Cycles,
		LastStartedAt:  s.LastStartedAt,
		LastFinishedAt: s.LastFinishedAt,
		NextRunAt:      s.NextRunAt,
		LastError:      s.LastError,
		LastStats:      s.LastStats,
	}
}
