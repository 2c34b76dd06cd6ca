package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-monitor/app/database"
	"github.com/lysyi3m/rss-monitor/app/feed"
	"github.com/lysyi3m/rss-monitor/app/notify"
)

// CycleStats counts what one polling cycle did.
type CycleStats struct {
	Sources       int `json:"sources"`
	FailedSources int `json:"failed_sources"`
	Entries       int `json:"entries"`
	New           int `json:"new"`
	Duplicates    int `json:"duplicates"`
	Discarded     int `json:"discarded"`
	Errors        int `json:"errors"`
}

// PollTask runs one cycle over every active source: fetch, skip entries that
// are already stored, match the rest against the active keywords and record
// hits.
type PollTask struct {
	Task
	sources  SourceLister
	keywords KeywordLister
	articles ArticleRecorder
	fetcher  FeedFetcher
	notifier notify.Notifier
	stats    CycleStats
}

func NewPollTask(sources SourceLister, keywords KeywordLister, articles ArticleRecorder, fetcher FeedFetcher, notifier notify.Notifier) *PollTask {
	return &PollTask{
		Task:     NewTask(TaskTypePollFeeds),
		sources:  sources,
		keywords: keywords,
		articles: articles,
		fetcher:  fetcher,
		notifier: notifier,
	}
}

func (t *PollTask) Stats() CycleStats {
	return t.stats
}

func (t *PollTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	sources, err := t.sources.ListActiveSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active sources: %w", err)
	}

	keywords, err := t.keywords.ListActiveKeywords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active keywords: %w", err)
	}

	matcher := feed.NewMatcher(toFeedKeywords(keywords))
	if matcher.Len() == 0 {
		slog.Info("No usable keywords, skipping poll", "keywords", len(keywords), "sources", len(sources))
		return nil
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.stats.Sources++
		t.processSource(ctx, source, matcher)
	}

	slog.Info("Task completed",
		"type", "PollFeeds",
		"duration", t.GetDuration(),
		"sources", t.stats.Sources,
		"failed_sources", t.stats.FailedSources,
		"entries", t.stats.Entries,
		"new", t.stats.New,
		"duplicates", t.stats.Duplicates,
		"discarded", t.stats.Discarded,
		"errors", t.stats.Errors)

	return ctx.Err()
}

// processSource never fails the cycle; problems with one source are logged
// and the next source is polled.
func (t *PollTask) processSource(ctx context.Context, source database.Source, matcher *feed.Matcher) {
	defer func() {
		if r := recover(); r != nil {
			t.stats.FailedSources++
			slog.Error("Source processing panicked", "source_id", source.ID, "source", source.Name, "url", source.URL, "panic", r)
		}
	}()

	entries, err := t.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		t.stats.FailedSources++
		if ctx.Err() == nil {
			slog.Warn("Failed to fetch source", "source_id", source.ID, "source", source.Name, "url", source.URL, "error", err)
		}
		return
	}

	for entry := range entries {
		if ctx.Err() != nil {
			return
		}
		t.processEntry(ctx, source, entry, matcher)
	}
}

func (t *PollTask) processEntry(ctx context.Context, source database.Source, entry feed.Entry, matcher *feed.Matcher) {
	t.stats.Entries++

	if entry.Link == "" {
		t.stats.Discarded++
		slog.Debug("Entry without link, skipping", "source", source.Name, "title", entry.Title)
		return
	}

	exists, err := t.articles.ArticleExists(ctx, entry.Link)
	if err != nil {
		t.stats.Errors++
		slog.Warn("Failed to check article", "source", source.Name, "url", entry.Link, "error", err)
		return
	}
	if exists {
		t.stats.Duplicates++
		return
	}

	matched := matcher.Match(entry.Title, entry.Content)
	if len(matched) == 0 {
		t.stats.Discarded++
		return
	}

	keywordIDs := make([]int64, 0, len(matched))
	words := make([]string, 0, len(matched))
	for _, k := range matched {
		keywordIDs = append(keywordIDs, k.ID)
		words = append(words, k.Word)
	}

	result, recorded, err := t.articles.RecordArticle(ctx, database.NewArticle{
		Title:         entry.Title,
		Content:       entry.Content,
		URL:           entry.Link,
		SourceID:      source.ID,
		PublishedDate: entry.Published,
	}, keywordIDs)

	switch result {
	case database.RecordCreated:
		t.stats.New++
		t.notify(ctx, notify.Match{
			ArticleID: recorded.ID,
			Title:     entry.Title,
			URL:       entry.Link,
			Source:    source.Name,
			Keywords:  words,
			FoundAt:   recorded.FoundDate,
		})
	case database.RecordAlreadyExists:
		t.stats.Duplicates++
		slog.Debug("Article recorded concurrently, skipping", "source", source.Name, "url", entry.Link)
	default:
		t.stats.Errors++
		if !errors.Is(err, context.Canceled) {
			slog.Warn("Failed to record article", "source", source.Name, "url", entry.Link, "error", err)
		}
	}
}

func (t *PollTask) notify(ctx context.Context, m notify.Match) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.Notify(ctx, m); err != nil {
		slog.Warn("Failed to send match notification", "article_id", m.ArticleID, "url", m.URL, "error", err)
	}
}

func toFeedKeywords(keywords []database.Keyword) []feed.Keyword {
	result := make([]feed.Keyword, 0, len(keywords))
	for _, k := range keywords {
		result = append(result, feed.Keyword{ID: k.ID, Word: k.Word})
	}
	return result
}
