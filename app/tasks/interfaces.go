package tasks

import (
	"context"
	"iter"

	"github.com/lysyi3m/rss-monitor/app/database"
	"github.com/lysyi3m/rss-monitor/app/feed"
)

// TaskSchedulerInterface defines the interface for the polling loop.
// Used by the main application and the API.
//
//	scheduler := NewScheduler(sourceRepo, keywordRepo, articleRepo, fetcher, notifier, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.TriggerNow()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	TriggerNow() bool
	Status() Status
}

// FeedFetcher retrieves and parses one feed endpoint.
type FeedFetcher interface {
	Fetch(ctx context.Context, endpoint string) (iter.Seq[feed.Entry], error)
}

type SourceLister interface {
	ListActiveSources(ctx context.Context) ([]database.Source, error)
}

type KeywordLister interface {
	ListActiveKeywords(ctx context.Context) ([]database.Keyword, error)
}

type ArticleRecorder interface {
	ArticleExists(ctx context.Context, url string) (bool, error)
	RecordArticle(ctx context.Context, article database.NewArticle, keywordIDs []int64) (database.RecordResult, database.RecordedArticle, error)
}
