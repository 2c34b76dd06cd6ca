package tasks

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/lysyi3m/rss-monitor/app/database"
	"github.com/lysyi3m/rss-monitor/app/feed"
	"github.com/lysyi3m/rss-monitor/app/notify"
)

type testStore struct {
	db       *database.DB
	sources  *database.SourceRepo
	keywords *database.KeywordRepo
	articles *database.ArticleRepo
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "monitor.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &testStore{
		db:       db,
		sources:  database.NewSourceRepository(db),
		keywords: database.NewKeywordRepository(db),
		articles: database.NewArticleRepository(db),
	}
}

func (s *testStore) source(t *testing.T, name, url string) *database.Source {
	t.Helper()
	source, err := s.sources.CreateSource(context.Background(), name, url)
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}
	return source
}

func (s *testStore) keyword(t *testing.T, word string) *database.Keyword {
	t.Helper()
	keyword, err := s.keywords.CreateKeyword(context.Background(), word)
	if err != nil {
		t.Fatalf("Failed to create keyword: %v", err)
	}
	return keyword
}

func (s *testStore) recent(t *testing.T) []database.Article {
	t.Helper()
	articles, err := s.articles.ListRecentArticles(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failed to list articles: %v", err)
	}
	return articles
}

func (s *testStore) pollTask(fetcher FeedFetcher, notifier notify.Notifier) *PollTask {
	return NewPollTask(s.sources, s.keywords, s.articles, fetcher, notifier)
}

type fakeFetcher struct {
	mu      sync.Mutex
	entries map[string][]feed.Entry
	errs    map[string]error
	calls   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		entries: make(map[string][]feed.Entry),
		errs:    make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, endpoint string) (iter.Seq[feed.Entry], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, endpoint)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[endpoint]; ok {
		return nil, err
	}
	return slices.Values(f.entries[endpoint]), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNotifier struct {
	mu      sync.Mutex
	matches []notify.Match
	err     error
}

func (n *fakeNotifier) Notify(ctx context.Context, m notify.Match) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.matches = append(n.matches, m)
	return n.err
}

var errStorage = errors.New("disk I/O error")

// failingRecorder reports every link as new and fails to record the ones
// listed in failFor.
type failingRecorder struct {
	inner   ArticleRecorder
	failFor map[string]bool
}

func (r *failingRecorder) ArticleExists(ctx context.Context, url string) (bool, error) {
	return r.inner.ArticleExists(ctx, url)
}

func (r *failingRecorder) RecordArticle(ctx context.Context, article database.NewArticle, keywordIDs []int64) (database.RecordResult, database.RecordedArticle, error) {
	if r.failFor[article.URL] {
		return database.RecordFailed, database.RecordedArticle{}, errStorage
	}
	return r.inner.RecordArticle(ctx, article, keywordIDs)
}
