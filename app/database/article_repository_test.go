package database

import (
	"context"
	"sync"
	"testing"
	"time"
)

type articleFixture struct {
	db       *DB
	sources  *SourceRepo
	keywords *KeywordRepo
	articles *ArticleRepo
}

func newArticleFixture(t *testing.T) *articleFixture {
	t.Helper()
	db := newTestDB(t)
	return &articleFixture{
		db:       db,
		sources:  NewSourceRepository(db),
		keywords: NewKeywordRepository(db),
		articles: NewArticleRepository(db),
	}
}

func (f *articleFixture) countRows(t *testing.T, table string) int {
	t.Helper()
	var count int
	if err := f.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return count
}

// stepClock makes every insert one second later than the previous one.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func TestRecordArticle_CreatesArticleAndMatches(t *testing.T) {
	f := newArticleFixture(t)
	f.articles.now = stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	source := mustCreateSource(t, f.sources, "Wire", "https://wire.example.com/rss")
	k1 := mustCreateKeyword(t, f.keywords, "inflation")
	k2 := mustCreateKeyword(t, f.keywords, "Fed")

	result, recorded, err := f.articles.RecordArticle(ctx, NewArticle{
		Title:         "Fed responds as inflation rises",
		Content:       "Summary",
		URL:           "http://x/1",
		SourceID:      source.ID,
		PublishedDate: "Mon, 03 Jul 2023 10:00:00 GMT",
	}, []int64{k1.ID, k2.ID})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result != RecordCreated {
		t.Errorf("Expected RecordCreated, got %s", result)
	}
	if recorded.ID == 0 {
		t.Error("Expected a non-zero article id")
	}

	expectedFound := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	if !recorded.FoundDate.Equal(expectedFound) {
		t.Errorf("Expected found date %v, got %v", expectedFound, recorded.FoundDate)
	}
	stored, err := f.articles.ListRecentArticles(ctx, 1)
	if err != nil || len(stored) != 1 || !stored[0].FoundDate.Equal(recorded.FoundDate) {
		t.Errorf("Expected stored found date to equal returned one, got %+v, %v", stored, err)
	}

	if n := f.countRows(t, "articles"); n != 1 {
		t.Errorf("Expected 1 article, got %d", n)
	}
	if n := f.countRows(t, "article_keywords"); n != 2 {
		t.Errorf("Expected 2 matches, got %d", n)
	}

	exists, err := f.articles.ArticleExists(ctx, "http://x/1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !exists {
		t.Error("Expected article to exist")
	}
}

func TestRecordArticle_DuplicateLinkIsNoop(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	source := mustCreateSource(t, f.sources, "Wire", "https://wire.example.com/rss")
	k1 := mustCreateKeyword(t, f.keywords, "inflation")
	k2 := mustCreateKeyword(t, f.keywords, "prices")

	article := NewArticle{Title: "Inflation rises", URL: "http://x/1", SourceID: source.ID}

	if result, _, err := f.articles.RecordArticle(ctx, article, []int64{k1.ID}); err != nil || result != RecordCreated {
		t.Fatalf("Expected first insert to be created, got %s, %v", result, err)
	}

	result, recorded, err := f.articles.RecordArticle(ctx, article, []int64{k1.ID, k2.ID})
	if err != nil {
		t.Fatalf("Expected duplicate to be absorbed, got error: %v", err)
	}
	if result != RecordAlreadyExists {
		t.Errorf("Expected RecordAlreadyExists, got %s", result)
	}
	if recorded.ID != 0 {
		t.Errorf("Expected zero id for duplicate, got %d", recorded.ID)
	}

	if n := f.countRows(t, "articles"); n != 1 {
		t.Errorf("Expected 1 article, got %d", n)
	}
	if n := f.countRows(t, "article_keywords"); n != 1 {
		t.Errorf("Expected matches to be unchanged at 1, got %d", n)
	}
}

func TestRecordArticle_ConcurrentDuplicateRace(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	source := mustCreateSource(t, f.sources, "Wire", "https://wire.example.com/rss")
	keyword := mustCreateKeyword(t, f.keywords, "inflation")
	article := NewArticle{Title: "Inflation rises", URL: "http://x/race", SourceID: source.ID}

	const writers = 8
	results := make([]RecordResult, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], _, errs[i] = f.articles.RecordArticle(ctx, article, []int64{keyword.ID})
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for i := range writers {
		if errs[i] != nil {
			t.Errorf("Writer %d: expected no error, got: %v", i, errs[i])
		}
		switch results[i] {
		case RecordCreated:
			created++
		case RecordAlreadyExists:
		default:
			t.Errorf("Writer %d: unexpected result %s", i, results[i])
		}
	}

	if created != 1 {
		t.Errorf("Expected exactly 1 writer to create the article, got %d", created)
	}
	if n := f.countRows(t, "articles"); n != 1 {
		t.Errorf("Expected 1 article, got %d", n)
	}
	if n := f.countRows(t, "article_keywords"); n != 1 {
		t.Errorf("Expected 1 match, got %d", n)
	}
}

func TestRecordArticle_RequiresKeywords(t *testing.T) {
	f := newArticleFixture(t)

	result, _, err := f.articles.RecordArticle(context.Background(), NewArticle{Title: "t", URL: "http://x/1"}, nil)
	if err == nil {
		t.Error("Expected error when recording without keywords")
	}
	if result != RecordFailed {
		t.Errorf("Expected RecordFailed, got %s", result)
	}
	if n := f.countRows(t, "articles"); n != 0 {
		t.Errorf("Expected no article, got %d", n)
	}
}

func TestRecordArticle_UnknownKeywordRollsBack(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	source := mustCreateSource(t, f.sources, "Wire", "https://wire.example.com/rss")
	keyword := mustCreateKeyword(t, f.keywords, "inflation")

	result, _, err := f.articles.RecordArticle(ctx, NewArticle{
		Title:    "Inflation rises",
		URL:      "http://x/1",
		SourceID: source.ID,
	}, []int64{keyword.ID, 4242})

	if err == nil {
		t.Error("Expected error for a keyword that does not exist")
	}
	if result != RecordFailed {
		t.Errorf("Expected RecordFailed, got %s", result)
	}
	if n := f.countRows(t, "articles"); n != 0 {
		t.Errorf("Expected article insert to be rolled back, got %d rows", n)
	}
}

func TestAddMatch_Idempotent(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	k1 := mustCreateKeyword(t, f.keywords, "inflation")
	k2 := mustCreateKeyword(t, f.keywords, "prices")

	_, recorded, err := f.articles.RecordArticle(ctx, NewArticle{Title: "Inflation", URL: "http://x/1"}, []int64{k1.ID})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for range 2 {
		if err := f.articles.AddMatch(ctx, recorded.ID, k2.ID); err != nil {
			t.Fatalf("Expected no error adding match, got: %v", err)
		}
	}

	if n := f.countRows(t, "article_keywords"); n != 2 {
		t.Errorf("Expected 2 matches, got %d", n)
	}
}

func TestListRecentArticles(t *testing.T) {
	f := newArticleFixture(t)
	f.articles.now = stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	source := mustCreateSource(t, f.sources, "Wire", "https://wire.example.com/rss")
	k1 := mustCreateKeyword(t, f.keywords, "inflation")
	k2 := mustCreateKeyword(t, f.keywords, "Fed")

	for _, a := range []struct {
		url      string
		keywords []int64
	}{
		{"http://x/1", []int64{k1.ID}},
		{"http://x/2", []int64{k1.ID, k2.ID}},
		{"http://x/3", []int64{k2.ID}},
	} {
		_, _, err := f.articles.RecordArticle(ctx, NewArticle{Title: a.url, URL: a.url, SourceID: source.ID}, a.keywords)
		if err != nil {
			t.Fatalf("Failed to record %s: %v", a.url, err)
		}
	}

	articles, err := f.articles.ListRecentArticles(ctx, 2)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}
	if articles[0].URL != "http://x/3" || articles[1].URL != "http://x/2" {
		t.Errorf("Expected most recent first, got %s, %s", articles[0].URL, articles[1].URL)
	}
	if articles[0].SourceName != "Wire" {
		t.Errorf("Expected source name 'Wire', got %q", articles[0].SourceName)
	}
	if len(articles[1].Keywords) != 2 || articles[1].Keywords[0] != "Fed" || articles[1].Keywords[1] != "inflation" {
		t.Errorf("Expected keywords [Fed inflation], got %v", articles[1].Keywords)
	}
	if !articles[0].FoundDate.After(articles[1].FoundDate) {
		t.Errorf("Expected found dates to be descending, got %v then %v", articles[0].FoundDate, articles[1].FoundDate)
	}
}

func TestArticlesSurviveSourceDeletion(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	source := mustCreateSource(t, f.sources, "Wire", "https://wire.example.com/rss")
	keyword := mustCreateKeyword(t, f.keywords, "inflation")

	if _, _, err := f.articles.RecordArticle(ctx, NewArticle{Title: "Inflation", URL: "http://x/1", SourceID: source.ID}, []int64{keyword.ID}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := f.sources.DeleteSource(ctx, source.ID); err != nil {
		t.Fatalf("Expected no error deleting source, got: %v", err)
	}

	articles, err := f.articles.ListRecentArticles(ctx, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected the article to survive, got %d articles", len(articles))
	}
	if articles[0].SourceID != nil {
		t.Errorf("Expected cleared source reference, got %d", *articles[0].SourceID)
	}
	if articles[0].SourceName != "" {
		t.Errorf("Expected empty source name, got %q", articles[0].SourceName)
	}
}

func TestSearchArticles(t *testing.T) {
	f := newArticleFixture(t)
	f.articles.now = stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	reuters := mustCreateSource(t, f.sources, "Reuters Business", "https://reuters.example.com/rss")
	lenta := mustCreateSource(t, f.sources, "Лента Новости", "https://lenta.example.com/rss")
	inflation := mustCreateKeyword(t, f.keywords, "Inflation")
	fed := mustCreateKeyword(t, f.keywords, "Fed")
	rub := mustCreateKeyword(t, f.keywords, "Рубль")

	record := func(url string, sourceID int64, keywords ...int64) {
		t.Helper()
		if _, _, err := f.articles.RecordArticle(ctx, NewArticle{Title: url, URL: url, SourceID: sourceID}, keywords); err != nil {
			t.Fatalf("Failed to record %s: %v", url, err)
		}
	}
	record("http://x/1", reuters.ID, inflation.ID, fed.ID)
	record("http://x/2", reuters.ID, fed.ID)
	record("http://x/3", lenta.ID, rub.ID, inflation.ID)

	tests := []struct {
		name   string
		filter ArticleFilter
		want   []string
	}{
		{"no filter", ArticleFilter{}, []string{"http://x/3", "http://x/2", "http://x/1"}},
		{"keyword substring", ArticleFilter{Keyword: "flat"}, []string{"http://x/3", "http://x/1"}},
		{"keyword case-insensitive", ArticleFilter{Keyword: "FED"}, []string{"http://x/2", "http://x/1"}},
		{"cyrillic keyword", ArticleFilter{Keyword: "рубл"}, []string{"http://x/3"}},
		{"source substring", ArticleFilter{Source: "reuters"}, []string{"http://x/2", "http://x/1"}},
		{"cyrillic source", ArticleFilter{Source: "лента"}, []string{"http://x/3"}},
		{"keyword and source", ArticleFilter{Keyword: "inflation", Source: "business"}, []string{"http://x/1"}},
		{"limit", ArticleFilter{Limit: 1}, []string{"http://x/3"}},
		{"no match", ArticleFilter{Keyword: "weather"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			articles, err := f.articles.SearchArticles(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if len(articles) != len(tt.want) {
				t.Fatalf("Expected %d articles, got %d", len(tt.want), len(articles))
			}
			for i, url := range tt.want {
				if articles[i].URL != url {
					t.Errorf("Expected article %d to be %s, got %s", i, url, articles[i].URL)
				}
			}
		})
	}
}
