package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var _ ArticleRepository = (*ArticleRepo)(nil)

// Fixed width keeps lexical order of found_date equal to chronological order.
const foundDateLayout = "2006-01-02T15:04:05.000000000Z"

// ArticleRepo handles database operations for matched articles
type ArticleRepo struct {
	db  *DB
	now func() time.Time
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db, now: time.Now}
}

// ArticleExists reports whether an article with the given link is stored
func (r *ArticleRepo) ArticleExists(ctx context.Context, url string) (bool, error) {
	var id int64
	err := r.db.Reader.QueryRowContext(ctx, `SELECT id FROM articles WHERE url = ?`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check article: %w", err)
	}
	return true, nil
}

// RecordArticle inserts the article and one match per keyword in a single
// transaction. A link that is already stored yields RecordAlreadyExists and
// no error; the unique index on url decides which of two racing writers wins.
func (r *ArticleRepo) RecordArticle(ctx context.Context, article NewArticle, keywordIDs []int64) (RecordResult, RecordedArticle, error) {
	if len(keywordIDs) == 0 {
		return RecordFailed, RecordedArticle{}, fmt.Errorf("article %q has no matched keywords", article.URL)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return RecordFailed, RecordedArticle{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	foundDate := r.now().UTC()
	sourceID := sql.NullInt64{Int64: article.SourceID, Valid: article.SourceID != 0}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO articles (title, content, url, source_id, published_date, found_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, article.Title, article.Content, article.URL, sourceID, article.PublishedDate,
		foundDate.Format(foundDateLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return RecordAlreadyExists, RecordedArticle{}, nil
		}
		return RecordFailed, RecordedArticle{}, fmt.Errorf("failed to insert article: %w", err)
	}

	articleID, err := res.LastInsertId()
	if err != nil {
		return RecordFailed, RecordedArticle{}, fmt.Errorf("failed to read article id: %w", err)
	}

	for _, keywordID := range keywordIDs {
		if err := insertMatch(ctx, tx, articleID, keywordID); err != nil {
			return RecordFailed, RecordedArticle{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return RecordAlreadyExists, RecordedArticle{}, nil
		}
		return RecordFailed, RecordedArticle{}, fmt.Errorf("failed to commit article: %w", err)
	}

	return RecordCreated, RecordedArticle{ID: articleID, FoundDate: foundDate}, nil
}

// AddMatch associates a keyword with a stored article. Repeating it is a no-op.
func (r *ArticleRepo) AddMatch(ctx context.Context, articleID, keywordID int64) error {
	return insertMatch(ctx, r.db, articleID, keywordID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMatch(ctx context.Context, e execer, articleID, keywordID int64) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO article_keywords (article_id, keyword_id) VALUES (?, ?)
		ON CONFLICT (article_id, keyword_id) DO NOTHING
	`, articleID, keywordID)
	if err != nil {
		return fmt.Errorf("failed to insert match for keyword %d: %w", keywordID, err)
	}
	return nil
}

const articleColumns = `
	SELECT a.id, a.title, a.content, a.url, a.source_id, COALESCE(s.name, ''),
	       a.published_date, a.found_date
	FROM articles a
	LEFT JOIN sources s ON s.id = a.source_id`

// ListRecentArticles returns the most recently found articles first
func (r *ArticleRepo) ListRecentArticles(ctx context.Context, limit int) ([]Article, error) {
	limit = clampLimit(limit, DefaultRecentLimit)
	return r.query(ctx, articleColumns+` ORDER BY a.found_date DESC, a.id DESC LIMIT ?`, limit)
}

// SearchArticles filters by keyword and/or source name substrings, case-insensitively
func (r *ArticleRepo) SearchArticles(ctx context.Context, filter ArticleFilter) ([]Article, error) {
	var (
		where []string
		args  []any
	)

	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM article_keywords ak
			JOIN keywords k ON k.id = ak.keyword_id
			WHERE ak.article_id = a.id AND instr(fold(k.word), ?) > 0)`)
		args = append(args, Fold(kw))
	}

	if src := strings.TrimSpace(filter.Source); src != "" {
		where = append(where, `instr(fold(s.name), ?) > 0`)
		args = append(args, Fold(src))
	}

	query := articleColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.found_date DESC, a.id DESC LIMIT ?"
	args = append(args, clampLimit(filter.Limit, DefaultSearchLimit))

	return r.query(ctx, query, args...)
}

func (r *ArticleRepo) query(ctx context.Context, query string, args ...any) ([]Article, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var (
			article   Article
			sourceID  sql.NullInt64
			foundDate string
		)
		err := rows.Scan(&article.ID, &article.Title, &article.Content, &article.URL,
			&sourceID, &article.SourceName, &article.PublishedDate, &foundDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		if sourceID.Valid {
			article.SourceID = &sourceID.Int64
		}
		if article.FoundDate, err = time.Parse(foundDateLayout, foundDate); err != nil {
			return nil, fmt.Errorf("failed to parse found date of article %d: %w", article.ID, err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	if err := r.attachKeywords(ctx, articles); err != nil {
		return nil, err
	}

	return articles, nil
}

func (r *ArticleRepo) attachKeywords(ctx context.Context, articles []Article) error {
	if len(articles) == 0 {
		return nil
	}

	index := make(map[int64]int, len(articles))
	placeholders := make([]string, len(articles))
	args := make([]any, len(articles))
	for i, article := range articles {
		index[article.ID] = i
		placeholders[i] = "?"
		args[i] = article.ID
	}

	rows, err := r.db.Reader.QueryContext(ctx, `
		SELECT ak.article_id, k.word
		FROM article_keywords ak
		JOIN keywords k ON k.id = ak.keyword_id
		WHERE ak.article_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY k.word`, args...)
	if err != nil {
		return fmt.Errorf("failed to query article keywords: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			articleID int64
			word      string
		)
		if err := rows.Scan(&articleID, &word); err != nil {
			return fmt.Errorf("failed to scan article keyword row: %w", err)
		}
		if i, ok := index[articleID]; ok {
			articles[i].Keywords = append(articles[i].Keywords, word)
		}
	}

	return rows.Err()
}

// GetArticleCount returns the total number of stored articles
func (r *ArticleRepo) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.Reader.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}
