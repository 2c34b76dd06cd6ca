package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ KeywordRepository = (*KeywordRepo)(nil)

// KeywordRepo handles database operations for keywords
type KeywordRepo struct {
	db *DB
}

// NewKeywordRepository creates a new keyword repository
func NewKeywordRepository(db *DB) *KeywordRepo {
	return &KeywordRepo{db: db}
}

// ListActiveKeywords returns active keywords in id order
func (r *KeywordRepo) ListActiveKeywords(ctx context.Context) ([]Keyword, error) {
	return r.list(ctx, `SELECT id, word, active FROM keywords WHERE active = 1 ORDER BY id`)
}

// ListKeywords returns all keywords ordered by word
func (r *KeywordRepo) ListKeywords(ctx context.Context) ([]Keyword, error) {
	return r.list(ctx, `SELECT id, word, active FROM keywords ORDER BY word, id`)
}

func (r *KeywordRepo) list(ctx context.Context, query string) ([]Keyword, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	var keywords []Keyword
	for rows.Next() {
		var keyword Keyword
		if err := rows.Scan(&keyword.ID, &keyword.Word, &keyword.Active); err != nil {
			return nil, fmt.Errorf("failed to scan keyword row: %w", err)
		}
		keywords = append(keywords, keyword)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keyword rows: %w", err)
	}

	return keywords, nil
}

// GetKeyword retrieves a keyword by id
func (r *KeywordRepo) GetKeyword(ctx context.Context, id int64) (*Keyword, error) {
	return getKeyword(ctx, r.db.Reader, id)
}

func getKeyword(ctx context.Context, q queryRower, id int64) (*Keyword, error) {
	var keyword Keyword
	err := q.QueryRowContext(ctx, `SELECT id, word, active FROM keywords WHERE id = ?`, id).
		Scan(&keyword.ID, &keyword.Word, &keyword.Active)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get keyword: %w", err)
	}

	return &keyword, nil
}

// CreateKeyword inserts an active keyword. A duplicate word yields ErrConflict.
func (r *KeywordRepo) CreateKeyword(ctx context.Context, word string) (*Keyword, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO keywords (word) VALUES (?)`, word)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create keyword: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword id: %w", err)
	}

	return &Keyword{ID: id, Word: word, Active: true}, nil
}

// DeleteKeyword removes a keyword unless stored matches still reference it
func (r *KeywordRepo) DeleteKeyword(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrKeywordInUse
		}
		return fmt.Errorf("failed to delete keyword: %w", err)
	}
	return requireAffected(res)
}

// ToggleKeyword flips the active flag and returns the updated keyword
func (r *KeywordRepo) ToggleKeyword(ctx context.Context, id int64) (*Keyword, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE keywords SET active = 1 - active WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle keyword: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	keyword, err := getKeyword(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit keyword toggle: %w", err)
	}

	return keyword, nil
}

// GetKeywordCount returns the total number of keywords
func (r *KeywordRepo) GetKeywordCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.Reader.QueryRowContext(ctx, "SELECT COUNT(*) FROM keywords").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get keyword count: %w", err)
	}
	return count, nil
}
