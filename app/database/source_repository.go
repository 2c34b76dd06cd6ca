package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ SourceRepository = (*SourceRepo)(nil)

// SourceRepo handles database operations for feed sources
type SourceRepo struct {
	db *DB
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// ListActiveSources returns active sources in stable id order
func (r *SourceRepo) ListActiveSources(ctx context.Context) ([]Source, error) {
	return r.list(ctx, `SELECT id, name, url, active FROM sources WHERE active = 1 ORDER BY id`)
}

// ListSources returns all sources ordered by name
func (r *SourceRepo) ListSources(ctx context.Context) ([]Source, error) {
	return r.list(ctx, `SELECT id, name, url, active FROM sources ORDER BY name, id`)
}

func (r *SourceRepo) list(ctx context.Context, query string) ([]Source, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var source Source
		if err := rows.Scan(&source.ID, &source.Name, &source.URL, &source.Active); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// GetSource retrieves a source by id
func (r *SourceRepo) GetSource(ctx context.Context, id int64) (*Source, error) {
	return getSource(ctx, r.db.Reader, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSource(ctx context.Context, q queryRower, id int64) (*Source, error) {
	var source Source
	err := q.QueryRowContext(ctx, `SELECT id, name, url, active FROM sources WHERE id = ?`, id).
		Scan(&source.ID, &source.Name, &source.URL, &source.Active)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// CreateSource inserts an active source. A duplicate url yields ErrConflict.
func (r *SourceRepo) CreateSource(ctx context.Context, name, url string) (*Source, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO sources (name, url) VALUES (?, ?)`, name, url)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read source id: %w", err)
	}

	return &Source{ID: id, Name: name, URL: url, Active: true}, nil
}

// DeleteSource removes a source; its articles are kept with a cleared reference
func (r *SourceRepo) DeleteSource(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return requireAffected(res)
}

// ToggleSource flips the active flag and returns the updated source
func (r *SourceRepo) ToggleSource(ctx context.Context, id int64) (*Source, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE sources SET active = 1 - active WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle source: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	source, err := getSource(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit source toggle: %w", err)
	}

	return source, nil
}

// GetSourceCount returns the total number of sources
func (r *SourceRepo) GetSourceCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.Reader.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
