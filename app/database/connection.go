package database

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

const pragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// DB wraps the writer pool and keeps a separate pool for reads.
// The writer is limited to a single connection so SQLite never sees two
// competing write transactions from this process.
type DB struct {
	*sql.DB
	Reader *sql.DB
}

var registerFuncs = sync.OnceValue(func() error {
	// fold() gives Unicode-aware case-insensitive comparisons; SQLite's
	// built-in lower() and LIKE only fold ASCII.
	return sqlite.RegisterDeterministicScalarFunction("fold", 1,
		func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return Fold(v), nil
			case []byte:
				return Fold(string(v)), nil
			default:
				return v, nil
			}
		})
})

// Fold returns the case-folded form used for substring search.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// NewConnection opens (creating if needed) the SQLite database at path.
func NewConnection(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	if err := registerFuncs(); err != nil {
		return nil, fmt.Errorf("failed to register sqlite functions: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	writer, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	reader, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to open read pool: %w", err)
	}
	reader.SetMaxOpenConns(4)

	return &DB{DB: writer, Reader: reader}, nil
}

func (db *DB) Close() error {
	rerr := db.Reader.Close()
	if err := db.DB.Close(); err != nil {
		return err
	}
	return rerr
}
