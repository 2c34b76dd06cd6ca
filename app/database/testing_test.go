package database

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func mustCreateSource(t *testing.T, repo *SourceRepo, name, url string) *Source {
	t.Helper()
	source, err := repo.CreateSource(context.Background(), name, url)
	if err != nil {
		t.Fatalf("Failed to create source %s: %v", name, err)
	}
	return source
}

func mustCreateKeyword(t *testing.T, repo *KeywordRepo, word string) *Keyword {
	t.Helper()
	keyword, err := repo.CreateKeyword(context.Background(), word)
	if err != nil {
		t.Fatalf("Failed to create keyword %s: %v", word, err)
	}
	return keyword
}
