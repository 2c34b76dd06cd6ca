package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-monitor/app/database"
	"github.com/lysyi3m/rss-monitor/app/feed"
)

// ApplySeedTask registers the sources and keywords of a seed file. Rows that
// already exist are left untouched.
type ApplySeedTask struct {
	Task
	Seed        *feed.Seed
	sourceRepo  database.SourceRepository
	keywordRepo database.KeywordRepository
}

func NewApplySeedTask(seed *feed.Seed, sourceRepo database.SourceRepository, keywordRepo database.KeywordRepository) *ApplySeedTask {
	return &ApplySeedTask{
		Task:        NewTask(TaskTypeApplySeed),
		Seed:        seed,
		sourceRepo:  sourceRepo,
		keywordRepo: keywordRepo,
	}
}

func (t *ApplySeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var created, skipped int

	for _, s := range t.Seed.Sources {
		source, err := t.sourceRepo.CreateSource(ctx, s.Name, s.URL)
		if errors.Is(err, database.ErrConflict) {
			skipped++
			continue
		}
		if err != nil {
			slog.Error("Task failed", "type", "ApplySeed", "source", s.Name, "error", err)
			return fmt.Errorf("failed to create source %q: %w", s.Name, err)
		}
		if !s.IsActive() {
			if _, err := t.sourceRepo.ToggleSource(ctx, source.ID); err != nil {
				return fmt.Errorf("failed to deactivate source %q: %w", s.Name, err)
			}
		}
		created++
	}

	for _, k := range t.Seed.Keywords {
		keyword, err := t.keywordRepo.CreateKeyword(ctx, k.Word)
		if errors.Is(err, database.ErrConflict) {
			skipped++
			continue
		}
		if err != nil {
			slog.Error("Task failed", "type", "ApplySeed", "keyword", k.Word, "error", err)
			return fmt.Errorf("failed to create keyword %q: %w", k.Word, err)
		}
		if !k.IsActive() {
			if _, err := t.keywordRepo.ToggleKeyword(ctx, keyword.ID); err != nil {
				return fmt.Errorf("failed to deactivate keyword %q: %w", k.Word, err)
			}
		}
		created++
	}

	slog.Info("Task completed",
		"type", "ApplySeed",
		"duration", t.GetDuration(),
		"created", created,
		"skipped", skipped)

	return nil
}
