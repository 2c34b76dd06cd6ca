package notify

import (
	"context"
	"log/slog"
	"time"
)

// LogNotifier writes one structured record per match.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, m Match) error {
	n.logger.InfoContext(ctx, "New article matched",
		"found_at", m.FoundAt.Format(time.RFC3339),
		"article_id", m.ArticleID,
		"title", m.Title,
		"url", m.URL,
		"keywords", m.Keywords,
		"source", m.Source)
	return nil
}
