package database

import (
	"context"
)

type SourceRepository interface {
	ListActiveSources(ctx context.Context) ([]Source, error)
	ListSources(ctx context.Context) ([]Source, error)
	GetSource(ctx context.Context, id int64) (*Source, error)
	CreateSource(ctx context.Context, name, url string) (*Source, error)
	DeleteSource(ctx context.Context, id int64) error
	ToggleSource(ctx context.Context, id int64) (*Source, error)
	GetSourceCount(ctx context.Context) (int, error)
}

type KeywordRepository interface {
	ListActiveKeywords(ctx context.Context) ([]Keyword, error)
	ListKeywords(ctx context.Context) ([]Keyword, error)
	GetKeyword(ctx context.Context, id int64) (*Keyword, error)
	CreateKeyword(ctx context.Context, word string) (*Keyword, error)
	DeleteKeyword(ctx context.Context, id int64) error
	ToggleKeyword(ctx context.Context, id int64) (*Keyword, error)
	GetKeywordCount(ctx context.Context) (int, error)
}

type ArticleRepository interface {
	ArticleExists(ctx context.Context, url string) (bool, error)
	RecordArticle(ctx context.Context, article NewArticle, keywordIDs []int64) (RecordResult, RecordedArticle, error)
	AddMatch(ctx context.Context, articleID, keywordID int64) error
	ListRecentArticles(ctx context.Context, limit int) ([]Article, error)
	SearchArticles(ctx context.Context, filter ArticleFilter) ([]Article, error)
	GetArticleCount(ctx context.Context) (int, error)
}
