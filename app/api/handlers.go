package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rss-monitor/app/database"
	"github.com/lysyi3m/rss-monitor/app/feed"
	"github.com/lysyi3m/rss-monitor/app/tasks"
)

func NewHandler(sourceRepo database.SourceRepository, keywordRepo database.KeywordRepository,
	articleRepo database.ArticleRepository, scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		sourceRepo:  sourceRepo,
		keywordRepo: keywordRepo,
		articleRepo: articleRepo,
		scheduler:   scheduler,
		generator:   feed.NewGenerator(version),
	}
}

// GetFeed serves matched articles as RSS, filtered the same way as the search endpoint
func (h *Handler) GetFeed(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	filter := database.ArticleFilter{
		Keyword: strings.TrimSpace(c.Query("keyword")),
		Source:  strings.TrimSpace(c.Query("source")),
		Limit:   limit,
	}

	articles, err := h.articleRepo.SearchArticles(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "keyword", filter.Keyword, "source", filter.Source, "error", err)
		c.String(http.StatusInternalServerError, "Database error")
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	base := scheme + "://" + c.Request.Host

	title := "RSS Monitor"
	if filter.Keyword != "" {
		title += ": " + filter.Keyword
	}

	rss, err := h.generator.Run(feed.Channel{
		Title:    title,
		Link:     base,
		SelfLink: base + c.Request.URL.RequestURI(),
	}, articles)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.String(http.StatusInternalServerError, "RSS generation error")
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK

	health := gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	counts := map[string]func() (int, error){
		"sources":  func() (int, error) { return h.sourceRepo.GetSourceCount(ctx) },
		"keywords": func() (int, error) { return h.keywordRepo.GetKeywordCount(ctx) },
		"articles": func() (int, error) { return h.articleRepo.GetArticleCount(ctx) },
	}

	for name, count := range counts {
		n, err := count()
		if err != nil {
			slog.Error("Database error", "operation", "count_"+name, "error", err)
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		health[name] = n
	}

	if h.scheduler != nil {
		health["scheduler"] = newSchedulerResponse(h.scheduler.Status())
	}

	c.JSON(status, health)
}

func (h *Handler) APIListArticles(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	articles, err := h.articleRepo.ListRecentArticles(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, toArticleResponses(articles))
}

func (h *Handler) APISearchArticles(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	filter := database.ArticleFilter{
		Keyword: strings.TrimSpace(c.Query("keyword")),
		Source:  strings.TrimSpace(c.Query("source")),
		Limit:   limit,
	}

	articles, err := h.articleRepo.SearchArticles(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "search_articles", "keyword", filter.Keyword, "source", filter.Source, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, toArticleResponses(articles))
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources, err := h.sourceRepo.ListSources(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]SourceResponse, 0, len(sources))
	for _, s := range sources {
		response = append(response, newSourceResponse(s))
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APICreateSource(c *gin.Context) {
	var req CreateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fields name and url are required"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if req.Name == "" || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fields name and url are required"})
		return
	}

	if err := feed.ValidateSourceURL(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid source URL", "details": err.Error()})
		return
	}

	source, err := h.sourceRepo.CreateSource(c.Request.Context(), req.Name, req.URL)
	if errors.Is(err, database.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "A source with this URL already exists"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "create_source", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Source created", "source_id", source.ID, "source", source.Name, "url", source.URL)
	c.JSON(http.StatusCreated, newSourceResponse(*source))
}

func (h *Handler) APIDeleteSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := h.sourceRepo.DeleteSource(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "delete_source", "source_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Source deleted", "source_id", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIToggleSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	source, err := h.sourceRepo.ToggleSource(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "toggle_source", "source_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, newSourceResponse(*source))
}

func (h *Handler) APIListKeywords(c *gin.Context) {
	keywords, err := h.keywordRepo.ListKeywords(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_keywords", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]KeywordResponse, 0, len(keywords))
	for _, k := range keywords {
		response = append(response, newKeywordResponse(k))
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APICreateKeyword(c *gin.Context) {
	var req CreateKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field word is required"})
		return
	}

	req.Word = strings.TrimSpace(req.Word)
	if _, err := feed.CompileKeyword(req.Word); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid keyword", "details": err.Error()})
		return
	}

	keyword, err := h.keywordRepo.CreateKeyword(c.Request.Context(), req.Word)
	if errors.Is(err, database.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "This keyword already exists"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "create_keyword", "word", req.Word, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Keyword created", "keyword_id", keyword.ID, "word", keyword.Word)
	c.JSON(http.StatusCreated, newKeywordResponse(*keyword))
}

func (h *Handler) APIDeleteKeyword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := h.keywordRepo.DeleteKeyword(c.Request.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Keyword not found"})
		return
	case errors.Is(err, database.ErrKeywordInUse):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Keyword is referenced by stored articles",
			"message": "Deactivate the keyword instead of deleting it",
		})
		return
	case err != nil:
		slog.Error("Database error", "operation", "delete_keyword", "keyword_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Keyword deleted", "keyword_id", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIToggleKeyword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	keyword, err := h.keywordRepo.ToggleKeyword(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Keyword not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "toggle_keyword", "keyword_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, newKeywordResponse(*keyword))
}

func (h *Handler) APIPollNow(c *gin.Context) {
	queued := h.scheduler.TriggerNow()

	c.JSON(http.StatusAccepted, gin.H{
		"queued":    queued,
		"scheduler": newSchedulerResponse(h.scheduler.Status()),
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id parameter"})
		return 0, false
	}
	return id, true
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return 0, false
	}
	return limit, true
}

func toArticleResponses(articles []database.Article) []ArticleResponse {
	response := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		response = append(response, newArticleResponse(a))
	}
	return response
}
