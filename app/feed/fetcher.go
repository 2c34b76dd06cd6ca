package feed

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultUserAgent    = "rss-monitor/1.0 (+https://github.com/lysyi3m/rss-monitor)"
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxBodySize  = 10 << 20

	acceptHeader = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"
)

type FetcherOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
	// MaxBodySize caps the response body in bytes
	MaxBodySize int
}

type Fetcher struct {
	client  *resty.Client
	timeout time.Duration
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", acceptHeader).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4 * opts.RetryWait).
		SetResponseBodyLimit(opts.MaxBodySize).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if errors.Is(err, resty.ErrResponseBodyTooLarge) {
				return false
			}
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})

	return &Fetcher{
		client:  client,
		timeout: opts.Timeout,
	}
}

// Fetch downloads and parses one feed. The whole attempt, retries included,
// is bounded by the fetch timeout.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string) (iter.Seq[Entry], error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	// gofeed parsers keep state between calls
	metadata, entries, err := NewParser().Run(resp.Body())
	if err != nil {
		return nil, err
	}

	slog.Debug("Feed fetched",
		"url", endpoint,
		"title", metadata.Title,
		"bytes", len(resp.Body()),
		"duration", time.Since(start))

	return entries, nil
}
