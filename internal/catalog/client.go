// Package catalog is the HTTP client for the card catalog and inventory API.
//
// Every call is a JSON POST under the configured base URL. Outbound calls
// share a token bucket keyed by host so a burst of previews cannot flood
// the catalog. Non-2xx responses map to the sentinel errors in errors.go,
// wrapped in *Error with the operation and status.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/ratelimit"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRPS     = 10
	defaultBurst   = 20

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 16 << 20

	// maxDetailSize caps the error detail kept from a failed response.
	maxDetailSize = 200
)

// API paths relative to the base URL.
const (
	pathResolveCards = "import/resolve-cards"
	pathCollection   = "import/collection"
	pathWishlist     = "import/wishlist"
	pathParseText    = "import/parse-text"
	pathFromURL      = "import/from-url"
)

// Client is a rate-limited catalog API client. It implements
// core.CatalogAPI.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

var _ core.CatalogAPI = (*Client)(nil)

// New creates a client for the configured catalog.
func New(cfg config.CatalogConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid catalog base URL %q", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps, burst := cfg.RequestsPerSecond, cfg.Burst
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: ratelimit.New(float64(rps), burst),
		logger:  logger,
	}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

type resolveRequest struct {
	CardNames []string `json:"cardNames"`
}

// ResolveCards looks up printings for a set of card names in one call.
func (c *Client) ResolveCards(ctx context.Context, names []string) (core.ResolveCardsResult, error) {
	var out core.ResolveCardsResult
	if err := c.post(ctx, "resolve-cards", pathResolveCards, resolveRequest{CardNames: names}, &out); err != nil {
		return core.ResolveCardsResult{}, err
	}
	if out.Resolved == nil {
		out.Resolved = []core.ResolvedName{}
	}
	if out.NotFound == nil {
		out.NotFound = []string{}
	}
	return out, nil
}

type importRequest[T any] struct {
	Rows          []T                `json:"rows"`
	DuplicateMode core.DuplicateMode `json:"duplicateMode"`
}

// ImportCollection commits one window of collection rows.
func (c *Client) ImportCollection(ctx context.Context, rows []core.ImportRow, mode core.DuplicateMode) (core.ImportResult, error) {
	var out core.ImportResult
	if err := c.post(ctx, "collection", pathCollection, importRequest[core.ImportRow]{Rows: rows, DuplicateMode: mode}, &out); err != nil {
		return core.ImportResult{}, err
	}
	return normalizeResult(out), nil
}

// ImportWishlist commits one window of wishlist rows.
func (c *Client) ImportWishlist(ctx context.Context, rows []core.WishlistImportRow, mode core.DuplicateMode) (core.ImportResult, error) {
	var out core.ImportResult
	if err := c.post(ctx, "wishlist", pathWishlist, importRequest[core.WishlistImportRow]{Rows: rows, DuplicateMode: mode}, &out); err != nil {
		return core.ImportResult{}, err
	}
	return normalizeResult(out), nil
}

type textRequest struct {
	Text       string          `json:"text"`
	TargetType core.TargetType `json:"targetType"`
}

// ParseText has the catalog parse and resolve a pasted decklist.
func (c *Client) ParseText(ctx context.Context, text string, target core.TargetType) (core.TextImportResult, error) {
	var out core.TextImportResult
	if err := c.post(ctx, "parse-text", pathParseText, textRequest{Text: text, TargetType: target}, &out); err != nil {
		return core.TextImportResult{}, err
	}
	return normalizeText(out), nil
}

type urlRequest struct {
	URL        string          `json:"url"`
	TargetType core.TargetType `json:"targetType"`
}

// ImportFromURL has the catalog fetch, parse and resolve a deck from a
// deck site link.
func (c *Client) ImportFromURL(ctx context.Context, deckURL string, target core.TargetType) (core.URLImportResult, error) {
	var out core.URLImportResult
	if err := c.post(ctx, "from-url", pathFromURL, urlRequest{URL: deckURL, TargetType: target}, &out); err != nil {
		return core.URLImportResult{}, err
	}
	out.TextImportResult = normalizeText(out.TextImportResult)
	return out, nil
}

// post sends in as JSON and decodes a 2xx response into out.
func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	if err := c.limiter.Wait(ctx, c.baseURL.Host); err != nil {
		return wrapError(op, 0, "", fmt.Errorf("rate limit wait: %w", err))
	}

	body, err := json.Marshal(in)
	if err != nil {
		return wrapError(op, 0, "", fmt.Errorf("encode request: %w", err))
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return wrapError(op, 0, "", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cardimport/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(op, 0, "", fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return wrapError(op, resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("catalog request",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := statusError(resp.StatusCode); err != nil {
		return wrapError(op, resp.StatusCode, errorDetail(data), err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return wrapError(op, resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// statusError maps a response status to a sentinel error.
func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrServer
	case status >= 400:
		return ErrBadRequest
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

// errorDetail pulls a message out of an error body: {"message"} or
// {"error"} JSON, otherwise the trimmed text.
func errorDetail(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	detail := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		detail = payload.Message
		if detail == "" {
			detail = payload.Error
		}
	} else {
		detail = strings.TrimSpace(string(body))
	}
	if len(detail) > maxDetailSize {
		detail = detail[:maxDetailSize] + "..."
	}
	return detail
}

func normalizeResult(r core.ImportResult) core.ImportResult {
	if r.Errors == nil {
		r.Errors = []core.ImportRowError{}
	}
	return r
}

func normalizeText(r core.TextImportResult) core.TextImportResult {
	if r.Entries == nil {
		r.Entries = []core.TextImportEntry{}
	}
	if r.Errors == nil {
		r.Errors = []core.ParseError{}
	}
	return r
}

// IsRetryable reports whether err is a transient catalog failure worth
// retrying later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer)
}
