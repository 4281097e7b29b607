// Package contentapi is a client for the book content HTTP API.
package contentapi

import (
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

	"github.com/readmigo/reader/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Readmigo-Reader/1.0"
	maxMarkupBytes = 32 << 20
)

// Client implements domain.ContentRepository over the content API
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables
// the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := max(1, int(perSecond*2))
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a content API client rooted at baseURL
func NewClient(baseURL, token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetBook fetches a book and its chapter list
func (c *Client) GetBook(ctx context.Context, bookID string) (*domain.BookDetail, error) {
	var resp BookResponse
	path := "books/" + url.PathEscape(bookID)
	if err := c.getJSON(ctx, c.resolve(path), &resp, domain.ErrBookNotFound); err != nil {
		return nil, err
	}
	return MapBook(resp), nil
}

// GetChapterContent fetches a chapter's metadata and content URL
func (c *Client) GetChapterContent(ctx context.Context, bookID, chapterID string) (*domain.ChapterContent, error) {
	var resp ChapterContentResponse
	path := fmt.Sprintf("books/%s/content/%s", url.PathEscape(bookID), url.PathEscape(chapterID))
	if err := c.getJSON(ctx, c.resolve(path), &resp, domain.ErrChapterNotFound); err != nil {
		return nil, err
	}
	return MapChapterContent(resp), nil
}

// FetchMarkup downloads a chapter's markup body. Relative URLs are
// resolved against the base URL; the token is only sent to the API host.
func (c *Client) FetchMarkup(ctx context.Context, contentURL string) (string, error) {
	ref, err := url.Parse(contentURL)
	if err != nil {
		return "", fmt.Errorf("invalid content url %q: %w", contentURL, err)
	}
	target := c.baseURL.ResolveReference(ref)

	body, err := c.do(ctx, target, "text/html, application/xhtml+xml, */*", domain.ErrChapterNotFound)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxMarkupBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read markup: %w", err)
	}
	return string(data), nil
}

func (c *Client) resolve(path string) *url.URL {
	return c.baseURL.ResolveReference(&url.URL{Path: path})
}

// getJSON performs a GET and decodes the JSON body into v
func (c *Client) getJSON(ctx context.Context, target *url.URL, v any, notFound error) error {
	body, err := c.do(ctx, target, "application/json", notFound)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		c.logger.Error("JSON parse error", "url", target.String(), "error", err)
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// do sends a rate-limited GET and maps failure statuses to domain errors.
// The caller closes the returned body.
func (c *Client) do(ctx context.Context, target *url.URL, accept string, notFound error) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" && target.Host == c.baseURL.Host {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("content api request", "url", target.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Error("content api request failed", "url", target.String(), "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}
	defer resp.Body.Close()

	msg := readErrorMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, domain.ErrAuthFailed
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", notFound, target.Path)
	}
	c.logger.Error("content api error", "status", resp.StatusCode, "url", target.String(), "message", msg)
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrServerOffline, resp.StatusCode)
	}
	return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var e errorResponse
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(data))
}

var _ domain.ContentRepository = (*Client)(nil)

// IsNotFound reports whether err means the book or chapter does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrBookNotFound) || errors.Is(err, domain.ErrChapterNotFound)
}
