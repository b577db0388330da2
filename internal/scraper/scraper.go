package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	goerrors "github.com/go-errors/errors"
	"github.com/pfrederiksen/dasny-bids/internal/logger"
	"golang.org/x/net/html/charset"
)

const (
	DefaultSiteURL = "https://www.dasny.org/"
	UserAgent      = "dasny-bids/1.0 (github.com/pfrederiksen/dasny-bids)"
)

// FetchError reports a transport failure or a non-success HTTP status
type FetchError struct {
	URL        string
	StatusCode int   // zero for transport failures
	Err        error // nil for status failures
	stack      []byte
}

func newFetchError(url string, statusCode int, err error) *FetchError {
	var stack []byte
	if err != nil {
		stack = goerrors.Wrap(err, 1).Stack()
	} else {
		stack = goerrors.New(fmt.Sprintf("unexpected status code: %d", statusCode)).Stack()
	}
	return &FetchError{URL: url, StatusCode: statusCode, Err: err, stack: stack}
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Stack returns the stack captured when the error was created
func (e *FetchError) Stack() []byte {
	return e.stack
}

// PageCache stores fetched page bodies between runs
type PageCache interface {
	Get(url string) ([]byte, bool)
	Put(url string, body []byte) error
}

// Fetcher issues GET requests and parses the responses into documents
type Fetcher struct {
	client    *http.Client
	userAgent string
	cache     PageCache
	log       *logger.Logger
	metrics   *logger.Metrics
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithTimeout sets the request timeout. Zero leaves requests without a deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithCache serves fresh cached bodies instead of fetching them
func WithCache(c PageCache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// WithMetrics sets the metrics tracker
func WithMetrics(m *logger.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// NewFetcher creates a Fetcher. Without options it behaves like a plain GET
// with the default transport and no timeout.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		userAgent: UserAgent,
		log:       logger.Default(),
		metrics:   logger.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves url and returns its parsed document
func (f *Fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.FetchBody(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// FetchBody retrieves url and returns its body decoded to UTF-8
func (f *Fetcher) FetchBody(ctx context.Context, url string) ([]byte, error) {
	if f.cache != nil {
		if body, ok := f.cache.Get(url); ok {
			f.log.Debug("Serving page from cache", logger.Fields{"url": url})
			f.metrics.IncrCounter("pages.cached")
			return body, nil
		}
	}

	start := time.Now()
	body, err := f.get(ctx, url)
	if err != nil {
		var ferr *FetchError
		if errors.As(err, &ferr) {
			f.log.Debug("Fetch failed", logger.Fields{"url": url, "stack": string(ferr.Stack())})
		}
		return nil, err
	}
	elapsed := time.Since(start)

	f.metrics.IncrCounter("pages.fetched")
	f.metrics.RecordTiming("page.fetch", elapsed)
	f.log.Debug("Fetched page", logger.Fields{
		"url":      url,
		"bytes":    len(body),
		"duration": elapsed.String(),
	})

	if f.cache != nil {
		if err := f.cache.Put(url, body); err != nil {
			f.log.Warn("Caching page failed", logger.Fields{"url": url, "error": err.Error()})
		}
	}

	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, newFetchError(url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newFetchError(url, resp.StatusCode, nil)
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, newFetchError(url, resp.StatusCode, fmt.Errorf("decoding body: %w", err))
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, newFetchError(url, resp.StatusCode, fmt.Errorf("reading body: %w", err))
	}
	return body, nil
}
