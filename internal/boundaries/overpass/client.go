// Package overpass issues boundary queries against an Overpass API endpoint
// and normalizes the results.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/logger"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/metrics"
)

// DefaultBaseURL is the public Overpass API interpreter endpoint.
const DefaultBaseURL = "https://overpass-api.de/api/interpreter"

// areaOffset maps a relation id onto its derived Overpass area id.
const areaOffset = 3600000000

// ErrNotFound means the query matched no boundary relation. It is a valid
// outcome, not a communication failure.
var ErrNotFound = errors.New("no matching boundary relation")

// QueryError is a non-retryable upstream rejection, typically a malformed
// query.
type QueryError struct {
	Status int
	Body   string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("overpass rejected query: status %d: %s", e.Status, e.Body)
}

// Client is an HTTP client for one Overpass endpoint. All calls are
// sequential; the client never fans out and never has more than one request
// in flight.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	cache      *Cache
}

// Options configures a Client. Zero fields fall back to defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration // server-side [timeout:] budget per query
	MaxRetries int
	BaseDelay  time.Duration
	Cache      *Cache
}

// NewClient creates an Overpass client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 180 * time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	return &Client{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			// Sits above the [timeout:] budget so the server can report its
			// own timeout before the transport gives up.
			Timeout: opts.Timeout + 15*time.Second,
		},
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		cache:      opts.Cache,
	}
}

// FetchCountry returns the administrative boundary relation for an
// ISO-3166-1 country code at the given admin level. A query that matches
// nothing returns ErrNotFound.
func (c *Client) FetchCountry(ctx context.Context, code string, adminLevel int) (Element, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:%d];relation["boundary"="administrative"]["admin_level"="%d"]["ISO3166-1"="%s"];out tags;`,
		c.timeoutSecs(), adminLevel, code)

	elements, err := c.run(ctx, "root", query)
	if err != nil {
		return Element{}, err
	}
	if len(elements) == 0 {
		return Element{}, fmt.Errorf("%w: country %s at admin_level %d", ErrNotFound, code, adminLevel)
	}
	if len(elements) > 1 {
		logger.L().Warn().Str("country", code).Int("matches", len(elements)).
			Msg("multiple root relations matched, using the first")
	}
	return elements[0], nil
}

// FetchChildren returns the boundary relations at exactly adminLevel that lie
// inside the area derived from the parent relation. An empty result is a
// valid outcome meaning no boundaries exist at that level.
func (c *Client) FetchChildren(ctx context.Context, parentID int64, adminLevel int) ([]Element, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:%d];area(%d)->.a;relation(area.a)["boundary"="administrative"]["admin_level"="%d"];out tags;`,
		c.timeoutSecs(), areaOffset+parentID, adminLevel)

	return c.run(ctx, "children", query)
}

// run executes one logical query: cache lookup, then up to maxRetries HTTP
// attempts with exponential backoff on transient failures.
func (c *Client) run(ctx context.Context, kind, query string) ([]Element, error) {
	metrics.QueriesTotal.WithLabelValues(kind).Inc()

	if body, ok := c.cache.Get(ctx, query); ok {
		return decodeElements(body)
	}

	for attempt := 0; ; attempt++ {
		body, retryable, err := c.do(ctx, query)
		if err == nil {
			c.cache.Set(ctx, query, body)
			return decodeElements(body)
		}

		if !retryable || attempt == c.maxRetries-1 {
			metrics.QueryFailuresTotal.Inc()
			logger.L().Error().Err(err).Str("kind", kind).Int("attempts", attempt+1).
				Msg("overpass query failed")
			return nil, err
		}

		delay := c.baseDelay << attempt // baseDelay * 2^attempt
		metrics.QueryRetriesTotal.Inc()
		logger.L().Warn().Err(err).Str("kind", kind).Int("attempt", attempt+1).
			Dur("backoff", delay).Msg("overpass query retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// do performs a single HTTP attempt. The second return reports whether a
// failure is worth retrying: rate limits, server errors and transport
// failures are; other client errors are not.
func (c *Client) do(ctx context.Context, query string) ([]byte, bool, error) {
	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.QueryDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, true, fmt.Errorf("read overpass response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("overpass status %d", resp.StatusCode)
	default:
		return nil, false, &QueryError{Status: resp.StatusCode, Body: trimBody(body)}
	}
}

// decodeElements parses a response body and collapses duplicate relation ids,
// first occurrence winning.
func decodeElements(body []byte) ([]Element, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	seen := make(map[int64]bool, len(r.Elements))
	out := make([]Element, 0, len(r.Elements))
	for _, el := range r.Elements {
		if seen[el.ID] {
			continue
		}
		seen[el.ID] = true
		out = append(out, el)
	}
	return out, nil
}

func (c *Client) timeoutSecs() int {
	return int(c.timeout / time.Second)
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
