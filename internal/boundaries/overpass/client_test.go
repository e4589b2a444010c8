package overpass_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/boundaries/overpass"
)

const childrenBody = `{"elements":[
	{"type":"relation","id":101,"tags":{"name":"Alpha","admin_level":"4"}},
	{"type":"relation","id":102,"tags":{"name":"Beta","admin_level":"4"}}
]}`

// scriptState records what the fake Overpass endpoint saw.
type scriptState struct {
	mu      sync.Mutex
	queries []string
	times   []time.Time
}

func (s *scriptState) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *scriptState) query(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[i]
}

func (s *scriptState) gap(i int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.times[i+1].Sub(s.times[i])
}

// newScriptedServer serves the given status codes in request order; any
// request beyond the script gets 200 with body.
func newScriptedServer(t *testing.T, statuses []int, body string) (*httptest.Server, *scriptState) {
	t.Helper()

	st := &scriptState{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := r.PostFormValue("data")

		st.mu.Lock()
		st.queries = append(st.queries, data)
		st.times = append(st.times, time.Now())
		n := len(st.queries)
		st.mu.Unlock()

		status := http.StatusOK
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, st
}

func newTestClient(srv *httptest.Server, retries int, delay time.Duration) *overpass.Client {
	return overpass.NewClient(overpass.Options{
		BaseURL:    srv.URL,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		BaseDelay:  delay,
	})
}

// TestFetchChildren_RetriesTransientFailures verifies that rate-limit and
// server-error responses are retried with growing backoff waits and that the
// call eventually succeeds.
func TestFetchChildren_RetriesTransientFailures(t *testing.T) {
	base := 20 * time.Millisecond
	srv, st := newScriptedServer(t, []int{http.StatusTooManyRequests, http.StatusInternalServerError}, childrenBody)
	client := newTestClient(srv, 5, base)

	elements, err := client.FetchChildren(context.Background(), 99, 4)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(elements) != 2 {
		t.Errorf("expected 2 elements, got %d", len(elements))
	}
	if st.count() != 3 {
		t.Fatalf("expected 3 requests, got %d", st.count())
	}
	if st.gap(0) < base {
		t.Errorf("first backoff %v shorter than base delay %v", st.gap(0), base)
	}
	if st.gap(1) < 2*base {
		t.Errorf("second backoff %v shorter than doubled delay %v", st.gap(1), 2*base)
	}
}

// TestFetchChildren_MalformedQueryFailsFast verifies that a client error
// other than rate limiting is surfaced immediately, without retries.
func TestFetchChildren_MalformedQueryFailsFast(t *testing.T) {
	srv, st := newScriptedServer(t, []int{http.StatusBadRequest}, childrenBody)
	client := newTestClient(srv, 5, time.Millisecond)

	_, err := client.FetchChildren(context.Background(), 99, 4)
	if err == nil {
		t.Fatal("expected an error for status 400")
	}
	var qerr *overpass.QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("expected *QueryError, got %T: %v", err, err)
	}
	if qerr.Status != http.StatusBadRequest {
		t.Errorf("expected status 400 on the error, got %d", qerr.Status)
	}
	if st.count() != 1 {
		t.Errorf("expected exactly 1 request, got %d", st.count())
	}
}

// TestFetchChildren_RetryBudgetExhausted verifies that a persistent server
// failure stops after maxRetries attempts and returns the last error.
func TestFetchChildren_RetryBudgetExhausted(t *testing.T) {
	always := []int{
		http.StatusInternalServerError,
		http.StatusInternalServerError,
		http.StatusInternalServerError,
		http.StatusInternalServerError,
	}
	srv, st := newScriptedServer(t, always, childrenBody)
	client := newTestClient(srv, 3, time.Millisecond)

	_, err := client.FetchChildren(context.Background(), 99, 4)
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if st.count() != 3 {
		t.Errorf("expected 3 requests, got %d", st.count())
	}
}

// TestFetchCountry_NotFound verifies that an empty result set maps to
// ErrNotFound rather than a communication failure.
func TestFetchCountry_NotFound(t *testing.T) {
	srv, _ := newScriptedServer(t, nil, `{"elements":[]}`)
	client := newTestClient(srv, 3, time.Millisecond)

	_, err := client.FetchCountry(context.Background(), "XX", 2)
	if !errors.Is(err, overpass.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestFetchCountry_QueryShapeAndFirstMatch verifies the root query filters
// by country code and admin level, and that the first element wins when the
// server returns several.
func TestFetchCountry_QueryShapeAndFirstMatch(t *testing.T) {
	body := `{"elements":[
		{"type":"relation","id":307573,"tags":{"name":"Pakistan"}},
		{"type":"relation","id":999999,"tags":{"name":"Duplicate"}}
	]}`
	srv, st := newScriptedServer(t, nil, body)
	client := newTestClient(srv, 3, time.Millisecond)

	el, err := client.FetchCountry(context.Background(), "PK", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if el.ID != 307573 {
		t.Errorf("expected the first match (307573), got %d", el.ID)
	}

	q := st.query(0)
	if !strings.Contains(q, `["ISO3166-1"="PK"]`) {
		t.Errorf("query missing country filter: %s", q)
	}
	if !strings.Contains(q, `["admin_level"="2"]`) {
		t.Errorf("query missing admin_level filter: %s", q)
	}
	if !strings.Contains(q, `["boundary"="administrative"]`) {
		t.Errorf("query missing boundary filter: %s", q)
	}
}

// TestFetchChildren_QueryShape verifies the children query scopes to the
// parent's derived area id and the exact target level.
func TestFetchChildren_QueryShape(t *testing.T) {
	srv, st := newScriptedServer(t, nil, childrenBody)
	client := newTestClient(srv, 3, time.Millisecond)

	if _, err := client.FetchChildren(context.Background(), 123, 6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := st.query(0)
	if !strings.Contains(q, "area(3600000123)") {
		t.Errorf("query missing derived area id: %s", q)
	}
	if !strings.Contains(q, `["admin_level"="6"]`) {
		t.Errorf("query missing admin_level filter: %s", q)
	}
}

// TestFetchChildren_DeduplicatesByID verifies duplicate relation ids within
// one response collapse to the first occurrence.
func TestFetchChildren_DeduplicatesByID(t *testing.T) {
	body := `{"elements":[
		{"type":"relation","id":10,"tags":{"name":"First"}},
		{"type":"relation","id":10,"tags":{"name":"Second"}},
		{"type":"relation","id":11,"tags":{"name":"Other"}}
	]}`
	srv, _ := newScriptedServer(t, nil, body)
	client := newTestClient(srv, 3, time.Millisecond)

	elements, err := client.FetchChildren(context.Background(), 99, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elements) != 2 {
		t.Fatalf("expected 2 unique elements, got %d", len(elements))
	}
	if elements[0].Tags["name"] != "First" {
		t.Errorf("expected the first occurrence to win, got %q", elements[0].Tags["name"])
	}
}
