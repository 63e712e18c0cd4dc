package remote_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"artcache/internal/config"
	"artcache/internal/remote"
	"artcache/internal/sharedstore"
	"artcache/internal/testsupport"
)

type storeFixture struct {
	cfg    *config.Config
	store  *sharedstore.Store
	server *httptest.Server
	client *remote.Client
}

// newStoreFixture runs a real store behind httptest. wrap, when non-nil,
// intercepts requests before they reach the store handler.
func newStoreFixture(t *testing.T, wrap func(http.Handler) http.Handler, opts ...remote.Option) *storeFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	var server *httptest.Server
	if wrap == nil {
		server = testsupport.NewStoreServer(t, cfg, store)
	} else {
		inner := testsupport.NewStoreServer(t, cfg, store)
		server = httptest.NewServer(wrap(inner.Config.Handler))
		t.Cleanup(server.Close)
	}
	client := newClient(t, server.URL, cfg.Store.APIKey, 2, opts...)
	return &storeFixture{cfg: cfg, store: store, server: server, client: client}
}

func newClient(t *testing.T, baseURL, apiKey string, retryCount int, opts ...remote.Option) *remote.Client {
	t.Helper()
	cfg := remote.DefaultConfig(baseURL, apiKey)
	cfg.RetryCount = retryCount
	cfg.RetryBaseDelay = time.Millisecond
	opts = append([]remote.Option{remote.WithSleeper(func(time.Duration) {})}, opts...)
	client, err := remote.New(cfg, opts...)
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}
	return client
}

// conflictOnce forwards the first POST to path to the store, so the record
// exists, but answers 409 as if another client had won the race.
func conflictOnce(path string) func(http.Handler) http.Handler {
	var once sync.Once
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && r.URL.Path == path {
				intercepted := false
				once.Do(func() {
					intercepted = true
					next.ServeHTTP(httptest.NewRecorder(), r)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusConflict)
					_, _ = io.WriteString(w, `{"error":"duplicate"}`)
				})
				if intercepted {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type requestRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (rr *requestRecorder) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		rr.mu.Lock()
		rr.requests = append(rr.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
		})
		rr.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (rr *requestRecorder) find(method, pathPrefix string) []recordedRequest {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	var out []recordedRequest
	for _, req := range rr.requests {
		if req.Method == method && strings.HasPrefix(req.Path, pathPrefix) {
			out = append(out, req)
		}
	}
	return out
}

// writeLog serializes non-GET requests under prefix and records, in order,
// the bodies the store accepted.
type writeLog struct {
	prefix string

	mu     sync.Mutex
	bodies []string
}

func (wl *writeLog) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || !strings.HasPrefix(r.URL.Path, wl.prefix) {
			next.ServeHTTP(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		wl.mu.Lock()
		defer wl.mu.Unlock()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		if sw.status < http.StatusMultipleChoices {
			wl.bodies = append(wl.bodies, string(body))
		}
	})
}

func (wl *writeLog) accepted() []string {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	return append([]string(nil), wl.bodies...)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}
