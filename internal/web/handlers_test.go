package web

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/capyBearista/better-gemini-mcp/internal/chunk"
	"github.com/capyBearista/better-gemini-mcp/internal/config"
)

func setupTest(t *testing.T) (*Handlers, *chunk.Store) {
	t.Helper()

	store := chunk.NewStore(chunk.DefaultTTL, chunk.DefaultSweepInterval)
	t.Cleanup(store.Close)

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	renderer := NewRenderer(templateSub, "test")

	return &Handlers{
		store:    store,
		cfg:      config.DefaultConfig(),
		renderer: renderer,
	}, store
}

// seedBundle stores a markdown response split at 64 bytes and returns its key.
func seedBundle(t *testing.T, store *chunk.Store, text string) string {
	t.Helper()
	return store.Put(chunk.Split(text, 64))
}

// routed wraps the handlers in the same mux the server uses so that
// r.PathValue works in tests.
func routed(h *Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chunks", h.HandleList)
	mux.HandleFunc("GET /chunks/{key}", h.HandleDetail)
	mux.HandleFunc("GET /chunks/{key}/raw", h.HandleRaw)
	mux.HandleFunc("DELETE /chunks/{key}", h.HandleEvict)
	return mux
}

func TestHandleListEmpty(t *testing.T) {
	h, _ := setupTest(t)

	rec := httptest.NewRecorder()
	routed(h).ServeHTTP(rec, httptest.NewRequest("GET", "/chunks", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No cached responses") {
		t.Error("expected the empty-state message")
	}
}

func TestHandleListShowsBundles(t *testing.T) {
	h, store := setupTest(t)
	key := seedBundle(t, store, strings.Repeat("notes on the parser\n", 10))

	rec := httptest.NewRecorder()
	routed(h).ServeHTTP(rec, httptest.NewRequest("GET", "/chunks", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), key) {
		t.Errorf("expected bundle key %s in response", key)
	}
}

func TestHandleListJSON(t *testing.T) {
	h, store := setupTest(t)
	key := seedBundle(t, store, "short note")

	req := httptest.NewRequest("GET", "/chunks", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	routed(h).ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), key) {
		t.Error("expected bundle key in JSON body")
	}
}

func TestHandleDetailRendersMarkdown(t *testing.T) {
	h, store := setupTest(t)
	key := seedBundle(t, store, "# Findings\n\nThe config loader merges overlays.\n")

	rec := httptest.NewRecorder()
	routed(h).ServeHTTP(rec, httptest.NewRequest("GET", "/chunks/"+key, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Findings</h1>") {
		t.Error("markdown heading was not rendered to HTML")
	}
	if !strings.Contains(body, key) {
		t.Error("expected the bundle key on the detail page")
	}
}

func TestHandleDetailUnknownKey(t *testing.T) {
	h, _ := setupTest(t)

	rec := httptest.NewRecorder()
	routed(h).ServeHTTP(rec, httptest.NewRequest("GET", "/chunks/01UNKNOWNKEY", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleRawRoundTrip(t *testing.T) {
	h, store := setupTest(t)
	text := strings.Repeat("line of raw output\n", 12)
	key := seedBundle(t, store, text)

	rec := httptest.NewRecorder()
	routed(h).ServeHTTP(rec, httptest.NewRequest("GET", "/chunks/"+key+"/raw", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != text {
		t.Error("raw view must reassemble the exact original text")
	}
}

func TestHandleEvict(t *testing.T) {
	h, store := setupTest(t)
	key := seedBundle(t, store, "to be removed")

	req := httptest.NewRequest("DELETE", "/chunks/"+key, nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	routed(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := store.Info(key); ok {
		t.Error("bundle still present after evict")
	}

	// A second delete is a miss.
	rec = httptest.NewRecorder()
	routed(h).ServeHTTP(rec, httptest.NewRequest("DELETE", "/chunks/"+key, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestErrorJSONNegotiation(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/chunks/01MISSING", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	routed(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "CACHE_MISS") {
		t.Errorf("expected CACHE_MISS code in JSON body, got %s", rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	h, _ := setupTest(t)
	wrapped := securityHeaders(routed(h))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest("GET", "/chunks", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options header")
	}
}
