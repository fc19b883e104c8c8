package web

import (
	"net/http"
	"strings"

	"github.com/capyBearista/better-gemini-mcp/internal/chunk"
	"github.com/capyBearista/better-gemini-mcp/internal/config"
	"github.com/capyBearista/better-gemini-mcp/internal/errors"
)

// Handlers contains HTTP route handlers for the chunk viewer.
type Handlers struct {
	store    *chunk.Store
	cfg      *config.Config
	renderer *Renderer
}

// HandleList handles GET /chunks — list cached response bundles.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	items := h.store.List()

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, map[string]any{"items": items})
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Cached responses",
			Version: h.renderer.version,
		},
		Items: items,
	})
}

// HandleDetail handles GET /chunks/{key} — view one bundle with its
// segments joined and rendered as markdown.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("chunk key is required"))
		return
	}

	bundle, ok := h.store.Get(key)
	if !ok {
		h.renderer.renderError(w, r, errors.NewCacheMiss(key))
		return
	}

	meta, _ := h.store.Info(key)
	rendered := renderMarkdown(joinSegments(bundle.Segments))

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   key,
			Version: h.renderer.version,
		},
		Meta:         meta,
		Segments:     bundle.Segments,
		RenderedHTML: rendered,
	})
}

// HandleRaw handles GET /chunks/{key}/raw — the joined response as plain text.
func (h *Handlers) HandleRaw(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	bundle, ok := h.store.Get(key)
	if !ok {
		h.renderer.renderError(w, r, errors.NewCacheMiss(key))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(joinSegments(bundle.Segments)))
}

// HandleEvict handles DELETE /chunks/{key} — drop a bundle from the cache.
func (h *Handlers) HandleEvict(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("chunk key is required"))
		return
	}

	if _, ok := h.store.Info(key); !ok {
		h.renderer.renderError(w, r, errors.NewCacheMiss(key))
		return
	}
	h.store.Evict(key)

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, map[string]any{"evicted": key})
		return
	}
	http.Redirect(w, r, "/chunks", http.StatusFound)
}

// joinSegments reassembles the original response text.
func joinSegments(segments []chunk.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Content)
	}
	return b.String()
}
