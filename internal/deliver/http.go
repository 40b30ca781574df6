package deliver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// DownloadsPerMinute limits download requests per client address.
const DownloadsPerMinute = 30

// HTTPSink keeps the latest document and serves it as an attachment.
type HTTPSink struct {
	mu      sync.RWMutex
	name    string
	data    []byte
	updated time.Time
}

// Offer replaces the published document.
func (h *HTTPSink) Offer(ctx context.Context, name string, pdf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	h.name = name
	h.data = append([]byte(nil), pdf...)
	h.updated = time.Now()
	h.mu.Unlock()
	return nil
}

// Ready reports whether a document has been published.
func (h *HTTPSink) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data != nil
}

// Router returns a rate limited handler serving the document at "/".
func (h *HTTPSink) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(DownloadsPerMinute, time.Minute))
	r.Get("/", h.ServeHTTP)
	r.Head("/", h.ServeHTTP)
	return r
}

// ServeHTTP writes the latest document or 404 when there is none yet.
func (h *HTTPSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	name, data, updated := h.name, h.data, h.updated
	h.mu.RUnlock()
	if data == nil {
		http.Error(w, "nothing exported yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", strconv.Quote(name)))
	w.Header().Set("Last-Modified", updated.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		// client went away
		return
	}
}
