package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/example/possemark/internal/capture"
	"github.com/example/possemark/internal/deliver"
	"github.com/example/possemark/internal/export"
	"github.com/example/possemark/internal/toolbar"
)

const requestsPerMinute = 120

// serveCmd exposes a session over HTTP.
type serveCmd struct {
	*root
	fs     *flag.FlagSet
	addr   string
	file   string
	layers string
	watch  bool
}

func (c *serveCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *serveCmd) Program() string {
	return c.subcommand("serve")
}

func parseServeCmd(args []string, r *root) (*serveCmd, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	c := &serveCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.addr, "addr", ":8080", "listen address")
	fs.StringVar(&c.file, "file", "", "PDF file, page image or directory of page images")
	fs.StringVar(&c.layers, "layers", "", "directory holding the annotation layer of each page")
	fs.BoolVar(&c.watch, "watch", true, "reload the document when it changes on disk")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.file == "" && fs.NArg() > 0 {
		c.file = fs.Arg(0)
	}
	if c.file == "" {
		return nil, &UsageError{of: c, msg: "a document is required"}
	}
	return c, nil
}

func (c *serveCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	downloads := &deliver.HTTPSink{}
	s, err := c.openSession(ctx, c.file, downloads)
	if err != nil {
		return err
	}
	if err := s.importLayers(c.layers); err != nil {
		return err
	}
	srv := newServer(s, downloads)

	if c.watch {
		go func() {
			err := watchFile(ctx, c.file, func() {
				if err := srv.reload(ctx); err != nil {
					log.Printf("reload %s: %v", c.file, err)
				}
			})
			if err != nil {
				log.Printf("watch %s: %v", c.file, err)
			}
		}()
	}

	hs := &http.Server{Addr: c.addr, Handler: srv.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	log.Printf("serving %s on %s", c.file, c.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.toolbar.Wait()
	if err := s.saveLayers(c.layers); err != nil {
		return fmt.Errorf("save layers: %w", err)
	}
	return nil
}

// server serialises requests that move the session between pages. Export
// requests are not serialised here; the pipeline rejects overlapping ones.
type server struct {
	s         *session
	downloads *deliver.HTTPSink
	mu        sync.Mutex
}

func newServer(s *session, downloads *deliver.HTTPSink) *server {
	return &server{s: s, downloads: downloads}
}

func (sv *server) reload(ctx context.Context) error {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.s.state.Exporting() {
		return export.ErrExportInProgress
	}
	return sv.s.load(ctx)
}

// Handler returns the HTTP routes of the session.
func (sv *server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))

	r.Get("/status", sv.status)
	r.Get("/pages/{n}.png", sv.pagePNG)
	r.Post("/script", sv.script)
	r.Post("/export/page", sv.exportPage)
	r.Post("/export/all", sv.exportAll)
	r.Mount("/download", sv.downloads.Router())
	return r
}

type statusResponse struct {
	Page      int  `json:"page"`
	Total     int  `json:"total"`
	Exporting bool `json:"exporting"`
	Hidden    bool `json:"hidden"`
	Ready     bool `json:"download_ready"`
}

type exportResponse struct {
	Name  string `json:"name"`
	Pages []int  `json:"pages"`
	Size  int    `json:"size"`
}

func (sv *server) status(w http.ResponseWriter, r *http.Request) {
	st := sv.s.state
	writeJSON(w, http.StatusOK, statusResponse{
		Page:      st.Page(),
		Total:     st.TotalPages(),
		Exporting: st.Exporting(),
		Hidden:    st.Hidden(),
		Ready:     sv.downloads.Ready(),
	})
}

func (sv *server) pagePNG(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 || n > sv.s.nav.TotalPages() {
		http.Error(w, "no such page", http.StatusNotFound)
		return
	}
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if _, err := sv.s.toolbar.GoToPage(n); err != nil {
		httpError(w, err)
		return
	}
	img, err := sv.s.region.CaptureAt(r.Context(), 1)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		log.Printf("page %d: %v", n, err)
	}
}

func (sv *server) script(w http.ResponseWriter, r *http.Request) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	var out bytes.Buffer
	code := http.StatusOK
	if err := sv.s.toolbar.Run(r.Context(), r.Body, &out); err != nil {
		code = statusFor(err)
		fmt.Fprintln(&out, err)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write(out.Bytes())
}

// exportPage holds the session lock from navigation through capture so a
// concurrent preview cannot move the page in between.
func (sv *server) exportPage(w http.ResponseWriter, r *http.Request) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		if _, err := sv.s.toolbar.GoToPage(n); err != nil {
			httpError(w, err)
			return
		}
	}
	res, err := sv.s.toolbar.ExportPage(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse(res))
}

func (sv *server) exportAll(w http.ResponseWriter, r *http.Request) {
	res, err := sv.s.toolbar.ExportAll(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse(res))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, export.ErrExportInProgress), errors.Is(err, toolbar.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, capture.ErrRegionNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, toolbar.ErrUnknownCommand):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func httpError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
