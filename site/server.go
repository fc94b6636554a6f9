package site

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/creatorsforacause/api"
	"github.com/hazyhaar/creatorsforacause/dom"
	"github.com/hazyhaar/creatorsforacause/horosafe"
	"github.com/hazyhaar/creatorsforacause/shield"
)

//go:embed templates/security.txt
var securityTxt []byte

// Server is the preview server: every request to / builds the page afresh.
type Server struct {
	page      *Page
	staticDir string
	logger    *slog.Logger
	router    chi.Router
}

// NewServer wires the routes. staticDir may be empty to disable /static/.
func NewServer(page *Page, staticDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{page: page, staticDir: staticDir, logger: logger}

	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Get("/.well-known/security.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write(securityTxt)
	})
	r.Get("/", s.handleIndex)
	r.Get("/index.md", s.handleMarkdown)
	if staticDir != "" {
		r.Get("/static/*", s.handleStatic)
	}
	s.router = r
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down with a
// 5s grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("site: listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("site: stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.build(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.page.WriteHTML(&buf, doc); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.build(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.page.WriteMarkdown(&buf, doc); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) (doc *dom.Document, ok bool) {
	doc, err := s.page.Build(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		var rfe *api.RemoteFetchError
		if errors.As(err, &rfe) {
			status = http.StatusBadGateway
		}
		s.fail(w, r, status, err)
		return nil, false
	}
	return doc, true
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path, err := horosafe.SafePath(s.staticDir, chi.URLParam(r, "*"))
	if err != nil {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	shield.GetLogger(r.Context()).Error("site: request failed", "status", status, "error", err)
	http.Error(w, http.StatusText(status), status)
}
