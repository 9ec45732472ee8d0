// Package web exposes the planner and the poster exporter over HTTP.
package web

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"weekposter/internal/config"
	"weekposter/internal/export"
	"weekposter/internal/ics"
	appLog "weekposter/internal/log"
	"weekposter/internal/planner"
	"weekposter/internal/poster"
)

// Server provides the JSON API, the render endpoints and a cached preview.
type Server struct {
	cfg      *config.Config
	planner  *planner.Planner
	exporter *export.Exporter
	fetcher  *ics.Fetcher
	validate *validator.Validate
	mux      *chi.Mux

	// rev counts planner changes; the preview is re-rendered when it moves.
	rev atomic.Uint64

	previewMu    sync.Mutex
	previewCache *previewCache

	unsubscribe func()
}

// previewCache holds the last rendered preview and the planner revision it
// was rendered from.
type previewCache struct {
	png       []byte
	rev       uint64
	updatedAt time.Time
}

// NewServer constructs a Server over p. Every planner change is persisted
// through p.Save.
func NewServer(cfg *config.Config, p *planner.Planner, ex *export.Exporter) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if ex == nil {
		ex = &export.Exporter{}
	}
	s := &Server{
		cfg:      cfg,
		planner:  p,
		exporter: ex,
		fetcher:  ics.NewFetcher(filepath.Join(cfg.DataDir, "ics-cache")),
		validate: newValidator(),
		mux:      chi.NewRouter(),
	}
	s.unsubscribe = p.Subscribe(s.onPlannerEvent)
	s.registerRoutes()
	return s
}

// Close detaches the server from the planner.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Server) onPlannerEvent(ev planner.Event) {
	s.rev.Add(1)
	if ev.Kind == planner.Loaded {
		return
	}
	if err := s.planner.Save(); err != nil {
		appLog.Error("planner save failed", err, "event", string(ev.Kind))
	}
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// an empty username or password disables auth
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware guards every route it wraps with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="weekposter", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				appLog.Error("handler panic", fmt.Errorf("panic: %v", v), "path", r.URL.Path, "stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerRoutes() {
	s.mux.Use(recoverer)
	s.mux.Use(requestLogger)

	// /health stays outside basic auth.
	s.mux.Get("/health", s.handleHealth)

	s.mux.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
			r.Use(s.basicAuthMiddleware)
		}

		r.Get("/preview.png", s.handlePreview)

		r.Route("/api", func(r chi.Router) {
			r.Get("/options", s.handleOptions)

			r.Route("/activities", func(r chi.Router) {
				r.Get("/", s.listActivities)
				r.Post("/", s.createActivity)
				r.Patch("/{id}", s.updateActivity)
				r.Delete("/{id}", s.deleteActivity)
			})
			r.Route("/blocks", func(r chi.Router) {
				r.Get("/", s.listBlocks)
				r.Post("/", s.placeBlock)
				r.Patch("/{id}", s.updateBlock)
				r.Delete("/{id}", s.deleteBlock)
			})
			r.Get("/settings", s.getSettings)
			r.Put("/settings", s.putSettings)
			r.Post("/reset", s.resetPlanner)

			r.Post("/render.svg", s.handleSVG)
			r.Post("/export.png", s.handlePNG)
			r.Post("/export.pdf", s.handlePDF)

			r.Get("/calendar.ics", s.handleCalendar)
			r.Post("/import/ics", s.handleImport)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves a PNG of the stored planner state at the configured
// canvas preset. The image is rendered again only after the planner changed.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rev := s.rev.Load()

	s.previewMu.Lock()
	defer s.previewMu.Unlock()

	pc := s.previewCache
	if pc == nil || pc.rev != rev {
		data := s.plannerData("", "")
		png, err := s.exporter.PNG(r.Context(), data, s.exportOptions(renderRequest{}))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		pc = &previewCache{png: png, rev: rev, updatedAt: time.Now()}
		s.previewCache = pc
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Last-Modified", pc.updatedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pc.png)
}

// handleOptions lists the canvas presets and themes the render endpoints
// accept.
func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, optionsResponse{
		Formats:       export.Formats(),
		Themes:        poster.Themes(),
		DefaultFormat: s.cfg.Export.Format,
		DefaultTheme:  s.cfg.Export.Theme,
	})
}

type optionsResponse struct {
	Formats       []string `json:"formats"`
	Themes        []string `json:"themes"`
	DefaultFormat string   `json:"defaultFormat"`
	DefaultTheme  string   `json:"defaultTheme"`
}
