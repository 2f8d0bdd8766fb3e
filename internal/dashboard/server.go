package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/qepting91/idea-collector/internal/logger"
	"github.com/qepting91/idea-collector/internal/storage"
	"github.com/qepting91/idea-collector/internal/version"
)

// Server serves run reports from an output directory.
type Server struct {
	http    *http.Server
	dir     string
	log     logger.Logger
	started time.Time
}

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version"`
	GoVersion     string  `json:"go_version"`
}

func NewServer(dir, addr string, log logger.Logger) *Server {
	s := &Server{dir: dir, log: log, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(log))

	r.Get("/", s.latest)
	r.Get("/runs", s.runs)
	r.Get("/runs/{name}", s.run)
	r.Get("/healthz", s.healthz)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start blocks until the server fails or is shut down.
func (s *Server) Start() error {
	s.log.Infof("dashboard listening on %s (serving %s)", s.http.Addr, s.dir)
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("dashboard shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) {
	rf, err := storage.Latest(s.dir)
	if errors.Is(err, storage.ErrNoRuns) {
		http.Error(w, "no runs collected yet", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.render(w, rf.Path)
}

func (s *Server) runs(w http.ResponseWriter, r *http.Request) {
	runs, err := storage.List(s.dir)
	if err != nil {
		s.fail(w, err)
		return
	}
	if runs == nil {
		runs = []storage.RunFile{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runs)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	runs, err := storage.List(s.dir)
	if err != nil {
		s.fail(w, err)
		return
	}
	for _, rf := range runs {
		if rf.Name == name {
			s.render(w, rf.Path)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(healthzResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(s.started).Seconds(),
		Version:       version.Version,
		GoVersion:     version.GoVersion,
	})
}

func (s *Server) render(w http.ResponseWriter, path string) {
	res, err := storage.Read(path)
	if err != nil {
		s.fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := RenderReport(&buf, res); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("dashboard request failed", logger.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
