package server

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/claude/healthdash/internal/query"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine *query.Engine
	log    *slog.Logger
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(engine *query.Engine, log *slog.Logger) *Server {
	s := &Server{
		engine: engine,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Read-only dashboard API. No auth — single local user, and tsnet
	// handles access when enabled.
	s.router.Get("/api/v1/status", s.handleStatus)
	s.router.Get("/api/v1/activities", s.handleActivities)
	s.router.Get("/api/v1/series", s.handleSeries)
	s.router.Get("/api/v1/sleep", s.handleSleep)
	s.router.Get("/api/v1/steps", s.handleSteps)
	s.router.Get("/api/v1/heartrate", s.handleHeartRate)
	s.router.Get("/api/v1/summary", s.handleSummary)
	s.router.Get("/api/v1/records", s.handleRecords)
	s.router.Get("/api/v1/workouts", s.handleWorkouts)
}

// SetMCP mounts the MCP endpoint.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Mount("/mcp", h)
}

// SetFrontend mounts the embedded dashboard shell. Unmatched routes serve
// index.html so the shell always loads.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// Try to serve the exact file first
		f, err := webFS.Open(r.URL.Path[1:]) // strip leading /
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		// Fallback to index.html
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
