package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PizzaHomicide/crossplay/internal/events"
	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

// Controller is the part of the player the API drives
type Controller interface {
	PlayURL(url string) (player.BackendID, error)
	Play() error
	Pause() error
	TogglePlayPause() error
	Stop() error
	Seek(positionMS int64) error
	State() player.Snapshot
}

// Config configures the control API
type Config struct {
	Address string
	// Metrics is mounted on /metrics when set
	Metrics http.Handler
	Logger  *log.Logger
}

// Server exposes the player over HTTP and streams its notifications over a WebSocket
type Server struct {
	ctrl       Controller
	bus        *events.Bus
	logger     *log.Logger
	router     chi.Router
	httpServer *http.Server
}

func New(ctrl Controller, bus *events.Bus, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.L()
	}
	s := &Server{
		ctrl:   ctrl,
		bus:    bus,
		logger: logger.With("component", "server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/play", s.handlePlayURL)
		r.Post("/resume", s.control(ctrl.Play))
		r.Post("/pause", s.control(ctrl.Pause))
		r.Post("/toggle", s.control(ctrl.TogglePlayPause))
		r.Post("/stop", s.control(ctrl.Stop))
		r.Post("/seek", s.handleSeek)
		r.Get("/events", s.handleEvents)
	})
	s.router = r

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout, the event stream is long lived
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("Control API listening", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("Shutting down control API")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down control API: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

type playRequest struct {
	URL string `json:"url"`
}

type playResponse struct {
	Backend player.BackendID `json:"backend"`
}

func (s *Server) handlePlayURL(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url_required")
		return
	}
	id, err := s.ctrl.PlayURL(req.URL)
	if err != nil {
		s.writeControlError(w, "play", err)
		return
	}
	writeJSON(w, http.StatusAccepted, playResponse{Backend: id})
}

type seekRequest struct {
	PositionMS *int64 `json:"position_ms"`
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PositionMS == nil || *req.PositionMS < 0 {
		writeError(w, http.StatusBadRequest, "position_ms_required")
		return
	}
	if err := s.ctrl.Seek(*req.PositionMS); err != nil {
		s.writeControlError(w, "seek", err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

// control adapts a parameterless player call to a handler that answers with the new state
func (s *Server) control(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(); err != nil {
			s.writeControlError(w, r.URL.Path, err)
			return
		}
		writeJSON(w, http.StatusOK, s.ctrl.State())
	}
}

func (s *Server) writeControlError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, player.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "invalid_url")
	case errors.Is(err, player.ErrBackendDisabled):
		writeError(w, http.StatusUnprocessableEntity, "backend_disabled")
	case errors.Is(err, player.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "player_closed")
	default:
		s.logger.Error("Control call failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "player_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
