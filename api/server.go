// Package api exposes the runtime's status, health, restart, and event
// surfaces over HTTP, plus the Prometheus scrape endpoint.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/R3E-Network/service_runtime/internal/engine/lifecycle"
	"github.com/R3E-Network/service_runtime/internal/engine/provider"
	"github.com/R3E-Network/service_runtime/orchestrator"
	"github.com/R3E-Network/service_runtime/pkg/logger"
)

// Server serves the runtime control API.
type Server struct {
	orch *orchestrator.Orchestrator
	log  *logger.Logger
	http *http.Server
}

// New creates a server bound to addr.
func New(addr string, orch *orchestrator.Orchestrator, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewDefault("api")
	}

	s := &Server{orch: orch, log: log}

	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)
	r.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/services", s.handleListServices).Methods(http.MethodGet)
	r.HandleFunc("/v1/services/{type}", s.handleGetService).Methods(http.MethodGet)
	r.HandleFunc("/v1/services/{type}/health", s.handleServiceHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/services/{type}/restart", s.handleRestartService).Methods(http.MethodPost)
	r.HandleFunc("/v1/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/events", s.handleEvents).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(orch.Metrics().Registry(), promhttp.HandlerOpts{}))

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until Stop or a listener error.
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("api server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// =============================================================================
// HTTP Handlers
// =============================================================================

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.orch.Status()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	waves, _ := s.orch.Waves()
	writeSuccess(w, map[string]any{
		"services": statuses,
		"waves":    waves,
	})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.orch.Status()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeSuccess(w, statuses)
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	serviceType := mux.Vars(r)["type"]

	mgr := s.orch.Manager()
	if mgr == nil {
		writeError(w, http.StatusServiceUnavailable, orchestrator.ErrNotInitialized.Error())
		return
	}

	status, err := mgr.ServiceStatusOf(serviceType)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeSuccess(w, status)
}

func (s *Server) handleServiceHealth(w http.ResponseWriter, r *http.Request) {
	serviceType := mux.Vars(r)["type"]

	entry, err := s.orch.CheckHealth(r.Context(), serviceType)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeSuccess(w, entry)
}

func (s *Server) handleRestartService(w http.ResponseWriter, r *http.Request) {
	serviceType := mux.Vars(r)["type"]

	if err := s.orch.Restart(r.Context(), serviceType); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeSuccess(w, map[string]string{"service": serviceType, "result": "restarted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, err := s.orch.CheckAllHealth(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	status := http.StatusOK
	if report.Unhealthy > 0 {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, apiResponse{Success: report.Unhealthy == 0, Data: report})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	if serviceType := r.URL.Query().Get("service"); serviceType != "" {
		writeSuccess(w, s.orch.Events().RecentByService(serviceType, limit))
		return
	}
	writeSuccess(w, s.orch.Events().Recent(limit))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("elapsed", time.Since(start).String()).
			Debug("request handled")
	})
}

// statusFor maps runtime errors to HTTP statuses.
func statusFor(err error) int {
	var notRegistered *provider.NotRegisteredError
	var notSupported *lifecycle.RestartNotSupportedError
	switch {
	case errors.As(err, &notRegistered):
		return http.StatusNotFound
	case errors.As(err, &notSupported):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
