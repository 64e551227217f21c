package api

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/colorbridge/internal/bridge"
	"github.com/nerrad567/colorbridge/internal/gateway"
	"github.com/nerrad567/colorbridge/internal/statepub"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
	})

	return r
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// handleHealth runs every dependency check. Any failure yields 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: s.version}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()

		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(names))
		}
		if err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// StatusResponse is returned by /status.
type StatusResponse struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Bridge        bridge.Status   `json:"bridge"`
	Gateway       *GatewayMetrics `json:"gateway,omitempty"`
	MQTT          *statepub.Stats `json:"mqtt,omitempty"`
	Runtime       RuntimeMetrics  `json:"runtime"`
}

// GatewayMetrics contains gateway client statistics.
type GatewayMetrics struct {
	Connected      bool   `json:"connected"`
	CommandsTx     uint64 `json:"commands_tx"`
	CommandsFailed uint64 `json:"commands_failed"`
	Reconnects     uint64 `json:"reconnects"`
	LastActivity   string `json:"last_activity,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := StatusResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Bridge:        s.bridge.Status(),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}
	if s.gateway != nil {
		resp.Gateway = gatewayMetrics(s.gateway.Stats())
	}
	if s.statePub != nil {
		st := s.statePub.Stats()
		resp.MQTT = &st
	}

	writeJSON(w, http.StatusOK, resp)
}

func gatewayMetrics(st gateway.Stats) *GatewayMetrics {
	m := &GatewayMetrics{
		Connected:      st.Connected,
		CommandsTx:     st.CommandsTx,
		CommandsFailed: st.CommandsFailed,
		Reconnects:     st.Reconnects,
	}
	if !st.LastActivity.IsZero() {
		m.LastActivity = st.LastActivity.UTC().Format(time.RFC3339)
	}
	return m
}
