package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/colorbridge/internal/bridge"
	"github.com/nerrad567/colorbridge/internal/gateway"
	"github.com/nerrad567/colorbridge/internal/infrastructure/config"
	"github.com/nerrad567/colorbridge/internal/infrastructure/logging"
	"github.com/nerrad567/colorbridge/internal/statepub"
)

type fakeBridge struct{ status bridge.Status }

func (f fakeBridge) Status() bridge.Status { return f.status }

type fakeGateway struct{ stats gateway.Stats }

func (f fakeGateway) Stats() gateway.Stats { return f.stats }

type fakeStatePub struct{ stats statepub.Stats }

func (f fakeStatePub) Stats() statepub.Stats { return f.stats }

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func testServer(t *testing.T, checks map[string]HealthChecker) *Server {
	t.Helper()

	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:   logging.Discard(),
		Bridge:   fakeBridge{status: bridge.Status{
			Backend:    "matrix",
			QueueDepth: 3,
			Controller: bridge.ControllerStats{State: "idle", Applied: 7},
		}},
		Gateway:  fakeGateway{stats: gateway.Stats{Connected: true, CommandsTx: 7, Reconnects: 2, LastActivity: time.Unix(0, 0)}},
		StatePub: fakeStatePub{stats: statepub.Stats{Published: 5, Dropped: 1}},
		Checks:   checks,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Bridge: fakeBridge{}}); err == nil {
		t.Error("New() without logger succeeded")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without bridge succeeded")
	}
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "all healthy",
			checks: map[string]HealthChecker{
				"gateway": checkFunc(func(context.Context) error { return nil }),
				"mqtt":    checkFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "gateway down",
			checks: map[string]HealthChecker{
				"gateway": checkFunc(func(context.Context) error { return gateway.ErrNotConnected }),
				"mqtt":    checkFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, tt.checks)
			rec := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/health")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("body status = %q, want %q", resp.Status, tt.wantBody)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("checks = %v", resp.Checks)
			}
			if resp.Version != "test" {
				t.Errorf("version = %q", resp.Version)
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	srv := testServer(t, nil)
	rec := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/status")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Bridge.Backend != "matrix" || resp.Bridge.QueueDepth != 3 || resp.Bridge.Controller.Applied != 7 {
		t.Errorf("bridge = %+v", resp.Bridge)
	}
	if resp.Gateway == nil || !resp.Gateway.Connected || resp.Gateway.CommandsTx != 7 || resp.Gateway.Reconnects != 2 {
		t.Errorf("gateway = %+v", resp.Gateway)
	}
	if resp.MQTT == nil || resp.MQTT.Published != 5 || resp.MQTT.Dropped != 1 {
		t.Errorf("mqtt = %+v", resp.MQTT)
	}
	if resp.Runtime.Goroutines == 0 {
		t.Error("runtime metrics missing")
	}
}

func TestRequestID(t *testing.T) {
	h := testServer(t, nil).buildRouter()

	tests := []struct {
		name     string
		header   string
		wantKept bool
	}{
		{"generated when absent", "", false},
		{"client id kept", "abc-123_x.y", true},
		{"too long replaced", strings.Repeat("a", maxRequestIDLen+1), false},
		{"unsafe characters replaced", "abc\"}{", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			if tt.wantKept {
				if got != tt.header {
					t.Errorf("X-Request-ID = %q, want %q", got, tt.header)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("X-Request-ID = %q, want a generated UUID", got)
			}
		})
	}
}

func TestLoggingMiddleware_ServerErrorsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	srv := testServer(t, nil)
	srv.logger = logging.NewWithWriter(config.LoggingConfig{Level: "warn"}, "test", &buf)

	h := srv.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			writeInternalError(w, "nope")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	do(t, h, http.MethodGet, "/ok")
	if buf.Len() != 0 {
		t.Errorf("successful request logged at warn: %s", buf.String())
	}

	do(t, h, http.MethodGet, "/fail")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log entry is not JSON: %v (%q)", err, buf.String())
	}
	if entry["status"] != float64(http.StatusInternalServerError) || entry["path"] != "/fail" {
		t.Errorf("log entry = %v", entry)
	}
	if n, _ := entry["bytes"].(float64); n == 0 {
		t.Errorf("bytes = %v, want response size", entry["bytes"])
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	h := testServer(t, nil).buildRouter()

	if rec := do(t, h, http.MethodGet, "/api/v1/devices"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/status"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := testServer(t, nil)

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode int
	}{
		{
			name:     "panic before response",
			handler:  func(http.ResponseWriter, *http.Request) { panic(errors.New("boom")) },
			wantCode: http.StatusInternalServerError,
		},
		{
			name: "panic after header keeps status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				panic(errors.New("boom"))
			},
			wantCode: http.StatusAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv.recoveryMiddleware(tt.handler), http.MethodGet, "/")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestServerLifecycle(t *testing.T) {
	srv := testServer(t, nil)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start succeeded")
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start error = %v", err)
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
