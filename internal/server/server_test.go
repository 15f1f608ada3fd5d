package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/me/shopadmin/internal/config"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/logging"
	"github.com/me/shopadmin/internal/store"
	"github.com/me/shopadmin/pkg/model"
)

func testServer(t *testing.T, cfg config.Config, opts ...Option) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", logging.Discard())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	gw := gateway.New(gateway.Config{BaseURL: "https://api.example.test", Timeout: time.Second}, nil)
	return New(cfg, st, gw, logging.Discard(), opts...)
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Error     *model.APIError `json:"error"`
}

func TestHealth(t *testing.T) {
	srv := testServer(t, config.Default())

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if env.Status != "ok" || env.RequestID == "" {
		t.Errorf("envelope = %+v", env)
	}
	if got := w.Header().Get("X-Request-ID"); got != env.RequestID {
		t.Errorf("X-Request-ID = %q, body request_id = %q", got, env.RequestID)
	}

	var health model.Health
	json.Unmarshal(env.Data, &health)
	if health.Status != "healthy" || health.API != "https://api.example.test" {
		t.Errorf("health = %+v", health)
	}
}

func TestRequestID(t *testing.T) {
	srv := testServer(t, config.Default())

	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"generated", "", false},
		{"proxy id kept", "edge-7f3a.01", true},
		{"malformed replaced", "bad id\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.inbound != "" {
				req.Header.Set("X-Request-ID", tt.inbound)
			}
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if tt.keep {
				if got != tt.inbound {
					t.Errorf("X-Request-ID = %q, want %q", got, tt.inbound)
				}
				return
			}
			if !strings.HasPrefix(got, "req_") || len(got) != 12 {
				t.Errorf("X-Request-ID = %q", got)
			}
		})
	}
}

func TestAccessLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/healthz", 200, slog.LevelDebug},
		{"/products", 200, slog.LevelInfo},
		{"/products", 303, slog.LevelInfo},
		{"/nope", 404, slog.LevelWarn},
		{"/healthz", 503, slog.LevelError},
	}
	for _, tt := range tests {
		if got := accessLevel(tt.path, tt.status); got != tt.want {
			t.Errorf("accessLevel(%q, %d) = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}
}

func TestNotFound(t *testing.T) {
	srv := testServer(t, config.Default())

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Status != "error" || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestPanelRoutesMounted(t *testing.T) {
	srv := testServer(t, config.Default())

	tests := []struct {
		path     string
		wantCode int
		wantLoc  string
	}{
		{"/login", http.StatusOK, ""},
		{"/products", http.StatusSeeOther, "/login"},
		{"/", http.StatusSeeOther, "/login"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.wantCode {
			t.Errorf("GET %s: status = %d, want %d", tt.path, w.Code, tt.wantCode)
		}
		if loc := w.Header().Get("Location"); loc != tt.wantLoc {
			t.Errorf("GET %s: Location = %q, want %q", tt.path, loc, tt.wantLoc)
		}
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := config.Default()
	cfg.Server.Addr = addr
	srv := testServer(t, cfg, WithCleanupInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
