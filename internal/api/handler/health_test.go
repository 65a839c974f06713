package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler_Health(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(nil, testLogger())
	app.Get("/health", handler.Health)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result HealthResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if result.Status != "ok" {
		t.Errorf("Status = %s, want ok", result.Status)
	}

	if result.Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantBody   string
	}{
		{"no database configured", nil, 200, "ready"},
		{"database reachable", stubPinger{}, 200, "ready"},
		{"database down", stubPinger{err: errors.New("connection refused")}, 503, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			handler := NewHealthHandler(tt.db, testLogger())
			app.Get("/ready", handler.Ready)

			resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil))
			if err != nil {
				t.Fatalf("Failed to test: %v", err)
			}

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var result HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if result.Status != tt.wantBody {
				t.Errorf("Status = %s, want %s", result.Status, tt.wantBody)
			}
		})
	}
}
