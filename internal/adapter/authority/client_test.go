package authority

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/internal/domain/types"
)

func testEvent() models.LocationEvent {
	return models.LocationEvent{
		ID:        1,
		DriverID:  "DRV-1",
		Timestamp: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Latitude:  43.238,
		Longitude: 76.889,
	}
}

func TestUpdateLocation_Success(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != updateLocationPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"status": "success"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "key", "secret", 5*time.Second)
	if err := client.UpdateLocation(context.Background(), testEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "token key:secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotPayload["driver"] != "DRV-1" {
		t.Fatalf("unexpected driver field: %v", gotPayload["driver"])
	}
	if _, ok := gotPayload["speed"]; ok {
		t.Fatalf("nil telemetry fields must be omitted, got %v", gotPayload)
	}
}

func TestUpdateLocation_BusinessFailureInside200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"status": "error", "message": "driver not found"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "", "", 5*time.Second)
	err := client.UpdateLocation(context.Background(), testEvent())
	if !errors.Is(err, types.ErrAuthorityRejected) {
		t.Fatalf("expected ErrAuthorityRejected, got %v", err)
	}
}

func TestUpdateLocation_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, "", "", 5*time.Second)
	err := client.UpdateLocation(context.Background(), testEvent())
	if !errors.Is(err, types.ErrAuthorityUnavailable) {
		t.Fatalf("expected ErrAuthorityUnavailable, got %v", err)
	}
}

func TestUpdateLocation_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := New(srv.URL, "", "", time.Second)
	err := client.UpdateLocation(context.Background(), testEvent())
	if !errors.Is(err, types.ErrAuthorityUnavailable) {
		t.Fatalf("expected ErrAuthorityUnavailable, got %v", err)
	}
}

func TestUpdateLocation_NoCredentialsNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Fatalf("expected no auth header, got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"status": "success"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "", "", 5*time.Second)
	if err := client.UpdateLocation(context.Background(), testEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
