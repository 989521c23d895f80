package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hayago/tracking-service/internal/domain/models"
)

type fakeHealthService struct {
	stats models.StoreStats
	err   error
}

func (f *fakeHealthService) Health(ctx context.Context) (models.StoreStats, error) {
	return f.stats, f.err
}

func TestHealthCheck_Available(t *testing.T) {
	h := NewHealth("tracking-service", &fakeHealthService{
		stats: models.StoreStats{TotalLocations: 120, ActiveDrivers: 7},
	}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "available" {
		t.Fatalf("expected available, got %v", body["status"])
	}
	if body["total_locations"].(float64) != 120 {
		t.Fatalf("expected total_locations 120, got %v", body["total_locations"])
	}
}

func TestHealthCheck_DegradedStoreStillAnswers(t *testing.T) {
	h := NewHealth("tracking-service", &fakeHealthService{err: errors.New("connection refused")}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("probe must answer 200 even when the store is down, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "degraded" {
		t.Fatalf("expected degraded, got %v", body["status"])
	}
}
