package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/internal/domain/types"
	"github.com/hayago/tracking-service/pkg/logger"
)

type fakeTrackingService struct {
	recordedID  int64
	recordedErr error
	lastEvent   models.LocationEvent

	batchResult models.BatchResult
	batchEvents []models.LocationEvent

	latest    models.LocationEvent
	latestErr error
	address   string

	history []models.LocationEvent
	nearby  []models.NearbyDriver
	deleted int64
}

func (f *fakeTrackingService) RecordLocation(ctx context.Context, event *models.LocationEvent) (int64, error) {
	f.lastEvent = *event
	return f.recordedID, f.recordedErr
}

func (f *fakeTrackingService) RecordBatch(ctx context.Context, events []models.LocationEvent) (models.BatchResult, error) {
	f.batchEvents = events
	return f.batchResult, nil
}

func (f *fakeTrackingService) History(ctx context.Context, driverID string, hours, limit int) ([]models.LocationEvent, error) {
	return f.history, nil
}

func (f *fakeTrackingService) Latest(ctx context.Context, driverID string) (models.LocationEvent, string, error) {
	if f.latestErr != nil {
		return models.LocationEvent{}, "", f.latestErr
	}
	return f.latest, f.address, nil
}

func (f *fakeTrackingService) NearbyDrivers(ctx context.Context, latitude, longitude, radiusKm float64) ([]models.NearbyDriver, error) {
	return f.nearby, nil
}

func (f *fakeTrackingService) Cleanup(ctx context.Context, days int) (int64, error) {
	return f.deleted, nil
}

func testLogger() logger.Logger {
	return logger.InitLogger("test", logger.LevelError)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestUpdate_Accepted(t *testing.T) {
	svc := &fakeTrackingService{recordedID: 42}
	h := NewLocation(svc, testLogger())

	payload := `{"driver_id":"DRV-1","latitude":43.238,"longitude":76.889,"timestamp":"2026-08-30T10:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/location", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["location_id"].(float64) != 42 {
		t.Fatalf("expected location_id 42, got %v", body["location_id"])
	}
	if svc.lastEvent.Timestamp != time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC) {
		t.Fatalf("timestamp not parsed: %v", svc.lastEvent.Timestamp)
	}
}

func TestUpdate_MissingLatitude(t *testing.T) {
	h := NewLocation(&fakeTrackingService{}, testLogger())

	payload := `{"driver_id":"DRV-1","longitude":76.889}`
	req := httptest.NewRequest(http.MethodPost, "/api/location", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestUpdate_MalformedJSON(t *testing.T) {
	h := NewLocation(&fakeTrackingService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/location", strings.NewReader(`{"driver_id":`))
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdate_FallsBackToServerTime(t *testing.T) {
	svc := &fakeTrackingService{recordedID: 1}
	h := NewLocation(svc, testLogger())

	payload := `{"driver_id":"DRV-1","latitude":43.238,"longitude":76.889,"timestamp":"not-a-time"}`
	req := httptest.NewRequest(http.MethodPost, "/api/location", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	before := time.Now().UTC()
	h.Update(rec, req)
	after := time.Now().UTC()

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	ts := svc.lastEvent.Timestamp
	if ts.Before(before.Add(-time.Second)) || ts.After(after.Add(time.Second)) {
		t.Fatalf("expected server-time fallback, got %v", ts)
	}
}

func TestBatch_PartialBreakdown(t *testing.T) {
	svc := &fakeTrackingService{
		batchResult: models.BatchResult{
			Processed: 1,
			Failed:    []models.BatchItemError{{Index: 1, Error: types.ErrInvalidLongitude.Error()}},
		},
	}
	h := NewLocation(svc, testLogger())

	// Item 0 is fine, item 1 fails in the service, item 2 is missing its
	// latitude and never reaches the service.
	payload := `{"locations":[
		{"driver_id":"DRV-1","latitude":43.2,"longitude":76.9},
		{"driver_id":"DRV-1","latitude":43.2,"longitude":200},
		{"driver_id":"DRV-1","longitude":76.9}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/location/batch", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	h.Batch(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.batchEvents) != 2 {
		t.Fatalf("expected 2 items forwarded to the service, got %d", len(svc.batchEvents))
	}

	body := decodeBody(t, rec)
	if body["status"] != "partial" {
		t.Fatalf("expected partial status, got %v", body["status"])
	}
	if body["processed_count"].(float64) != 1 {
		t.Fatalf("expected processed_count 1, got %v", body["processed_count"])
	}

	failures := body["failed_locations"].([]any)
	if len(failures) != 2 {
		t.Fatalf("expected 2 failed items, got %d", len(failures))
	}
	indexes := map[float64]bool{}
	for _, f := range failures {
		indexes[f.(map[string]any)["index"].(float64)] = true
	}
	// Indexes must refer to the caller's original list.
	if !indexes[1] || !indexes[2] {
		t.Fatalf("expected failures at original indexes 1 and 2, got %v", indexes)
	}
}

func TestBatch_EmptyList(t *testing.T) {
	h := NewLocation(&fakeTrackingService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/location/batch", strings.NewReader(`{"locations":[]}`))
	rec := httptest.NewRecorder()

	h.Batch(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty batch, got %d", rec.Code)
	}
}

func TestLatest_NotFound(t *testing.T) {
	svc := &fakeTrackingService{latestErr: types.ErrLocationNotFound}
	h := NewLocation(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/location/DRV-1/latest", nil)
	req.SetPathValue("driver_id", "DRV-1")
	rec := httptest.NewRecorder()

	h.Latest(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown driver, got %d", rec.Code)
	}
}

func TestLatest_WithAddress(t *testing.T) {
	svc := &fakeTrackingService{
		latest:  models.LocationEvent{DriverID: "DRV-1", Latitude: 43.2, Longitude: 76.9},
		address: "Abay Ave 10, Almaty",
	}
	h := NewLocation(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/location/DRV-1/latest", nil)
	req.SetPathValue("driver_id", "DRV-1")
	rec := httptest.NewRecorder()

	h.Latest(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["address"] != "Abay Ave 10, Almaty" {
		t.Fatalf("expected address in response, got %v", body["address"])
	}
}

func TestNearby_RequiresCoordinates(t *testing.T) {
	h := NewLocation(&fakeTrackingService{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/drivers/nearby?latitude=abc", nil)
	rec := httptest.NewRecorder()

	h.Nearby(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid coordinates, got %d", rec.Code)
	}
}
