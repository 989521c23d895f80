package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hayago/tracking-service/internal/domain/models"
)

type fakeSyncEngine struct {
	report    models.SyncReport
	reportErr error
	pending   int
}

func (f *fakeSyncEngine) Replay(ctx context.Context, driverID string) (models.SyncReport, error) {
	return f.report, f.reportErr
}

func (f *fakeSyncEngine) ReplayAll(ctx context.Context) (models.SyncReport, error) {
	return f.report, f.reportErr
}

func (f *fakeSyncEngine) Reconcile(ctx context.Context, driverID string) (int, error) {
	return f.pending, nil
}

type fakeStatusService struct {
	statuses []models.SyncStatus
}

func (f *fakeStatusService) SyncStatuses(ctx context.Context) ([]models.SyncStatus, error) {
	return f.statuses, nil
}

func (f *fakeStatusService) SyncStatusFor(ctx context.Context, driverID string) (models.SyncStatus, error) {
	return models.SyncStatus{DriverID: driverID}, nil
}

func TestReplay_ReportsCounts(t *testing.T) {
	engine := &fakeSyncEngine{report: models.SyncReport{SyncedCount: 3, FailedCount: 2}}
	h := NewSync(engine, &fakeStatusService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/sync/DRV-1", nil)
	req.SetPathValue("driver_id", "DRV-1")
	rec := httptest.NewRecorder()

	h.Replay(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["synced_count"].(float64) != 3 || body["failed_count"].(float64) != 2 {
		t.Fatalf("unexpected report: %v", body)
	}
}

func TestReplay_EngineError(t *testing.T) {
	engine := &fakeSyncEngine{reportErr: errors.New("store unavailable")}
	h := NewSync(engine, &fakeStatusService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/sync/DRV-1", nil)
	req.SetPathValue("driver_id", "DRV-1")
	rec := httptest.NewRecorder()

	h.Replay(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestReconcile_ReturnsCorrectedCounter(t *testing.T) {
	engine := &fakeSyncEngine{pending: 9}
	h := NewSync(engine, &fakeStatusService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/sync/DRV-1/reconcile", nil)
	req.SetPathValue("driver_id", "DRV-1")
	rec := httptest.NewRecorder()

	h.Reconcile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["pending_locations"].(float64) != 9 {
		t.Fatalf("expected pending 9, got %v", body["pending_locations"])
	}
}

func TestStatus_ListsAllDrivers(t *testing.T) {
	statuses := &fakeStatusService{statuses: []models.SyncStatus{
		{DriverID: "DRV-1", PendingLocations: 4},
		{DriverID: "DRV-2"},
	}}
	h := NewSync(&fakeSyncEngine{}, statuses, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	rec := httptest.NewRecorder()

	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 2 {
		t.Fatalf("expected 2 statuses, got %v", body["count"])
	}
}
