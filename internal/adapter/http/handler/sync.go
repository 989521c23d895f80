package handler

import (
	"context"
	"net/http"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/pkg/logger"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
)

type Sync struct {
	engine   SyncEngine
	statuses StatusService
	l        logger.Logger
}

type SyncEngine interface {
	Replay(ctx context.Context, driverID string) (models.SyncReport, error)
	ReplayAll(ctx context.Context) (models.SyncReport, error)
	Reconcile(ctx context.Context, driverID string) (int, error)
}

type StatusService interface {
	SyncStatuses(ctx context.Context) ([]models.SyncStatus, error)
	SyncStatusFor(ctx context.Context, driverID string) (models.SyncStatus, error)
}

func NewSync(engine SyncEngine, statuses StatusService, l logger.Logger) *Sync {
	return &Sync{
		engine:   engine,
		statuses: statuses,
		l:        l,
	}
}

func (h *Sync) Replay(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "sync_driver")

	driverID := r.PathValue("driver_id")
	if driverID == "" {
		h.l.Warn(ctx, "missing driver id")
		badRequestResponse(w, "driver_id must be provided")
		return
	}

	report, err := h.engine.Replay(ctx, driverID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "replay pass failed", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"driver_id":    driverID,
		"synced_count": report.SyncedCount,
		"failed_count": report.FailedCount,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "replay pass finished", "driver_id", driverID,
		"synced", report.SyncedCount, "failed", report.FailedCount)
}

func (h *Sync) ReplayAll(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "sync_all_drivers")

	report, err := h.engine.ReplayAll(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "sweep replay pass failed", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"synced_count": report.SyncedCount,
		"failed_count": report.FailedCount,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "sweep replay pass finished",
		"synced", report.SyncedCount, "failed", report.FailedCount)
}

func (h *Sync) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "reconcile_pending")

	driverID := r.PathValue("driver_id")
	if driverID == "" {
		h.l.Warn(ctx, "missing driver id")
		badRequestResponse(w, "driver_id must be provided")
		return
	}

	pending, err := h.engine.Reconcile(ctx, driverID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to reconcile pending counter", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"driver_id":         driverID,
		"pending_locations": pending,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "pending counter reconciled", "driver_id", driverID, "pending", pending)
}

func (h *Sync) Status(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "sync_status")

	statuses, err := h.statuses.SyncStatuses(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load sync statuses", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"count":    len(statuses),
		"statuses": statuses,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Sync) StatusFor(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "sync_status_driver")

	driverID := r.PathValue("driver_id")
	if driverID == "" {
		h.l.Warn(ctx, "missing driver id")
		badRequestResponse(w, "driver_id must be provided")
		return
	}

	status, err := h.statuses.SyncStatusFor(ctx, driverID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load sync status", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": status}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}
