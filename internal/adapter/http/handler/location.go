package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hayago/tracking-service/internal/adapter/http/handler/dto"
	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/pkg/logger"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
	"github.com/hayago/tracking-service/pkg/validator"
)

type Location struct {
	service TrackingService
	l       logger.Logger
}

type TrackingService interface {
	RecordLocation(ctx context.Context, event *models.LocationEvent) (int64, error)
	RecordBatch(ctx context.Context, events []models.LocationEvent) (models.BatchResult, error)
	History(ctx context.Context, driverID string, hours, limit int) ([]models.LocationEvent, error)
	Latest(ctx context.Context, driverID string) (models.LocationEvent, string, error)
	NearbyDrivers(ctx context.Context, latitude, longitude, radiusKm float64) ([]models.NearbyDriver, error)
	Cleanup(ctx context.Context, days int) (int64, error)
}

func NewLocation(service TrackingService, l logger.Logger) *Location {
	return &Location{
		service: service,
		l:       l,
	}
}

func (h *Location) Update(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_location")

	var req dto.LocationUpdateReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	event := req.ToModel(time.Now().UTC())
	id, err := h.service.RecordLocation(ctx, &event)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to record location", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"status":      "success",
		"message":     "Location updated",
		"location_id": id,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "location recorded", "driver_id", event.DriverID, "location_id", id)
}

func (h *Location) Batch(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_location_batch")

	var req dto.BatchUpdateReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	// Items with missing required fields are rejected here; everything else
	// is validated by the service. Indexes in the response always refer to
	// the caller's original list.
	now := time.Now().UTC()
	failed := make([]models.BatchItemError, 0)
	events := make([]models.LocationEvent, 0, len(req.Locations))
	indexes := make([]int, 0, len(req.Locations))
	for i := range req.Locations {
		if err := req.Locations[i].Check(); err != nil {
			failed = append(failed, models.BatchItemError{Index: i, Error: err.Error()})
			continue
		}
		events = append(events, req.Locations[i].ToModel(now))
		indexes = append(indexes, i)
	}

	result, err := h.service.RecordBatch(ctx, events)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to record location batch", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	for _, item := range result.Failed {
		item.Index = indexes[item.Index]
		failed = append(failed, item)
	}

	status := "success"
	if len(failed) > 0 {
		status = "partial"
	}

	response := envelope{
		"status":           status,
		"processed_count":  result.Processed,
		"failed_count":     len(failed),
		"failed_locations": failed,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "location batch recorded", "processed", result.Processed, "failed", len(failed))
}

func (h *Location) History(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "location_history")

	driverID := r.PathValue("driver_id")
	if driverID == "" {
		h.l.Warn(ctx, "missing driver id")
		badRequestResponse(w, "driver_id must be provided")
		return
	}

	hours := queryInt(r, "hours", 0)
	limit := queryInt(r, "limit", 0)

	locations, err := h.service.History(ctx, driverID, hours, limit)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load location history", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"driver_id": driverID,
		"count":     len(locations),
		"locations": locations,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Location) Latest(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "latest_location")

	driverID := r.PathValue("driver_id")
	if driverID == "" {
		h.l.Warn(ctx, "missing driver id")
		badRequestResponse(w, "driver_id must be provided")
		return
	}

	event, address, err := h.service.Latest(ctx, driverID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load latest location", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"driver_id": driverID,
		"location":  event,
	}
	if address != "" {
		response["address"] = address
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Location) Nearby(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "nearby_drivers")

	latitude, errLat := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	longitude, errLon := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	if errLat != nil || errLon != nil {
		h.l.Warn(ctx, "invalid coordinates in query")
		badRequestResponse(w, "latitude and longitude must be valid numbers")
		return
	}

	radiusKm := queryFloat(r, "radius", 0)

	drivers, err := h.service.NearbyDrivers(ctx, latitude, longitude, radiusKm)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to search nearby drivers", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"count":   len(drivers),
		"drivers": drivers,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Location) Cleanup(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "cleanup_locations")

	days := queryInt(r, "days", 0)

	deleted, err := h.service.Cleanup(ctx, days)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to clean up old locations", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"status":        "success",
		"deleted_count": deleted,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return val
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return val
}
