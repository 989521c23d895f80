package dto

import (
	"time"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/internal/domain/types"
	"github.com/hayago/tracking-service/pkg/validator"
)

// LocationUpdateReq is one position report from a driver device.
// Latitude/longitude are pointers so that "missing" and "zero" can be told
// apart at validation time.
type LocationUpdateReq struct {
	DriverID  string   `json:"driver_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	Accuracy  *float64 `json:"accuracy"`
	IsOffline bool     `json:"is_offline"`
	TripID    *string  `json:"trip_id"`
	Timestamp string   `json:"timestamp"`
}

func (r *LocationUpdateReq) Validate(v *validator.Validator) {
	v.Check(r.DriverID != "", "driver_id", "must be provided")

	v.Check(r.Latitude != nil, "latitude", "must be provided")
	if r.Latitude != nil {
		v.Check(*r.Latitude >= -90 && *r.Latitude <= 90, "latitude", "must be between -90 and 90")
	}

	v.Check(r.Longitude != nil, "longitude", "must be provided")
	if r.Longitude != nil {
		v.Check(*r.Longitude >= -180 && *r.Longitude <= 180, "longitude", "must be between -180 and 180")
	}
}

// Check is the per-item counterpart of Validate for batch ingestion, where
// one bad item must not fail the whole request.
func (r *LocationUpdateReq) Check() error {
	if r.DriverID == "" {
		return types.ErrMissingDriverID
	}
	if r.Latitude == nil || *r.Latitude < -90 || *r.Latitude > 90 {
		return types.ErrInvalidLatitude
	}
	if r.Longitude == nil || *r.Longitude < -180 || *r.Longitude > 180 {
		return types.ErrInvalidLongitude
	}
	return nil
}

// ToModel converts the request into a LocationEvent. A missing or
// unparseable timestamp falls back to the server's ingestion time.
func (r *LocationUpdateReq) ToModel(now time.Time) models.LocationEvent {
	event := models.LocationEvent{
		DriverID:  r.DriverID,
		Timestamp: parseTimestamp(r.Timestamp, now),
		Speed:     r.Speed,
		Heading:   r.Heading,
		Accuracy:  r.Accuracy,
		IsOffline: r.IsOffline,
		TripID:    r.TripID,
	}
	if r.Latitude != nil {
		event.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		event.Longitude = *r.Longitude
	}
	return event
}

// BatchUpdateReq wraps a list of reports, usually offline catch-up.
type BatchUpdateReq struct {
	Locations []LocationUpdateReq `json:"locations"`
}

func (r *BatchUpdateReq) Validate(v *validator.Validator) {
	v.Check(len(r.Locations) > 0, "locations", "must be a non-empty list")
}

var timestampLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

func parseTimestamp(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return fallback
}
