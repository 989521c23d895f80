package models

import (
	"time"

	"github.com/hayago/tracking-service/internal/domain/types"
)

// LocationEvent is one position report from a driver's device. Once stored
// it is a fact: only the Synced flag ever changes, and only false -> true.
type LocationEvent struct {
	ID        int64     `json:"id"`
	DriverID  string    `json:"driver_id"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	IsOffline bool      `json:"is_offline"`
	TripID    *string   `json:"trip_id,omitempty"`
	Synced    bool      `json:"synced"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields that must never reach the store.
// Heading range is checked only when enforceHeading is set: out-of-range
// heading is otherwise tolerated as unreliable sensor data.
func (e *LocationEvent) Validate(enforceHeading bool) error {
	if e.DriverID == "" {
		return types.ErrMissingDriverID
	}
	if e.Latitude < -90 || e.Latitude > 90 {
		return types.ErrInvalidLatitude
	}
	if e.Longitude < -180 || e.Longitude > 180 {
		return types.ErrInvalidLongitude
	}
	if enforceHeading && e.Heading != nil && (*e.Heading < 0 || *e.Heading > 360) {
		return types.ErrInvalidHeading
	}
	return nil
}

// SyncStatus is the per-driver delivery bookkeeping record.
// PendingLocations is a cached counter and may drift; the unsynced rows in
// the location store are the ground truth.
type SyncStatus struct {
	DriverID          string     `json:"driver_id"`
	LastSyncTimestamp *time.Time `json:"last_sync_timestamp"`
	PendingLocations  int        `json:"pending_locations"`
	LastError         *string    `json:"last_error"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// BatchItemError reports why a single item of a batch was rejected.
type BatchItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BatchResult is the per-item breakdown of a batch ingestion.
type BatchResult struct {
	Processed int              `json:"processed_count"`
	Failed    []BatchItemError `json:"failed_locations"`
}

// SyncReport aggregates the outcome of a replay pass.
type SyncReport struct {
	SyncedCount int `json:"synced_count"`
	FailedCount int `json:"failed_count"`
}

// StoreStats are the gross counts reported by the health probe.
type StoreStats struct {
	TotalLocations int64 `json:"total_locations"`
	ActiveDrivers  int64 `json:"active_drivers"`
}

// NearbyDriver is one hit of a bounding-radius search.
type NearbyDriver struct {
	DriverID   string    `json:"driver_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Timestamp  time.Time `json:"timestamp"`
	Speed      *float64  `json:"speed,omitempty"`
	DistanceKm float64   `json:"distance_km"`
}

// LocationUpdateMessage is published to the <location_fanout> exchange for
// live consumers (dashboards, trip tracking).
type LocationUpdateMessage struct {
	DriverID  string    `json:"driver_id"`
	TripID    *string   `json:"trip_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	IsOffline bool      `json:"is_offline"`
}
