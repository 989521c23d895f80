package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/hayago/tracking-service/config"
	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/pkg/logger"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
	"github.com/hayago/tracking-service/pkg/metrics"
	"github.com/hayago/tracking-service/pkg/trm"
)

const (
	serviceName = "tracking"

	defaultRetentionDays = 7
)

/*
Service is the sole write boundary for driver devices. It validates and
persists location reports, keeps the per-driver pending counter in step,
and hands fresh online points to the sync engine for an immediate push.

Acceptance and delivery are strictly separated: once a point is durably
stored the ingestion call succeeds, whatever happens downstream.
*/
type Service struct {
	store   LocationStore
	tracker StatusTracker
	pusher  Pusher
	trm     trm.TxManager

	// Optional collaborators; either may be nil.
	geocoder  GeoCoder
	publisher Publisher
	cache     LiveCache

	enforceHeading bool
	history        config.HistoryConfig
	nearby         config.NearbyConfig

	l logger.Logger
}

func New(
	store LocationStore,
	tracker StatusTracker,
	pusher Pusher,
	trm trm.TxManager,
	geocoder GeoCoder,
	publisher Publisher,
	cache LiveCache,
	cfg config.Config,
	l logger.Logger,
) *Service {
	return &Service{
		store:          store,
		tracker:        tracker,
		pusher:         pusher,
		trm:            trm,
		geocoder:       geocoder,
		publisher:      publisher,
		cache:          cache,
		enforceHeading: cfg.Ingest.EnforceHeading,
		history:        cfg.History,
		nearby:         cfg.Nearby,
		l:              l,
	}
}

// RecordLocation accepts a single position report. The event and the
// pending counter bump commit together; the immediate push happens after
// and only for points not captured offline.
func (s *Service) RecordLocation(ctx context.Context, event *models.LocationEvent) (int64, error) {
	ctx = wrap.WithDriverID(ctx, event.DriverID)

	if err := event.Validate(s.enforceHeading); err != nil {
		metrics.LocationsRejectedTotal.WithLabelValues(serviceName, "single").Inc()
		return 0, wrap.Error(ctx, err)
	}

	fn := func(ctx context.Context) error {
		if _, err := s.store.Insert(ctx, event); err != nil {
			return fmt.Errorf("failed to insert location: %w", err)
		}
		if err := s.tracker.RecordEnqueued(ctx, event.DriverID, 1); err != nil {
			return fmt.Errorf("failed to bump pending counter: %w", err)
		}
		return nil
	}

	if err := s.trm.Do(ctx, fn); err != nil {
		return 0, wrap.Error(ctx, err)
	}

	metrics.LocationsIngestedTotal.WithLabelValues(serviceName, "single").Inc()

	s.fanOut(ctx, *event)

	// Offline-captured points skip the immediate push and wait for the
	// replay pass; the flag affects priority, not whether they sync.
	if !event.IsOffline {
		s.pusher.PushImmediate(ctx, *event)
	}

	return event.ID, nil
}

// RecordBatch accepts a list of reports, typically offline catch-up.
// Items are validated independently: one bad record never aborts the rest.
// All valid items commit in one durable operation together with a single
// per-driver counter bump. Batches never trigger an immediate push.
func (s *Service) RecordBatch(ctx context.Context, events []models.LocationEvent) (models.BatchResult, error) {
	if len(events) == 0 {
		return models.BatchResult{}, nil
	}

	var result models.BatchResult
	valid := make([]*models.LocationEvent, 0, len(events))
	for i := range events {
		if err := events[i].Validate(s.enforceHeading); err != nil {
			result.Failed = append(result.Failed, models.BatchItemError{
				Index: i,
				Error: err.Error(),
			})
			continue
		}
		valid = append(valid, &events[i])
	}

	metrics.LocationsRejectedTotal.WithLabelValues(serviceName, "batch").Add(float64(len(result.Failed)))

	if len(valid) == 0 {
		return result, nil
	}

	fn := func(ctx context.Context) error {
		driverCounts := make(map[string]int)
		for _, event := range valid {
			if _, err := s.store.Insert(ctx, event); err != nil {
				return fmt.Errorf("failed to insert location: %w", err)
			}
			driverCounts[event.DriverID]++
		}

		for driverID, count := range driverCounts {
			if err := s.tracker.RecordEnqueued(ctx, driverID, count); err != nil {
				return fmt.Errorf("failed to bump pending counter: %w", err)
			}
		}
		return nil
	}

	if err := s.trm.Do(ctx, fn); err != nil {
		return models.BatchResult{}, wrap.Error(ctx, err)
	}

	result.Processed = len(valid)
	metrics.LocationsIngestedTotal.WithLabelValues(serviceName, "batch").Add(float64(result.Processed))

	for _, event := range valid {
		s.fanOut(ctx, *event)
	}

	return result, nil
}

// History returns a driver's events within the time window, newest first.
func (s *Service) History(ctx context.Context, driverID string, hours, limit int) ([]models.LocationEvent, error) {
	ctx = wrap.WithDriverID(ctx, driverID)

	if hours <= 0 {
		hours = s.history.DefaultHours
	}
	if limit <= 0 || limit > s.history.MaxRows {
		limit = s.history.MaxRows
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	events, err := s.store.ListForDriver(ctx, driverID, since, limit)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	return events, nil
}

// Latest returns the driver's most recent point, with a reverse-geocoded
// address when a geocoder is configured. Geocoding failures only cost the
// address.
func (s *Service) Latest(ctx context.Context, driverID string) (models.LocationEvent, string, error) {
	ctx = wrap.WithDriverID(ctx, driverID)

	event, err := s.store.Latest(ctx, driverID)
	if err != nil {
		return models.LocationEvent{}, "", wrap.Error(ctx, err)
	}

	var address string
	if s.geocoder != nil {
		address, err = s.geocoder.GetAddress(ctx, event.Longitude, event.Latitude)
		if err != nil {
			s.l.Debug(ctx, "reverse geocoding failed", "error", err.Error())
			address = ""
		}
	}

	return event, address, nil
}

// NearbyDrivers finds drivers with a recent point within radiusKm of the
// center. The live cache answers when available, the store otherwise.
func (s *Service) NearbyDrivers(ctx context.Context, latitude, longitude, radiusKm float64) ([]models.NearbyDriver, error) {
	probe := models.LocationEvent{DriverID: "probe", Latitude: latitude, Longitude: longitude}
	if err := probe.Validate(false); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if radiusKm <= 0 {
		radiusKm = s.nearby.DefaultRadiusKm
	}

	if s.cache != nil {
		drivers, err := s.cache.Nearby(ctx, latitude, longitude, radiusKm, s.nearby.MaxResults)
		if err == nil {
			return drivers, nil
		}
		s.l.Warn(ctx, "live cache nearby lookup failed, falling back to store", "error", err.Error())
	}

	drivers, err := s.store.Nearby(ctx, latitude, longitude, radiusKm, s.nearby.RecentWindow, s.nearby.MaxResults)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	return drivers, nil
}

// SyncStatuses lists every driver's sync bookkeeping record.
func (s *Service) SyncStatuses(ctx context.Context) ([]models.SyncStatus, error) {
	statuses, err := s.tracker.ListAll(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return statuses, nil
}

// SyncStatusFor returns (or lazily creates) one driver's record.
func (s *Service) SyncStatusFor(ctx context.Context, driverID string) (models.SyncStatus, error) {
	status, err := s.tracker.GetOrCreate(ctx, driverID)
	if err != nil {
		return models.SyncStatus{}, wrap.Error(ctx, err)
	}
	return status, nil
}

// Cleanup removes synced events older than the given number of days and
// returns how many were deleted. Unsynced events survive any cutoff.
func (s *Service) Cleanup(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = defaultRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	deleted, err := s.store.DeleteSyncedBefore(ctx, cutoff)
	if err != nil {
		return 0, wrap.Error(ctx, err)
	}

	if deleted > 0 {
		s.l.Info(ctx, "old locations removed", "deleted", deleted, "days", days)
	}

	return deleted, nil
}

// Health reports store reachability and gross counts.
func (s *Service) Health(ctx context.Context) (models.StoreStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return models.StoreStats{}, wrap.Error(ctx, err)
	}
	return stats, nil
}

// fanOut pushes the accepted point to the optional live consumers.
// Failures are logged and swallowed: neither the cache nor the broker may
// affect the ingestion outcome.
func (s *Service) fanOut(ctx context.Context, event models.LocationEvent) {
	if s.cache != nil {
		if err := s.cache.UpdatePosition(ctx, event.DriverID, event.Latitude, event.Longitude); err != nil {
			s.l.Warn(ctx, "failed to update live position cache", "error", err.Error())
		}
	}

	if s.publisher != nil {
		msg := models.LocationUpdateMessage{
			DriverID:  event.DriverID,
			TripID:    event.TripID,
			Timestamp: event.Timestamp,
			Latitude:  event.Latitude,
			Longitude: event.Longitude,
			Speed:     event.Speed,
			Heading:   event.Heading,
			IsOffline: event.IsOffline,
		}
		if err := s.publisher.PublishLocationUpdate(ctx, msg); err != nil {
			s.l.Warn(ctx, "failed to publish location update", "error", err.Error())
		}
	}
}
