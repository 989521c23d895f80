package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/internal/domain/types"
	"github.com/hayago/tracking-service/pkg/geo"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LocationRepo is the durable append-only store of location events.
type LocationRepo struct {
	db *pgxpool.Pool
}

func NewLocationRepo(db *pgxpool.Pool) *LocationRepo {
	return &LocationRepo{
		db: db,
	}
}

const locationColumns = `id, driver_id, timestamp, latitude, longitude, speed, heading, accuracy, is_offline, trip_id, synced, created_at`

// Insert persists a single location event and returns its assigned id.
// Coordinate ranges are validated before anything touches the table.
func (r *LocationRepo) Insert(ctx context.Context, event *models.LocationEvent) (int64, error) {
	const op = "LocationRepo.Insert"

	if err := event.Validate(false); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO driver_locations(driver_id, timestamp, latitude, longitude, speed, heading, accuracy, is_offline, trip_id)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at;`

	if err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		event.DriverID,
		event.Timestamp,
		event.Latitude,
		event.Longitude,
		event.Speed,
		event.Heading,
		event.Accuracy,
		event.IsOffline,
		event.TripID,
	).Scan(&event.ID, &event.CreatedAt); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return event.ID, nil
}

// ListForDriver returns events for a driver since the given time,
// newest first, capped at limit rows.
func (r *LocationRepo) ListForDriver(ctx context.Context, driverID string, since time.Time, limit int) ([]models.LocationEvent, error) {
	const op = "LocationRepo.ListForDriver"
	query := `
		SELECT ` + locationColumns + `
		FROM driver_locations
		WHERE driver_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC
		LIMIT $3;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, driverID, since, limit)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	return scanLocations(rows, op)
}

// Latest returns the most recent event for a driver.
func (r *LocationRepo) Latest(ctx context.Context, driverID string) (models.LocationEvent, error) {
	const op = "LocationRepo.Latest"
	query := `
		SELECT ` + locationColumns + `
		FROM driver_locations
		WHERE driver_id = $1
		ORDER BY timestamp DESC
		LIMIT 1;`

	var event models.LocationEvent
	if err := scanLocation(TxorDB(ctx, r.db).QueryRow(ctx, query, driverID), &event); err != nil {
		if err == pgx.ErrNoRows {
			return models.LocationEvent{}, types.ErrLocationNotFound
		}
		return models.LocationEvent{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return event, nil
}

// ListUnsynced returns events not yet confirmed by the remote authority,
// oldest first so that replay delivers chronologically.
func (r *LocationRepo) ListUnsynced(ctx context.Context, driverID string, limit int) ([]models.LocationEvent, error) {
	const op = "LocationRepo.ListUnsynced"
	query := `
		SELECT ` + locationColumns + `
		FROM driver_locations
		WHERE driver_id = $1 AND synced = FALSE
		ORDER BY timestamp ASC
		LIMIT $2;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, driverID, limit)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	return scanLocations(rows, op)
}

// MarkSynced flips the synced flag of an event. The flag only ever moves
// false -> true; marking an already-synced event is a no-op and the
// returned bool reports whether this call actually changed the row.
func (r *LocationRepo) MarkSynced(ctx context.Context, id int64) (bool, error) {
	const op = "LocationRepo.MarkSynced"
	query := `
		UPDATE driver_locations
		SET synced = TRUE
		WHERE id = $1 AND synced = FALSE;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return false, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return tag.RowsAffected() == 1, nil
}

// CountUnsynced is the ground truth behind the cached pending counter.
func (r *LocationRepo) CountUnsynced(ctx context.Context, driverID string) (int, error) {
	const op = "LocationRepo.CountUnsynced"
	query := `
		SELECT COUNT(*)
		FROM driver_locations
		WHERE driver_id = $1 AND synced = FALSE;`

	var count int
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query, driverID).Scan(&count); err != nil {
		return 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return count, nil
}

// DriversWithUnsynced lists drivers that still have a delivery backlog.
func (r *LocationRepo) DriversWithUnsynced(ctx context.Context) ([]string, error) {
	const op = "LocationRepo.DriversWithUnsynced"
	query := `
		SELECT DISTINCT driver_id
		FROM driver_locations
		WHERE synced = FALSE;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	var drivers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
		}
		drivers = append(drivers, id)
	}

	return drivers, rows.Err()
}

// DeleteSyncedBefore removes synced events older than the cutoff and
// returns the number of deleted rows. Unsynced rows are kept regardless of
// age: an undelivered point is never dropped.
func (r *LocationRepo) DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "LocationRepo.DeleteSyncedBefore"
	query := `
		DELETE FROM driver_locations
		WHERE synced = TRUE AND timestamp < $1;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, cutoff)
	if err != nil {
		return 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return tag.RowsAffected(), nil
}

// Stats returns gross counts for the health probe.
func (r *LocationRepo) Stats(ctx context.Context) (models.StoreStats, error) {
	const op = "LocationRepo.Stats"
	query := `
		SELECT COUNT(*), COUNT(DISTINCT driver_id)
		FROM driver_locations;`

	var stats models.StoreStats
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query).Scan(&stats.TotalLocations, &stats.ActiveDrivers); err != nil {
		return models.StoreStats{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return stats, nil
}

// Nearby returns drivers whose latest recent point falls inside radiusKm of
// the center. The SQL does only a coarse bounding-box prefilter; the exact
// great-circle distance is applied afterwards.
func (r *LocationRepo) Nearby(ctx context.Context, lat, lon, radiusKm float64, window time.Duration, limit int) ([]models.NearbyDriver, error) {
	const op = "LocationRepo.Nearby"

	box := geo.BoundsAround(lat, lon, radiusKm)
	query := `
		SELECT DISTINCT ON (driver_id) driver_id, latitude, longitude, timestamp, speed
		FROM driver_locations
		WHERE timestamp >= $1
		  AND latitude BETWEEN $2 AND $3
		  AND longitude BETWEEN $4 AND $5
		ORDER BY driver_id, timestamp DESC;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query,
		time.Now().UTC().Add(-window),
		box.MinLat, box.MaxLat,
		box.MinLon, box.MaxLon,
	)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	var drivers []models.NearbyDriver
	for rows.Next() {
		var d models.NearbyDriver
		if err := rows.Scan(&d.DriverID, &d.Latitude, &d.Longitude, &d.Timestamp, &d.Speed); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
		}

		d.DistanceKm = geo.Distance(lat, lon, d.Latitude, d.Longitude)
		if d.DistanceKm > radiusKm {
			continue
		}

		drivers = append(drivers, d)
		if len(drivers) == limit {
			break
		}
	}

	return drivers, rows.Err()
}

func scanLocation(row pgx.Row, event *models.LocationEvent) error {
	return row.Scan(
		&event.ID,
		&event.DriverID,
		&event.Timestamp,
		&event.Latitude,
		&event.Longitude,
		&event.Speed,
		&event.Heading,
		&event.Accuracy,
		&event.IsOffline,
		&event.TripID,
		&event.Synced,
		&event.CreatedAt,
	)
}

func scanLocations(rows pgx.Rows, op string) ([]models.LocationEvent, error) {
	var events []models.LocationEvent
	for rows.Next() {
		var event models.LocationEvent
		if err := scanLocation(rows, &event); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
