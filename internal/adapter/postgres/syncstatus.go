package repo

import (
	"context"
	"fmt"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/internal/domain/types"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncStatusRepo tracks per-driver delivery state. The pending counter it
// keeps is advisory; reconciliation against the location store is the only
// correctness-grade read.
type SyncStatusRepo struct {
	db *pgxpool.Pool
}

func NewSyncStatusRepo(db *pgxpool.Pool) *SyncStatusRepo {
	return &SyncStatusRepo{
		db: db,
	}
}

const syncStatusColumns = `driver_id, last_sync_timestamp, pending_locations, last_error, updated_at`

// GetOrCreate returns the driver's sync status, lazily creating the row on first use.
func (r *SyncStatusRepo) GetOrCreate(ctx context.Context, driverID string) (models.SyncStatus, error) {
	const op = "SyncStatusRepo.GetOrCreate"
	query := `
		INSERT INTO sync_status(driver_id)
		VALUES($1)
		ON CONFLICT (driver_id) DO UPDATE SET driver_id = EXCLUDED.driver_id
		RETURNING ` + syncStatusColumns + `;`

	var status models.SyncStatus
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query, driverID).Scan(
		&status.DriverID,
		&status.LastSyncTimestamp,
		&status.PendingLocations,
		&status.LastError,
		&status.UpdatedAt,
	); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return models.SyncStatus{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return status, nil
}

// RecordEnqueued bumps the pending counter after freshly stored events.
func (r *SyncStatusRepo) RecordEnqueued(ctx context.Context, driverID string, count int) error {
	const op = "SyncStatusRepo.RecordEnqueued"
	query := `
		INSERT INTO sync_status(driver_id, pending_locations, updated_at)
		VALUES($1, $2, NOW())
		ON CONFLICT (driver_id) DO UPDATE
		SET pending_locations = sync_status.pending_locations + EXCLUDED.pending_locations,
		    updated_at = NOW();`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, count); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// RecordSuccess decrements the pending counter (floored at zero), stamps the
// sync time and clears the last error.
func (r *SyncStatusRepo) RecordSuccess(ctx context.Context, driverID string, count int) error {
	const op = "SyncStatusRepo.RecordSuccess"
	query := `
		INSERT INTO sync_status(driver_id, pending_locations, last_sync_timestamp, updated_at)
		VALUES($1, 0, NOW(), NOW())
		ON CONFLICT (driver_id) DO UPDATE
		SET pending_locations = GREATEST(0, sync_status.pending_locations - $2),
		    last_sync_timestamp = NOW(),
		    last_error = NULL,
		    updated_at = NOW();`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, count); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// RecordFailure stores the delivery error. The pending counter is left
// untouched: a failed event is still pending and already counted.
func (r *SyncStatusRepo) RecordFailure(ctx context.Context, driverID string, deliveryErr string) error {
	const op = "SyncStatusRepo.RecordFailure"
	query := `
		INSERT INTO sync_status(driver_id, last_error, updated_at)
		VALUES($1, $2, NOW())
		ON CONFLICT (driver_id) DO UPDATE
		SET last_error = EXCLUDED.last_error,
		    updated_at = NOW();`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, deliveryErr); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// SetPending overwrites the cached counter with a reconciled value.
func (r *SyncStatusRepo) SetPending(ctx context.Context, driverID string, pending int) error {
	const op = "SyncStatusRepo.SetPending"
	query := `
		INSERT INTO sync_status(driver_id, pending_locations, updated_at)
		VALUES($1, $2, NOW())
		ON CONFLICT (driver_id) DO UPDATE
		SET pending_locations = EXCLUDED.pending_locations,
		    updated_at = NOW();`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, pending); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// ListAll returns every driver's sync status for operational visibility.
func (r *SyncStatusRepo) ListAll(ctx context.Context) ([]models.SyncStatus, error) {
	const op = "SyncStatusRepo.ListAll"
	query := `
		SELECT ` + syncStatusColumns + `
		FROM sync_status
		ORDER BY driver_id;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	var statuses []models.SyncStatus
	for rows.Next() {
		var status models.SyncStatus
		if err := rows.Scan(
			&status.DriverID,
			&status.LastSyncTimestamp,
			&status.PendingLocations,
			&status.LastError,
			&status.UpdatedAt,
		); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
		}
		statuses = append(statuses, status)
	}

	return statuses, rows.Err()
}
