package sync

import (
	"context"

	"github.com/hayago/tracking-service/internal/domain/models"
)

/*=================Location Store=========================*/

type LocationStore interface {
	ListUnsynced(ctx context.Context, driverID string, limit int) ([]models.LocationEvent, error)
	MarkSynced(ctx context.Context, id int64) (bool, error)
	CountUnsynced(ctx context.Context, driverID string) (int, error)
	DriversWithUnsynced(ctx context.Context) ([]string, error)
}

/*=================Sync State Tracker=====================*/

type StatusTracker interface {
	RecordSuccess(ctx context.Context, driverID string, count int) error
	RecordFailure(ctx context.Context, driverID string, deliveryErr string) error
	SetPending(ctx context.Context, driverID string, pending int) error
}

/*=================Remote Authority=======================*/

type AuthorityClient interface {
	UpdateLocation(ctx context.Context, event models.LocationEvent) error
}
