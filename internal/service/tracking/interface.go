package tracking

import (
	"context"
	"time"

	"github.com/hayago/tracking-service/internal/domain/models"
)

/*=================Location Store=========================*/

type LocationStore interface {
	Insert(ctx context.Context, event *models.LocationEvent) (int64, error)
	ListForDriver(ctx context.Context, driverID string, since time.Time, limit int) ([]models.LocationEvent, error)
	Latest(ctx context.Context, driverID string) (models.LocationEvent, error)
	Nearby(ctx context.Context, lat, lon, radiusKm float64, window time.Duration, limit int) ([]models.NearbyDriver, error)
	DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (models.StoreStats, error)
}

/*=================Sync State Tracker=====================*/

type StatusTracker interface {
	GetOrCreate(ctx context.Context, driverID string) (models.SyncStatus, error)
	RecordEnqueued(ctx context.Context, driverID string, count int) error
	ListAll(ctx context.Context) ([]models.SyncStatus, error)
}

/*=================Immediate Pusher=======================*/

type Pusher interface {
	PushImmediate(ctx context.Context, event models.LocationEvent)
}

/*===================== Address Geo Coder ================*/

type GeoCoder interface {
	GetAddress(ctx context.Context, longitude, latitude float64) (string, error)
}

/*========================Publisher=======================*/

type Publisher interface {
	PublishLocationUpdate(ctx context.Context, msg models.LocationUpdateMessage) error
}

/*=======================Live Cache=======================*/

type LiveCache interface {
	UpdatePosition(ctx context.Context, driverID string, latitude, longitude float64) error
	Nearby(ctx context.Context, latitude, longitude, radiusKm float64, limit int) ([]models.NearbyDriver, error)
}
