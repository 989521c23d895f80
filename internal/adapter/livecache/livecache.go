package livecache

import (
	"context"
	"fmt"
	"time"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

const (
	geoKey             = "drivers:last"
	heartbeatKeyPrefix = "driver:heartbeat:"
)

// Cache keeps each driver's last known position in a Redis GEO set for fast
// nearby lookups. It is an accelerator only: the Postgres store stays the
// source of truth and every read here can fall back to it.
type Cache struct {
	rdb          *redis.Client
	heartbeatTTL time.Duration
}

func New(ctx context.Context, addr, password string, db int, heartbeatTTL time.Duration) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		rdb:          rdb,
		heartbeatTTL: heartbeatTTL,
	}, nil
}

// UpdatePosition records a driver's latest coordinates and refreshes the
// heartbeat key that marks the driver as recently active.
func (c *Cache) UpdatePosition(ctx context.Context, driverID string, latitude, longitude float64) error {
	if err := c.rdb.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      driverID,
		Latitude:  latitude,
		Longitude: longitude,
	}).Err(); err != nil {
		return fmt.Errorf("geoadd: %w", err)
	}

	return c.rdb.Set(ctx,
		heartbeatKeyPrefix+driverID,
		time.Now().UTC().Format(time.RFC3339),
		c.heartbeatTTL,
	).Err()
}

// Nearby returns drivers within radiusKm of the center, closest first.
// Stale entries (no live heartbeat) are filtered out.
func (c *Cache) Nearby(ctx context.Context, latitude, longitude, radiusKm float64, limit int) ([]models.NearbyDriver, error) {
	locations, err := c.rdb.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  longitude,
			Latitude:   latitude,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch: %w", err)
	}

	var drivers []models.NearbyDriver
	for _, loc := range locations {
		heartbeat, err := c.rdb.Get(ctx, heartbeatKeyPrefix+loc.Name).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("heartbeat lookup: %w", err)
		}

		ts, err := time.Parse(time.RFC3339, heartbeat)
		if err != nil {
			ts = time.Time{}
		}

		drivers = append(drivers, models.NearbyDriver{
			DriverID:   loc.Name,
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			Timestamp:  ts,
			DistanceKm: loc.Dist,
		})
	}

	return drivers, nil
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
