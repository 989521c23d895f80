package config

import (
	"fmt"
	"time"

	"github.com/hayago/tracking-service/internal/domain/types"
	"github.com/hayago/tracking-service/pkg/configparser"
	"github.com/hayago/tracking-service/pkg/postgres"
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Server    ServerConfig
		Database  DatabaseConfig
		Authority AuthorityConfig
		Sync      SyncConfig
		Ingest    IngestConfig
		History   HistoryConfig
		Nearby    NearbyConfig
		Redis     RedisConfig
		RabbitMQ  RabbitMQConfig
		Nominatim NominatimConfig
		Log       LogConfig
	}

	ServerConfig struct {
		Port string `env:"SERVER_PORT" default:"3002"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"tracking_user"`
		Password string `env:"DATABASE_PASSWORD" default:"tracking_pass"`
		Database string `env:"DATABASE_DATABASE" default:"tracking_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	// AuthorityConfig points at the backend that owns trip/driver state.
	// Empty credentials are a valid configuration for trusted networks.
	AuthorityConfig struct {
		BaseURL   string        `env:"AUTHORITY_BASE_URL" default:"http://localhost:8000"`
		APIKey    string        `env:"AUTHORITY_API_KEY"`
		APISecret string        `env:"AUTHORITY_API_SECRET"`
		Timeout   time.Duration `env:"AUTHORITY_TIMEOUT" default:"10s"`
	}

	SyncConfig struct {
		ReplayBatchSize int    `env:"SYNC_REPLAY_BATCH_SIZE" default:"100"`
		ImmediatePush   string `env:"SYNC_IMMEDIATE_PUSH" default:"sync"`
	}

	IngestConfig struct {
		// EnforceHeading rejects heading values outside [0, 360].
		// Off by default: an out-of-range heading is treated as an
		// unreliable sensor reading, not a client error.
		EnforceHeading bool `env:"INGEST_ENFORCE_HEADING" default:"false"`
	}

	HistoryConfig struct {
		DefaultHours int `env:"HISTORY_DEFAULT_HOURS" default:"24"`
		MaxRows      int `env:"HISTORY_MAX_ROWS" default:"1000"`
	}

	NearbyConfig struct {
		DefaultRadiusKm float64       `env:"NEARBY_DEFAULT_RADIUS_KM" default:"5"`
		RecentWindow    time.Duration `env:"NEARBY_RECENT_WINDOW" default:"5m"`
		MaxResults      int           `env:"NEARBY_MAX_RESULTS" default:"20"`
	}

	// RedisConfig enables the live last-position cache. An empty Addr
	// disables it and nearby lookups go straight to Postgres.
	RedisConfig struct {
		Addr         string        `env:"REDIS_ADDR"`
		Password     string        `env:"REDIS_PASSWORD"`
		DB           int           `env:"REDIS_DB" default:"0"`
		HeartbeatTTL time.Duration `env:"REDIS_HEARTBEAT_TTL" default:"48h"`
	}

	RabbitMQConfig struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"false"`
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	// NominatimConfig enables reverse geocoding of the latest location.
	// An empty BaseURL disables it.
	NominatimConfig struct {
		BaseURL string `env:"NOMINATIM_BASE_URL"`
	}

	LogConfig struct {
		Level string `env:"LOG_LEVEL" default:"DEBUG"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolSettings() postgres.PoolSettings {
	return postgres.PoolSettings{
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
	}
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// PushMode returns the validated immediate-push mode, defaulting to sync.
func (c SyncConfig) PushMode() types.PushMode {
	mode := types.PushMode(c.ImmediatePush)
	if !mode.Valid() {
		return types.PushSync
	}
	return mode
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	return cfg, nil
}
