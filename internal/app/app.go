package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hayago/tracking-service/config"
	"github.com/hayago/tracking-service/internal/adapter/authority"
	"github.com/hayago/tracking-service/internal/adapter/http/server"
	"github.com/hayago/tracking-service/internal/adapter/livecache"
	"github.com/hayago/tracking-service/internal/adapter/nominatim"
	repo "github.com/hayago/tracking-service/internal/adapter/postgres"
	broker "github.com/hayago/tracking-service/internal/adapter/rabbit"
	syncengine "github.com/hayago/tracking-service/internal/service/sync"
	"github.com/hayago/tracking-service/internal/service/tracking"
	"github.com/hayago/tracking-service/pkg/logger"
	"github.com/hayago/tracking-service/pkg/postgres"
	"github.com/hayago/tracking-service/pkg/rabbit"
	"github.com/hayago/tracking-service/pkg/trm"
)

// App wires the location store, the sync engine and the HTTP surface into
// one process. Redis, RabbitMQ and the reverse geocoder are optional and
// stay nil when not configured.
type App struct {
	postgresDB *postgres.PostgreDB
	rabbitMQ   *rabbit.RabbitMQ
	liveCache  *livecache.Cache
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	app := &App{
		postgresDB: postgresDB,
		cfg:        cfg,
		log:        log,
	}

	locationRepo := repo.NewLocationRepo(postgresDB.Pool)
	statusRepo := repo.NewSyncStatusRepo(postgresDB.Pool)
	txManager := trm.New(postgresDB.Pool)

	authorityClient := authority.New(
		cfg.Authority.BaseURL,
		cfg.Authority.APIKey,
		cfg.Authority.APISecret,
		cfg.Authority.Timeout,
	)

	engine := syncengine.New(
		locationRepo,
		statusRepo,
		authorityClient,
		txManager,
		cfg.Sync.ReplayBatchSize,
		cfg.Sync.PushMode(),
		log,
	)

	var geocoder tracking.GeoCoder
	if cfg.Nominatim.BaseURL != "" {
		geocoder = nominatim.New(cfg.Nominatim.BaseURL)
	}

	var publisher tracking.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			log.Error(ctx, "Failed to connect to RabbitMQ", err)
			return nil, err
		}
		app.rabbitMQ = rabbitMQ

		locationBroker := broker.NewLocationBroker(rabbitMQ, log)
		if err := locationBroker.DeclareExchanges(); err != nil {
			log.Error(ctx, "Failed to declare exchanges", err)
			return nil, err
		}
		publisher = locationBroker
	}

	var cache tracking.LiveCache
	if cfg.Redis.Addr != "" {
		liveCache, err := livecache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.HeartbeatTTL)
		if err != nil {
			log.Error(ctx, "Failed to connect to Redis", err)
			return nil, err
		}
		app.liveCache = liveCache
		cache = liveCache
	}

	trackingService := tracking.New(
		locationRepo,
		statusRepo,
		engine,
		txManager,
		geocoder,
		publisher,
		cache,
		cfg,
		log,
	)

	httpServer, err := server.New(cfg, trackingService, engine, trackingService, trackingService, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}
	app.httpServer = httpServer

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.httpServer.Run(ctx, errCh)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "tracking service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "tracking service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close RabbitMQ connection", "error", err.Error())
		}
	}

	if a.liveCache != nil {
		if err := a.liveCache.Close(); err != nil {
			a.log.Warn(ctx, "Failed to close Redis client", "error", err.Error())
		}
	}

	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
}
