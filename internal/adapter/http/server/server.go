package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hayago/tracking-service/config"
	"github.com/hayago/tracking-service/internal/adapter/http/handler"
	"github.com/hayago/tracking-service/internal/adapter/http/middleware"
	"github.com/hayago/tracking-service/pkg/logger"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
)

const (
	serverIPAddress = "%s:%s"
	serviceName     = "tracking-service"
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	location *handler.Location
	sync     *handler.Sync
	health   *handler.Health
}

func New(
	cfg config.Config,
	trackingService handler.TrackingService,
	syncEngine handler.SyncEngine,
	statusService handler.StatusService,
	healthService handler.HealthService,
	logger logger.Logger,
) (*API, error) {
	if trackingService == nil || syncEngine == nil {
		return nil, errors.New("tracking service and sync engine are required")
	}

	routes := &handlers{
		location: handler.NewLocation(trackingService, logger),
		sync:     handler.NewSync(syncEngine, statusService, logger),
		health:   handler.NewHealth(serviceName, healthService, logger),
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(logger),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Server.Port),
		cfg:    cfg,
		log:    logger,
	}

	api.server = &http.Server{
		Addr:     api.addr,
		Handler:  api.withMiddleware(),
		ErrorLog: slog.NewLogLogger(logger.GetSlogLogger().Handler(), slog.LevelError),
	}

	setupRoutes(api.mux, api.routes)

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(serviceName)(a.m.Logging(a.mux))))
}
