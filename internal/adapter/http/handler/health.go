package handler

import (
	"context"
	"net/http"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/pkg/logger"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
)

type Health struct {
	serviceName string
	prober      HealthService
	log         logger.Logger
}

type HealthService interface {
	Health(ctx context.Context) (models.StoreStats, error)
}

func NewHealth(serviceName string, prober HealthService, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		prober:      prober,
		log:         log,
	}
}

// HealthCheck reports service liveness plus gross store counts. A failing
// store turns the status into "degraded" but still answers 200 so that the
// probe itself stays reachable.
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	response := envelope{
		"status": "available",
		"system_info": map[string]string{
			"service-name": a.serviceName,
		},
	}

	stats, err := a.prober.Health(ctx)
	if err != nil {
		a.log.Error(wrap.ErrorCtx(ctx, err), "health probe failed to read store", err)
		response["status"] = "degraded"
	} else {
		response["total_locations"] = stats.TotalLocations
		response["active_drivers"] = stats.ActiveDrivers
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
		return
	}
}
