package sync

import (
	"context"
	"time"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/internal/domain/types"
	"github.com/hayago/tracking-service/pkg/logger"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
	"github.com/hayago/tracking-service/pkg/metrics"
	"github.com/hayago/tracking-service/pkg/trm"
)

const (
	serviceName = "tracking"

	// asyncPushTimeout bounds a fire-and-forget push detached from the
	// ingestion request.
	asyncPushTimeout = 30 * time.Second
)

/*
Engine delivers unsynced location events to the remote authority with
at-least-once semantics. The authority is expected to tolerate redelivery
of the same logical point; locally, the idempotent synced flag keeps a
racing immediate push and replay pass from double-counting.
*/
type Engine struct {
	store     LocationStore
	tracker   StatusTracker
	authority AuthorityClient
	trm       trm.TxManager

	batchSize int
	pushMode  types.PushMode

	l logger.Logger
}

func New(store LocationStore, tracker StatusTracker, authority AuthorityClient, trm trm.TxManager, batchSize int, pushMode types.PushMode, l logger.Logger) *Engine {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Engine{
		store:     store,
		tracker:   tracker,
		authority: authority,
		trm:       trm,
		batchSize: batchSize,
		pushMode:  pushMode,
		l:         l,
	}
}

// PushImmediate attempts best-effort delivery of one freshly ingested event.
// In sync mode the attempt happens within the caller's request; in async
// mode it is fired in the background and the caller returns immediately.
// Either way a failure is recorded and left for the replay pass, never
// surfaced to the ingestion caller.
func (e *Engine) PushImmediate(ctx context.Context, event models.LocationEvent) {
	if e.pushMode == types.PushAsync {
		// Detach from the request lifetime but keep log context.
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncPushTimeout)
		go func() {
			defer cancel()
			e.attempt(bgCtx, event, "immediate")
		}()
		return
	}

	e.attempt(ctx, event, "immediate")
}

// Replay walks up to batchSize oldest unsynced events for a driver and
// attempts each one independently, so a single bad record never blocks the
// rest of the backlog. Returns aggregate synced/failed counts.
func (e *Engine) Replay(ctx context.Context, driverID string) (models.SyncReport, error) {
	ctx = wrap.WithDriverID(ctx, driverID)

	events, err := e.store.ListUnsynced(ctx, driverID, e.batchSize)
	if err != nil {
		return models.SyncReport{}, wrap.Error(ctx, err)
	}

	var report models.SyncReport
	for _, event := range events {
		if e.attempt(ctx, event, "replay") {
			report.SyncedCount++
		} else {
			report.FailedCount++
		}
	}

	if len(events) > 0 {
		e.l.Info(ctx, "replay pass finished",
			"synced_count", report.SyncedCount,
			"failed_count", report.FailedCount,
		)
	}

	return report, nil
}

// ReplayAll sweeps every driver with a delivery backlog.
func (e *Engine) ReplayAll(ctx context.Context) (models.SyncReport, error) {
	drivers, err := e.store.DriversWithUnsynced(ctx)
	if err != nil {
		return models.SyncReport{}, wrap.Error(ctx, err)
	}

	var total models.SyncReport
	var pending int
	for _, driverID := range drivers {
		report, err := e.Replay(ctx, driverID)
		if err != nil {
			// A store failure for one driver should not abort the sweep.
			e.l.Error(wrap.ErrorCtx(ctx, err), "replay pass failed for driver", err, "driver_id", driverID)
			continue
		}
		total.SyncedCount += report.SyncedCount
		total.FailedCount += report.FailedCount
		pending += report.FailedCount
	}

	metrics.SyncPendingGauge.WithLabelValues(serviceName).Set(float64(pending))

	return total, nil
}

// Reconcile recomputes the cached pending counter from the unsynced rows
// themselves and returns the corrected value.
func (e *Engine) Reconcile(ctx context.Context, driverID string) (int, error) {
	ctx = wrap.WithDriverID(ctx, driverID)

	count, err := e.store.CountUnsynced(ctx, driverID)
	if err != nil {
		return 0, wrap.Error(ctx, err)
	}

	if err := e.tracker.SetPending(ctx, driverID, count); err != nil {
		return 0, wrap.Error(ctx, err)
	}

	return count, nil
}

// attempt runs the delivery routine for a single event and records the
// outcome. Delivery failures are not errors here: the event simply stays
// unsynced and becomes fuel for the next replay pass.
func (e *Engine) attempt(ctx context.Context, event models.LocationEvent, mode string) bool {
	err := e.authority.UpdateLocation(ctx, event)
	metrics.RecordSyncDelivery(serviceName, mode, err == nil)

	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionSyncDeliveryFailed)
		e.l.Warn(ctx, "delivery to remote authority failed",
			"location_id", event.ID,
			"driver_id", event.DriverID,
			"error", err.Error(),
		)

		if trackErr := e.tracker.RecordFailure(ctx, event.DriverID, err.Error()); trackErr != nil {
			e.l.Error(wrap.ErrorCtx(ctx, trackErr), "failed to record delivery failure", trackErr)
		}
		return false
	}

	// Store and tracker move together: the synced flag and the pending
	// counter decrement must not be observed apart.
	fn := func(ctx context.Context) error {
		marked, err := e.store.MarkSynced(ctx, event.ID)
		if err != nil {
			return err
		}
		if !marked {
			// Lost the race against a concurrent attempt; the other
			// path already did the bookkeeping.
			return nil
		}
		return e.tracker.RecordSuccess(ctx, event.DriverID, 1)
	}

	if err := e.trm.Do(ctx, fn); err != nil {
		e.l.Error(wrap.ErrorCtx(ctx, err), "failed to record successful delivery", err,
			"location_id", event.ID,
		)
		// The authority accepted the point but local bookkeeping failed;
		// the event stays unsynced and will be redelivered. Safe because
		// the authority tolerates duplicates.
		return false
	}

	return true
}
