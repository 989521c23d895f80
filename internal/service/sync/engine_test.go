package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/hayago/tracking-service/internal/domain/models"
	"github.com/hayago/tracking-service/internal/domain/types"
	"github.com/hayago/tracking-service/pkg/logger"
)

type fakeStore struct {
	unsynced []models.LocationEvent
	listErr  error

	marked     []int64
	markResult map[int64]bool // defaults to true
	markErr    error

	countUnsynced int
	drivers       []string
}

func (f *fakeStore) ListUnsynced(ctx context.Context, driverID string, limit int) ([]models.LocationEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.LocationEvent, 0, limit)
	for _, e := range f.unsynced {
		if e.DriverID == driverID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkSynced(ctx context.Context, id int64) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	f.marked = append(f.marked, id)
	if res, ok := f.markResult[id]; ok {
		return res, nil
	}
	return true, nil
}

func (f *fakeStore) CountUnsynced(ctx context.Context, driverID string) (int, error) {
	return f.countUnsynced, nil
}

func (f *fakeStore) DriversWithUnsynced(ctx context.Context) ([]string, error) {
	return f.drivers, nil
}

type fakeTracker struct {
	successes  map[string]int
	failures   []string
	setPending map[string]int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		successes:  make(map[string]int),
		setPending: make(map[string]int),
	}
}

func (f *fakeTracker) RecordSuccess(ctx context.Context, driverID string, count int) error {
	f.successes[driverID] += count
	return nil
}

func (f *fakeTracker) RecordFailure(ctx context.Context, driverID string, deliveryErr string) error {
	f.failures = append(f.failures, deliveryErr)
	return nil
}

func (f *fakeTracker) SetPending(ctx context.Context, driverID string, pending int) error {
	f.setPending[driverID] = pending
	return nil
}

type fakeAuthority struct {
	failIDs map[int64]error
	calls   int
}

func (f *fakeAuthority) UpdateLocation(ctx context.Context, event models.LocationEvent) error {
	f.calls++
	if err, ok := f.failIDs[event.ID]; ok {
		return err
	}
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testLogger() logger.Logger {
	return logger.InitLogger("test", logger.LevelError)
}

func event(id int64, driverID string) models.LocationEvent {
	return models.LocationEvent{ID: id, DriverID: driverID, Latitude: 43.2, Longitude: 76.9}
}

func TestPushImmediate_Success(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeTracker()
	authority := &fakeAuthority{}
	engine := New(store, tracker, authority, fakeTxManager{}, 100, types.PushSync, testLogger())

	engine.PushImmediate(context.Background(), event(1, "DRV-1"))

	if len(store.marked) != 1 || store.marked[0] != 1 {
		t.Fatalf("expected event 1 marked synced, got %v", store.marked)
	}
	if tracker.successes["DRV-1"] != 1 {
		t.Fatalf("expected one recorded success, got %d", tracker.successes["DRV-1"])
	}
	if len(tracker.failures) != 0 {
		t.Fatalf("unexpected failures: %v", tracker.failures)
	}
}

func TestPushImmediate_DeliveryFailureRecorded(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeTracker()
	authority := &fakeAuthority{failIDs: map[int64]error{1: errors.New("connection refused")}}
	engine := New(store, tracker, authority, fakeTxManager{}, 100, types.PushSync, testLogger())

	engine.PushImmediate(context.Background(), event(1, "DRV-1"))

	if len(store.marked) != 0 {
		t.Fatalf("failed delivery must not mark the event synced, got %v", store.marked)
	}
	if len(tracker.failures) != 1 || tracker.failures[0] != "connection refused" {
		t.Fatalf("expected the delivery error recorded, got %v", tracker.failures)
	}
	if tracker.successes["DRV-1"] != 0 {
		t.Fatalf("unexpected success recorded")
	}
}

func TestPushImmediate_LostRaceNoDoubleCount(t *testing.T) {
	store := &fakeStore{markResult: map[int64]bool{1: false}}
	tracker := newFakeTracker()
	authority := &fakeAuthority{}
	engine := New(store, tracker, authority, fakeTxManager{}, 100, types.PushSync, testLogger())

	engine.PushImmediate(context.Background(), event(1, "DRV-1"))

	// Another attempt already flipped the flag; the pending counter must
	// not be decremented a second time.
	if tracker.successes["DRV-1"] != 0 {
		t.Fatalf("expected no success bookkeeping after lost race, got %d", tracker.successes["DRV-1"])
	}
}

func TestReplay_MixedOutcome(t *testing.T) {
	store := &fakeStore{
		unsynced: []models.LocationEvent{
			event(1, "DRV-1"), event(2, "DRV-1"), event(3, "DRV-1"),
			event(4, "DRV-1"), event(5, "DRV-1"),
		},
	}
	tracker := newFakeTracker()
	authority := &fakeAuthority{failIDs: map[int64]error{
		2: errors.New("timeout"),
		4: errors.New("timeout"),
	}}
	engine := New(store, tracker, authority, fakeTxManager{}, 100, types.PushSync, testLogger())

	report, err := engine.Replay(context.Background(), "DRV-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.SyncedCount != 3 || report.FailedCount != 2 {
		t.Fatalf("expected 3 synced / 2 failed, got %d/%d", report.SyncedCount, report.FailedCount)
	}
	if authority.calls != 5 {
		t.Fatalf("every event must be attempted independently, got %d calls", authority.calls)
	}
	if tracker.successes["DRV-1"] != 3 {
		t.Fatalf("expected 3 recorded successes, got %d", tracker.successes["DRV-1"])
	}
}

func TestReplay_RespectsBatchSize(t *testing.T) {
	store := &fakeStore{
		unsynced: []models.LocationEvent{
			event(1, "DRV-1"), event(2, "DRV-1"), event(3, "DRV-1"),
		},
	}
	engine := New(store, newFakeTracker(), &fakeAuthority{}, fakeTxManager{}, 2, types.PushSync, testLogger())

	report, err := engine.Replay(context.Background(), "DRV-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SyncedCount != 2 {
		t.Fatalf("expected batch limited to 2 events, got %d", report.SyncedCount)
	}
}

func TestReplayAll_SweepsEveryDriver(t *testing.T) {
	store := &fakeStore{
		drivers: []string{"DRV-1", "DRV-2"},
		unsynced: []models.LocationEvent{
			event(1, "DRV-1"),
			event(2, "DRV-2"),
			event(3, "DRV-2"),
		},
	}
	tracker := newFakeTracker()
	engine := New(store, tracker, &fakeAuthority{}, fakeTxManager{}, 100, types.PushSync, testLogger())

	report, err := engine.ReplayAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SyncedCount != 3 {
		t.Fatalf("expected 3 synced across drivers, got %d", report.SyncedCount)
	}
	if tracker.successes["DRV-1"] != 1 || tracker.successes["DRV-2"] != 2 {
		t.Fatalf("per-driver bookkeeping wrong: %v", tracker.successes)
	}
}

func TestReconcile_RecomputesFromStore(t *testing.T) {
	store := &fakeStore{countUnsynced: 7}
	tracker := newFakeTracker()
	engine := New(store, tracker, &fakeAuthority{}, fakeTxManager{}, 100, types.PushSync, testLogger())

	pending, err := engine.Reconcile(context.Background(), "DRV-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending != 7 {
		t.Fatalf("expected pending 7, got %d", pending)
	}
	if tracker.setPending["DRV-1"] != 7 {
		t.Fatalf("tracker not updated with recomputed value: %v", tracker.setPending)
	}
}
