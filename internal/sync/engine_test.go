package sync_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahayak-health/sahayak/internal/db"
	"github.com/sahayak-health/sahayak/internal/record"
	syncengine "github.com/sahayak-health/sahayak/internal/sync"
)

// mockPusher is a func-field mock of the remote push contract.
type mockPusher struct {
	OnlineFunc func(ctx context.Context) bool
	PushFunc   func(ctx context.Context, collection record.Collection, rec any) error

	pushCount int32
}

var _ syncengine.Pusher = (*mockPusher)(nil)

func (m *mockPusher) Online(ctx context.Context) bool {
	if m.OnlineFunc != nil {
		return m.OnlineFunc(ctx)
	}
	return true
}

func (m *mockPusher) Push(ctx context.Context, collection record.Collection, rec any) error {
	atomic.AddInt32(&m.pushCount, 1)
	if m.PushFunc != nil {
		return m.PushFunc(ctx, collection, rec)
	}
	return nil
}

func (m *mockPusher) pushes() int {
	return int(atomic.LoadInt32(&m.pushCount))
}

func newStore(t *testing.T) *record.SQLiteStore {
	t.Helper()
	sqldb, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	return record.NewSQLiteStore(sqldb)
}

var seedTime = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func seedPatient(t *testing.T, store record.Store, id string, synced bool) {
	t.Helper()
	require.NoError(t, store.AddPatient(context.Background(), &record.Patient{
		ID: id, WorkerID: "w1", Name: "Patient " + id, Synced: synced,
		CreatedAt: seedTime, UpdatedAt: seedTime,
	}))
}

func seedVisit(t *testing.T, store record.Store, id string, synced bool) {
	t.Helper()
	require.NoError(t, store.AddVisit(context.Background(), &record.Visit{
		ID: id, PatientID: "p1", WorkerID: "w1", VisitDate: seedTime,
		Synced: synced, CreatedAt: seedTime,
	}))
}

func seedReminder(t *testing.T, store record.Store, id string, synced bool) {
	t.Helper()
	require.NoError(t, store.AddReminder(context.Background(), &record.Reminder{
		ID: id, PatientID: "p1", WorkerID: "w1", ReminderDate: seedTime.AddDate(0, 0, 1),
		Synced: synced, CreatedAt: seedTime,
	}))
}

func TestSyncAllOffline(t *testing.T) {
	store := newStore(t)
	seedPatient(t, store, "p1", false)

	pusher := &mockPusher{OnlineFunc: func(context.Context) bool { return false }}
	engine := syncengine.NewEngine(store, pusher)

	_, err := engine.SyncAll(context.Background())
	assert.ErrorIs(t, err, syncengine.ErrOffline)
	assert.Zero(t, pusher.pushes())

	// The record is untouched and will be retried next time.
	unsynced, err := store.ListUnsyncedPatients(context.Background())
	require.NoError(t, err)
	assert.Len(t, unsynced, 1)
}

func TestSyncAllNothingToSync(t *testing.T) {
	store := newStore(t)
	seedPatient(t, store, "p1", true)

	pusher := &mockPusher{}
	engine := syncengine.NewEngine(store, pusher)

	res, err := engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.True(t, res.NothingToSync())
	assert.Zero(t, res.Synced)
	assert.Zero(t, pusher.pushes())
}

func TestSyncAllMarksRecordsSynced(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedPatient(t, store, "p1", false)
	seedVisit(t, store, "v1", false)
	seedReminder(t, store, "r1", false)

	pusher := &mockPusher{}
	engine := syncengine.NewEngine(store, pusher)

	res, err := engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 3, res.Synced)
	assert.Equal(t, 1, res.Patients)
	assert.Equal(t, 1, res.Visits)
	assert.Equal(t, 1, res.Reminders)

	for _, list := range []func() int{
		func() int { l, _ := store.ListUnsyncedPatients(ctx); return len(l) },
		func() int { l, _ := store.ListUnsyncedVisits(ctx); return len(l) },
		func() int { l, _ := store.ListUnsyncedReminders(ctx); return len(l) },
	} {
		assert.Zero(t, list())
	}
}

func TestSyncAllPerRecordFailureContinues(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedPatient(t, store, "p1", false)
	seedVisit(t, store, "v1", false)
	seedReminder(t, store, "r1", false)

	pusher := &mockPusher{
		PushFunc: func(_ context.Context, collection record.Collection, _ any) error {
			if collection == record.CollectionVisits {
				return assert.AnError
			}
			return nil
		},
	}
	engine := syncengine.NewEngine(store, pusher)

	res, err := engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 3, pusher.pushes())

	// The failed visit stays unsynced for the next pass.
	visits, err := store.ListUnsyncedVisits(ctx)
	require.NoError(t, err)
	assert.Len(t, visits, 1)

	patients, err := store.ListUnsyncedPatients(ctx)
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestSyncAllSingleFlight(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedPatient(t, store, "p1", false)
	seedPatient(t, store, "p2", false)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	pusher := &mockPusher{
		PushFunc: func(context.Context, record.Collection, any) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		},
	}
	engine := syncengine.NewEngine(store, pusher)

	done := make(chan error, 1)
	go func() {
		_, err := engine.SyncAll(ctx)
		done <- err
	}()

	<-started
	assert.True(t, engine.Syncing())

	// The overlapping call collapses into the in-flight one: no extra
	// pushes happen.
	_, err := engine.SyncAll(ctx)
	assert.ErrorIs(t, err, syncengine.ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 2, pusher.pushes())
	assert.False(t, engine.Syncing())
}

func TestSyncAllRepeatedWhenAlreadyClean(t *testing.T) {
	store := newStore(t)
	seedPatient(t, store, "p1", false)

	pusher := &mockPusher{}
	engine := syncengine.NewEngine(store, pusher)

	res, err := engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)

	res, err = engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.True(t, res.NothingToSync())
	assert.Equal(t, 1, pusher.pushes())
}
