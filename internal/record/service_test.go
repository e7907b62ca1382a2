package record_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahayak-health/sahayak/internal/record"
)

var testClock = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*record.Service, *record.SQLiteStore) {
	t.Helper()
	store := newStore(t)
	svc := record.NewService(store).WithClock(func() time.Time { return testClock })
	return svc, store
}

func registerWorker(t *testing.T, svc *record.Service) *record.Worker {
	t.Helper()
	w, err := svc.RegisterWorker(context.Background(), record.WorkerDraft{
		Name: "Sunita", Phone: "9000000001", Role: "ASHA", Area: "Block 4",
	})
	require.NoError(t, err)
	return w
}

func TestRegisterWorkerPersistsSession(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	w := registerWorker(t, svc)
	assert.NotEmpty(t, w.ID)

	id, err := store.CurrentWorkerID(ctx)
	require.NoError(t, err)
	assert.Equal(t, w.ID, id)

	restored, err := svc.RestoreSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, w.ID, restored.ID)
}

func TestRestoreSessionWithoutLogin(t *testing.T) {
	svc, _ := newService(t)

	w, err := svc.RestoreSession(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, w)
}

func TestLogoutKeepsWorkerRow(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	w := registerWorker(t, svc)
	require.NoError(t, svc.Logout(ctx))

	restored, err := svc.RestoreSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, restored)

	// The worker row survives for re-login.
	kept, err := store.GetWorkerByID(ctx, w.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestCreatePatientRequiresWorker(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreatePatient(context.Background(), record.PatientDraft{
		WorkerID: "missing", Name: "Ravi",
	})
	assert.ErrorIs(t, err, record.ErrWorkerNotFound)
}

func TestCreatePatientStartsUnsynced(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	w := registerWorker(t, svc)
	p, err := svc.CreatePatient(ctx, record.PatientDraft{
		WorkerID: w.ID, Name: "Ravi", Age: intPtr(52), Village: "Devgarh",
	})
	require.NoError(t, err)
	assert.False(t, p.Synced)
	assert.Equal(t, testClock, p.CreatedAt)

	got, err := store.GetPatientByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestUpdatePatientResetsSyncedFlag(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	w := registerWorker(t, svc)
	p, err := svc.CreatePatient(ctx, record.PatientDraft{WorkerID: w.ID, Name: "Ravi"})
	require.NoError(t, err)

	p.Synced = true
	require.NoError(t, store.PutPatient(ctx, p))

	updated, err := svc.UpdatePatient(ctx, p.ID, record.PatientDraft{Name: "Ravi Kumar", Village: "Sonpura"})
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", updated.Name)
	assert.False(t, updated.Synced)
	assert.Equal(t, w.ID, updated.WorkerID)
}

func TestCreateVisitRequiresPatient(t *testing.T) {
	svc, _ := newService(t)
	w := registerWorker(t, svc)

	_, err := svc.CreateVisit(context.Background(), record.VisitDraft{
		PatientID: "missing", WorkerID: w.ID,
	})
	assert.ErrorIs(t, err, record.ErrPatientNotFound)
}

func TestCreateVisitDefaultsVisitDate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	w := registerWorker(t, svc)
	p, err := svc.CreatePatient(ctx, record.PatientDraft{WorkerID: w.ID, Name: "Ravi"})
	require.NoError(t, err)

	v, err := svc.CreateVisit(ctx, record.VisitDraft{PatientID: p.ID, WorkerID: w.ID, Diagnosis: "Fever"})
	require.NoError(t, err)
	assert.Equal(t, testClock, v.VisitDate)
	assert.False(t, v.Synced)
}

func TestCompleteReminder(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	w := registerWorker(t, svc)
	p, err := svc.CreatePatient(ctx, record.PatientDraft{WorkerID: w.ID, Name: "Ravi"})
	require.NoError(t, err)

	r, err := svc.CreateReminder(ctx, record.ReminderDraft{
		PatientID: p.ID, WorkerID: w.ID, ReminderType: "Checkup",
		ReminderDate: testClock.AddDate(0, 0, 7),
	})
	require.NoError(t, err)

	// Simulate a prior sync so completion visibly resets the flag.
	r.Synced = true
	require.NoError(t, store.PutReminder(ctx, r))

	done, err := svc.CompleteReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, testClock, *done.CompletedAt)
	assert.False(t, done.Synced)

	_, err = svc.CompleteReminder(ctx, r.ID)
	assert.ErrorIs(t, err, record.ErrReminderCompleted)
}

func TestCompleteMissingReminder(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CompleteReminder(context.Background(), "missing")
	assert.ErrorIs(t, err, record.ErrReminderNotFound)
}

func TestClearAllKeepsWorkers(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	w := registerWorker(t, svc)
	p, err := svc.CreatePatient(ctx, record.PatientDraft{WorkerID: w.ID, Name: "Ravi"})
	require.NoError(t, err)
	_, err = svc.CreateVisit(ctx, record.VisitDraft{PatientID: p.ID, WorkerID: w.ID})
	require.NoError(t, err)
	_, err = svc.CreateReminder(ctx, record.ReminderDraft{
		PatientID: p.ID, WorkerID: w.ID, ReminderDate: testClock.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	require.NoError(t, svc.ClearAll(ctx))

	patients, err := store.ListPatients(ctx)
	require.NoError(t, err)
	assert.Empty(t, patients)
	visits, err := store.ListVisits(ctx)
	require.NoError(t, err)
	assert.Empty(t, visits)
	reminders, err := store.ListReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, reminders)

	workers, err := store.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Len(t, workers, 1)
}
