package transfer_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahayak-health/sahayak/internal/db"
	"github.com/sahayak-health/sahayak/internal/record"
	"github.com/sahayak-health/sahayak/internal/transfer"
)

var now = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newBridge(t *testing.T) (*transfer.Bridge, record.Store) {
	t.Helper()
	sqldb, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	store := record.NewSQLiteStore(sqldb)
	return transfer.NewBridge(store), store
}

func intPtr(n int) *int { return &n }

func seedAll(t *testing.T, store record.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.PutWorker(ctx, &record.Worker{
		ID: "w1", Name: "Sunita", Phone: "9000000001", Role: "ASHA", CreatedAt: now,
	}))
	require.NoError(t, store.AddPatient(ctx, &record.Patient{
		ID: "p1", WorkerID: "w1", Name: "Meena Devi", Age: intPtr(34),
		Village: "Rampur", Synced: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.AddPatient(ctx, &record.Patient{
		ID: "p2", WorkerID: "w1", Name: "Ravi Kumar",
		Synced: false, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.AddVisit(ctx, &record.Visit{
		ID: "v1", PatientID: "p1", WorkerID: "w1", VisitDate: now,
		Diagnosis: "Fever", Synced: true, CreatedAt: now,
	}))
	require.NoError(t, store.AddReminder(ctx, &record.Reminder{
		ID: "r1", PatientID: "p1", WorkerID: "w1",
		ReminderDate: now.AddDate(0, 0, 7), CreatedAt: now,
	}))
}

func TestExportImportRoundTrip(t *testing.T) {
	bridge, store := newBridge(t)
	ctx := context.Background()
	seedAll(t, store)

	data, err := bridge.ExportJSON(ctx, now)
	require.NoError(t, err)

	// Wipe the transactional collections, then restore from the document.
	require.NoError(t, store.ClearPatients(ctx))
	require.NoError(t, store.ClearVisits(ctx))
	require.NoError(t, store.ClearReminders(ctx))

	imported, err := bridge.ImportJSON(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 4, imported)

	p1, err := store.GetPatientByID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p1)
	assert.Equal(t, "Meena Devi", p1.Name)
	require.NotNil(t, p1.Age)
	assert.Equal(t, 34, *p1.Age)

	// Sync flags travel with the document, the sync path is not involved.
	assert.True(t, p1.Synced)
	p2, err := store.GetPatientByID(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, p2.Synced)

	v1, err := store.GetVisitByID(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, v1)
	assert.True(t, v1.Synced)
}

func TestImportMalformedLeavesStoreUntouched(t *testing.T) {
	bridge, store := newBridge(t)
	ctx := context.Background()
	seedAll(t, store)

	imported, err := bridge.ImportJSON(ctx, []byte(`{"patients": not json`))
	assert.ErrorIs(t, err, transfer.ErrMalformedDocument)
	assert.Zero(t, imported)

	patients, err := store.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, patients, 2)
}

func TestImportRejectsRecordWithoutID(t *testing.T) {
	bridge, store := newBridge(t)
	ctx := context.Background()

	doc := `{"patients":[{"id":"p1","name":"A"},{"name":"no id"}]}`
	imported, err := bridge.ImportJSON(ctx, []byte(doc))
	assert.ErrorIs(t, err, transfer.ErrMalformedDocument)
	assert.Zero(t, imported)

	// Validation happens before any write, so p1 was not applied either.
	p1, err := store.GetPatientByID(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, p1)
}

func TestImportPartialDocument(t *testing.T) {
	bridge, store := newBridge(t)
	ctx := context.Background()

	doc := `{"patients":[{"id":"p1","name":"Meena Devi","workerId":"w1"}]}`
	imported, err := bridge.ImportJSON(ctx, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	p1, err := store.GetPatientByID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p1)
	assert.Equal(t, "Meena Devi", p1.Name)
}

func TestImportNeverTouchesWorkers(t *testing.T) {
	bridge, store := newBridge(t)
	ctx := context.Background()

	doc := `{"workers":[{"id":"w9","name":"Imported"}],"patients":[]}`
	imported, err := bridge.ImportJSON(ctx, []byte(doc))
	require.NoError(t, err)
	assert.Zero(t, imported)

	w, err := store.GetWorkerByID(ctx, "w9")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestImportUpsertsExisting(t *testing.T) {
	bridge, store := newBridge(t)
	ctx := context.Background()
	seedAll(t, store)

	doc := `{"patients":[{"id":"p1","workerId":"w1","name":"Meena Kumari"}]}`
	imported, err := bridge.ImportJSON(ctx, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	p1, err := store.GetPatientByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Meena Kumari", p1.Name)
}

func TestExportSnapshotDate(t *testing.T) {
	bridge, _ := newBridge(t)

	snap, err := bridge.ExportSnapshot(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15T12:00:00Z", snap.ExportDate)
}

func TestExportCSV(t *testing.T) {
	bridge, store := newBridge(t)
	ctx := context.Background()

	require.NoError(t, store.AddPatient(ctx, &record.Patient{
		ID: "p1", WorkerID: "w1", Name: `Meena "Devi"`, Age: intPtr(34),
		Gender: "Female", Phone: "9876543210", Village: "Rampur",
		BloodGroup: "B+", MedicalHistory: "Anemia, treated 2023",
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.AddPatient(ctx, &record.Patient{
		ID: "p2", WorkerID: "w1", Name: "Ravi Kumar",
		CreatedAt: now, UpdatedAt: now,
	}))

	data, err := bridge.ExportCSV(ctx)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Age,Gender,Phone,Village,Blood Group,Medical History", lines[0])

	// Every field is quoted, embedded quotes are doubled, a missing age is
	// an empty field.
	assert.Contains(t, lines, `"Meena ""Devi""","34","Female","9876543210","Rampur","B+","Anemia, treated 2023"`)
	assert.Contains(t, lines, `"Ravi Kumar","","","","","",""`)
}
