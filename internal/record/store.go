package record

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDuplicateID       = errors.New("record id already exists")
	ErrWorkerNotFound    = errors.New("worker not found")
	ErrPatientNotFound   = errors.New("patient not found")
	ErrReminderNotFound  = errors.New("reminder not found")
	ErrReminderCompleted = errors.New("reminder already completed")
)

// StorageError wraps any failure at the storage boundary with the
// operation that hit it. errors.Is still matches the wrapped cause.
type StorageError struct {
	Op         string
	Collection Collection
	Key        string
	Err        error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("storage %s %s[%s]: %v", e.Op, e.Collection, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, c Collection, key string, err error) error {
	return &StorageError{Op: op, Collection: c, Key: key, Err: err}
}

// Store contains all local persistence needed by the core components.
//
// Fetch-by-key methods return (nil, nil) when the record is absent:
// dangling references are a displayable condition here, not a failure.
// Add* methods fail with ErrDuplicateID when the key is taken; Put*
// methods insert or replace.
type Store interface {
	PutWorker(ctx context.Context, w *Worker) error
	GetWorkerByID(ctx context.Context, id string) (*Worker, error)
	ListWorkers(ctx context.Context) ([]Worker, error)

	AddPatient(ctx context.Context, p *Patient) error
	PutPatient(ctx context.Context, p *Patient) error
	GetPatientByID(ctx context.Context, id string) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	ListPatientsByWorker(ctx context.Context, workerID string) ([]Patient, error)
	ListUnsyncedPatients(ctx context.Context) ([]Patient, error)
	DeletePatient(ctx context.Context, id string) error
	ClearPatients(ctx context.Context) error

	AddVisit(ctx context.Context, v *Visit) error
	PutVisit(ctx context.Context, v *Visit) error
	GetVisitByID(ctx context.Context, id string) (*Visit, error)
	ListVisits(ctx context.Context) ([]Visit, error)
	ListVisitsByPatient(ctx context.Context, patientID string) ([]Visit, error)
	ListUnsyncedVisits(ctx context.Context) ([]Visit, error)
	DeleteVisit(ctx context.Context, id string) error
	ClearVisits(ctx context.Context) error

	AddReminder(ctx context.Context, r *Reminder) error
	PutReminder(ctx context.Context, r *Reminder) error
	GetReminderByID(ctx context.Context, id string) (*Reminder, error)
	ListReminders(ctx context.Context) ([]Reminder, error)
	ListRemindersByWorker(ctx context.Context, workerID string) ([]Reminder, error)
	ListRemindersByPatient(ctx context.Context, patientID string) ([]Reminder, error)
	ListUnsyncedReminders(ctx context.Context) ([]Reminder, error)
	DeleteReminder(ctx context.Context, id string) error
	ClearReminders(ctx context.Context) error

	// Process-wide session state surviving restarts.
	CurrentWorkerID(ctx context.Context) (string, error)
	SetCurrentWorkerID(ctx context.Context, id string) error
	ClearCurrentWorkerID(ctx context.Context) error
}
