package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/sahayak-health/sahayak/internal/record"
)

var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrOffline        = errors.New("cannot sync while offline")
)

// Pusher is the local-side contract with the remote system: it can say
// whether the remote is reachable and accept one record at a time.
type Pusher interface {
	Online(ctx context.Context) bool
	Push(ctx context.Context, collection record.Collection, rec any) error
}

type Result struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Patients  int `json:"patients"`
	Visits    int `json:"visits"`
	Reminders int `json:"reminders"`
}

func (r Result) NothingToSync() bool { return r.Attempted == 0 }

// Engine reconciles unsynced local records with the remote. SyncAll is
// single-flight: overlapping calls fail fast with ErrSyncInProgress and
// perform no pushes.
type Engine struct {
	store  record.Store
	pusher Pusher

	mu      sync.Mutex
	syncing bool
}

func NewEngine(store record.Store, pusher Pusher) *Engine {
	return &Engine{store: store, pusher: pusher}
}

// Syncing reports whether a sync pass is currently running.
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// SyncAll pushes every unsynced patient, visit and reminder, in that
// order. A failed push leaves the record unsynced for the next pass and
// never aborts the batch.
func (e *Engine) SyncAll(ctx context.Context) (Result, error) {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return Result{}, ErrSyncInProgress
	}
	e.syncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	if !e.pusher.Online(ctx) {
		return Result{}, ErrOffline
	}

	patients, err := e.store.ListUnsyncedPatients(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("collect unsynced patients: %w", err)
	}
	visits, err := e.store.ListUnsyncedVisits(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("collect unsynced visits: %w", err)
	}
	reminders, err := e.store.ListUnsyncedReminders(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("collect unsynced reminders: %w", err)
	}

	res := Result{Attempted: len(patients) + len(visits) + len(reminders)}
	if res.NothingToSync() {
		return res, nil
	}

	for i := range patients {
		p := patients[i]
		if err := e.pusher.Push(ctx, record.CollectionPatients, &p); err != nil {
			log.Printf("sync failed for patient %s: %v", p.ID, err)
			continue
		}
		p.Synced = true
		if err := e.store.PutPatient(ctx, &p); err != nil {
			log.Printf("mark synced failed for patient %s: %v", p.ID, err)
			continue
		}
		res.Synced++
		res.Patients++
	}

	for i := range visits {
		v := visits[i]
		if err := e.pusher.Push(ctx, record.CollectionVisits, &v); err != nil {
			log.Printf("sync failed for visit %s: %v", v.ID, err)
			continue
		}
		v.Synced = true
		if err := e.store.PutVisit(ctx, &v); err != nil {
			log.Printf("mark synced failed for visit %s: %v", v.ID, err)
			continue
		}
		res.Synced++
		res.Visits++
	}

	for i := range reminders {
		r := reminders[i]
		if err := e.pusher.Push(ctx, record.CollectionReminders, &r); err != nil {
			log.Printf("sync failed for reminder %s: %v", r.ID, err)
			continue
		}
		r.Synced = true
		if err := e.store.PutReminder(ctx, &r); err != nil {
			log.Printf("mark synced failed for reminder %s: %v", r.ID, err)
			continue
		}
		res.Synced++
		res.Reminders++
	}

	return res, nil
}
