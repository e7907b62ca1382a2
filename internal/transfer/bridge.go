package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sahayak-health/sahayak/internal/record"
)

// ErrMalformedDocument means the import input did not parse as a
// snapshot. Nothing is written when this is returned.
var ErrMalformedDocument = errors.New("malformed import document")

// Snapshot is the portable whole-store document. Imported records keep
// their exported sync flags; the sync path is not involved.
type Snapshot struct {
	Workers    []record.Worker   `json:"workers"`
	Patients   []record.Patient  `json:"patients"`
	Visits     []record.Visit    `json:"visits"`
	Reminders  []record.Reminder `json:"reminders"`
	ExportDate string            `json:"exportDate"`
}

const csvHeader = "Name,Age,Gender,Phone,Village,Blood Group,Medical History"

// Bridge reads and writes the store directly for backup and manual
// transfer when sync is unavailable.
type Bridge struct {
	store record.Store
}

func NewBridge(store record.Store) *Bridge {
	return &Bridge{store: store}
}

func (b *Bridge) ExportSnapshot(ctx context.Context, now time.Time) (*Snapshot, error) {
	workers, err := b.store.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("export workers: %w", err)
	}
	patients, err := b.store.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("export patients: %w", err)
	}
	visits, err := b.store.ListVisits(ctx)
	if err != nil {
		return nil, fmt.Errorf("export visits: %w", err)
	}
	reminders, err := b.store.ListReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("export reminders: %w", err)
	}

	return &Snapshot{
		Workers:    workers,
		Patients:   patients,
		Visits:     visits,
		Reminders:  reminders,
		ExportDate: now.UTC().Format(time.RFC3339),
	}, nil
}

func (b *Bridge) ExportJSON(ctx context.Context, now time.Time) ([]byte, error) {
	snap, err := b.ExportSnapshot(ctx, now)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// ExportCSV flattens patients for spreadsheet use. Every field is quoted
// and embedded quotes are doubled.
func (b *Bridge) ExportCSV(ctx context.Context) ([]byte, error) {
	patients, err := b.store.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("export patients: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(csvHeader)
	sb.WriteByte('\n')

	for _, p := range patients {
		age := ""
		if p.Age != nil {
			age = strconv.Itoa(*p.Age)
		}
		fields := []string{p.Name, age, p.Gender, p.Phone, p.Village, p.BloodGroup, p.MedicalHistory}
		for i, f := range fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(f, `"`, `""`))
			sb.WriteByte('"')
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

// ImportJSON applies a previously exported document: upsert by id for
// patients, visits and reminders (last write wins, no merge). Workers are
// never imported. The whole document is parsed and validated before any
// write happens, so malformed input leaves the store untouched.
func (b *Bridge) ImportJSON(ctx context.Context, data []byte) (int, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	for i, p := range snap.Patients {
		if p.ID == "" {
			return 0, fmt.Errorf("%w: patient %d has no id", ErrMalformedDocument, i)
		}
	}
	for i, v := range snap.Visits {
		if v.ID == "" {
			return 0, fmt.Errorf("%w: visit %d has no id", ErrMalformedDocument, i)
		}
	}
	for i, r := range snap.Reminders {
		if r.ID == "" {
			return 0, fmt.Errorf("%w: reminder %d has no id", ErrMalformedDocument, i)
		}
	}

	imported := 0
	for i := range snap.Patients {
		if err := b.store.PutPatient(ctx, &snap.Patients[i]); err != nil {
			return imported, fmt.Errorf("import patient %s: %w", snap.Patients[i].ID, err)
		}
		imported++
	}
	for i := range snap.Visits {
		if err := b.store.PutVisit(ctx, &snap.Visits[i]); err != nil {
			return imported, fmt.Errorf("import visit %s: %w", snap.Visits[i].ID, err)
		}
		imported++
	}
	for i := range snap.Reminders {
		if err := b.store.PutReminder(ctx, &snap.Reminders[i]); err != nil {
			return imported, fmt.Errorf("import reminder %s: %w", snap.Reminders[i].ID, err)
		}
		imported++
	}
	return imported, nil
}
