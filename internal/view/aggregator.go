package view

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sahayak-health/sahayak/internal/record"
)

type ReminderTab string

const (
	TabUpcoming  ReminderTab = "upcoming"
	TabCompleted ReminderTab = "completed"
)

// Summary is the live unsynced picture, feeding both the badge and the
// sync screen listing.
type Summary struct {
	Patients  []record.Patient  `json:"patients"`
	Visits    []record.Visit    `json:"visits"`
	Reminders []record.Reminder `json:"reminders"`
	Total     int               `json:"total"`
}

type PatientFilter struct {
	Search  string // substring over name, phone, village
	Gender  string // exact match
	Village string // exact match
}

// ReminderEntry is a reminder enriched with its patient's display fields.
// An orphaned patientId renders as "Unknown" with an empty phone.
type ReminderEntry struct {
	record.Reminder
	PatientName  string `json:"patientName"`
	PatientPhone string `json:"patientPhone"`
}

type PatientDetail struct {
	Patient         record.Patient    `json:"patient"`
	Visits          []record.Visit    `json:"visits"`
	ActiveReminders []record.Reminder `json:"activeReminders"`
}

// Aggregator computes read-only projections from live store contents.
// Nothing here caches: the store mutates between calls.
type Aggregator struct {
	store record.Store
}

func NewAggregator(store record.Store) *Aggregator {
	return &Aggregator{store: store}
}

func (a *Aggregator) UnsyncedSummary(ctx context.Context) (Summary, error) {
	patients, err := a.store.ListUnsyncedPatients(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("unsynced patients: %w", err)
	}
	visits, err := a.store.ListUnsyncedVisits(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("unsynced visits: %w", err)
	}
	reminders, err := a.store.ListUnsyncedReminders(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("unsynced reminders: %w", err)
	}

	return Summary{
		Patients:  patients,
		Visits:    visits,
		Reminders: reminders,
		Total:     len(patients) + len(visits) + len(reminders),
	}, nil
}

func (a *Aggregator) ListPatients(ctx context.Context, workerID string, f PatientFilter) ([]record.Patient, error) {
	patients, err := a.store.ListPatientsByWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	filtered := patients[:0:0]
	search := strings.ToLower(f.Search)
	for _, p := range patients {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Phone), search) &&
			!strings.Contains(strings.ToLower(p.Village), search) {
			continue
		}
		if f.Gender != "" && p.Gender != f.Gender {
			continue
		}
		if f.Village != "" && p.Village != f.Village {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// Villages returns the distinct non-empty villages across a worker's
// patients, for filter population. Order is not significant.
func (a *Aggregator) Villages(ctx context.Context, workerID string) ([]string, error) {
	patients, err := a.store.ListPatientsByWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	seen := make(map[string]bool)
	var villages []string
	for _, p := range patients {
		if p.Village == "" || seen[p.Village] {
			continue
		}
		seen[p.Village] = true
		villages = append(villages, p.Village)
	}
	return villages, nil
}

// ListReminders returns the worker's reminders for one tab. "now" is an
// explicit parameter so upcoming cutoffs are deterministic under test.
func (a *Aggregator) ListReminders(ctx context.Context, workerID string, tab ReminderTab, now time.Time) ([]ReminderEntry, error) {
	reminders, err := a.store.ListRemindersByWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	var filtered []record.Reminder
	if tab == TabCompleted {
		for _, r := range reminders {
			if r.IsCompleted {
				filtered = append(filtered, r)
			}
		}
		sort.SliceStable(filtered, func(i, j int) bool {
			return completedAt(filtered[i]).After(completedAt(filtered[j]))
		})
	} else {
		for _, r := range reminders {
			if !r.IsCompleted && !r.ReminderDate.Before(now) {
				filtered = append(filtered, r)
			}
		}
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].ReminderDate.Before(filtered[j].ReminderDate)
		})
	}

	entries := make([]ReminderEntry, 0, len(filtered))
	for _, r := range filtered {
		entry := ReminderEntry{Reminder: r, PatientName: "Unknown"}
		p, err := a.store.GetPatientByID(ctx, r.PatientID)
		if err != nil {
			return nil, fmt.Errorf("load patient for reminder %s: %w", r.ID, err)
		}
		if p != nil {
			entry.PatientName = p.Name
			entry.PatientPhone = p.Phone
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (a *Aggregator) UpcomingReminderCount(ctx context.Context, workerID string, now time.Time) (int, error) {
	reminders, err := a.store.ListRemindersByWorker(ctx, workerID)
	if err != nil {
		return 0, fmt.Errorf("list reminders: %w", err)
	}

	count := 0
	for _, r := range reminders {
		if !r.IsCompleted && !r.ReminderDate.Before(now) {
			count++
		}
	}
	return count, nil
}

// PatientDetail hydrates one patient with visits newest-first and the
// still-open reminders. Returns nil when the patient does not exist.
func (a *Aggregator) PatientDetail(ctx context.Context, patientID string) (*PatientDetail, error) {
	p, err := a.store.GetPatientByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if p == nil {
		return nil, nil
	}

	visits, err := a.store.ListVisitsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	sort.SliceStable(visits, func(i, j int) bool {
		return visits[i].VisitDate.After(visits[j].VisitDate)
	})

	reminders, err := a.store.ListRemindersByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	var active []record.Reminder
	for _, r := range reminders {
		if !r.IsCompleted {
			active = append(active, r)
		}
	}

	return &PatientDetail{Patient: *p, Visits: visits, ActiveReminders: active}, nil
}

func completedAt(r record.Reminder) time.Time {
	if r.CompletedAt == nil {
		return time.Time{}
	}
	return *r.CompletedAt
}
