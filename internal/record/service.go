package record

import (
	"context"
	"fmt"
	"time"
)

// Drafts carry form input for new records. IDs, timestamps and sync flags
// are assigned here, never by callers.

type WorkerDraft struct {
	Name  string
	Phone string
	Role  string
	Area  string
}

type PatientDraft struct {
	WorkerID       string
	Name           string
	Age            *int
	Gender         string
	Phone          string
	Village        string
	Address        string
	BloodGroup     string
	MedicalHistory string
}

type VisitDraft struct {
	PatientID     string
	WorkerID      string
	VisitDate     time.Time // zero means "now"
	Symptoms      string
	BloodPressure string
	Temperature   string
	Pulse         string
	Weight        string
	Diagnosis     string
	Treatment     string
	Notes         string
	FollowUpDate  *time.Time
}

type ReminderDraft struct {
	PatientID    string
	WorkerID     string
	ReminderType string
	ReminderDate time.Time
	Message      string
}

// Service validates references and owns record lifecycle on top of the
// Store. It never reads session state beyond the explicit session
// operations; callers pass worker/patient ids.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the time source, for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterWorker creates (or re-creates) the worker and makes it the
// device's current worker.
func (s *Service) RegisterWorker(ctx context.Context, d WorkerDraft) (*Worker, error) {
	now := s.now()
	w := &Worker{
		ID:        NewID(now),
		Name:      d.Name,
		Phone:     d.Phone,
		Role:      d.Role,
		Area:      d.Area,
		CreatedAt: now,
	}

	if err := s.store.PutWorker(ctx, w); err != nil {
		return nil, fmt.Errorf("register worker: %w", err)
	}
	if err := s.store.SetCurrentWorkerID(ctx, w.ID); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return w, nil
}

// RestoreSession returns the persisted current worker, or nil when no
// session exists or the worker row is gone.
func (s *Service) RestoreSession(ctx context.Context) (*Worker, error) {
	id, err := s.store.CurrentWorkerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if id == "" {
		return nil, nil
	}
	w, err := s.store.GetWorkerByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return w, nil
}

// Logout drops the session; unsynced data stays on the device.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.ClearCurrentWorkerID(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, d PatientDraft) (*Patient, error) {
	w, err := s.store.GetWorkerByID(ctx, d.WorkerID)
	if err != nil {
		return nil, fmt.Errorf("load worker: %w", err)
	}
	if w == nil {
		return nil, ErrWorkerNotFound
	}

	now := s.now()
	p := &Patient{
		ID:             NewID(now),
		WorkerID:       d.WorkerID,
		Name:           d.Name,
		Age:            d.Age,
		Gender:         d.Gender,
		Phone:          d.Phone,
		Village:        d.Village,
		Address:        d.Address,
		BloodGroup:     d.BloodGroup,
		MedicalHistory: d.MedicalHistory,
		Synced:         false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.AddPatient(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}

// UpdatePatient replaces the editable fields and marks the record
// unsynced again.
func (s *Service) UpdatePatient(ctx context.Context, id string, d PatientDraft) (*Patient, error) {
	p, err := s.store.GetPatientByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if p == nil {
		return nil, ErrPatientNotFound
	}

	p.Name = d.Name
	p.Age = d.Age
	p.Gender = d.Gender
	p.Phone = d.Phone
	p.Village = d.Village
	p.Address = d.Address
	p.BloodGroup = d.BloodGroup
	p.MedicalHistory = d.MedicalHistory
	p.Synced = false
	p.UpdatedAt = s.now()

	if err := s.store.PutPatient(ctx, p); err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return p, nil
}

func (s *Service) CreateVisit(ctx context.Context, d VisitDraft) (*Visit, error) {
	p, err := s.store.GetPatientByID(ctx, d.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if p == nil {
		return nil, ErrPatientNotFound
	}

	now := s.now()
	visitDate := d.VisitDate
	if visitDate.IsZero() {
		visitDate = now
	}

	v := &Visit{
		ID:            NewID(now),
		PatientID:     d.PatientID,
		WorkerID:      d.WorkerID,
		VisitDate:     visitDate,
		Symptoms:      d.Symptoms,
		BloodPressure: d.BloodPressure,
		Temperature:   d.Temperature,
		Pulse:         d.Pulse,
		Weight:        d.Weight,
		Diagnosis:     d.Diagnosis,
		Treatment:     d.Treatment,
		Notes:         d.Notes,
		FollowUpDate:  d.FollowUpDate,
		Synced:        false,
		CreatedAt:     now,
	}

	if err := s.store.AddVisit(ctx, v); err != nil {
		return nil, fmt.Errorf("create visit: %w", err)
	}
	return v, nil
}

func (s *Service) CreateReminder(ctx context.Context, d ReminderDraft) (*Reminder, error) {
	p, err := s.store.GetPatientByID(ctx, d.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if p == nil {
		return nil, ErrPatientNotFound
	}

	now := s.now()
	r := &Reminder{
		ID:           NewID(now),
		PatientID:    d.PatientID,
		WorkerID:     d.WorkerID,
		ReminderType: d.ReminderType,
		ReminderDate: d.ReminderDate,
		Message:      d.Message,
		IsCompleted:  false,
		Synced:       false,
		CreatedAt:    now,
	}

	if err := s.store.AddReminder(ctx, r); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return r, nil
}

// CompleteReminder marks a reminder done. Completion resets the synced
// flag so the change is pushed on the next sync.
func (s *Service) CompleteReminder(ctx context.Context, id string) (*Reminder, error) {
	r, err := s.store.GetReminderByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load reminder: %w", err)
	}
	if r == nil {
		return nil, ErrReminderNotFound
	}
	if r.IsCompleted {
		return nil, ErrReminderCompleted
	}

	now := s.now()
	r.IsCompleted = true
	r.CompletedAt = &now
	r.Synced = false

	if err := s.store.PutReminder(ctx, r); err != nil {
		return nil, fmt.Errorf("complete reminder: %w", err)
	}
	return r, nil
}

// ClearAll wipes patients, visits and reminders. Workers stay so the
// device can re-login. Callers must confirm before invoking this.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.store.ClearPatients(ctx); err != nil {
		return fmt.Errorf("clear patients: %w", err)
	}
	if err := s.store.ClearVisits(ctx); err != nil {
		return fmt.Errorf("clear visits: %w", err)
	}
	if err := s.store.ClearReminders(ctx); err != nil {
		return fmt.Errorf("clear reminders: %w", err)
	}
	return nil
}
