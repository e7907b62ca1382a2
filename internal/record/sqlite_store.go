package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sessionWorkerKey = "current_worker_id"

// SQLiteStore implements Store on top of the embedded SQLite database
// opened by internal/db. Timestamps are stored as RFC3339 text, booleans
// as 0/1.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanWorker(sc rowScanner) (*Worker, error) {
	var w Worker
	var createdAt string

	err := sc.Scan(
		&w.ID,
		&w.Name,
		&w.Phone,
		&w.Role,
		&w.Area,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func scanPatient(sc rowScanner) (*Patient, error) {
	var p Patient
	var age sql.NullInt64
	var synced int
	var createdAt, updatedAt string

	err := sc.Scan(
		&p.ID,
		&p.WorkerID,
		&p.Name,
		&age,
		&p.Gender,
		&p.Phone,
		&p.Village,
		&p.Address,
		&p.BloodGroup,
		&p.MedicalHistory,
		&synced,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if age.Valid {
		n := int(age.Int64)
		p.Age = &n
	}
	p.Synced = synced != 0
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanVisit(sc rowScanner) (*Visit, error) {
	var v Visit
	var followUp sql.NullString
	var synced int
	var visitDate, createdAt string

	err := sc.Scan(
		&v.ID,
		&v.PatientID,
		&v.WorkerID,
		&visitDate,
		&v.Symptoms,
		&v.BloodPressure,
		&v.Temperature,
		&v.Pulse,
		&v.Weight,
		&v.Diagnosis,
		&v.Treatment,
		&v.Notes,
		&followUp,
		&synced,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	v.Synced = synced != 0
	if v.VisitDate, err = parseTime(visitDate); err != nil {
		return nil, err
	}
	if v.FollowUpDate, err = parseTimePtr(followUp); err != nil {
		return nil, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func scanReminder(sc rowScanner) (*Reminder, error) {
	var r Reminder
	var completedAt sql.NullString
	var isCompleted, synced int
	var reminderDate, createdAt string

	err := sc.Scan(
		&r.ID,
		&r.PatientID,
		&r.WorkerID,
		&r.ReminderType,
		&reminderDate,
		&r.Message,
		&isCompleted,
		&completedAt,
		&synced,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	r.IsCompleted = isCompleted != 0
	r.Synced = synced != 0
	if r.ReminderDate, err = parseTime(reminderDate); err != nil {
		return nil, err
	}
	if r.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// insertIfAbsent runs the existence check and the insert in one
// transaction so a duplicate id can never slip in between.
func (s *SQLiteStore) insertIfAbsent(ctx context.Context, c Collection, id string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("add", c, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	q := fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE id = ?", c)
	if err := tx.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		return storageErr("add", c, id, err)
	}
	if n > 0 {
		return storageErr("add", c, id, ErrDuplicateID)
	}

	if err := insert(tx); err != nil {
		return storageErr("add", c, id, err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("add", c, id, err)
	}
	return nil
}

func (s *SQLiteStore) clear(ctx context.Context, c Collection) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", c)); err != nil {
		return storageErr("clear", c, "", err)
	}
	return nil
}

func (s *SQLiteStore) deleteByID(ctx context.Context, c Collection, id string) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", c), id); err != nil {
		return storageErr("delete", c, id, err)
	}
	return nil
}

// Workers

const workerCols = "id, name, phone, role, area, created_at"

func (s *SQLiteStore) PutWorker(ctx context.Context, w *Worker) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO workers (`+workerCols+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.ID, w.Name, w.Phone, w.Role, w.Area, fmtTime(w.CreatedAt))
	if err != nil {
		return storageErr("put", CollectionWorkers, w.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetWorkerByID(ctx context.Context, id string) (*Worker, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workerCols+` FROM workers WHERE id = ?`, id)
	w, err := scanWorker(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get", CollectionWorkers, id, err)
	}
	return w, nil
}

func (s *SQLiteStore) ListWorkers(ctx context.Context) ([]Worker, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+workerCols+` FROM workers ORDER BY created_at`)
	if err != nil {
		return nil, storageErr("list", CollectionWorkers, "", err)
	}
	defer rows.Close()

	var result []Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, storageErr("list", CollectionWorkers, "", err)
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", CollectionWorkers, "", err)
	}
	return result, nil
}

// Patients

const patientCols = "id, worker_id, name, age, gender, phone, village, address, blood_group, medical_history, synced, created_at, updated_at"

func patientArgs(p *Patient) []any {
	var age any
	if p.Age != nil {
		age = *p.Age
	}
	return []any{
		p.ID, p.WorkerID, p.Name, age, p.Gender, p.Phone, p.Village,
		p.Address, p.BloodGroup, p.MedicalHistory, boolToInt(p.Synced),
		fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt),
	}
}

func (s *SQLiteStore) AddPatient(ctx context.Context, p *Patient) error {
	return s.insertIfAbsent(ctx, CollectionPatients, p.ID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO patients (`+patientCols+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, patientArgs(p)...)
		return err
	})
}

func (s *SQLiteStore) PutPatient(ctx context.Context, p *Patient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO patients (`+patientCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, patientArgs(p)...)
	if err != nil {
		return storageErr("put", CollectionPatients, p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetPatientByID(ctx context.Context, id string) (*Patient, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+patientCols+` FROM patients WHERE id = ?`, id)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get", CollectionPatients, id, err)
	}
	return p, nil
}

func (s *SQLiteStore) queryPatients(ctx context.Context, q string, args ...any) ([]Patient, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("list", CollectionPatients, "", err)
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, storageErr("list", CollectionPatients, "", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", CollectionPatients, "", err)
	}
	return result, nil
}

func (s *SQLiteStore) ListPatients(ctx context.Context) ([]Patient, error) {
	return s.queryPatients(ctx, `SELECT `+patientCols+` FROM patients ORDER BY created_at`)
}

func (s *SQLiteStore) ListPatientsByWorker(ctx context.Context, workerID string) ([]Patient, error) {
	return s.queryPatients(ctx, `SELECT `+patientCols+` FROM patients WHERE worker_id = ? ORDER BY created_at`, workerID)
}

func (s *SQLiteStore) ListUnsyncedPatients(ctx context.Context) ([]Patient, error) {
	return s.queryPatients(ctx, `SELECT `+patientCols+` FROM patients WHERE synced = 0 ORDER BY created_at`)
}

func (s *SQLiteStore) DeletePatient(ctx context.Context, id string) error {
	return s.deleteByID(ctx, CollectionPatients, id)
}

func (s *SQLiteStore) ClearPatients(ctx context.Context) error {
	return s.clear(ctx, CollectionPatients)
}

// Visits

const visitCols = "id, patient_id, worker_id, visit_date, symptoms, blood_pressure, temperature, pulse, weight, diagnosis, treatment, notes, follow_up_date, synced, created_at"

func visitArgs(v *Visit) []any {
	return []any{
		v.ID, v.PatientID, v.WorkerID, fmtTime(v.VisitDate), v.Symptoms,
		v.BloodPressure, v.Temperature, v.Pulse, v.Weight, v.Diagnosis,
		v.Treatment, v.Notes, fmtTimePtr(v.FollowUpDate),
		boolToInt(v.Synced), fmtTime(v.CreatedAt),
	}
}

func (s *SQLiteStore) AddVisit(ctx context.Context, v *Visit) error {
	return s.insertIfAbsent(ctx, CollectionVisits, v.ID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO visits (`+visitCols+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, visitArgs(v)...)
		return err
	})
}

func (s *SQLiteStore) PutVisit(ctx context.Context, v *Visit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO visits (`+visitCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, visitArgs(v)...)
	if err != nil {
		return storageErr("put", CollectionVisits, v.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetVisitByID(ctx context.Context, id string) (*Visit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+visitCols+` FROM visits WHERE id = ?`, id)
	v, err := scanVisit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get", CollectionVisits, id, err)
	}
	return v, nil
}

func (s *SQLiteStore) queryVisits(ctx context.Context, q string, args ...any) ([]Visit, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("list", CollectionVisits, "", err)
	}
	defer rows.Close()

	var result []Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, storageErr("list", CollectionVisits, "", err)
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", CollectionVisits, "", err)
	}
	return result, nil
}

func (s *SQLiteStore) ListVisits(ctx context.Context) ([]Visit, error) {
	return s.queryVisits(ctx, `SELECT `+visitCols+` FROM visits ORDER BY created_at`)
}

func (s *SQLiteStore) ListVisitsByPatient(ctx context.Context, patientID string) ([]Visit, error) {
	return s.queryVisits(ctx, `SELECT `+visitCols+` FROM visits WHERE patient_id = ? ORDER BY created_at`, patientID)
}

func (s *SQLiteStore) ListUnsyncedVisits(ctx context.Context) ([]Visit, error) {
	return s.queryVisits(ctx, `SELECT `+visitCols+` FROM visits WHERE synced = 0 ORDER BY created_at`)
}

func (s *SQLiteStore) DeleteVisit(ctx context.Context, id string) error {
	return s.deleteByID(ctx, CollectionVisits, id)
}

func (s *SQLiteStore) ClearVisits(ctx context.Context) error {
	return s.clear(ctx, CollectionVisits)
}

// Reminders

const reminderCols = "id, patient_id, worker_id, reminder_type, reminder_date, message, is_completed, completed_at, synced, created_at"

func reminderArgs(r *Reminder) []any {
	return []any{
		r.ID, r.PatientID, r.WorkerID, r.ReminderType,
		fmtTime(r.ReminderDate), r.Message, boolToInt(r.IsCompleted),
		fmtTimePtr(r.CompletedAt), boolToInt(r.Synced), fmtTime(r.CreatedAt),
	}
}

func (s *SQLiteStore) AddReminder(ctx context.Context, r *Reminder) error {
	return s.insertIfAbsent(ctx, CollectionReminders, r.ID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reminders (`+reminderCols+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, reminderArgs(r)...)
		return err
	})
}

func (s *SQLiteStore) PutReminder(ctx context.Context, r *Reminder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reminders (`+reminderCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, reminderArgs(r)...)
	if err != nil {
		return storageErr("put", CollectionReminders, r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetReminderByID(ctx context.Context, id string) (*Reminder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reminderCols+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get", CollectionReminders, id, err)
	}
	return r, nil
}

func (s *SQLiteStore) queryReminders(ctx context.Context, q string, args ...any) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("list", CollectionReminders, "", err)
	}
	defer rows.Close()

	var result []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, storageErr("list", CollectionReminders, "", err)
		}
		result = append(result, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", CollectionReminders, "", err)
	}
	return result, nil
}

func (s *SQLiteStore) ListReminders(ctx context.Context) ([]Reminder, error) {
	return s.queryReminders(ctx, `SELECT `+reminderCols+` FROM reminders ORDER BY created_at`)
}

func (s *SQLiteStore) ListRemindersByWorker(ctx context.Context, workerID string) ([]Reminder, error) {
	return s.queryReminders(ctx, `SELECT `+reminderCols+` FROM reminders WHERE worker_id = ? ORDER BY created_at`, workerID)
}

func (s *SQLiteStore) ListRemindersByPatient(ctx context.Context, patientID string) ([]Reminder, error) {
	return s.queryReminders(ctx, `SELECT `+reminderCols+` FROM reminders WHERE patient_id = ? ORDER BY created_at`, patientID)
}

func (s *SQLiteStore) ListUnsyncedReminders(ctx context.Context) ([]Reminder, error) {
	return s.queryReminders(ctx, `SELECT `+reminderCols+` FROM reminders WHERE synced = 0 ORDER BY created_at`)
}

func (s *SQLiteStore) DeleteReminder(ctx context.Context, id string) error {
	return s.deleteByID(ctx, CollectionReminders, id)
}

func (s *SQLiteStore) ClearReminders(ctx context.Context) error {
	return s.clear(ctx, CollectionReminders)
}

// Session

func (s *SQLiteStore) CurrentWorkerID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, sessionWorkerKey).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", storageErr("get", "session", sessionWorkerKey, err)
	}
	return id, nil
}

func (s *SQLiteStore) SetCurrentWorkerID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO session (key, value) VALUES (?, ?)
	`, sessionWorkerKey, id)
	if err != nil {
		return storageErr("put", "session", sessionWorkerKey, err)
	}
	return nil
}

func (s *SQLiteStore) ClearCurrentWorkerID(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, sessionWorkerKey)
	if err != nil {
		return storageErr("delete", "session", sessionWorkerKey, err)
	}
	return nil
}
