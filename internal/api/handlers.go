package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sahayak-health/sahayak/internal/alert"
	"github.com/sahayak-health/sahayak/internal/record"
	"github.com/sahayak-health/sahayak/internal/sync"
	"github.com/sahayak-health/sahayak/internal/transfer"
	"github.com/sahayak-health/sahayak/internal/view"
)

// Handlers exposes the core as plain request/response operations. The
// current worker is resolved from the persisted session here and passed
// down explicitly; core packages never see session state.
type Handlers struct {
	service *record.Service
	store   record.Store
	engine  *sync.Engine
	views   *view.Aggregator
	bridge  *transfer.Bridge
	sos     *alert.Composer
	now     func() time.Time
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	var storageErr *record.StorageError
	switch {
	case errors.Is(err, record.ErrWorkerNotFound):
		writeError(w, http.StatusNotFound, "worker_not_found", err.Error())
	case errors.Is(err, record.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, record.ErrReminderNotFound):
		writeError(w, http.StatusNotFound, "reminder_not_found", err.Error())
	case errors.Is(err, record.ErrReminderCompleted):
		writeError(w, http.StatusConflict, "reminder_already_completed", err.Error())
	case errors.Is(err, record.ErrDuplicateID):
		writeError(w, http.StatusConflict, "duplicate_id", err.Error())
	case errors.Is(err, transfer.ErrMalformedDocument):
		writeError(w, http.StatusBadRequest, "malformed_document", err.Error())
	case errors.As(err, &storageErr):
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// currentWorker resolves the persisted session. Writes a 401 and returns
// nil when no worker is logged in.
func (h *Handlers) currentWorker(w http.ResponseWriter, r *http.Request) *record.Worker {
	worker, err := h.service.RestoreSession(r.Context())
	if err != nil {
		h.handleError(w, err)
		return nil
	}
	if worker == nil {
		writeError(w, http.StatusUnauthorized, "no_session", "no worker is logged in")
		return nil
	}
	return worker
}

// Session

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name", "worker name is required")
		return
	}

	worker, err := h.service.RegisterWorker(r.Context(), record.WorkerDraft{
		Name:  req.Name,
		Phone: req.Phone,
		Role:  req.Role,
		Area:  req.Area,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, worker)
}

func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	worker, err := h.service.RestoreSession(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	if worker == nil {
		writeError(w, http.StatusNotFound, "no_session", "no worker is logged in")
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out. Unsynced data remains on this device."})
}

// Patients

func (h *Handlers) CreatePatient(w http.ResponseWriter, r *http.Request) {
	worker := h.currentWorker(w, r)
	if worker == nil {
		return
	}

	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name", "patient name is required")
		return
	}

	patient, err := h.service.CreatePatient(r.Context(), record.PatientDraft{
		WorkerID:       worker.ID,
		Name:           req.Name,
		Age:            req.Age,
		Gender:         req.Gender,
		Phone:          req.Phone,
		Village:        req.Village,
		Address:        req.Address,
		BloodGroup:     req.BloodGroup,
		MedicalHistory: req.MedicalHistory,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, patient)
}

func (h *Handlers) ListPatients(w http.ResponseWriter, r *http.Request) {
	worker := h.currentWorker(w, r)
	if worker == nil {
		return
	}

	q := r.URL.Query()
	patients, err := h.views.ListPatients(r.Context(), worker.ID, view.PatientFilter{
		Search:  q.Get("search"),
		Gender:  q.Get("gender"),
		Village: q.Get("village"),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

func (h *Handlers) GetPatient(w http.ResponseWriter, r *http.Request) {
	detail, err := h.views.PatientDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "patient_not_found", "patient not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handlers) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	patient, err := h.service.UpdatePatient(r.Context(), chi.URLParam(r, "id"), record.PatientDraft{
		Name:           req.Name,
		Age:            req.Age,
		Gender:         req.Gender,
		Phone:          req.Phone,
		Village:        req.Village,
		Address:        req.Address,
		BloodGroup:     req.BloodGroup,
		MedicalHistory: req.MedicalHistory,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func (h *Handlers) Villages(w http.ResponseWriter, r *http.Request) {
	worker := h.currentWorker(w, r)
	if worker == nil {
		return
	}

	villages, err := h.views.Villages(r.Context(), worker.ID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if villages == nil {
		villages = []string{}
	}
	writeJSON(w, http.StatusOK, villages)
}

// Visits

func (h *Handlers) CreateVisit(w http.ResponseWriter, r *http.Request) {
	worker := h.currentWorker(w, r)
	if worker == nil {
		return
	}

	var req VisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	draft := record.VisitDraft{
		PatientID:     chi.URLParam(r, "id"),
		WorkerID:      worker.ID,
		Symptoms:      req.Symptoms,
		BloodPressure: req.BloodPressure,
		Temperature:   req.Temperature,
		Pulse:         req.Pulse,
		Weight:        req.Weight,
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
		Notes:         req.Notes,
		FollowUpDate:  req.FollowUpDate,
	}
	if req.VisitDate != nil {
		draft.VisitDate = *req.VisitDate
	}

	visit, err := h.service.CreateVisit(r.Context(), draft)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

// Reminders

func (h *Handlers) CreateReminder(w http.ResponseWriter, r *http.Request) {
	worker := h.currentWorker(w, r)
	if worker == nil {
		return
	}

	var req ReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.ReminderDate.IsZero() {
		writeError(w, http.StatusBadRequest, "missing_reminder_date", "reminderDate is required")
		return
	}

	reminder, err := h.service.CreateReminder(r.Context(), record.ReminderDraft{
		PatientID:    chi.URLParam(r, "id"),
		WorkerID:     worker.ID,
		ReminderType: req.ReminderType,
		ReminderDate: req.ReminderDate,
		Message:      req.Message,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reminder)
}

func (h *Handlers) ListReminders(w http.ResponseWriter, r *http.Request) {
	worker := h.currentWorker(w, r)
	if worker == nil {
		return
	}

	tab := view.ReminderTab(r.URL.Query().Get("tab"))
	if tab == "" {
		tab = view.TabUpcoming
	}

	entries, err := h.views.ListReminders(r.Context(), worker.ID, tab, h.now())
	if err != nil {
		h.handleError(w, err)
		return
	}
	if entries == nil {
		entries = []view.ReminderEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) CompleteReminder(w http.ResponseWriter, r *http.Request) {
	reminder, err := h.service.CompleteReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (h *Handlers) ReminderCount(w http.ResponseWriter, r *http.Request) {
	worker := h.currentWorker(w, r)
	if worker == nil {
		return
	}

	count, err := h.views.UpcomingReminderCount(r.Context(), worker.ID, h.now())
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// Sync

func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.SyncAll(r.Context())
	switch {
	case errors.Is(err, sync.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "sync_in_progress", "a sync is already running")
		return
	case errors.Is(err, sync.ErrOffline):
		writeError(w, http.StatusServiceUnavailable, "offline", "Cannot sync while offline")
		return
	case err != nil:
		h.handleError(w, err)
		return
	}

	msg := fmt.Sprintf("Synced %d of %d records", result.Synced, result.Attempted)
	if result.NothingToSync() {
		msg = "All records are synced"
	}
	writeJSON(w, http.StatusOK, SyncResponse{Result: result, Message: msg})
}

func (h *Handlers) SyncStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := h.views.UnsyncedSummary(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Import/Export

func (h *Handlers) ExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.bridge.ExportJSON(r.Context(), h.now())
	if err != nil {
		h.handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="health-records-%d.json"`, h.now().UnixMilli()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.bridge.ExportCSV(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="patients-%d.csv"`, h.now().UnixMilli()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not read body")
		return
	}

	imported, err := h.bridge.ImportJSON(r.Context(), data)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{
		Imported: imported,
		Message:  fmt.Sprintf("Imported %d records", imported),
	})
}

// Admin

func (h *Handlers) ClearAll(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, "confirmation_required", "clearing all data requires confirm=true")
		return
	}

	if err := h.service.ClearAll(r.Context()); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "All data cleared"})
}

// SOS

func (h *Handlers) SOS(w http.ResponseWriter, r *http.Request) {
	worker := h.currentWorker(w, r)
	if worker == nil {
		return
	}

	patient, err := h.store.GetPatientByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	if patient == nil {
		writeError(w, http.StatusNotFound, "patient_not_found", "patient not found")
		return
	}

	msg := h.sos.Trigger(r.Context(), patient, worker, h.now())
	writeJSON(w, http.StatusOK, SOSResponse{Message: msg})
}
