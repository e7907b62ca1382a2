package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sahayak-health/sahayak/internal/alert"
	"github.com/sahayak-health/sahayak/internal/record"
	"github.com/sahayak-health/sahayak/internal/sync"
	"github.com/sahayak-health/sahayak/internal/transfer"
	"github.com/sahayak-health/sahayak/internal/view"
)

type RouterConfig struct {
	Service *record.Service
	Store   record.Store
	Engine  *sync.Engine
	Views   *view.Aggregator
	Bridge  *transfer.Bridge
	SOS     *alert.Composer
	DB      *sql.DB
	Env     string
	Version string
	Now     func() time.Time // defaults to time.Now
}

func NewRouter(cfg RouterConfig) http.Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	h := &Handlers{
		service: cfg.Service,
		store:   cfg.Store,
		engine:  cfg.Engine,
		views:   cfg.Views,
		bridge:  cfg.Bridge,
		sos:     cfg.SOS,
		now:     now,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.DB, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/login", h.Login)
	r.Get("/session", h.Session)
	r.Post("/logout", h.Logout)

	r.Get("/patients", h.ListPatients)
	r.Post("/patients", h.CreatePatient)
	r.Get("/patients/villages", h.Villages)
	r.Get("/patients/{id}", h.GetPatient)
	r.Put("/patients/{id}", h.UpdatePatient)
	r.Post("/patients/{id}/visits", h.CreateVisit)
	r.Post("/patients/{id}/reminders", h.CreateReminder)
	r.Post("/patients/{id}/sos", h.SOS)

	r.Get("/reminders", h.ListReminders)
	r.Get("/reminders/count", h.ReminderCount)
	r.Post("/reminders/{id}/complete", h.CompleteReminder)

	r.Post("/sync", h.Sync)
	r.Get("/sync/status", h.SyncStatus)

	r.Get("/export/json", h.ExportJSON)
	r.Get("/export/csv", h.ExportCSV)
	r.Post("/import", h.Import)

	r.Post("/admin/clear", h.ClearAll)

	return r
}
