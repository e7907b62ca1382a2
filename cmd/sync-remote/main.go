// sync-remote is a development stand-in for the remote system: it accepts
// pushed records, deduplicates retried deliveries and keeps the latest
// payload per record in Postgres. The device core only depends on the
// push contract, never on this implementation.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahayak-health/sahayak/internal/api"
	"github.com/sahayak-health/sahayak/internal/config"
	"github.com/sahayak-health/sahayak/internal/db"
	redisclient "github.com/sahayak-health/sahayak/internal/redis"
)

const remoteSchema = `
CREATE TABLE IF NOT EXISTS remote_records (
	collection  TEXT NOT NULL,
	id          TEXT NOT NULL,
	payload     JSONB NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)
`

var allowedCollections = map[string]bool{
	"patients":  true,
	"visits":    true,
	"reminders": true,
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("sync-remote starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pool.Close()
	log.Println("connected to Postgres")

	if _, err := pool.Exec(rootCtx, remoteSchema); err != nil {
		log.Fatalf("apply remote schema: %v", err)
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	deduper := redisclient.NewRedisDeduper(rdb, cfg.DedupTTL)

	r := chi.NewRouter()
	r.Use(api.RequestIDMiddleware)
	r.Use(api.LoggingMiddleware)
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/records/{collection}", receiveRecordHandler(pool, deduper))

	port := os.Getenv("REMOTE_HTTP_PORT")
	if port == "" {
		port = "9090"
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down sync-remote")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func receiveRecordHandler(pool *pgxpool.Pool, deduper redisclient.Deduper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := chi.URLParam(r, "collection")
		if !allowedCollections[collection] {
			writeStatus(w, http.StatusNotFound, "unknown_collection")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeStatus(w, http.StatusBadRequest, "unreadable_body")
			return
		}

		var rec struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &rec); err != nil || rec.ID == "" {
			writeStatus(w, http.StatusBadRequest, "invalid_record")
			return
		}

		// Retried deliveries of the exact same payload are acknowledged
		// without touching storage.
		digest := sha256.Sum256(body)
		key := fmt.Sprintf("push:%s:%s:%x", collection, rec.ID, digest[:8])
		first, err := deduper.FirstDelivery(r.Context(), key)
		if err != nil {
			log.Printf("dedup check failed for %s/%s: %v", collection, rec.ID, err)
			writeStatus(w, http.StatusInternalServerError, "dedup_error")
			return
		}
		if !first {
			writeStatus(w, http.StatusOK, "duplicate")
			return
		}

		_, err = pool.Exec(r.Context(), `
			INSERT INTO remote_records (collection, id, payload, received_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (collection, id)
			DO UPDATE SET payload = EXCLUDED.payload, received_at = now()
		`, collection, rec.ID, body)
		if err != nil {
			log.Printf("store record %s/%s: %v", collection, rec.ID, err)
			writeStatus(w, http.StatusInternalServerError, "storage_error")
			return
		}

		writeStatus(w, http.StatusOK, "stored")
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
