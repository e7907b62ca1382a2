package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sahayak-health/sahayak/internal/alert"
	"github.com/sahayak-health/sahayak/internal/api"
	"github.com/sahayak-health/sahayak/internal/config"
	"github.com/sahayak-health/sahayak/internal/db"
	"github.com/sahayak-health/sahayak/internal/record"
	syncengine "github.com/sahayak-health/sahayak/internal/sync"
	"github.com/sahayak-health/sahayak/internal/transfer"
	"github.com/sahayak-health/sahayak/internal/view"
)

const version = "0.1.0"

// logSink stands in for the device SMS channel: composed alerts are
// logged so the message hand-off stays observable in development.
type logSink struct{}

func (logSink) Send(message string) {
	log.Printf("SOS message dispatched:\n%s", message)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("app-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s db_path=%s remote=%s",
		cfg.Env, cfg.HTTPPort, cfg.DBPath, cfg.RemoteBaseURL)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqldb, err := db.OpenSQLite(rootCtx, cfg.DBPath)
	if err != nil {
		log.Fatalf("sqlite open error: %v", err)
	}
	defer func() {
		if err := sqldb.Close(); err != nil {
			log.Printf("error closing store: %v", err)
		}
	}()
	log.Println("local store ready")

	store := record.NewSQLiteStore(sqldb)
	service := record.NewService(store)
	pusher := syncengine.NewHTTPPusher(cfg.RemoteBaseURL, cfg.PushTimeout)
	engine := syncengine.NewEngine(store, pusher)
	views := view.NewAggregator(store)
	bridge := transfer.NewBridge(store)
	sos := alert.NewComposer(nil, logSink{}, cfg.PositionTimeout)

	router := api.NewRouter(api.RouterConfig{
		Service: service,
		Store:   store,
		Engine:  engine,
		Views:   views,
		Bridge:  bridge,
		SOS:     sos,
		DB:      sqldb,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down app-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
