// trackline tracker-service
//
// Application tracker for job and internship hunts. Exposes a REST API
// used by the Gateway to implement:
//   - the application pipeline (APPLIED → OA → INTERVIEW → OFFER → outcome)
//   - the per-application audit timeline
//   - analytics, insights and suggestions derived from the event log
//   - deadline/inactivity reminder notifications
//
// Publishes application lifecycle events to Redis for Gateway SSE forward.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackline/tracker-service/internal/config"
	"trackline/tracker-service/internal/db"
	"trackline/tracker-service/internal/reminder"
	"trackline/tracker-service/internal/store"
	"trackline/tracker-service/internal/tracker"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[tracker-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[tracker-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[tracker-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[tracker-service] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[tracker-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[tracker-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[tracker-service] Redis connected ✓")

	// ── Services ─────────────────────────────────────────────────────────────
	st := store.New(pool)
	svc := tracker.NewService(st, rdb)

	job := reminder.New(st, rdb, cfg.ReminderIntervalHours, cfg.DeadlineWindowDays, cfg.StaleAfterDays)
	if err := job.Start(ctx); err != nil {
		log.Fatalf("[tracker-service] Reminder job: %v", err)
	}
	defer job.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := tracker.NewHandler(svc)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[tracker-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[tracker-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[tracker-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[tracker-service] Shutdown error: %v", err)
	}
	log.Println("[tracker-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "tracker-service",
		"version": version,
	})
}
