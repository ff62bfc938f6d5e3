package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"konnekt.org/internal/auth"
	"konnekt.org/internal/events"
	"konnekt.org/internal/httpapi"
	"konnekt.org/internal/obs"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.SetBuildInfo(version, commit)

	dsn := os.Getenv("KONNEKT_PG_DSN")
	if dsn == "" {
		log.Fatal("missing KONNEKT_PG_DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := auth.NewPGStore(db)
	authSvc, err := auth.NewService(store, auth.WithRenewalObserver(obs.ObserveSessionRenewal))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	roleSvc, err := auth.NewRoleService(store)
	if err != nil {
		log.Fatalf("role service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := roleSvc.EnsureBuiltins(ctx); err != nil {
		cancel()
		log.Fatalf("ensure builtin roles: %v", err)
	}
	cancel()

	eventSvc, err := events.NewService(events.NewPGStore(db))
	if err != nil {
		log.Fatalf("event service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Auth:       authSvc,
		Roles:      roleSvc,
		Events:     eventSvc,
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
	})

	addr := os.Getenv("KONNEKT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	obs.Log("info", "starting", map[string]any{
		"service": "konnekt-api",
		"version": version,
		"addr":    srv.Addr,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	obs.Log("info", "shutting_down", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = db.Close()
	obs.Log("info", "stopped", nil)
}
