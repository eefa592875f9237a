package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modaretail/posync/internal/backup"
	"github.com/modaretail/posync/internal/cache"
	"github.com/modaretail/posync/internal/config"
	"github.com/modaretail/posync/internal/database"
	"github.com/modaretail/posync/internal/handlers"
	"github.com/modaretail/posync/internal/models"
	"github.com/modaretail/posync/internal/notify"
	"github.com/modaretail/posync/internal/remote"
	"github.com/modaretail/posync/internal/store"
	posync "github.com/modaretail/posync/internal/sync"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize local database (embedded vs external detected automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() runs in the shutdown handler below

	// 3. Synchronize schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.PendingOperation{},
		&models.CachedProduct{},
		&models.CachedStock{},
		&models.BackupSnapshot{},
		&models.SyncState{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	st := store.New(db, cfg.Sync.MaxRetries)

	// 4. Remote backend client
	client := remote.NewClient(cfg.Odoo.URL, cfg.Odoo.Database, cfg.Odoo.Username, cfg.Odoo.Password)
	if cfg.Odoo.URL != "" {
		if _, err := client.Authenticate(); err != nil {
			// Expected when starting offline; sync resumes once reachable
			log.Printf("⚠️ Backend authentication failed (starting offline): %v", err)
		}
	}
	backend := remote.NewOdooBackend(client)

	// 5. Connectivity monitor
	monitor := posync.NewMonitor(backend, st, time.Duration(cfg.Sync.ProbeInterval)*time.Second)

	// 6. Conflict resolver + sync engine
	resolver := posync.NewResolver(st, backend)
	engine := posync.NewEngine(st, backend, monitor, resolver, cfg.Sync)

	// 7. UI push channel
	hub := notify.NewHub()
	go hub.Run()
	monitor.OnStatusChange(hub.StatusChanged)
	engine.SetNotifier(hub)

	monitor.Start()
	if err := engine.Start(); err != nil {
		log.Fatalf("Failed to start sync engine: %v", err)
	}

	// 8. Cache refresher + backup scheduler
	refresher := cache.NewRefresher(st, backend, cfg.Boutique,
		time.Duration(cfg.Sync.RefreshInterval)*time.Minute,
		time.Duration(cfg.Sync.RetentionDays)*24*time.Hour)
	refresher.Start()

	scheduler := backup.NewScheduler(st,
		time.Duration(cfg.Sync.BackupInterval)*time.Minute,
		time.Duration(cfg.Sync.BackupMaxAge)*time.Minute)
	scheduler.Start()

	// 9. HTTP boundary
	router := handlers.NewRouter(st, engine, monitor, resolver, hub, cfg.Boutique)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 POS sync service starting on port %s (boutique %d)\n", cfg.Port, cfg.Boutique)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	scheduler.Stop()
	refresher.Stop()
	engine.Stop()
	monitor.Stop()

	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
