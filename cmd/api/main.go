package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"huddle/api/internal/app"
	"huddle/api/internal/archive"
	"huddle/api/internal/config"
	"huddle/api/internal/identity"
	"huddle/api/internal/live"
	"huddle/api/internal/search"
	"huddle/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.Bootstrap(ctx, db); err != nil {
		log.Fatalf("schema bootstrap failed: %v", err)
	}

	liveStore, err := live.Open(cfg.RedisURL)
	if err != nil {
		log.Fatalf("live store connection failed: %v", err)
	}
	defer liveStore.Close()

	if err := os.MkdirAll(cfg.ArchivesDir, 0o755); err != nil {
		log.Fatalf("failed to create archives dir: %v", err)
	}

	accounts := store.NewPostgresStore(db)
	identityService := identity.NewService(accounts)
	archiveService := archive.New(cfg.ArchivesDir)

	var uploader *archive.Uploader
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		uploader, err = archive.NewUploader(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("object storage connection failed: %v", err)
		}
		log.Printf("Uploading report artifacts to %s/%s", cfg.MinioEndpoint, cfg.MinioBucket)
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewScan(liveStore))

	service := app.New(cfg, liveStore, accounts, identityService, archiveService, uploader, searchService)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the event stream holds connections open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Huddle API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
