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

	"scriptum/api/internal/app"
	"scriptum/api/internal/audio"
	"scriptum/api/internal/authpw"
	"scriptum/api/internal/config"
	"scriptum/api/internal/export"
	"scriptum/api/internal/gitrepo"
	"scriptum/api/internal/session"
	"scriptum/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatalf("failed to create repos dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	mirror := gitrepo.New(cfg.ReposDir)

	var sessions *session.RedisStore
	var cache *session.CorrectionsCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		sessions, err = session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer sessions.Close()
		cache = session.NewCorrectionsCache(sessions.Client())
		log.Printf("Using Redis for sessions and corrections cache")
	} else {
		log.Printf("Redis not configured; refresh tokens disabled")
	}

	var audioStore *audio.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		audioStore, err = audio.New(audio.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.AudioBucket,
		})
		if err != nil {
			log.Fatalf("audio store connection failed: %v", err)
		}
	} else {
		log.Printf("Audio store not configured; audio handles disabled")
	}

	service := newService(cfg, dataStore, mirror, sessions, cache, audioStore)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	authSvc := authpw.NewService(dataStore)
	exporter := export.NewService()

	httpServer := app.NewHTTPServer(service, authSvc, exporter, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Scriptum API listening on %s", cfg.Addr)
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
	service.WaitForAlignment()
}

// newService keeps the nil-interface plumbing in one place: a nil
// *session.RedisStore must not become a non-nil interface value.
func newService(cfg config.Config, dataStore *store.PostgresStore, mirror *gitrepo.Service, sessions *session.RedisStore, cache *session.CorrectionsCache, audioStore *audio.Store) *app.Service {
	var (
		sessIface  app.SessionStore
		cacheIface app.CorrectionsCache
		audioIface app.AudioResolver
	)
	if sessions != nil {
		sessIface = sessions
	}
	if cache != nil {
		cacheIface = cache
	}
	if audioStore != nil {
		audioIface = audioStore
	}
	return app.New(cfg, dataStore, mirror, sessIface, cacheIface, audioIface)
}
