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

	"taxportal/api/internal/app"
	"taxportal/api/internal/blob"
	"taxportal/api/internal/config"
	"taxportal/api/internal/email"
	"taxportal/api/internal/journal"
	"taxportal/api/internal/search"
	"taxportal/api/internal/session"
	"taxportal/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, store.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgres(db)

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Printf("REDIS_URL is empty, sessions are in-process only")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	service := app.NewService(dataStore, sessions)

	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
		searchService := search.NewService(meiliClient, dataStore)
		searchService.ReindexAll(ctx, dataStore)
		service.WithSearch(searchService)
	} else {
		service.WithSearch(search.NewService(nil, dataStore))
	}

	if strings.TrimSpace(cfg.MinioURL) != "" {
		archive, err := blob.New(ctx, cfg.MinioURL, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseTLS)
		if err != nil {
			log.Printf("WARNING: bill archive disabled: %v", err)
		} else {
			service.WithArchive(archive)
		}
	}

	if err := os.MkdirAll(cfg.JournalDir, 0o755); err != nil {
		log.Fatalf("failed to create journal dir: %v", err)
	}
	service.WithJournal(journal.New(cfg.JournalDir))

	if strings.TrimSpace(cfg.SMTPHost) != "" {
		service.WithEmail(email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}))
	}

	httpServer := app.NewHTTPServer(service, cfg.CookieName)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Tax portal listening on %s", cfg.Addr)
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
