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

	"vane/api/internal/app"
	"vane/api/internal/config"
	"vane/api/internal/github"
	"vane/api/internal/search"
	"vane/api/internal/session"
	"vane/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	sessions, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer sessions.Close()

	var identity *github.Client
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		identity = github.NewClient(github.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			CallbackURL:  cfg.BaseURL + "/login/github/callback",
		})
	} else {
		log.Printf("WARNING: GitHub OAuth not configured, login routes disabled")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewPgLike(db))

	service := newService(cfg, dataStore, sessions, identity, searchService)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Vane API listening on %s", cfg.Addr)
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

// newService keeps the nil-interface wiring in one place: a disabled GitHub
// client must stay a nil interface inside the service.
func newService(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, identity *github.Client, searcher *search.Service) *app.Service {
	if identity == nil {
		return app.New(cfg, dataStore, sessions, nil, searcher)
	}
	return app.New(cfg, dataStore, sessions, identity, searcher)
}
