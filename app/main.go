package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ykarpov/feedkeep/app/api"
	"github.com/ykarpov/feedkeep/app/cfg"
	"github.com/ykarpov/feedkeep/app/database"
	"github.com/ykarpov/feedkeep/app/feed"
	"github.com/ykarpov/feedkeep/app/suggestions"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting FeedKeep server...", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	suggested, err := suggestions.NewLoader(appCfg.SuggestionsFile).Load()
	if err != nil {
		slog.Error("Failed to load suggestions", "file", appCfg.SuggestionsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Suggestions loaded", "count", len(suggested))

	feedRepo := database.NewFeedRepo(db)
	articleRepo := database.NewArticleRepo(db)

	client := feed.NewClient(appCfg.UserAgent, time.Duration(appCfg.FetchTimeout)*time.Second)
	parser := feed.NewParser()
	scraper := feed.NewScraper()
	ingestor := feed.NewIngestor(client, parser, feedRepo, articleRepo)
	resolver := feed.NewResolver(client, parser)

	handler := api.NewHandler(feedRepo, articleRepo, ingestor, resolver, client, scraper, suggested)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("FeedKeep server shutdown complete")
}
