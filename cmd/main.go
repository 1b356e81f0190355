// Command faeweave runs the interactive narrative engine server.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/maraval/faeweave/internal/api"
	"github.com/maraval/faeweave/internal/config"
	"github.com/maraval/faeweave/internal/db"
	"github.com/maraval/faeweave/internal/llm"
	"github.com/maraval/faeweave/internal/middleware"
	"github.com/maraval/faeweave/internal/worldbook"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer database.Close()

	book := worldbook.Default()
	if cfg.WorldbookPath != "" {
		book, err = worldbook.Load(cfg.WorldbookPath)
		if err != nil {
			slog.Error("failed to load worldbook", "path", cfg.WorldbookPath, "error", err)
			os.Exit(1)
		}
		slog.Info("loaded worldbook", "path", cfg.WorldbookPath)
	}

	if cfg.OpenRouterKey == "" {
		slog.Warn("OPENROUTER_API_KEY not set; scene generation will fail")
	}
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set; auth disabled, all requests run as public")
	}

	client := llm.NewClient(cfg.OpenRouterKey)
	auth := middleware.NewAuth(cfg.JWTSecret)

	defaults := llm.Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	server := api.NewServer(database, client, book, defaults, auth)

	addr := ":" + cfg.Port
	slog.Info("starting server", "addr", addr, "model", defaults.Model)

	if err := http.ListenAndServe(addr, server); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
