// assistant-engine - conversational assistant session service for the
// Shoply storefront.
//
// Boot order: .env, YAML config, logging, catalog snapshot, ledger, provider
// client, session manager, HTTP server. SIGINT/SIGTERM drain the server.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shoply/assistant-engine/internal/budget"
	"github.com/shoply/assistant-engine/internal/catalog"
	"github.com/shoply/assistant-engine/internal/config"
	"github.com/shoply/assistant-engine/internal/monitoring"
	"github.com/shoply/assistant-engine/internal/provider"
	"github.com/shoply/assistant-engine/internal/server"
	"github.com/shoply/assistant-engine/internal/session"
	"github.com/shoply/assistant-engine/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	debugFlag := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging, *debugFlag)

	snapshot := loadCatalog(cfg.Catalog)
	ledger := budget.NewLedger(budget.USDToNano(*cfg.Budget.CeilingUSD))
	rates := budget.NewRates(cfg.Budget.InputRatePer1K, cfg.Budget.OutputRatePer1K)
	metrics := monitoring.NewCollector()

	var opts []provider.Option
	if cfg.Provider.Temperature != nil {
		opts = append(opts, provider.WithTemperature(*cfg.Provider.Temperature))
	}
	client := provider.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		cfg.Provider.Model,
		cfg.Provider.MaxTokens,
		cfg.Provider.Timeout.Std(),
		opts...,
	)

	registry := session.NewRegistry(cfg.Assistant.SessionTTL.Std(), config.DefaultSweepInterval)
	manager := session.NewManager(
		registry, snapshot, client, provider.NewTokenCounter(), ledger, rates, metrics,
		session.Config{
			HistoryWindow:       cfg.Assistant.HistoryWindow,
			RetrievalK:          cfg.Assistant.RetrievalK,
			MaxCompletionTokens: cfg.Provider.MaxTokens,
		},
	)

	srv := server.New(cfg.Server, manager, ledger, metrics)

	log.Info().
		Int("port", cfg.Server.Port).
		Float64("budget_usd", *cfg.Budget.CeilingUSD).
		Str("model", cfg.Provider.Model).
		Str("api_key", utils.MaskKey(cfg.Provider.APIKey)).
		Int("catalog_items", snapshotLen(snapshot)).
		Msg("Assistant engine starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown did not drain cleanly")
		}
	}
}

// setupLogging configures the global zerolog logger and redirects the
// standard library logger (used by net/http) into the same sink.
func setupLogging(cfg config.LoggingConfig, debug bool) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	stdlog.SetOutput(log.Logger)
}

// loadCatalog reads the catalog snapshot; a missing path or load failure
// degrades to an empty catalog rather than refusing to boot.
func loadCatalog(cfg config.CatalogConfig) *catalog.Snapshot {
	if cfg.Path == "" {
		log.Warn().Msg("No catalog configured, retrieval will return no context")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshot, err := catalog.LoadSnapshot(ctx, cfg.Path)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Path).Msg("Catalog load failed, continuing without context")
		return nil
	}
	return snapshot
}

func snapshotLen(s *catalog.Snapshot) int {
	if s == nil {
		return 0
	}
	return s.Len()
}
