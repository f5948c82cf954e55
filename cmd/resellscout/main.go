// Command resellscout runs the source-acquisition pipeline once: it
// discovers the configured marketplaces, fetches candidate items from each,
// benchmarks their resale profitability, and prints the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resellscout/internal/benchmark"
	"resellscout/internal/config"
	"resellscout/internal/domain"
	"resellscout/internal/engine"
	"resellscout/internal/extract"
	"resellscout/internal/fetch"
	"resellscout/internal/fx"
	"resellscout/internal/source"
)

// runOutput is the JSON document produced by a dry run.
type runOutput struct {
	Marketplaces   []domain.MarketplaceSite         `json:"marketplaces"`
	CandidateItems []domain.CandidateItem           `json:"candidate_items"`
	Assessments    []domain.ProfitabilityAssessment `json:"assessments"`
	Diagnostics    []domain.SourceDiagnostics       `json:"source_diagnostics"`
}

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	asJSON := flag.Bool("json", false, "print workflow output as JSON")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	output, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error("run failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		encoded, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			logger.Error("failed to encode output", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(string(encoded))
		return
	}

	fmt.Printf("Discovered marketplaces: %d\n", len(output.Marketplaces))
	fmt.Printf("Candidate items: %d\n", len(output.CandidateItems))
	fmt.Printf("Profitability assessments: %d\n", len(output.Assessments))
}

// run wires the engine from configuration and executes one acquisition
// pass over every configured marketplace.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runOutput, error) {
	capture := fetch.NewCapture(cfg.Debug.CaptureSources, cfg.Debug.Dir, logger)
	client := fetch.NewClient(cfg.Fetch, capture)

	fxService := fx.NewService(cfg.FX, cfg.Fetch.UserAgent, logger)
	if fxService.Refresh(ctx, false) {
		logger.Info("currency rates refreshed")
	}

	extractor := extract.New(fxService)
	shuffler := source.NewShuffler(cfg.Sources.RandomSeed)

	adapters := []source.Adapter{
		source.NewHLJAdapter(client, extractor),
		source.NewNinNinGameAdapter(client, extractor),
		source.NewSurugaYaAdapter(client, extractor, shuffler),
	}

	eng := engine.New(adapters, shuffler, engine.Options{
		AllowFallback:           cfg.Sources.AllowFallback,
		StrictLive:              cfg.Sources.StrictLive,
		ResearchDepthMultiplier: cfg.Sources.ResearchDepthMultiplier,
		FetchTimeout:            time.Duration(cfg.Fetch.TimeoutSeconds * float64(time.Second)),
		FetchRetries:            cfg.Fetch.MaxRetries,
	}, logger)

	eng.ResetDiagnostics()
	results, err := eng.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	output := &runOutput{Marketplaces: eng.Marketplaces()}

	assessor := benchmark.New(client, cfg.Benchmark, logger)
	for _, site := range output.Marketplaces {
		for _, item := range results[site.Name] {
			output.CandidateItems = append(output.CandidateItems, item)
			output.Assessments = append(output.Assessments, assessor.Assess(ctx, item))
		}
	}
	output.Diagnostics = eng.Diagnostics()

	return output, nil
}
