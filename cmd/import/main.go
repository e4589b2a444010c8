package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/boundaries"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/boundaries/overpass"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/config"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/db"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/logger"
)

func main() {
	var (
		countriesFlag = flag.String("countries", "", "comma-separated country codes or ids (default: all)")
		configPath    = flag.String("config", "", "path to YAML config")
		maxLevel      = flag.Int("max-level", 0, "override the deepest admin_level probed")
		envFile       = flag.String("env", ".env.local", "env file loaded before startup")
	)
	flag.Parse()

	_ = godotenv.Load(*envFile)
	logger.Setup()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("invalid configuration")
	}
	if *maxLevel > 0 {
		cfg.MaxLevel = *maxLevel
	}

	db.Connect()
	boundaries.Init()

	cache := overpass.NewCache(overpass.RedisFromEnv(), cfg.CacheTTL())
	client := overpass.NewClient(overpass.Options{
		BaseURL:    cfg.OverpassURL,
		Timeout:    cfg.Timeout(),
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBase(),
		Cache:      cache,
	})

	store := boundaries.NewStore(db.DB)
	resolver := boundaries.NewResolver(client, store, cfg)
	runner := boundaries.NewRunner(resolver, store, cfg.CountryPause())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.RunAll(ctx, splitSelectors(*countriesFlag))
	if err != nil {
		logger.L().Fatal().Err(err).Msg("import failed")
	}

	fmt.Print(summary.Report())
}

func splitSelectors(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var selectors []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			selectors = append(selectors, part)
		}
	}
	return selectors
}
