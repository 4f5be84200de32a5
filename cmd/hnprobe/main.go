// Command hnprobe acquires the Hacker News front page through one or
// more scraping strategies, compares their network telemetry, and writes
// the results as CSV, gzip NDJSON, and optionally a SQLite archive.
//
// Usage:
//
//	hnprobe                                  # all strategies, ./data output
//	hnprobe -methods api,html -limit 10
//	hnprobe -config hnprobe.yaml -db runs.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/hnprobe/export"
	"github.com/hazyhaar/hnprobe/scrape"
	"github.com/hazyhaar/hnprobe/store"
)

func main() {
	// Optional .env for local overrides; absence is fine.
	godotenv.Load()

	configPath := flag.String("config", "", "path to hnprobe.yaml tuning file")
	methods := flag.String("methods", "api,html,browser", "comma-separated strategies to run")
	limit := flag.Int("limit", 30, "number of front-page items to acquire")
	outDir := flag.String("out", envOr("HNPROBE_OUT_DIR", "data"), "output directory for CSV/NDJSON")
	dbPath := flag.String("db", os.Getenv("HNPROBE_DB_PATH"), "SQLite archive path (empty = no archive)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *methods, *limit, *outDir, *dbPath); err != nil {
		logger.Error("hnprobe: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, methods string, limit int, outDir, dbPath string) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	cfg := &scrape.Config{}
	if configPath != "" {
		var err error
		cfg, err = scrape.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	cfg.API.Logger = logger
	cfg.HTML.Logger = logger
	cfg.Browser.Logger = logger

	var archive *store.Store
	if dbPath != "" {
		var err error
		archive, err = store.Open(dbPath)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	registry := scrape.Registry(*cfg)

	// One strategy failing hard, in the run or in landing its outputs,
	// must not block the others.
	attempted, failed := 0, 0
	for _, name := range strings.Split(methods, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s, ok := registry[name]
		if !ok {
			return fmt.Errorf("unknown method %q", name)
		}
		attempted++

		startedAt := time.Now()
		logger.Info("hnprobe: run starting", "method", name, "limit", limit)
		res, err := s.Run(ctx, limit)
		if err != nil {
			logger.Error("hnprobe: run failed", "method", name, "error", err)
			failed++
			continue
		}
		logger.Info("hnprobe: run complete",
			"method", name,
			"records", len(res.Records),
			"requests", res.Stats.TotalRequests,
			"bytes", res.Stats.TotalBytes,
			"avg_latency_ms", res.Stats.AvgLatencyMS,
			"total_time_s", res.Stats.TotalTimeS)

		if err := writeOutputs(outDir, name, res); err != nil {
			logger.Error("hnprobe: write outputs failed", "method", name, "error", err)
			failed++
			continue
		}
		if archive != nil {
			if _, err := archive.SaveResult(ctx, startedAt, res); err != nil {
				logger.Error("hnprobe: archive failed", "method", name, "error", err)
				failed++
				continue
			}
		}
	}

	if attempted == 0 {
		return fmt.Errorf("no methods selected")
	}
	if failed == attempted {
		return fmt.Errorf("all %d strategies failed", failed)
	}
	return nil
}

func writeOutputs(outDir, method string, res *scrape.Result) error {
	if err := export.WriteRecordsCSV(filepath.Join(outDir, method+"_records.csv"), res.Records); err != nil {
		return err
	}
	if err := export.AppendStatsCSV(filepath.Join(outDir, "stats.csv"), res.Stats); err != nil {
		return err
	}
	return export.WriteEventsNDJSON(filepath.Join(outDir, method+"_events.ndjson.gz"), res.Events)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
