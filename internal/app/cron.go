package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/innovatopia-jp/sourcedesk/internal/cli"
	"github.com/innovatopia-jp/sourcedesk/internal/config"
	"github.com/innovatopia-jp/sourcedesk/internal/db"
	"github.com/innovatopia-jp/sourcedesk/internal/jobs"
	"github.com/innovatopia-jp/sourcedesk/internal/logging"
)

func runCron(args []string) int {
	fs := flag.NewFlagSet("cron", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Overall job run timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("cron failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	runner, err := buildJobRunner(pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("cron failed to register jobs")
		fmt.Fprintf(os.Stderr, "Failed to register jobs: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	jobNames := fs.Args()
	var results []jobs.Result
	if len(jobNames) > 0 {
		results = runner.Run(ctx, jobNames)
	} else {
		results = runner.RunAll(ctx)
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Printf("job=%s run_id=%s status=failed error=%q\n", result.Name, result.RunID, result.Err.Error())
			continue
		}
		fmt.Printf("job=%s run_id=%s status=ok duration=%s\n", result.Name, result.RunID, result.Duration)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d jobs failed\n", failed, len(results))
		return 1
	}
	return 0
}
