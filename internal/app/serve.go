package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/innovatopia-jp/sourcedesk/internal/auth"
	"github.com/innovatopia-jp/sourcedesk/internal/cli"
	"github.com/innovatopia-jp/sourcedesk/internal/config"
	"github.com/innovatopia-jp/sourcedesk/internal/db"
	"github.com/innovatopia-jp/sourcedesk/internal/httpapi"
	"github.com/innovatopia-jp/sourcedesk/internal/jobs"
	"github.com/innovatopia-jp/sourcedesk/internal/llm"
	"github.com/innovatopia-jp/sourcedesk/internal/logging"
	"github.com/innovatopia-jp/sourcedesk/internal/scrape"
	"github.com/innovatopia-jp/sourcedesk/internal/suggest"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8080, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
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

	creds, err := auth.NewCredentials(cfg.AdminUser, cfg.AdminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load admin credentials: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	scrapes, err := buildScrapeRegistry(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to build scrape providers")
		fmt.Fprintf(os.Stderr, "Failed to build scrape providers: %v\n", err)
		return 1
	}

	runner, err := buildJobRunner(pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to register jobs")
		fmt.Fprintf(os.Stderr, "Failed to register jobs: %v\n", err)
		return 1
	}

	suggester := suggest.NewAdapter(llm.NewClient(cfg.OpenAIEndpoint, cfg.OpenAIToken, cfg.OpenAIModel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	srv := httpapi.NewServer(pool, logger, creds, suggester, scrapes, runner, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}

// buildScrapeRegistry wires the configured providers. Firecrawl becomes the
// default when a key is configured; local readability extraction is always
// available as a fallback.
func buildScrapeRegistry(cfg *config.Config) (*scrape.Registry, error) {
	defaultProvider := "readability"
	if cfg.FirecrawlAPIKey != "" {
		defaultProvider = "firecrawl"
	}

	registry := scrape.NewRegistry(defaultProvider)
	if cfg.FirecrawlAPIKey != "" {
		if err := registry.Register(scrape.NewFirecrawlProvider(cfg.FirecrawlAPIKey)); err != nil {
			return nil, fmt.Errorf("register firecrawl provider: %w", err)
		}
	}
	if err := registry.Register(scrape.NewReadabilityProvider()); err != nil {
		return nil, fmt.Errorf("register readability provider: %w", err)
	}
	return registry, nil
}

func buildJobRunner(pool *db.Pool, logger zerolog.Logger) (*jobs.Runner, error) {
	runner := jobs.NewRunner(logger)
	if err := runner.Register(jobs.HeartbeatName, jobs.Heartbeat(pool, logger)); err != nil {
		return nil, fmt.Errorf("register %s: %w", jobs.HeartbeatName, err)
	}
	return runner, nil
}
