// Package httpapi serves the editorial tracking API. Every route under
// /api/v1 except the health probe requires the shared admin HTTP Basic
// credentials, and every response uses the jsend envelope.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/innovatopia-jp/sourcedesk/internal/auth"
	"github.com/innovatopia-jp/sourcedesk/internal/db"
	"github.com/innovatopia-jp/sourcedesk/internal/dedup"
	"github.com/innovatopia-jp/sourcedesk/internal/globaltime"
	"github.com/innovatopia-jp/sourcedesk/internal/jobs"
	"github.com/innovatopia-jp/sourcedesk/internal/scrape"
	"github.com/innovatopia-jp/sourcedesk/internal/source"
	"github.com/innovatopia-jp/sourcedesk/internal/suggest"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// suggestProvider is the language-model surface the keyword routes need,
// implemented by *suggest.Adapter.
type suggestProvider interface {
	Keywords(ctx context.Context, title, comment string) (*suggest.Suggestion, error)
	ExpandQuery(ctx context.Context, query string) ([]string, error)
}

// userStore is the user persistence surface, implemented by *db.Pool.
type userStore interface {
	ListUsers(ctx context.Context) ([]db.UserRecord, error)
	GetUser(ctx context.Context, userID int64) (*db.UserRecord, error)
	CreateUser(ctx context.Context, name string) (*db.UserRecord, error)
	RenameUser(ctx context.Context, userID int64, name string) (int64, error)
}

// keywordStore is the keyword listing surface, implemented by *db.Pool.
type keywordStore interface {
	ListKeywordCounts(ctx context.Context) ([]db.KeywordCount, error)
}

type Server struct {
	pool      *db.Pool
	logger    zerolog.Logger
	opts      Options
	creds     *auth.Credentials
	manager   *source.Manager
	detector  *dedup.Detector
	suggester suggestProvider
	scrapes   *scrape.Registry
	runner    *jobs.Runner
	users     userStore
	keywords  keywordStore
}

func NewServer(
	pool *db.Pool,
	logger zerolog.Logger,
	creds *auth.Credentials,
	suggester suggestProvider,
	scrapes *scrape.Registry,
	runner *jobs.Runner,
	opts Options,
) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8080
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// Scrape and LLM calls can legitimately take tens of seconds.
		writeTimeout = 60 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return &Server{
		pool:      pool,
		logger:    logger,
		creds:     creds,
		manager:   source.NewManager(pool),
		detector:  dedup.NewDetector(pool),
		suggester: suggester,
		scrapes:   scrapes,
		runner:    runner,
		users:     pool,
		keywords:  pool,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  allowedOrigins,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	authed := api.Group("", s.requireBasicAuth())
	authed.GET("/users", s.handleListUsers)
	authed.POST("/users", s.handleCreateUser)
	authed.PATCH("/users/:id", s.handleRenameUser)
	authed.GET("/users/:id/state-counts", s.handleUserStateCounts)

	authed.GET("/sources", s.handleListSources)
	authed.POST("/sources", s.handleCreateSource)
	authed.GET("/sources/:id", s.handleGetSource)
	authed.PATCH("/sources/:id", s.handleUpdateSourceContent)
	authed.PATCH("/sources/:id/state", s.handleUpdateSourceState)
	authed.GET("/search-sources", s.handleSearchSources)

	authed.GET("/keywords", s.handleListKeywords)
	authed.GET("/keyword-state-counts", s.handleKeywordStateCounts)
	authed.GET("/search-keywords", s.handleSearchKeywords)
	authed.POST("/detect-keywords", s.handleDetectKeywords)

	authed.POST("/crawl", s.handleCrawl)
	authed.POST("/cron", s.handleCron)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("sourcedesk api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("sourcedesk api server stopped")
	return nil
}

func (s *Server) requireBasicAuth() echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "sourcedesk",
		Validator: func(username, password string, c echo.Context) (bool, error) {
			return s.creds.Verify(username, password), nil
		},
	})
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "sourcedesk",
		"time":    globaltime.UTC(),
	})
}
