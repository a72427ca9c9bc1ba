package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/draftforge/draftforge/internal/generator"
	"github.com/draftforge/draftforge/internal/logger"
	"github.com/draftforge/draftforge/internal/server"
	memorystore "github.com/draftforge/draftforge/internal/store/memory"
	postgresstore "github.com/draftforge/draftforge/internal/store/postgres"
	"github.com/draftforge/draftforge/internal/telemetry"
	"github.com/draftforge/draftforge/internal/tools"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"DRAFTFORGE_LISTEN"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:3000" env:"DRAFTFORGE_CORS_ORIGINS"`

	// Operational modes
	Telemetry               bool          `help:"enable OTLP metrics and traces" default:"false" env:"DRAFTFORGE_TELEMETRY"`
	TelemetrySampleRatio    float64       `help:"fraction of traces to sample" default:"1.0" env:"DRAFTFORGE_TELEMETRY_SAMPLE_RATIO"`
	TelemetryMetricInterval time.Duration `help:"metric export interval" default:"10s" env:"DRAFTFORGE_TELEMETRY_METRIC_INTERVAL"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"DRAFTFORGE_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Gemini        GeminiFlags        `embed:"" prefix:"gemini-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"DRAFTFORGE_POSTGRES_AUTO_MIGRATE"`
}

type GeminiFlags struct {
	APIKey     string        `help:"Gemini API key" env:"GEMINI_API_KEY"`
	Model      string        `help:"Gemini model name" default:"gemini-2.0-flash" env:"DRAFTFORGE_GEMINI_MODEL"`
	Timeout    time.Duration `help:"timeout for generation calls" default:"30s" env:"DRAFTFORGE_GEMINI_TIMEOUT"`
	MaxRetries uint          `help:"max attempts for transient generation failures" default:"3"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Telemetry {
		shutdown, err := telemetry.InitTelemetry(ctx, "draftforge-server", globals.Version, &telemetry.Config{
			SampleRatio:    c.TelemetrySampleRatio,
			MetricInterval: c.TelemetryMetricInterval,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	// Create stores based on store type
	var stores server.Stores

	switch c.StoreType {
	case "postgres":
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		})
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		stores = server.Stores{
			Accounts:      postgresstore.NewAccountStore(pool),
			Organizations: postgresstore.NewOrganizationStore(pool),
			Ledger:        postgresstore.NewLedgerStore(pool),
		}
		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

	default:
		backend := memorystore.NewBackend()
		stores = server.Stores{
			Accounts:      backend.Accounts(),
			Organizations: backend.Organizations(),
			Ledger:        backend.Ledger(),
		}
		log.Info().Msg("Using in-memory stores")
	}

	gen, err := generator.NewGeminiGenerator(generator.GeminiConfig{
		APIKey:     c.Gemini.APIKey,
		Model:      c.Gemini.Model,
		Timeout:    c.Gemini.Timeout,
		MaxRetries: c.Gemini.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	runner := tools.NewRunner(gen, stores.Ledger)

	handler := server.NewServer(stores, runner).Handler(log, c.CORSOrigins)
	httpServer := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
