package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ginkana-service/internal/app"
	"ginkana-service/internal/config"
	"ginkana-service/internal/domain"
	"ginkana-service/internal/infra/memory"
	pgstore "ginkana-service/internal/infra/postgres"
	redisstore "ginkana-service/internal/infra/redis"
	transport "ginkana-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the hunt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var backing app.Store = memory.NewStore(sampleCatalog())
	if pool != nil {
		backing = pgstore.NewStore(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Cache.CatalogTTL, time.Hour)
	rosterTTL := config.TTLDuration(cfg.Cache.RosterTTL, time.Minute)
	submissionsTTL := config.TTLDuration(cfg.Cache.SubmissionsTTL, 5*time.Second)

	var store app.Store
	if redisClient != nil {
		store = redisstore.NewCachedStore(redisClient, backing, redisstore.TTLs{
			Catalog:     catalogTTL,
			Roster:      rosterTTL,
			Submissions: submissionsTTL,
		})
	} else {
		store = memory.NewCachedStore(backing, memory.TTLs{
			Catalog:     catalogTTL,
			Roster:      rosterTTL,
			Submissions: submissionsTTL,
		})
	}

	plan := app.NewBlockPlan(cfg.Game.BlockSize, cfg.Game.BlockCount, cfg.Game.FinalIDs)
	service := app.NewGameService(store, plan, logger, app.ServiceConfig{
		StoreTimeout:  config.TTLDuration(cfg.Store.Timeout, 5*time.Second),
		RetryAttempts: cfg.Store.RetryAttempts,
		RetryBackoff:  config.TTLDuration(cfg.Store.RetryBackoff, 200*time.Millisecond),
	})
	handler := transport.NewHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("port", finalPort).Msg("starting hunt service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info().Msg("shutting down server")
	case <-ctx.Done():
		logger.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog provides a minimal challenge set so the server runs without
// Postgres; swap in the database-backed store for a real event.
func sampleCatalog() []domain.Challenge {
	return []domain.Challenge{
		{ID: 1, Title: "Town hall year", Description: "Which year was the town hall built?", Type: domain.TypeTrivia, Points: 10, Answer: "1887"},
		{ID: 2, Title: "Fountain code", Description: "Scan the QR at the old fountain", Type: domain.TypeQR, Points: 10, Answer: "FONT-2025"},
		{ID: 3, Title: "River colour", Description: "What colour is the river sign?", Type: domain.TypeTrivia, Points: 10, Answer: "blue|blau"},
		{ID: 4, Title: "Team photo", Description: "Send a team photo at the mill", Type: domain.TypePhoto, Points: 20, Answer: domain.ReviewSentinel},
	}
}
