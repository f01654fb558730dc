package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/skimzy/skimzy/internal/api/handlers"
	"github.com/skimzy/skimzy/internal/api/middleware"
	"github.com/skimzy/skimzy/internal/config"
	"github.com/skimzy/skimzy/internal/database"
	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/extract"
	"github.com/skimzy/skimzy/internal/jobs"
	"github.com/skimzy/skimzy/internal/repository"
	"github.com/skimzy/skimzy/internal/server"
	"github.com/skimzy/skimzy/internal/service"
	"github.com/skimzy/skimzy/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the skimzy API server and the background reindex worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides SKIMZY_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", database.DefaultMigrationsSource, "Migration source URL")
	cmd.Flags().Bool("no-worker", false, "Do not run the reindex worker in this process")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		source, _ := cmd.Flags().GetString("migrations")
		if err := database.Migrate(cfg.DatabaseURL, source); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	authSvc := a.authService()
	if cfg.InitUserEmail != "" {
		user, err := authSvc.Bootstrap(ctx, cfg.InitUserEmail, cfg.InitAPIKey)
		if err != nil {
			return fmt.Errorf("failed to bootstrap initial user: %w", err)
		}
		log.Info().Int64("user_id", user.ID).Str("email", user.Email).Bool("api_key", cfg.InitAPIKey != "").Msg("bootstrap user ready")
	}

	itemRepo := repository.NewLibraryItemRepository(a.pool)
	jobRepo := repository.NewReindexJobRepository(a.pool)
	storageClient := a.storageClient()

	querySvc := service.NewQueryService(
		itemRepo,
		repository.NewChatTurnRepository(a.pool),
		a.model,
		a.index,
		a.model,
		service.QueryConfig{SearchLimit: cfg.SearchLimit, Timeouts: a.timeouts()},
	)
	librarySvc := service.NewLibraryService(itemRepo, a.index, storageClient, cfg.VectorTimeout)
	reindexSvc := a.reindexService()

	var worker *jobs.Worker
	var notifier service.JobNotifier
	if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker {
		worker = jobs.NewWorker("reindex",
			jobs.NewReindexWorker(jobRepo, reindexSvc, cfg.ReindexBatchSize),
			cfg.ReindexPollInterval,
		)
		notifier = worker
	}

	ingestSvc := service.NewIngestionService(service.IngestionDeps{
		Items:     itemRepo,
		TxRunner:  repository.NewTxRunner(a.pool),
		Generator: a.model,
		Embedder:  a.model,
		Index:     a.index,
		Extractor: a.webExtractor(),
		PDF:       extract.PDF{},
		Storage:   storageClient,
		Notifier:  notifier,
	}, service.IngestionConfig{
		Chunk:    a.chunkConfig(),
		Timeouts: a.timeouts(),
	})

	g, gctx := errgroup.WithContext(ctx)

	var reindexer handlers.Reindexer = reindexSvc
	if worker != nil {
		reindexer = wakingReindexer{Reindexer: reindexSvc, worker: worker}
		g.Go(func() error {
			worker.Start(gctx)
			return nil
		})
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:  authSvc,
		RateLimiter:    newRateLimiter(cfg),
		IngestHandler:  handlers.NewIngestHandler(ingestSvc),
		LibraryHandler: handlers.NewLibraryHandler(librarySvc, reindexer),
		ChatHandler:    handlers.NewChatHandler(querySvc),
		AuthHandler:    handlers.NewAuthHandler(authSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server exited")
	return nil
}

// initTelemetry starts Sentry when a DSN is configured. Failure only disables tracing.
func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	sampleRate := 0.1
	if !cfg.IsProduction() {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          cfg.SentryRelease,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Warn().Err(err).Msg("telemetry init failed, continuing without tracing")
		return func() {}
	}
	return shutdown
}

func newRateLimiter(cfg *config.Config) *middleware.KeyedRateLimiter {
	if cfg.RateLimitPerSecond <= 0 {
		return nil
	}
	return middleware.NewKeyedRateLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
}

// wakingReindexer nudges the in-process worker after a job is queued so
// API-triggered reindexes do not wait for the next poll.
type wakingReindexer struct {
	handlers.Reindexer
	worker interface{ Notify() }
}

func (r wakingReindexer) Enqueue(ctx context.Context, libraryItemID int64) (*domain.ReindexJob, error) {
	job, err := r.Reindexer.Enqueue(ctx, libraryItemID)
	if err == nil {
		r.worker.Notify()
	}
	return job, err
}
