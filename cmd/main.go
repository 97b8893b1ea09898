package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/activity"
	"github.com/bilgisen/autowriter/internal/ai"
	"github.com/bilgisen/autowriter/internal/api"
	"github.com/bilgisen/autowriter/internal/bulk"
	"github.com/bilgisen/autowriter/internal/config"
	"github.com/bilgisen/autowriter/internal/images"
	"github.com/bilgisen/autowriter/internal/importer"
	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/middleware"
	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/pipeline"
	"github.com/bilgisen/autowriter/internal/scheduler"
	"github.com/bilgisen/autowriter/internal/store"
	"github.com/bilgisen/autowriter/internal/store/memory"
	"github.com/bilgisen/autowriter/internal/store/postgres"
	"github.com/bilgisen/autowriter/internal/trigger"
)

func main() {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	output := "stdout"
	if cfg.LogFile != "" {
		output = cfg.LogFile
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: !cfg.IsProduction(),
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Str("timezone", cfg.Timezone).Msg("Starting application...")

	// base is cancelled on shutdown; bulk runs observe it at step boundaries
	base, stopRuns := context.WithCancel(context.Background())
	defer stopRuns()

	s, closeStore := openStore(cfg, log)
	defer closeStore()

	var (
		recorder activity.Recorder = activity.NewLogRecorder()
		reader   api.ActivityReader
	)
	if cfg.RedisURL != "" {
		client, err := activity.Connect(base, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis client")
		}
		redisLog := activity.NewRedisLog(client, cfg.RedisPrefix, cfg.ActivityMaxEntries)
		defer func() {
			log.Info().Msg("Closing Redis client...")
			if err := redisLog.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing Redis client")
			}
		}()
		recorder, reader = redisLog, redisLog
	}

	gemini := ai.NewGeminiClient(ai.GeminiConfig{
		APIKey:  cfg.AIApiKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	})
	improvers := map[models.ImprovementProvider]pipeline.Improver{
		models.ImproveWithGemini: gemini,
	}
	if cfg.AnthropicAPIKey != "" {
		improvers[models.ImproveWithClaude] = ai.NewClaudeImprover(ai.ClaudeConfig{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: int64(cfg.AIMaxTokens),
		})
	}

	deps := pipeline.Deps{
		Generator: gemini,
		Improvers: improvers,
		Activity:  recorder,
	}
	if cfg.UnsplashAccessKey != "" {
		var mirror *images.R2Mirror
		if cfg.MirrorEnabled() {
			r2 := images.R2Config{
				Endpoint:  cfg.R2Endpoint,
				AccessKey: cfg.R2AccessKey,
				SecretKey: cfg.R2SecretKey,
				Bucket:    cfg.R2Bucket,
				PublicURL: cfg.R2PublicURL,
			}
			client, err := images.NewR2Client(base, r2)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize R2 client")
			}
			mirror = images.NewR2Mirror(client, r2)
		}
		deps.Illustrator = images.NewUnsplashProvider(cfg.UnsplashAccessKey, "", mirror)
	} else {
		log.Warn().Msg("UNSPLASH_ACCESS_KEY not set, articles get no images")
	}

	pipe := pipeline.New(s, deps)
	generate := scheduler.NewGeneratePass(s, pipe, cfg.Location())
	publish := scheduler.NewPublishPass(s, recorder)
	sweeper := scheduler.NewSweeper(s.Keywords, recorder, cfg.StuckKeywordAfter)
	runs := bulk.NewManager(base, s, bulk.NewOrchestrator(pipe,
		bulk.NewFinalizer(cfg.BulkFinalizeURL, cfg.HTTPTimeout), cfg.BulkStepTimeout))

	var jobs *trigger.Runner
	if cfg.TriggerEnabled {
		jobs = trigger.New(cfg.Location())
		must(log, jobs.Add("generate", cfg.TriggerGenerateSpec, func(ctx context.Context, now time.Time) error {
			_, err := generate.Run(ctx, now)
			return err
		}))
		must(log, jobs.Add("publish", cfg.TriggerPublishSpec, func(ctx context.Context, now time.Time) error {
			_, err := publish.Run(ctx, now)
			return err
		}))
		must(log, jobs.Add("sweep", cfg.TriggerSweepSpec, func(ctx context.Context, now time.Time) error {
			_, err := sweeper.Sweep(ctx, now)
			return err
		}))
		jobs.Start()
	}

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: 0, // progress streams stay open for the whole run
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	// Setup API routes
	api.SetupRoutes(app, api.NewHandlers(api.Deps{
		Config:   cfg,
		Store:    s,
		Generate: generate,
		Publish:  publish,
		Sweeper:  sweeper,
		Bulk:     runs,
		Importer: importer.New(s),
		Activity: reader,
	}))

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if jobs != nil {
		if err := jobs.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("Trigger jobs still running")
		}
	}

	// A running bulk run stops after its current step
	stopRuns()
	if err := runs.Wait(ctx); err != nil {
		log.Error().Err(err).Msg("Bulk run did not stop in time")
	}

	log.Info().Msg("Server exited properly")
}

func openStore(cfg *config.Config, log *zerolog.Logger) (*store.Store, func()) {
	if cfg.DatabaseDriver == config.DriverMemory {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return memory.New().Store(), func() {}
	}

	db, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	applied, err := postgres.MigrateUp(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Bool("applied", applied).Msg("Database migrations checked")

	return postgres.NewStore(db), func() {
		log.Info().Msg("Closing database...")
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}
}

func must(log *zerolog.Logger, err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid trigger schedule")
	}
}
