package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"planforge/aiprovider"
	"planforge/core"
	"planforge/core/validation"
	"planforge/db"
	"planforge/floorplan"
	"planforge/logging"
	"planforge/materials"
	"planforge/metrics"
	"planforge/pipeline"
	"planforge/render"
	"planforge/shutdown"
	"planforge/texturecache"
)

func main() {
	// Service management commands (install/uninstall/...) short-circuit.
	if HandleServiceCommand(os.Args) {
		return
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"

	logger, err := logging.NewLogger(isDevelopment, "planforge.log")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
	}()

	if exitCode := runStartupValidation(logger); exitCode != core.ExitCodeSuccess {
		os.Exit(exitCode)
	}

	// When launched by the OS service manager, the service wrapper drives
	// the run loop; interactively it falls through to run().
	if asService, err := RunAsService(); asService {
		if err != nil {
			logger.Error("Service run failed", zap.Error(err))
			os.Exit(core.ExitCodeError)
		}
		return
	}

	os.Exit(run(context.Background(), logger, isDevelopment))
}

// run wires the pipeline service and blocks until shutdown: an OS signal,
// a service-manager stop (parent context), or a fatal wiring error.
// Returns the process exit code.
func run(parent context.Context, logger *logging.Logger, isDevelopment bool) int {
	config, err := core.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return core.ExitCodeError
	}

	logger.Info("Configuration loaded",
		zap.String("intake_dir", config.IntakeDir),
		zap.String("renders_dir", config.RendersDir),
		zap.String("database_path", config.DatabasePath),
		zap.Strings("render_viewpoints", config.RenderViewpoints),
		zap.Int("max_retries", config.MaxRetries),
		zap.Duration("ai_timeout", config.AITimeout),
		zap.Bool("allow_self_signed_certs", config.AllowSelfSignedCerts),
		zap.Bool("dev_mode", isDevelopment),
	)

	sd := shutdown.NewManager(logger)
	sd.Start()

	// The run context ends on the first OS signal or when the service
	// manager asks for a stop.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go func() {
		sd.Wait()
		cancel()
	}()

	store := metrics.NewStore(metrics.DefaultStoreConfig(), time.Now())

	// Persistence
	database, err := db.New(config)
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return core.ExitCodeError
	}
	if err := database.Migrate(); err != nil {
		logger.Error("Failed to apply migrations", zap.Error(err))
		database.Close()
		return core.ExitCodeError
	}
	writer := db.NewAsyncRenderWriter(database.DB(), logger)
	writer.Start()
	repo := db.NewRepository(database.DB(), writer, logger)

	database.StartCleanupScheduler(ctx, db.CleanupSchedulerConfig{
		RetentionDays: config.RetentionDays,
		Interval:      config.CleanupInterval,
		OnCleanup: func(result db.CleanupResult, err error) {
			if err != nil {
				logger.Warn("Retention cleanup failed", zap.Error(err))
				return
			}
			if result.SessionsDeleted > 0 || result.RenderRecordsDeleted > 0 {
				logger.Info("Retention cleanup complete",
					zap.Int64("sessions_deleted", result.SessionsDeleted),
					zap.Int64("render_records_deleted", result.RenderRecordsDeleted),
					zap.Duration("duration", result.Duration))
			}
		},
	})

	// AI providers: offline is always registered so analysis never lacks a
	// fallback; OpenAI joins when credentials are configured.
	providers := aiprovider.NewManager(config.FailoverOrder, logger)
	if err := providers.Register(aiprovider.NewOfflineProvider()); err != nil {
		logger.Error("Failed to register offline provider", zap.Error(err))
		return core.ExitCodeError
	}
	if config.OpenAIAPIKey != "" {
		openai, err := aiprovider.NewOpenAIProvider(config)
		if err != nil {
			logger.Warn("OpenAI provider unavailable", zap.Error(err))
		} else if err := providers.Register(openai); err != nil {
			logger.Warn("Failed to register OpenAI provider", zap.Error(err))
		}
	}

	// Texture cache with periodic metrics sampling
	cache := texturecache.NewCache(texturecache.NewHTTPFetcher(config), logger)
	cacheCollector := metrics.NewCacheCollector(func() metrics.CacheMetrics {
		stats := cache.Stats()
		return metrics.CacheMetrics{
			Hits:      stats.Hits,
			Misses:    stats.Misses,
			Coalesced: stats.Coalesced,
			Entries:   stats.Entries,
		}
	}, store, metrics.DefaultCacheCollectorConfig())
	cacheCollector.Start(ctx)

	// Pipeline stages
	library, err := materials.NewLibrary(config.MaterialLibraryPath)
	if err != nil {
		logger.Error("Failed to load material library", zap.Error(err))
		return core.ExitCodeError
	}
	engine, err := render.NewPreviewEngine(config)
	if err != nil {
		logger.Error("Failed to create render engine", zap.Error(err))
		return core.ExitCodeError
	}

	pipe := pipeline.New(pipeline.Deps{
		Config:       config,
		Analyzer:     floorplan.NewAnalyzer(config, providers, logger),
		Applicator:   materials.NewApplicator(library, cache, logger),
		Orchestrator: render.NewOrchestrator(engine, render.DefaultRegistry(), logger),
		Providers:    providers,
		Repo:         repo,
		Collector:    store,
		Logger:       logger,
	})

	watcher := NewWatcher(config, pipe, sd, logger)
	go watcher.Start(ctx)

	// Cleanup handlers, lowest priority first.
	sd.Register("texture-cache", 10, func(ctx context.Context) error {
		cache.Clear()
		return nil
	})
	sd.Register("cache-collector", 20, func(ctx context.Context) error {
		cacheCollector.Stop()
		return nil
	})
	sd.Register("render-writer", 25, func(ctx context.Context) error {
		if !writer.StopWithTimeout(10 * time.Second) {
			return fmt.Errorf("render writer did not drain in time")
		}
		return nil
	})
	sd.Register("database", 30, func(ctx context.Context) error {
		return database.Close()
	})
	sd.Register("temp-uploads", 45, shutdown.CleanupTempUploads(logger, config.WorkDir))

	logger.Info("PlanForge pipeline service started")

	<-ctx.Done()

	<-watcher.Done()
	if err := sd.Shutdown(); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		return core.ExitCodeError
	}
	logger.Info("Goodbye!")
	return core.ExitCodeSuccess
}

// runStartupValidation runs the configuration validation suite before any
// heavy initialization.
//
// Returns the appropriate exit code:
//   - ExitCodeSuccess (0) if all validations pass
//   - ExitCodeError (1) if any validation fails
func runStartupValidation(logger *logging.Logger) int {
	logger.Info("Starting startup validation...")

	suite := validation.NewValidationSuite().
		WithShowProgress(true)

	result := suite.Validate()

	if !result.Success {
		logger.Error("Configuration validation failed",
			zap.Int("passed", result.PassedSteps),
			zap.Int("failed", result.FailedSteps),
			zap.Duration("duration", result.Duration),
		)

		for _, step := range result.Steps {
			if step.Status == validation.StepFailed {
				logger.Error("Validation step failed",
					zap.String("step", step.Name),
					zap.String("message", step.Message),
					zap.Error(step.Error),
				)
			}
		}
		return core.ExitCodeError
	}

	logger.Info("Configuration validation passed",
		zap.Int("checks_passed", result.PassedSteps),
		zap.Int("warnings", result.Warnings),
		zap.Duration("duration", result.Duration),
	)
	return core.ExitCodeSuccess
}
