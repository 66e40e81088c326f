package app

import (
	"context"
	"fmt"

	"github.com/upb/llm-router/config"
	"github.com/upb/llm-router/middleware"
	"github.com/upb/llm-router/repositories"
	"github.com/upb/llm-router/repositories/postgres"
	"github.com/upb/llm-router/services/classifier"
	"github.com/upb/llm-router/services/decisionlog"
	"github.com/upb/llm-router/services/executors"
	"github.com/upb/llm-router/services/features"
	"github.com/upb/llm-router/services/policy"
	"github.com/upb/llm-router/services/registry"
	"github.com/upb/llm-router/services/routing"
	"github.com/upb/llm-router/services/scoring"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	PolicyRepo   repositories.PolicyRepository
	DecisionRepo repositories.DecisionRepository

	// Routing pipeline
	Registry    *registry.Registry
	Classifier  *classifier.HTTPClassifier
	Extractor   *features.Extractor
	PolicyStore *policy.Store
	Abilities   *scoring.AbilityStore
	Engine      *scoring.Engine
	DecisionLog *decisionlog.Service
	Router      *routing.Router

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initRegistry(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize executor registry: %w", err)
	}

	if err := deps.initPipeline(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize routing pipeline: %w", err)
	}

	deps.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, schema and repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	d.DB = db

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.PolicyRepo = postgres.NewPolicyRepository(db, d.Logger)
	d.DecisionRepo = postgres.NewDecisionRepository(db, d.Logger)

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRegistry initializes the executor registry and registers any
// bootstrap executors before the probe loop starts.
func (d *Dependencies) initRegistry(ctx context.Context, cfg *config.Config) error {
	factory := executors.NewFactory(cfg.Registry.ProbeTimeout)
	d.Registry = registry.NewRegistry(registry.Config{
		ProbeInterval: cfg.Registry.ProbeInterval,
		ProbeTimeout:  cfg.Registry.ProbeTimeout,
		EvictionGrace: cfg.Registry.EvictionGrace,
	}, factory, d.Logger)

	descriptors, err := config.LoadBootstrapExecutors(cfg.Registry.BootstrapFile)
	if err != nil {
		return fmt.Errorf("failed to load bootstrap executors: %w", err)
	}

	for _, descriptor := range descriptors {
		// A bad bootstrap entry is logged and skipped, never fatal
		if err := d.Registry.Register(ctx, descriptor); err != nil {
			d.Logger.Warn("skipping bootstrap executor",
				zap.String("executor_id", descriptor.ID),
				zap.Error(err))
		}
	}

	return nil
}

// initPipeline initializes the classifier, policy store, scoring engine,
// decision log and the router on top of them
func (d *Dependencies) initPipeline(cfg *config.Config) error {
	clf, err := classifier.NewHTTPClassifier(classifier.Config{
		BaseURL:      cfg.Classifier.BaseURL,
		Timeout:      cfg.Classifier.Timeout,
		CacheTTL:     cfg.Classifier.CacheTTL,
		CacheMaxCost: cfg.Classifier.CacheMaxCost,
	}, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create classifier client: %w", err)
	}
	d.Classifier = clf

	d.Extractor = features.NewExtractor(features.DefaultConfig())

	d.PolicyStore = policy.NewStore(policy.Config{
		CacheSize:    cfg.Policy.CacheSize,
		CacheTTL:     cfg.Policy.CacheTTL,
		FetchTimeout: cfg.Policy.FetchTimeout,
	}, d.PolicyRepo, d.Logger)

	d.Abilities = scoring.NewAbilityStore(d.Logger)
	if cfg.Scoring.CheckpointFile != "" {
		if err := d.Abilities.LoadFile(cfg.Scoring.CheckpointFile); err != nil {
			return fmt.Errorf("failed to load ability checkpoint: %w", err)
		}
	} else {
		d.Logger.Warn("no ability checkpoint configured, all candidates score with the missing-ability penalty")
	}

	d.Engine = scoring.NewEngine(scoring.Config{
		MissingAbilityPenalty: cfg.Scoring.MissingAbilityPenalty,
		CostWeight:            cfg.Scoring.CostWeight,
	}, d.Abilities, scoring.NewHeuristicMapper())

	d.DecisionLog = decisionlog.NewService(decisionlog.Config{
		BufferSize:   cfg.DecisionLog.BufferSize,
		WorkerCount:  cfg.DecisionLog.WorkerCount,
		WriteTimeout: cfg.DecisionLog.WriteTimeout,
	}, d.DecisionRepo, d.Logger)

	d.Router = routing.NewRouter(routing.Config{
		FallbackDomain: cfg.Router.FallbackDomain,
		FallbackAction: cfg.Router.FallbackAction,
	}, d.Classifier, d.Extractor, d.PolicyStore, d.Registry, d.Engine, d.DecisionLog, d.Logger)

	return nil
}

// Start launches the background components: the registry probe loop and
// the decision log workers
func (d *Dependencies) Start() error {
	if err := d.DecisionLog.Start(); err != nil {
		return fmt.Errorf("failed to start decision log: %w", err)
	}
	d.Registry.Start()
	return nil
}

// Close gracefully shuts down all dependencies in reverse order of startup
func (d *Dependencies) Close() error {
	var firstErr error

	d.Registry.Stop()

	if err := d.DecisionLog.Stop(d.Config.Server.ShutdownTimeout); err != nil {
		d.Logger.Error("decision log shutdown failed", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	d.Classifier.Close()

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("database close failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	d.Logger.Info("all dependencies closed")
	return firstErr
}
