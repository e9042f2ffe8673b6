package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/janhq/reno-server/internal/config"
	"github.com/janhq/reno-server/internal/domain/action"
	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/agent/cost"
	"github.com/janhq/reno-server/internal/domain/agent/design"
	"github.com/janhq/reno-server/internal/domain/agent/diy"
	"github.com/janhq/reno-server/internal/domain/agent/product"
	"github.com/janhq/reno-server/internal/domain/chat"
	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/document"
	"github.com/janhq/reno-server/internal/domain/generation"
	"github.com/janhq/reno-server/internal/domain/homecontext"
	"github.com/janhq/reno-server/internal/domain/intent"
	"github.com/janhq/reno-server/internal/domain/llm"
	"github.com/janhq/reno-server/internal/domain/memory"
	"github.com/janhq/reno-server/internal/domain/skill"
	"github.com/janhq/reno-server/internal/domain/workflow"
	"github.com/janhq/reno-server/internal/infrastructure/auth"
	"github.com/janhq/reno-server/internal/infrastructure/cache"
	"github.com/janhq/reno-server/internal/infrastructure/crontab"
	"github.com/janhq/reno-server/internal/infrastructure/database"
	"github.com/janhq/reno-server/internal/infrastructure/imagegen"
	"github.com/janhq/reno-server/internal/infrastructure/llmprovider"
	"github.com/janhq/reno-server/internal/infrastructure/lock"
	"github.com/janhq/reno-server/internal/infrastructure/metrics"
	convrepo "github.com/janhq/reno-server/internal/infrastructure/repository/conversation"
	homerepo "github.com/janhq/reno-server/internal/infrastructure/repository/home"
	memoryrepo "github.com/janhq/reno-server/internal/infrastructure/repository/memory"
	"github.com/janhq/reno-server/internal/infrastructure/storage"
	"github.com/janhq/reno-server/internal/interfaces/httpserver"
	"github.com/janhq/reno-server/internal/interfaces/httpserver/handlers"
	"github.com/janhq/reno-server/internal/interfaces/httpserver/middleware"
	"github.com/janhq/reno-server/internal/interfaces/httpserver/routes"
)

var InfrastructureProvider = wire.NewSet(
	provideDatabase,
	provideLocker,
	provideModel,
	provideModelClient,
	provideMetrics,
	provideFileStore,
	provideAuth,
	convrepo.NewRepository,
	homerepo.NewRepository,
	memoryrepo.NewRepository,
	wire.Bind(new(homecontext.Store), new(*homerepo.Repository)),
	wire.Bind(new(memory.Store), new(*memoryrepo.Repository)),
)

var ServiceProvider = wire.NewSet(
	provideConversationService,
	provideAssembler,
	provideAgents,
	provideChatService,
	memory.NewService,
	provideWorkflow,
	provideSummarySweep,
)

var InterfacesProvider = wire.NewSet(
	routes.RouteProvider,
	provideChatLimiter,
	provideServerOptions,
	httpserver.NewHTTPServer,
	wire.Bind(new(handlers.ChatService), new(*chat.Service)),
	wire.Bind(new(handlers.StreamGauge), new(*metrics.Collectors)),
	wire.Bind(new(handlers.ConversationService), new(conversation.Service)),
)

func provideDatabase(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, func(), error) {
	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        database.LogLevelFor(cfg.LogLevel),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// provideLocker uses Redis when configured so several replicas serialize
// turns on the same conversation.
func provideLocker(ctx context.Context, cfg *config.Config, log zerolog.Logger) (conversation.Locker, func(), error) {
	if cfg.RedisURL == "" {
		log.Info().Msg("conversation lock: in-process")
		return lock.NewLocal(cfg.LockWaitTimeout), func() {}, nil
	}
	redisLock, err := lock.NewRedis(ctx, cfg.RedisURL, cfg.LockTTL, cfg.LockWaitTimeout, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("conversation lock: redis")
	return redisLock, func() { _ = redisLock.Close() }, nil
}

func provideModel(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*llmprovider.Provider, error) {
	return llmprovider.New(ctx, cfg, log)
}

func provideModelClient(p *llmprovider.Provider) llm.Client {
	return p.Client
}

func provideMetrics() *metrics.Collectors {
	return metrics.New(prometheus.DefaultRegisterer)
}

func provideFileStore(cfg *config.Config, log zerolog.Logger) (*storage.LocalStore, error) {
	return storage.NewLocalStore(cfg.UploadsDir, cfg.UploadsBaseURL, cfg.MaxUploadBytes, log)
}

func provideAuth(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, func(), error) {
	v, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return v, v.Close, nil
}

func provideConversationService(db *gorm.DB, conversations *convrepo.Repository, client llm.Client, locker conversation.Locker, log zerolog.Logger) conversation.Service {
	return conversation.NewService(
		conversations,
		convrepo.NewMessageRepository(db, log),
		convrepo.NewSummaryRepository(db),
		conversation.NewSummarizer(client, log),
		locker,
		log,
	)
}

func provideAssembler(cfg *config.Config, store homecontext.Store, model *llmprovider.Provider, log zerolog.Logger) (*homecontext.Assembler, error) {
	bundles, err := cache.NewBundleCache(cfg.ContextCacheSize, cfg.ContextCacheTTL)
	if err != nil {
		return nil, err
	}
	opts := homecontext.Options{MaxChars: cfg.ContextMaxChars, Cache: bundles}
	if cfg.SemanticRanking && model.Embedder != nil {
		opts.Ranker = homecontext.NewVectorRanker(model.Embedder)
	}
	return homecontext.NewAssembler(store, opts, log), nil
}

func provideAgents(cfg *config.Config, store homecontext.Store, client llm.Client, log zerolog.Logger) *agent.Registry {
	scopes := agent.NewScopeAnalyzer(client, log)
	// A nil interface, not a nil *imagegen.Client, keeps the designer on its
	// description-only path.
	var images design.ImageGenerator
	if cfg.ImageServiceURL != "" {
		images = imagegen.NewClient(cfg.ImageServiceURL, cfg.ImageServiceAPIKey, cfg.ImageServiceTimeout)
	}
	return agent.NewRegistry(
		cost.NewEstimator(scopes, log),
		product.NewMatcher(store, scopes, log),
		diy.NewGuider(scopes, log),
		design.NewDesigner(images, scopes, log),
	)
}

func provideWorkflow(db *gorm.DB, log zerolog.Logger) *workflow.Service {
	return workflow.NewService(convrepo.NewWorkflowRepository(db), log)
}

func provideChatService(
	cfg *config.Config,
	conversations conversation.Service,
	locker conversation.Locker,
	client llm.Client,
	assembler *homecontext.Assembler,
	homes homecontext.Store,
	memories *memory.Service,
	workflows *workflow.Service,
	agents *agent.Registry,
	files *storage.LocalStore,
	collectors *metrics.Collectors,
	log zerolog.Logger,
) *chat.Service {
	return chat.NewService(chat.Deps{
		Conversations: conversations,
		Locker:        locker,
		Classifier:    intent.NewClassifier(client, log),
		Assembler:     assembler,
		Homes:         homes,
		Skills:        skill.NewSelector(skill.DefaultCatalog()),
		Memory:        memories,
		Workflow:      workflows,
		Agents:        agents,
		Generator: generation.NewGenerator(client, generation.Options{
			Temperature: cfg.ResponseTemperature,
			MaxTokens:   cfg.ResponseMaxTokens,
		}, log),
		Suggester: action.NewSuggester(cfg.ActionDedupeWindow),
		Documents: document.NewParser(client, log),
		Files:     files,
		Metrics:   collectors,
	}, chat.Config{
		WindowMaxMessages:  cfg.WindowMaxMessages,
		WindowMaxSummaries: cfg.WindowMaxSummaries,
		SummaryThreshold:   cfg.SummaryThreshold,
		ContextTopK:        cfg.ContextTopK,
		DefaultRegion:      cfg.DefaultRegion,
	}, log)
}

func provideSummarySweep(cfg *config.Config, conversations *convrepo.Repository, summaries conversation.Service, log zerolog.Logger) *crontab.Crontab {
	return crontab.NewCrontab(conversations, summaries, crontab.Options{
		Enabled:         cfg.SummarySweepEnabled,
		IntervalMinutes: cfg.SummarySweepInterval,
		Lookback:        cfg.SummarySweepLookback,
		Threshold:       cfg.SummaryThreshold,
	}, log)
}

// provideChatLimiter returns nil when rate limiting is off.
func provideChatLimiter(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimitEnabled {
		return nil
	}
	return middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware()
}

func provideServerOptions(db *gorm.DB, locker conversation.Locker, validator *auth.Validator, collectors *metrics.Collectors) httpserver.Options {
	checks := []httpserver.ReadinessCheck{{
		Name:  "database",
		Check: func(ctx context.Context) error { return database.Ping(db) },
	}}
	if pinger, ok := locker.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, httpserver.ReadinessCheck{Name: "redis", Check: pinger.Ping})
	}
	return httpserver.Options{
		Auth:     validator,
		Requests: collectors,
		Gatherer: prometheus.DefaultGatherer,
		Checks:   checks,
	}
}
