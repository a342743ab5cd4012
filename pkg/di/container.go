// Package di assembles the application's dependencies from configuration.
package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"novel-forge/backend/ai"
	"novel-forge/backend/internal/database"
	"novel-forge/backend/internal/models"
	"novel-forge/backend/internal/repository"
	"novel-forge/backend/internal/service"
	"novel-forge/backend/pkg/cache"
	"novel-forge/backend/pkg/config"
	"novel-forge/backend/pkg/health"
	"novel-forge/backend/pkg/logger"
	"novel-forge/backend/pkg/resilience"
	"novel-forge/backend/pkg/secrets"
	"novel-forge/backend/pkg/worker"
	"novel-forge/backend/shared/observability"
	sharedredis "novel-forge/backend/shared/redis"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	// secret key resolved from vault for the upstream provider
	aiAPIKeySecret = "ai_api_key"

	healthCheckPeriod = 30 * time.Second
)

// Container holds all the dependencies for the application
type Container struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	Telemetry *observability.Telemetry
	Health    *health.Checker
	Pool      *worker.Pool
	AI        *ai.Client

	NovelService        *service.NovelService
	ConversationService *service.ConversationService
	ChatService         *service.ChatService

	closers []func() error
}

type stores struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	novels        repository.NovelRepository
	chapters      repository.ChapterRepository
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (c *Container, err error) {
	if err := cfg.ValidateAI(); err != nil {
		return nil, err
	}

	c = &Container{
		Config: cfg,
		Logger: log,
		Health: health.NewChecker(log, healthCheckPeriod),
	}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.Telemetry, err = observability.Setup(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		MetricsEnabled: cfg.Observability.MetricsEnabled,
		TracingEnabled: cfg.Observability.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	c.closers = append(c.closers, func() error { return c.Telemetry.Shutdown(context.Background()) })

	st, err := c.openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	apiKey, err := c.resolveAPIKey(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	c.AI, err = ai.NewClient(ai.Config{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  apiKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.RequestTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	locker, err := c.turnLocker(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewChatMetrics(c.Telemetry.Meter("novel-forge/chat"))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat metrics: %w", err)
	}

	breaker := resilience.NewCircuitBreaker(resilience.Config{
		Name:             "ai-provider",
		FailureThreshold: cfg.AI.BreakerFailures,
		Cooldown:         cfg.AI.BreakerCooldown,
	}, log)
	upstream := service.NewGuardedUpstream(c.AI, breaker)
	c.Health.RegisterCheck("ai_provider", false, func(context.Context) (health.Status, string, error) {
		stats := breaker.Stats()
		if stats.State == resilience.StateOpen {
			return health.StatusDegraded, fmt.Sprintf("Circuit open until %s", stats.NextAttemptAt.Format(time.RFC3339)), nil
		}
		return health.StatusUp, fmt.Sprintf("Circuit %s, %d failures", stats.State, stats.Failures), nil
	})

	c.Pool = worker.NewPool(cfg.Chat.MaxConcurrentStreams, log)
	c.registerPoolCheck()

	c.NovelService = service.NewNovelService(st.novels, st.chapters)
	c.ConversationService = service.NewConversationService(st.conversations, st.messages)
	c.ChatService = service.NewChatService(service.ChatDeps{
		Conversations: st.conversations,
		Messages:      st.messages,
		Upstream:      upstream,
		Pool:          c.Pool,
		Locker:        locker,
		Metrics:       metrics,
		Logger:        log,
	}, service.ChatOptions{
		StreamIdleTimeout: cfg.Chat.StreamIdleTimeout,
		LockWait:          cfg.Chat.LockWait,
	})

	return c, nil
}

func (c *Container) openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (stores, error) {
	var st stores

	switch cfg.Database.Driver {
	case DriverMemory:
		log.Warn("Using in-memory storage, data is lost on restart")
		mem := repository.NewMemoryStore()
		st = stores{
			conversations: mem.Conversations(),
			messages:      mem.Messages(),
			novels:        mem.Novels(),
			chapters:      mem.Chapters(),
		}
		c.Health.RegisterDatabaseCheck(func(context.Context) error { return nil })

	case DriverPostgres, "":
		if cfg.Database.AutoMigrate {
			if err := database.MigrateUp(cfg.Database.URL(), log); err != nil {
				return st, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		db, err := config.NewDB(ctx, cfg, log)
		if err != nil {
			return st, err
		}
		c.DB = db
		sqlDB, err := db.DB()
		if err != nil {
			return st, fmt.Errorf("failed to get database connection: %w", err)
		}
		c.closers = append(c.closers, sqlDB.Close)
		c.Health.RegisterDatabaseCheck(sqlDB.PingContext)

		st = stores{
			conversations: repository.NewGormConversationRepository(db),
			messages:      repository.NewGormMessageRepository(db),
			novels:        repository.NewGormNovelRepository(db),
			chapters:      repository.NewGormChapterRepository(db),
		}

	default:
		return st, fmt.Errorf("unknown DB_DRIVER %q", cfg.Database.Driver)
	}

	if cfg.Cache.Enabled {
		convCache := cache.New[uint, models.Conversation](cache.Options{
			TTL:           cfg.Cache.TTL,
			MaxItems:      cfg.Cache.MaxSize,
			PurgeInterval: cfg.Cache.PurgeWindow,
		})
		c.closers = append(c.closers, func() error { convCache.Close(); return nil })
		st.conversations = repository.NewCachedConversationRepository(st.conversations, convCache)
	}
	return st, nil
}

func (c *Container) resolveAPIKey(ctx context.Context, cfg *config.Config, log *logger.Logger) (string, error) {
	if !cfg.Vault.Enabled {
		return cfg.AI.APIKey, nil
	}

	vm, err := secrets.NewVaultManager(secrets.VaultConfig{
		Address:     cfg.Vault.Address,
		Token:       cfg.Vault.Token,
		SecretsPath: cfg.Vault.SecretsPath,
		CacheTTL:    cfg.Cache.TTL,
	}, log)
	if err != nil {
		return "", fmt.Errorf("failed to create vault manager: %w", err)
	}
	c.closers = append(c.closers, func() error { vm.Close(); return nil })

	return secrets.Resolve(ctx, vm, aiAPIKeySecret, cfg.AI.APIKey), nil
}

func (c *Container) turnLocker(ctx context.Context, cfg *config.Config, log *logger.Logger) (service.TurnLocker, error) {
	if !cfg.Redis.Enabled {
		return service.NewMemoryTurnLocker(), nil
	}

	client, err := sharedredis.NewClient(ctx, sharedredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	c.Redis = client
	c.closers = append(c.closers, client.Close)
	c.Health.RegisterCheck("redis", false, func(ctx context.Context) (health.Status, string, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return health.StatusDegraded, "Redis unreachable, turn locks unavailable", err
		}
		return health.StatusUp, "Redis connection is established", nil
	})

	log.Info("Using redis conversation turn locks", "addr", cfg.Redis.Addr)
	return sharedredis.NewTurnLocker(client, cfg.Chat.LockTTL, log), nil
}

func (c *Container) registerPoolCheck() {
	pool := c.Pool
	c.Health.RegisterCheck("chat_pool", false, func(context.Context) (health.Status, string, error) {
		inFlight, limit := pool.InFlight(), pool.Limit()
		desc := fmt.Sprintf("%d/%d chat streams in flight", inFlight, limit)
		if limit > 0 && inFlight >= limit {
			return health.StatusDegraded, desc, nil
		}
		return health.StatusUp, desc, nil
	})
}

// Close waits for in-flight chat streams and releases every resource, most
// recently acquired first.
func (c *Container) Close() error {
	if c.Pool != nil {
		c.Pool.Wait()
	}

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}
