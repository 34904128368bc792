package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	s3blob "github.com/alanyoungcy/auctionbot/internal/blob/s3"
	"github.com/alanyoungcy/auctionbot/internal/cache/redis"
	"github.com/alanyoungcy/auctionbot/internal/config"
	"github.com/alanyoungcy/auctionbot/internal/domain"
	"github.com/alanyoungcy/auctionbot/internal/notify"
	"github.com/alanyoungcy/auctionbot/internal/server/handler"
	"github.com/alanyoungcy/auctionbot/internal/service"
	"github.com/alanyoungcy/auctionbot/internal/store/memory"
	"github.com/alanyoungcy/auctionbot/internal/store/postgres"
)

// memoryGUIDStart matches the postgres item_guid_seq start so both drivers
// hand out GUIDs from the same range.
const memoryGUIDStart = 1_000_000

// Dependencies bundles the storage, cache and notification adapters the
// modes run on. Redis and S3 backed fields are nil when disabled.
type Dependencies struct {
	// Stores
	Ledger  domain.Ledger
	Catalog domain.Catalog
	Items   domain.ItemFactory
	Prices  domain.MarketPriceStore
	Configs domain.ChannelConfigStore
	Audit   domain.AuditStore

	// Redis
	Templates   domain.TemplateCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	Bus         domain.EventBus

	// Blob storage
	Blob domain.BlobWriter

	Notifier *notify.Notifier
	Health   map[string]handler.Pinger
}

// pingFunc adapts a health probe to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire constructs every adapter the configuration enables and returns them
// with a cleanup function that releases connections in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	deps := &Dependencies{Health: make(map[string]handler.Pinger)}

	// --- Ledger and catalog ---
	switch cfg.Storage.Driver {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		catalog := postgres.NewCatalogStore(pool)
		prices := postgres.NewMarketPriceStore(pool)
		if cfg.Storage.SeedPath != "" {
			if err := importSeed(ctx, cfg.Storage.SeedPath, catalog, prices); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: %w", err)
			}
			logger.InfoContext(ctx, "catalog seed imported", slog.String("path", cfg.Storage.SeedPath))
		}
		deps.Ledger = postgres.NewLedger(pool)
		deps.Catalog = catalog
		deps.Items = postgres.NewItemFactory(pool)
		deps.Prices = prices
		deps.Configs = postgres.NewChannelConfigStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		deps.Health["postgres"] = pgClient

	default:
		seed, err := memory.LoadSeed(cfg.Storage.SeedPath)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: %w", err)
		}
		deps.Ledger = memory.NewLedger()
		deps.Catalog = seed.Catalog()
		deps.Items = memory.NewItemFactory(memoryGUIDStart)
		deps.Prices = seed.Prices()
		deps.Configs = memory.NewChannelConfigStore()
		deps.Audit = memory.NewAuditStore()
		logger.InfoContext(ctx, "memory ledger ready", slog.Int("templates", len(seed.Items)))
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Templates = redis.NewTemplateCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.Bus = redis.NewEventBus(redisClient)
		deps.Catalog = service.NewCachedCatalog(deps.Catalog, deps.Templates, logger)
		deps.Health["redis"] = redisClient
	}

	// --- S3 report archive ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			Prefix:         cfg.S3.Prefix,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Blob = s3blob.NewWriter(s3Client)
		deps.Health["s3"] = pingFunc(s3Client.Health)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, cfg.Notify.Realm, logger)

	logger.InfoContext(ctx, "dependencies wired",
		slog.String("storage", cfg.Storage.Driver),
		slog.Bool("redis", deps.Bus != nil),
		slog.Bool("archive", deps.Blob != nil),
		slog.Int("notify_senders", deps.Notifier.Senders()),
		slog.Any("health_checks", slices.Sorted(maps.Keys(deps.Health))),
	)
	return deps, cleanup, nil
}

// importSeed upserts a YAML catalog seed into postgres.
func importSeed(ctx context.Context, path string, catalog *postgres.CatalogStore, prices domain.MarketPriceStore) error {
	seed, err := memory.LoadSeed(path)
	if err != nil {
		return err
	}
	if err := catalog.UpsertTemplates(ctx, seed.Items, seed.RandomProperties); err != nil {
		return fmt.Errorf("import seed: %w", err)
	}
	for itemID, price := range seed.MarketPrices {
		if err := prices.SetPrice(ctx, itemID, price); err != nil {
			return fmt.Errorf("import seed: price %d: %w", itemID, err)
		}
	}
	return nil
}
