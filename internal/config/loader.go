package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies AHBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys: %s", strings.Join(keys, ", "))
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known AHBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Bot ──
	setInt64(&cfg.Bot.Account, "AHBOT_BOT_ACCOUNT")
	setInt64(&cfg.Bot.GUID, "AHBOT_BOT_GUID")
	setStr(&cfg.Bot.Name, "AHBOT_BOT_NAME")
	setDuration(&cfg.Bot.TickInterval, "AHBOT_BOT_TICK_INTERVAL")
	setUint64(&cfg.Bot.Seed, "AHBOT_BOT_SEED")
	setBool(&cfg.Bot.TwoSideInteraction, "AHBOT_BOT_TWO_SIDE_INTERACTION")

	// ── Channels ──
	for _, ch := range domain.Channels {
		sec := cfg.Channels.Section(ch)
		prefix := "AHBOT_" + strings.ToUpper(ch.String()) + "_"
		setBool(&sec.Enabled, prefix+"ENABLED")
		setBool(&sec.SellerEnabled, prefix+"SELLER")
		setBool(&sec.BuyerEnabled, prefix+"BUYER")
		setInt(&sec.MinItems, prefix+"MIN_ITEMS")
		setInt(&sec.MaxItems, prefix+"MAX_ITEMS")
		setInt(&sec.BidsPerInterval, prefix+"BIDS_PER_INTERVAL")
		setDuration(&sec.BidInterval, prefix+"BID_INTERVAL")
	}

	// ── Storage ──
	setStr(&cfg.Storage.Driver, "AHBOT_STORAGE_DRIVER")
	setStr(&cfg.Storage.SeedPath, "AHBOT_STORAGE_SEED_PATH")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "AHBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "AHBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "AHBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "AHBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "AHBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "AHBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "AHBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "AHBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "AHBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "AHBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "AHBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "AHBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AHBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AHBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "AHBOT_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "AHBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "AHBOT_REDIS_KEY_PREFIX")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "AHBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "AHBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "AHBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "AHBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "AHBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "AHBOT_S3_FORCE_PATH_STYLE")
	setBool(&cfg.Archive.Enabled, "AHBOT_ARCHIVE_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "AHBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "AHBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "AHBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.AuthToken, "AHBOT_SERVER_AUTH_TOKEN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "AHBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "AHBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "AHBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "AHBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "AHBOT_MODE")
	setStr(&cfg.LogLevel, "AHBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
