// Package config defines the top-level configuration for the auction house
// bot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by AHBOT_* environment variables.
type Config struct {
	Bot      BotConfig      `toml:"bot"`
	Channels ChannelsConfig `toml:"channels"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// BotConfig describes the synthetic participant and the engine loop.
type BotConfig struct {
	Account int64  `toml:"account"`
	GUID    int64  `toml:"guid"`
	Name    string `toml:"name"`
	// OtherBots lists GUIDs of further bot characters; the buyer never bids
	// on their listings.
	OtherBots          []int64  `toml:"other_bots"`
	TickInterval       duration `toml:"tick_interval"`
	Seed               uint64   `toml:"seed"`
	TwoSideInteraction bool     `toml:"two_side_interaction"`
	DisabledItems      []int64  `toml:"disabled_items"`
	IncludeZeroPrice   bool     `toml:"include_zero_price"`
	LockTTL            duration `toml:"lock_ttl"`
	// MailSender is the GUID auction mail is sent from.
	MailSender int64 `toml:"mail_sender"`
}

// ChannelsConfig holds one section per auction house.
type ChannelsConfig struct {
	Alliance ChannelSection `toml:"alliance"`
	Horde    ChannelSection `toml:"horde"`
	Neutral  ChannelSection `toml:"neutral"`
}

// Section returns the section for ch.
func (c *ChannelsConfig) Section(ch domain.ChannelID) *ChannelSection {
	switch ch {
	case domain.ChannelAlliance:
		return &c.Alliance
	case domain.ChannelHorde:
		return &c.Horde
	case domain.ChannelNeutral:
		return &c.Neutral
	}
	return nil
}

// ChannelSection is the file form of domain.ChannelConfig. A channel whose
// Enabled flag is false is left unconfigured and the engine skips it.
type ChannelSection struct {
	Enabled                 bool         `toml:"enabled"`
	SellerEnabled           bool         `toml:"seller"`
	BuyerEnabled            bool         `toml:"buyer"`
	MinItems                int          `toml:"min_items"`
	MaxItems                int          `toml:"max_items"`
	ItemsPerCycle           int          `toml:"items_per_cycle"`
	ConsiderOnlyBotListings bool         `toml:"consider_only_bot_listings"`
	DivisibleStacks         bool         `toml:"divisible_stacks"`
	Duration                string       `toml:"duration"`
	DuplicatesCount         int          `toml:"duplicates_count"`
	SellAtMarketPrice       bool         `toml:"sell_at_market_price"`
	UseBuyPriceForSeller    bool         `toml:"use_buy_price_for_seller"`
	UseBuyPriceForBuyer     bool         `toml:"use_buy_price_for_buyer"`
	BidInterval             duration     `toml:"bid_interval"`
	BidsPerInterval         int          `toml:"bids_per_interval"`
	Percentages             []int        `toml:"percentages"`
	DepositPercent          int          `toml:"deposit_percent"`
	CutPercent              int          `toml:"cut_percent"`
	DebugSeller             bool         `toml:"debug_seller"`
	DebugBuyer              bool         `toml:"debug_buyer"`
	TraceSeller             bool         `toml:"trace_seller"`
	TraceBuyer              bool         `toml:"trace_buyer"`
	Quality                 QualityTable `toml:"quality"`
}

// QualityTable holds the per-quality tuning subtables.
type QualityTable struct {
	Grey   QualitySection `toml:"grey"`
	White  QualitySection `toml:"white"`
	Green  QualitySection `toml:"green"`
	Blue   QualitySection `toml:"blue"`
	Purple QualitySection `toml:"purple"`
	Orange QualitySection `toml:"orange"`
	Yellow QualitySection `toml:"yellow"`
}

func (q *QualityTable) all() [domain.QualityCount]*QualitySection {
	return [domain.QualityCount]*QualitySection{&q.Grey, &q.White, &q.Green, &q.Blue, &q.Purple, &q.Orange, &q.Yellow}
}

// QualitySection is the file form of domain.QualityTuning.
type QualitySection struct {
	MinPrice    int     `toml:"min_price"`
	MaxPrice    int     `toml:"max_price"`
	MinBidPrice int     `toml:"min_bid_price"`
	MaxBidPrice int     `toml:"max_bid_price"`
	MaxStack    int     `toml:"max_stack"`
	BuyerPrice  float64 `toml:"buyer_price"`
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `toml:"driver"`
	// SeedPath is a YAML catalog loaded at startup. Required for the memory
	// driver; with postgres it is upserted into item_templates when set.
	SeedPath string `toml:"seed_path"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Without Redis the tick lock,
// event bus, websocket stream and API rate limit are all disabled.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ArchiveConfig controls tick report archiving to S3.
type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Prefix  string `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds admin API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// AuthToken, when set, is required as a bearer token on every /api route
	// except health.
	AuthToken  string   `toml:"auth_token"`
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	Realm             string   `toml:"realm"`
}

// defaultPercentages spreads listings over the 14 categories: trade goods
// grey..yellow, then items grey..yellow.
var defaultPercentages = []int{0, 27, 12, 10, 1, 0, 0, 0, 10, 30, 8, 2, 0, 0}

func defaultQualities() QualityTable {
	return QualityTable{
		Grey:   QualitySection{MinPrice: 100, MaxPrice: 150, MinBidPrice: 70, MaxBidPrice: 100, BuyerPrice: 1},
		White:  QualitySection{MinPrice: 150, MaxPrice: 250, MinBidPrice: 70, MaxBidPrice: 100, BuyerPrice: 3},
		Green:  QualitySection{MinPrice: 800, MaxPrice: 1400, MinBidPrice: 80, MaxBidPrice: 100, BuyerPrice: 5},
		Blue:   QualitySection{MinPrice: 1250, MaxPrice: 1750, MinBidPrice: 75, MaxBidPrice: 100, BuyerPrice: 12},
		Purple: QualitySection{MinPrice: 2250, MaxPrice: 4550, MinBidPrice: 80, MaxBidPrice: 100, BuyerPrice: 15},
		Orange: QualitySection{MinPrice: 3250, MaxPrice: 5550, MinBidPrice: 80, MaxBidPrice: 100, BuyerPrice: 20},
		Yellow: QualitySection{MinPrice: 5250, MaxPrice: 6550, MinBidPrice: 80, MaxBidPrice: 100, BuyerPrice: 22},
	}
}

// DefaultChannel is the section every channel starts from.
func DefaultChannel() ChannelSection {
	return ChannelSection{
		Enabled:         true,
		SellerEnabled:   true,
		BuyerEnabled:    true,
		MinItems:        0,
		MaxItems:        0,
		ItemsPerCycle:   200,
		Duration:        "long",
		BidInterval:     duration{time.Minute},
		BidsPerInterval: 1,
		Percentages:     append([]int(nil), defaultPercentages...),
		DepositPercent:  5,
		CutPercent:      5,
		Quality:         defaultQualities(),
	}
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Bot: BotConfig{
			Account:      1,
			GUID:         1,
			Name:         "Auctioneer",
			TickInterval: duration{time.Minute},
			LockTTL:      duration{5 * time.Minute},
		},
		Channels: ChannelsConfig{
			Alliance: DefaultChannel(),
			Horde:    DefaultChannel(),
			Neutral:  DefaultChannel(),
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "ahbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "ahbot",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "ahbot-reports",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Prefix: "reports",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimit:   60,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"tick_errors"},
		},
		Mode:     "run",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"once":   true,
	"run":    true,
	"server": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validDurations = map[string]domain.DurationClass{
	"long":   domain.DurationLong,
	"medium": domain.DurationMedium,
	"short":  domain.DurationShort,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: once, run, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Bot
	if c.Bot.GUID <= 0 {
		errs = append(errs, "bot: guid must be positive")
	}
	if c.Mode == "run" && c.Bot.TickInterval.Duration <= 0 {
		errs = append(errs, "bot: tick_interval must be > 0 for mode run")
	}

	// Channels
	enabled := 0
	for _, ch := range domain.Channels {
		sec := c.Channels.Section(ch)
		if !sec.Enabled {
			continue
		}
		enabled++
		if _, err := c.ChannelConfig(ch); err != nil {
			errs = append(errs, fmt.Sprintf("channels.%s: %v", ch, err))
		}
	}
	if enabled == 0 {
		errs = append(errs, "channels: at least one channel must be enabled")
	}

	// Storage
	switch c.Storage.Driver {
	case "memory":
		if c.Storage.SeedPath == "" {
			errs = append(errs, "storage: seed_path is required for the memory driver")
		}
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be within 0..pool_max_conns")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown driver %q (valid: memory, postgres)", c.Storage.Driver))
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Archive
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
	}

	// Server
	if c.Server.Enabled || c.Mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ChannelConfig converts the section for ch into a validated engine
// configuration.
func (c *Config) ChannelConfig(ch domain.ChannelID) (domain.ChannelConfig, error) {
	sec := c.Channels.Section(ch)
	if sec == nil {
		return domain.ChannelConfig{}, fmt.Errorf("%w: %s", domain.ErrUnknownChannel, ch)
	}
	class, ok := validDurations[strings.ToLower(sec.Duration)]
	if !ok {
		return domain.ChannelConfig{}, fmt.Errorf("unknown duration %q (valid: long, medium, short)", sec.Duration)
	}
	if len(sec.Percentages) != domain.CategoryCount {
		return domain.ChannelConfig{}, fmt.Errorf("percentages must have %d values, got %d", domain.CategoryCount, len(sec.Percentages))
	}

	out := domain.ChannelConfig{
		Channel:                 ch,
		SellerEnabled:           sec.SellerEnabled,
		BuyerEnabled:            sec.BuyerEnabled,
		MinItems:                sec.MinItems,
		MaxItems:                sec.MaxItems,
		ItemsPerCycle:           sec.ItemsPerCycle,
		ConsiderOnlyBotListings: sec.ConsiderOnlyBotListings,
		DivisibleStacks:         sec.DivisibleStacks,
		DurationClass:           class,
		DuplicatesCount:         sec.DuplicatesCount,
		SellAtMarketPrice:       sec.SellAtMarketPrice,
		UseBuyPriceForSeller:    sec.UseBuyPriceForSeller,
		UseBuyPriceForBuyer:     sec.UseBuyPriceForBuyer,
		BiddingInterval:         sec.BidInterval.Duration,
		BidsPerInterval:         sec.BidsPerInterval,
		DepositPercent:          sec.DepositPercent,
		CutPercent:              sec.CutPercent,
		DebugSeller:             sec.DebugSeller,
		DebugBuyer:              sec.DebugBuyer,
		TraceSeller:             sec.TraceSeller,
		TraceBuyer:              sec.TraceBuyer,
	}
	copy(out.Percentages[:], sec.Percentages)
	for q, qs := range sec.Quality.all() {
		out.Qualities[q] = domain.QualityTuning{
			MinPrice:    qs.MinPrice,
			MaxPrice:    qs.MaxPrice,
			MinBidPrice: qs.MinBidPrice,
			MaxBidPrice: qs.MaxBidPrice,
			MaxStack:    qs.MaxStack,
			BuyerPrice:  qs.BuyerPrice,
		}
	}
	if err := out.Validate(); err != nil {
		return domain.ChannelConfig{}, err
	}
	return out, nil
}

// ChannelConfigs returns the engine configuration of every enabled channel
// in scheduling order. Call Validate first.
func (c *Config) ChannelConfigs() []domain.ChannelConfig {
	var out []domain.ChannelConfig
	for _, ch := range domain.Channels {
		if !c.Channels.Section(ch).Enabled {
			continue
		}
		if cfg, err := c.ChannelConfig(ch); err == nil {
			out = append(out, cfg)
		}
	}
	return out
}

// Participant returns the bot identity.
func (c *Config) Participant() domain.Participant {
	return domain.Participant{Account: c.Bot.Account, GUID: c.Bot.GUID, Name: c.Bot.Name}
}

// Bots returns every bot GUID.
func (c *Config) Bots() domain.BotSet {
	return domain.NewBotSet(append([]int64{c.Bot.GUID}, c.Bot.OtherBots...)...)
}
