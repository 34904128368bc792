package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/ahbot"
	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// TopicConfig is the bus channel carrying configuration changes.
const TopicConfig = "config"

// Command is one administrative instruction. Quality is required by the
// per-quality commands; Args holds the positional values.
type Command struct {
	Name    string   `json:"command"`
	Quality string   `json:"quality,omitempty"`
	Args    []string `json:"args"`
}

// CommandResult reports what a command changed.
type CommandResult struct {
	Command  string                 `json:"command"`
	Channels []domain.ChannelConfig `json:"channels,omitempty"`
	Expired  int                    `json:"expired,omitempty"`
}

// AdminService applies runtime configuration commands. Every change is
// persisted, swapped into the registry, audited and published.
type AdminService struct {
	who      domain.Participant
	registry *ahbot.Registry
	configs  domain.ChannelConfigStore
	ledger   domain.Ledger
	audit    domain.AuditStore
	bus      domain.EventBus
	now      func() time.Time
	logger   *slog.Logger
}

// NewAdminService creates an AdminService. bus may be nil.
func NewAdminService(
	who domain.Participant,
	registry *ahbot.Registry,
	configs domain.ChannelConfigStore,
	ledger domain.Ledger,
	audit domain.AuditStore,
	bus domain.EventBus,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		who:      who,
		registry: registry,
		configs:  configs,
		ledger:   ledger,
		audit:    audit,
		bus:      bus,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "admin")),
	}
}

// Restore loads persisted snapshots into the registry. Channels that were
// never persisted are saved with their configured defaults.
func (s *AdminService) Restore(ctx context.Context) error {
	for _, ch := range s.registry.Channels() {
		cfg, err := s.configs.Load(ctx, ch)
		switch {
		case err == nil:
			s.registry.Replace(cfg)
			s.logger.InfoContext(ctx, "channel config restored",
				slog.String("channel", ch.String()),
				slog.Int64("version", cfg.Version),
			)
		case errors.Is(err, domain.ErrNotFound):
			if err := s.configs.Save(ctx, *s.registry.Snapshot(ch)); err != nil {
				return fmt.Errorf("admin_service: seed %s: %w", ch, err)
			}
		default:
			return fmt.Errorf("admin_service: load %s: %w", ch, err)
		}
	}
	return nil
}

// Snapshot returns the live configuration of ch.
func (s *AdminService) Snapshot(ch domain.ChannelID) (domain.ChannelConfig, error) {
	cfg := s.registry.Snapshot(ch)
	if cfg == nil {
		return domain.ChannelConfig{}, fmt.Errorf("admin_service: %w: %s", domain.ErrUnknownChannel, ch)
	}
	return *cfg, nil
}

// Snapshots returns the live configuration of every configured channel.
func (s *AdminService) Snapshots() []domain.ChannelConfig {
	var out []domain.ChannelConfig
	for _, ch := range s.registry.Channels() {
		out = append(out, *s.registry.Snapshot(ch))
	}
	return out
}

// Execute runs cmd against ch. The buyer, seller and usemarketprice
// commands apply to every channel.
func (s *AdminService) Execute(ctx context.Context, ch domain.ChannelID, cmd Command) (CommandResult, error) {
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	res := CommandResult{Command: name}
	if s.registry.Snapshot(ch) == nil {
		return res, fmt.Errorf("admin_service: %w: %s", domain.ErrUnknownChannel, ch)
	}

	var (
		mutate func(*domain.ChannelConfig) error
		global bool
	)
	switch name {
	case "buyer", "seller", "usemarketprice":
		on, err := boolArg(cmd.Args)
		if err != nil {
			return res, err
		}
		global = true
		mutate = func(c *domain.ChannelConfig) error {
			switch name {
			case "buyer":
				c.BuyerEnabled = on
			case "seller":
				c.SellerEnabled = on
			default:
				c.SellAtMarketPrice = on
			}
			return nil
		}

	case "expire":
		n, err := s.ledger.ExpireListings(ctx, ch, s.who.GUID, s.now())
		if err != nil {
			return res, fmt.Errorf("admin_service: expire %s: %w", ch, err)
		}
		res.Expired = n
		s.record(ctx, ch, name, cmd, map[string]any{"expired": n}, 0)
		return res, nil

	case "minitems", "maxitems", "bidsperinterval", "bidinterval":
		v, err := uintArg(cmd.Args, 0)
		if err != nil {
			return res, err
		}
		mutate = func(c *domain.ChannelConfig) error {
			switch name {
			case "minitems":
				c.MinItems = v
			case "maxitems":
				c.MaxItems = v
			case "bidsperinterval":
				c.BidsPerInterval = v
			default:
				c.BiddingInterval = time.Duration(v) * time.Minute
			}
			return nil
		}

	case "percentages":
		if len(cmd.Args) != domain.CategoryCount {
			return res, fmt.Errorf("%w: percentages takes %d values, got %d", domain.ErrInvalidCommand, domain.CategoryCount, len(cmd.Args))
		}
		var pct [domain.CategoryCount]int
		for i := range pct {
			v, err := uintArg(cmd.Args, i)
			if err != nil {
				return res, err
			}
			pct[i] = v
		}
		mutate = func(c *domain.ChannelConfig) error {
			c.Percentages = pct
			return nil
		}

	case "minprice", "maxprice", "minbidprice", "maxbidprice", "maxstack", "buyerprice":
		q, err := domain.ParseQuality(cmd.Quality)
		if err != nil {
			return res, fmt.Errorf("%w: %v", domain.ErrInvalidCommand, err)
		}
		if name == "buyerprice" {
			f, err := floatArg(cmd.Args)
			if err != nil {
				return res, err
			}
			mutate = func(c *domain.ChannelConfig) error {
				c.Qualities[q].BuyerPrice = f
				return nil
			}
			break
		}
		v, err := uintArg(cmd.Args, 0)
		if err != nil {
			return res, err
		}
		mutate = func(c *domain.ChannelConfig) error {
			t := &c.Qualities[q]
			switch name {
			case "minprice":
				t.MinPrice = v
			case "maxprice":
				t.MaxPrice = v
			case "minbidprice":
				t.MinBidPrice = v
			case "maxbidprice":
				t.MaxBidPrice = v
			default:
				t.MaxStack = v
			}
			return nil
		}

	default:
		return res, fmt.Errorf("%w: unknown command %q", domain.ErrInvalidCommand, cmd.Name)
	}

	targets := []domain.ChannelID{ch}
	if global {
		targets = s.registry.Channels()
	}
	updated, err := s.registry.UpdateAll(targets, mutate)
	if err != nil {
		return res, err
	}
	for i, target := range targets {
		next := updated[i]
		if err := s.configs.Save(ctx, *next); err != nil {
			// The live snapshot already changed; a restart would revert it.
			s.logger.ErrorContext(ctx, "persist channel config failed",
				slog.String("channel", target.String()),
				slog.String("error", err.Error()),
			)
		}
		res.Channels = append(res.Channels, *next)
		s.record(ctx, target, name, cmd, nil, next.Version)
	}
	return res, nil
}

// record audits and publishes a successful command.
func (s *AdminService) record(ctx context.Context, ch domain.ChannelID, name string, cmd Command, extra map[string]any, version int64) {
	detail := map[string]any{
		"channel": ch.String(),
		"command": name,
		"quality": cmd.Quality,
		"args":    cmd.Args,
		"version": version,
	}
	for k, v := range extra {
		detail[k] = v
	}
	if err := s.audit.Log(ctx, "config_changed", detail); err != nil {
		s.logger.WarnContext(ctx, "admin_service: audit log failed", slog.String("error", err.Error()))
	}
	if s.bus != nil {
		detail["event"] = "config_changed"
		evt, _ := json.Marshal(detail)
		if err := s.bus.Publish(ctx, TopicConfig, evt); err != nil {
			s.logger.WarnContext(ctx, "admin_service: publish event failed", slog.String("error", err.Error()))
		}
	}
	s.logger.InfoContext(ctx, "command applied",
		slog.String("channel", ch.String()),
		slog.String("command", name),
		slog.Int64("version", version),
	)
}

func uintArg(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: missing argument %d", domain.ErrInvalidCommand, i+1)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(args[i]), 0, 31)
	if err != nil {
		return 0, fmt.Errorf("%w: argument %d: %v", domain.ErrInvalidCommand, i+1, err)
	}
	return int(v), nil
}

func boolArg(args []string) (bool, error) {
	v, err := uintArg(args, 0)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func floatArg(args []string) (float64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: missing argument 1", domain.ErrInvalidCommand)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: argument 1: %q is not a finite non-negative number", domain.ErrInvalidCommand, args[0])
	}
	return f, nil
}
