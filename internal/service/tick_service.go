package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// TickLockKey serialises ticks across bot processes sharing one ledger.
const TickLockKey = "ahbot:tick"

// Ticker runs one engine pass.
type Ticker interface {
	Tick(ctx context.Context) domain.TickReport
}

// Alerter delivers operator notifications.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Sweeper removes listings that expired without a bid.
type Sweeper interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// TickDeps are the TickService collaborators. Everything except Ticker and
// Audit is optional.
type TickDeps struct {
	Ticker   Ticker
	Locks    domain.LockManager
	Audit    domain.AuditStore
	Bus      domain.EventBus
	Archiver *ReportArchiver
	Alerter  Alerter
	Sweeper  Sweeper
	LockTTL  time.Duration
}

// TickService wraps each scheduler tick with locking, auditing, publishing,
// archiving and alerting. None of those side effects can fail a tick.
type TickService struct {
	deps   TickDeps
	mu     sync.RWMutex
	last   *domain.TickReport
	logger *slog.Logger
}

// NewTickService creates a TickService.
func NewTickService(deps TickDeps, logger *slog.Logger) *TickService {
	if deps.LockTTL <= 0 {
		deps.LockTTL = 5 * time.Minute
	}
	return &TickService{deps: deps, logger: logger.With(slog.String("component", "ticks"))}
}

// RunOnce runs a single tick. It returns domain.ErrLockHeld when another
// process is ticking.
func (s *TickService) RunOnce(ctx context.Context) (domain.TickReport, error) {
	if s.deps.Locks != nil {
		unlock, err := s.deps.Locks.Acquire(ctx, TickLockKey, s.deps.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				s.logger.InfoContext(ctx, "tick skipped: lock held elsewhere")
			}
			return domain.TickReport{}, fmt.Errorf("tick_service: acquire lock: %w", err)
		}
		defer unlock()
	}

	purged := s.sweep(ctx)
	rep := s.deps.Ticker.Tick(ctx)
	rep.ID = uuid.NewString()
	rep.Purged = purged

	s.mu.Lock()
	s.last = &rep
	s.mu.Unlock()

	s.record(ctx, rep)
	return rep, nil
}

func (s *TickService) sweep(ctx context.Context) int {
	if s.deps.Sweeper == nil {
		return 0
	}
	n, err := s.deps.Sweeper.PurgeExpired(ctx, time.Now())
	if err != nil {
		s.logger.WarnContext(ctx, "tick_service: purge expired failed", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "expired listings purged", slog.Int("count", n))
	}
	return n
}

// Run ticks every interval until ctx is cancelled.
func (s *TickService) Run(ctx context.Context, interval time.Duration) error {
	s.logger.InfoContext(ctx, "tick loop started", slog.Duration("interval", interval))
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, domain.ErrLockHeld) {
			s.logger.ErrorContext(ctx, "tick failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "tick loop stopped")
			return nil
		case <-t.C:
		}
	}
}

// Last returns the most recent tick report.
func (s *TickService) Last() (domain.TickReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.TickReport{}, false
	}
	return *s.last, true
}

func (s *TickService) record(ctx context.Context, rep domain.TickReport) {
	errCount := rep.Errors()
	detail := map[string]any{
		"tick_id":  rep.ID,
		"errors":   errCount,
		"duration": rep.FinishedAt.Sub(rep.StartedAt).String(),
		"purged":   rep.Purged,
	}
	for _, c := range rep.Channels {
		if c.Sell != nil {
			detail[c.Channel.String()+"_created"] = c.Sell.Created
		}
		if c.Buy != nil {
			detail[c.Channel.String()+"_bids"] = c.Buy.Bids
			detail[c.Channel.String()+"_buyouts"] = c.Buy.Buyouts
		}
	}
	if err := s.deps.Audit.Log(ctx, "tick", detail); err != nil {
		s.logger.WarnContext(ctx, "tick_service: audit log failed", slog.String("error", err.Error()))
	}

	if s.deps.Bus != nil {
		payload, _ := json.Marshal(rep)
		if err := s.deps.Bus.Publish(ctx, TopicTicks, payload); err != nil {
			s.logger.WarnContext(ctx, "tick_service: publish failed", slog.String("error", err.Error()))
		}
		if err := s.deps.Bus.StreamAppend(ctx, StreamTicks, payload); err != nil {
			s.logger.WarnContext(ctx, "tick_service: stream append failed", slog.String("error", err.Error()))
		}
	}

	if s.deps.Archiver != nil {
		if key, err := s.deps.Archiver.Archive(ctx, rep); err != nil {
			s.logger.WarnContext(ctx, "tick_service: archive failed", slog.String("error", err.Error()))
		} else {
			s.logger.DebugContext(ctx, "tick archived", slog.String("key", key))
		}
	}

	if errCount > 0 && s.deps.Alerter != nil {
		msg := fmt.Sprintf("tick %s finished with %d errors", rep.ID, errCount)
		if err := s.deps.Alerter.Notify(ctx, "tick_errors", "Auction bot errors", msg); err != nil {
			s.logger.WarnContext(ctx, "tick_service: notify failed", slog.String("error", err.Error()))
		}
	}

	s.logger.InfoContext(ctx, "tick complete",
		slog.String("tick_id", rep.ID),
		slog.Int("channels", len(rep.Channels)),
		slog.Int("errors", errCount),
	)
}
