package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/auctionbot/internal/ahbot"
	"github.com/alanyoungcy/auctionbot/internal/domain"
	"github.com/alanyoungcy/auctionbot/internal/server"
	"github.com/alanyoungcy/auctionbot/internal/server/handler"
	"github.com/alanyoungcy/auctionbot/internal/server/ws"
	"github.com/alanyoungcy/auctionbot/internal/service"
)

// engine is the assembled bot: live configuration, admin surface and the
// tick pipeline.
type engine struct {
	admin *service.AdminService
	ticks *service.TickService
}

// buildEngine restores channel configuration, sorts the catalog into bins
// and assembles seller, buyer and scheduler.
func (a *App) buildEngine(ctx context.Context, deps *Dependencies, opts ...ahbot.SchedulerOption) (*engine, error) {
	who := a.cfg.Participant()
	registry := ahbot.NewRegistry(a.cfg.ChannelConfigs()...)

	admin := service.NewAdminService(who, registry, deps.Configs, deps.Ledger, deps.Audit, deps.Bus, a.logger)
	if err := admin.Restore(ctx); err != nil {
		return nil, fmt.Errorf("app: restore channel configs: %w", err)
	}

	bins, err := service.NewBinService(deps.Catalog, service.BinOptions{
		DisabledItems:    a.cfg.Bot.DisabledItems,
		IncludeZeroPrice: a.cfg.Bot.IncludeZeroPrice,
	}, a.logger).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load bins: %w", err)
	}

	var observer ahbot.Observer
	if deps.Bus != nil {
		observer = service.NewBusObserver(deps.Bus, a.logger)
	}

	// The scheduler serialises ticks, so seller and buyer can share a source.
	r := ahbot.NewRand(a.cfg.Bot.Seed)
	seller := ahbot.NewSeller(ahbot.SellerDeps{
		Ledger:   deps.Ledger,
		Catalog:  deps.Catalog,
		Items:    deps.Items,
		Prices:   deps.Prices,
		Deposit:  domain.StandardDeposit{},
		Observer: observer,
	}, bins, r, a.logger)
	buyer := ahbot.NewBuyer(ahbot.BuyerDeps{
		Ledger:   deps.Ledger,
		Catalog:  deps.Catalog,
		Mailer:   service.NewMailService(a.cfg.Bot.MailSender),
		Bots:     a.cfg.Bots(),
		Observer: observer,
	}, r, a.logger)

	opts = append([]ahbot.SchedulerOption{ahbot.WithTwoSideInteraction(a.cfg.Bot.TwoSideInteraction)}, opts...)
	sched := ahbot.NewScheduler(who, registry, seller, buyer, a.logger, opts...)

	var archiver *service.ReportArchiver
	if deps.Blob != nil {
		archiver = service.NewReportArchiver(deps.Blob, a.cfg.Archive.Prefix)
	}
	sweeper, _ := deps.Ledger.(service.Sweeper)
	ticks := service.NewTickService(service.TickDeps{
		Ticker:   sched,
		Sweeper:  sweeper,
		Locks:    deps.LockManager,
		Audit:    deps.Audit,
		Bus:      deps.Bus,
		Archiver: archiver,
		Alerter:  deps.Notifier,
		LockTTL:  a.cfg.Bot.LockTTL.Duration,
	}, a.logger)

	return &engine{admin: admin, ticks: ticks}, nil
}

// OnceMode runs a single tick with every buyer due and returns its report.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) (domain.TickReport, error) {
	a.logger.InfoContext(ctx, "starting once mode")

	eng, err := a.buildEngine(ctx, deps, ahbot.WithImmediateBuyers())
	if err != nil {
		return domain.TickReport{}, err
	}
	rep, err := eng.ticks.RunOnce(ctx)
	if err != nil {
		return domain.TickReport{}, fmt.Errorf("once mode: %w", err)
	}
	for _, c := range rep.Channels {
		attrs := []any{slog.String("channel", c.Channel.String())}
		if c.Sell != nil {
			attrs = append(attrs, slog.Int("created", c.Sell.Created))
		}
		if c.Buy != nil {
			attrs = append(attrs, slog.Int("bids", c.Buy.Bids), slog.Int("buyouts", c.Buy.Buyouts))
		}
		a.logger.InfoContext(ctx, "channel summary", attrs...)
	}
	return rep, nil
}

// RunMode ticks on the configured interval and, when enabled, serves the
// operator API alongside.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode")

	eng, err := a.buildEngine(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.ticks.Run(ctx, a.cfg.Bot.TickInterval.Duration)
	})
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng)
	}
	return g.Wait()
}

// ServerMode serves the operator API only. Ticks run on POST /api/tick.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	eng, err := a.buildEngine(ctx, deps)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, eng)
	return g.Wait()
}

// startHTTPServer registers the API server and, with Redis, the websocket
// hub on g. Both stop when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine) {
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Health, a.logger),
		Status:   handler.NewStatusHandler(a.cfg.Mode, eng.ticks, a.logger),
		Channels: handler.NewChannelHandler(eng.admin, deps.Ledger, a.cfg.Bot.GUID, a.logger),
		Audit:    handler.NewAuditHandler(deps.Audit, deps.Bus, service.StreamTicks, a.logger),
	}

	var hub *ws.Hub
	if deps.Bus != nil {
		startedAt := time.Now().UTC()
		hub = ws.NewHub(deps.Bus,
			[]string{service.TopicListings, service.TopicBids, service.TopicTicks, service.TopicConfig},
			func() any {
				status := map[string]any{
					"mode":           a.cfg.Mode,
					"uptime_seconds": int64(time.Since(startedAt).Seconds()),
				}
				if last, ok := eng.ticks.Last(); ok {
					status["last_tick"] = last.ID
				}
				return status
			},
			a.logger,
		)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	} else {
		a.logger.InfoContext(ctx, "websocket stream disabled without redis")
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		AuthToken:   a.cfg.Server.AuthToken,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
