package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"donobot/internal/channel"
	"donobot/internal/config"
	"donobot/internal/ledger"
	"donobot/internal/metrics"
	"donobot/internal/poster"
	"donobot/internal/runtime/supervisor"
	"donobot/internal/schedule"
	"donobot/internal/storage"
	kit "donobot/internal/transport"
	"donobot/internal/transport/telegram"
	"donobot/internal/webhook"
	logx "donobot/pkg/logx"
)

// settings are the hot-reloadable campaign parameters, derived from the
// committed config and swapped atomically on reload. Schedules are fixed at
// startup; everything else applies on the next cycle.
type settings struct {
	progress   poster.ProgressConfig
	motivation poster.MotivationConfig
}

// App owns the wired object graph and the supervisor running the three
// concurrent workers: the webhook server, the progress loop, and the
// motivation loop.
type App struct {
	log    logx.Logger
	logSvc *logx.Service

	cfgMgr   *config.Manager
	store    storage.Store
	ledger   *ledger.Service
	rec      *metrics.Recorder
	mgr      *channel.Manager
	server   *webhook.Server
	sup      *supervisor.Supervisor
	settings atomic.Pointer[settings]

	progressSpec   schedule.Spec
	motivationSpec schedule.Spec
}

func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgMgr := config.NewManager(cfgPath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgMgr.SetLogger(log.With(logx.String("comp", "config")))
	cfgMgr.SetValidator(func(c *config.Config) error { return c.Validate() })

	a := &App{log: log, logSvc: logSvc, cfgMgr: cfgMgr}
	a.settings.Store(deriveSettings(cfg))

	a.progressSpec, _ = schedule.Parse(orDefault(cfg.Donation.ProgressSchedule, "120s"))
	a.motivationSpec, _ = schedule.Parse(orDefault(cfg.Donation.MotivationSchedule, "30s"))

	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        orDefault(cfg.Storage.Path, "./donors.json"),
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	a.store = store

	a.rec = metrics.New()
	a.ledger = ledger.NewService(ctx, store, log.With(logx.String("comp", "ledger")))
	a.ledger.OnPersistFailure(a.rec.PersistFailure)

	tg, err := telegram.New(telegram.Config{
		Token:      cfg.Telegram.Token,
		RatePerSec: cfg.Telegram.RatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	adapter := metrics.InstrumentAdapter(tg, a.rec)

	target := kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}
	fallback := channel.FallbackPost
	if strings.EqualFold(strings.TrimSpace(cfg.Donation.EditFallback), "delete_repost") {
		fallback = channel.FallbackDeleteRepost
	}
	a.mgr = channel.New(adapter, channel.Config{
		Target:   target,
		Fallback: fallback,
		Send:     &kit.SendOptions{ParseMode: "Markdown", DisablePreview: true},
	}, log.With(logx.String("comp", "channel")))

	h := webhook.NewHandler(a.ledger, adapter, target, a.rec, log.With(logx.String("comp", "webhook")))
	if cfg.Donation.Currency != "" {
		h.DefaultCurrency = cfg.Donation.Currency
	}
	a.server = webhook.NewServer(webhook.ServerConfig{Addr: cfg.Webhook.Addr}, h, a.rec, log.With(logx.String("comp", "webhook")))

	return a, nil
}

// Run starts the workers and blocks until ctx is cancelled or the webhook
// listener fails to bind.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		// A webhook bind failure must take the process down.
		supervisor.WithCancelOnError(true),
	)
	sup := a.sup

	sup.Go("webhook", a.server.Run)

	progress := &poster.Loop{
		Name:       "progress",
		Spec:       a.progressSpec,
		Cycle:      poster.Progress(a.ledger, a.mgr, func() poster.ProgressConfig { return a.settings.Load().progress }),
		Log:        a.log,
		Rec:        a.rec,
		RunAtStart: true,
	}
	sup.Go0("loop.progress", progress.Run)

	motivation := &poster.Loop{
		Name:  "motivation",
		Spec:  a.motivationSpec,
		Cycle: poster.Motivation(a.mgr, func() poster.MotivationConfig { return a.settings.Load().motivation }, a.log),
		Log:   a.log,
		Rec:   a.rec,
	}
	sup.Go0("loop.motivation", motivation.Run)

	// Config hot-reload: the watcher parses/validates/commits, the applier
	// swaps derived settings and logging sinks.
	sup.GoRestart("config.watch", a.cfgMgr.Watch)
	updates := a.cfgMgr.Subscribe(1)
	sup.Go0("config.apply", func(ctx context.Context) {
		defer a.cfgMgr.Unsubscribe(updates)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg := <-updates:
				if cfg == nil {
					continue
				}
				a.settings.Store(deriveSettings(cfg))
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.ConsoleEnabled(),
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.log.Info("settings applied",
					logx.String("goal", a.settings.Load().progress.Goal.StringFixed(2)))
			}
		}
	})

	<-sup.Context().Done()
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.sup.Wait(waitCtx)
	return a.Close()
}

// Err reports the first fatal worker error, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Close() error {
	var first error
	if a.store != nil {
		if err := a.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
	}
	return first
}

func deriveSettings(cfg *config.Config) *settings {
	goal, _ := cfg.Donation.GoalAmount()
	window, _ := config.ParseDurationOrDefault("donation.motivation_window", cfg.Donation.MotivationWindow, 5*time.Second)
	currency := orDefault(cfg.Donation.Currency, "USDT")
	return &settings{
		progress: poster.ProgressConfig{
			Goal:     goal,
			Currency: currency,
			TopN:     cfg.Donation.TopN,
		},
		motivation: poster.MotivationConfig{
			Pool:          cfg.Donation.MotivationPool,
			Link:          cfg.Donation.Link,
			DisplayWindow: window,
		},
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
