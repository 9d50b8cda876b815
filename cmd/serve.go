package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/shopchat/internal/batch"
	"github.com/nextlevelbuilder/shopchat/internal/bus"
	"github.com/nextlevelbuilder/shopchat/internal/channels"
	"github.com/nextlevelbuilder/shopchat/internal/channels/meta"
	"github.com/nextlevelbuilder/shopchat/internal/channels/webchat"
	"github.com/nextlevelbuilder/shopchat/internal/channels/whatsapp"
	"github.com/nextlevelbuilder/shopchat/internal/config"
	"github.com/nextlevelbuilder/shopchat/internal/dedup"
	"github.com/nextlevelbuilder/shopchat/internal/gateway"
	"github.com/nextlevelbuilder/shopchat/internal/language"
	"github.com/nextlevelbuilder/shopchat/internal/orders"
	"github.com/nextlevelbuilder/shopchat/internal/pipeline"
	"github.com/nextlevelbuilder/shopchat/internal/policy"
	"github.com/nextlevelbuilder/shopchat/internal/providers"
	"github.com/nextlevelbuilder/shopchat/internal/sessions"
	"github.com/nextlevelbuilder/shopchat/internal/store"
	"github.com/nextlevelbuilder/shopchat/internal/store/memory"
	"github.com/nextlevelbuilder/shopchat/internal/store/pg"
	"github.com/nextlevelbuilder/shopchat/internal/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeE()
		},
	}
}

func runServe() {
	if err := runServeE(); err != nil {
		slog.Error("gateway failed", "error", err)
	}
}

func runServeE() error {
	setupLogging()

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	var shutdownTracing func(context.Context) error = func(context.Context) error { return nil }
	if cfg.Telemetry.Enabled {
		shutdownTracing, err = telemetry.Init(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
	}

	// Stores
	var stores *store.Stores
	if cfg.Database.Mode == "postgres" {
		pgStores, db, err := pg.NewPGStores(cfg.Database.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()
		stores = pgStores
		slog.Info("storage ready", "mode", "postgres")
	} else {
		stores = memory.NewStores()
		slog.Info("storage ready", "mode", "memory")
	}

	// Core components
	msgBus := bus.NewMessageBus(cfg.Gateway.BusQueueDepth)
	guard := dedup.NewGuard(
		time.Duration(cfg.Dedup.TTLMin)*time.Minute,
		cfg.Dedup.MaxEntries,
	)
	batches := batch.NewScheduler(time.Duration(cfg.Gateway.DebounceMS) * time.Millisecond)
	classifier := language.NewClassifier()
	sessionMgr := sessions.NewManager(classifier,
		cfg.Sessions.WindowTurns,
		time.Duration(cfg.Sessions.IdleTTLMin)*time.Minute,
	)

	backend := providers.NewOpenAIBackend("openai",
		cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.RateLimitRPM)

	resolver := pipeline.NewResolver(sessionMgr, classifier, backend,
		policy.NewPlanPolicy(stores.Usage), stores.Events,
		pipeline.GeneralScripts(), cfg.AI.Model)

	extractor := orders.NewExtractor(stores.Orders, backend, slog.Default())

	engine := gateway.NewEngine(gateway.Options{
		Bus:           msgBus,
		Guard:         guard,
		Batches:       batches,
		Resolver:      resolver,
		Extractor:     extractor,
		Stores:        stores,
		SweepInterval: time.Duration(cfg.Dedup.SweepMin) * time.Minute,
	})

	// Channels
	manager := channels.NewManager(msgBus)
	if cfg.Channels.WhatsApp.Enabled {
		ch, err := whatsapp.New(whatsapp.Config{BridgeURL: cfg.Channels.WhatsApp.BridgeURL}, msgBus)
		if err != nil {
			return fmt.Errorf("whatsapp channel: %w", err)
		}
		manager.RegisterChannel(ch.Name(), ch)
	}
	if cfg.Channels.Meta.Enabled {
		ch, err := meta.New(meta.Config{
			ListenAddr:  cfg.Channels.Meta.ListenAddr,
			WebhookPath: cfg.Channels.Meta.WebhookPath,
			VerifyToken: cfg.Channels.Meta.VerifyToken,
			AppSecret:   cfg.Channels.Meta.AppSecret,
		}, msgBus)
		if err != nil {
			return fmt.Errorf("meta channel: %w", err)
		}
		// One Meta channel serves both platforms; outbound routing hits
		// whichever name the inbound event carried.
		manager.RegisterChannel(meta.ChannelInstagram, ch)
		manager.RegisterChannel(meta.ChannelMessenger, ch)
	}
	if cfg.Channels.WebChat.Enabled {
		ch, err := webchat.New(webchat.Config{
			ListenAddr: cfg.Channels.WebChat.ListenAddr,
			Path:       cfg.Channels.WebChat.Path,
			Origins:    cfg.Channels.WebChat.Origins,
		}, msgBus)
		if err != nil {
			return fmt.Errorf("webchat channel: %w", err)
		}
		manager.RegisterChannel(ch.Name(), ch)
	}

	// Hot reload for tunables that don't need a restart.
	if err := config.Watch(ctx, cfgPath, func(next *config.Config) {
		slog.Info("config change detected; restart to apply channel or storage changes")
	}); err != nil {
		slog.Warn("config watch unavailable", "error", err)
	}

	maintenance := gateway.NewMaintenance(stores.Usage, guard, cfg.Maintenance.UsageRolloverCron)

	if err := manager.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(runCtx) })
	g.Go(func() error { maintenance.Run(runCtx); return nil })

	slog.Info("shopchat gateway running", "channels", manager.EnabledChannels(), "version", Version)
	err = g.Wait()

	// Graceful shutdown: flush pending batches, stop channels, drain traces.
	engine.FlushAll()
	grace := time.Duration(cfg.Gateway.ShutdownGraceSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if stopErr := manager.StopAll(shutdownCtx); stopErr != nil {
		slog.Warn("channel shutdown incomplete", "error", stopErr)
	}
	if traceErr := shutdownTracing(shutdownCtx); traceErr != nil {
		slog.Warn("trace flush failed", "error", traceErr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
