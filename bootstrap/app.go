package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/kbukum/mobilitykit/admin"
	"github.com/kbukum/mobilitykit/bss"
	"github.com/kbukum/mobilitykit/config"
	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/observability"
	"github.com/kbukum/mobilitykit/server"
	"github.com/kbukum/mobilitykit/streetnetwork"
	"github.com/kbukum/mobilitykit/version"
)

// App is a configured mobilityd process.
type App struct {
	Name    string
	Version string
	Cfg     *config.Config
	Logger  *logger.Logger
	Metrics *observability.Metrics

	BSS           *bss.Manager
	StreetNetwork *streetnetwork.Manager
	// Admin is nil unless admin.enabled is set.
	Admin *server.Server

	gracefulTimeout   time.Duration
	now               func() time.Time
	shutdownTelemetry observability.ShutdownFunc

	db        *gorm.DB
	ownsDB    bool
	redis     goredis.UniversalClient
	ownsRedis bool

	watches     []Hook
	stopWatches context.CancelFunc
	watchGroup  sync.WaitGroup
	closers     []func(ctx context.Context)

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp validates cfg and builds every family. Static providers are
// constructed here, so a broken static declaration fails startup.
func NewApp(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	a := &App{
		Name:            cfg.Service.Name,
		Version:         version.Get().Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
		now:             o.now,
		db:              o.db,
		redis:           o.redis,
	}
	if o.gracefulTimeout != nil {
		a.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		a.Logger = o.logger
	} else {
		a.Logger = logger.Init(cfg.Service.Logging, cfg.Service.Name)
	}

	shutdown, err := observability.Init(ctx, cfg.Observability, a.Name, a.Version)
	if err != nil {
		return nil, fmt.Errorf("observability init: %w", err)
	}
	a.shutdownTelemetry = shutdown

	a.Metrics, err = observability.NewMetrics(observability.Meter())
	if err != nil {
		a.release(ctx)
		return nil, err
	}

	if err := a.buildFamilies(); err != nil {
		a.release(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) buildFamilies() error {
	bssRegistry, err := buildRegistry(a, bss.Family, a.BSSFactory(), a.Cfg.BSS.Providers)
	if err != nil {
		return err
	}
	a.BSS = bss.NewManager(bssRegistry, a.Logger.WithComponent("bss"))

	snRegistry, err := buildRegistry(a, streetnetwork.Family, a.StreetNetworkFactory(), a.Cfg.StreetNetwork.Backends)
	if err != nil {
		return err
	}
	a.StreetNetwork = streetnetwork.NewManager(snRegistry)

	if a.Cfg.Admin.Enabled {
		a.Admin = server.New(server.Config{Addr: a.Cfg.Admin.Addr}, a.Logger)
		a.Admin.ApplyMiddleware()
		admin.NewHandler(a.Name, a.Logger.WithComponent("admin"), bssRegistry, snRegistry).
			Register(a.Admin.Engine())
	}
	return nil
}

// Run starts the App, blocks until a shutdown signal or ctx is done, then
// shuts down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	a.Logger.Info("application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.Shutdown(context.Background())
}

// Start runs the OnStart hooks, primes both registries, launches file
// watchers and the admin server, then runs the OnReady hooks.
func (a *App) Start(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	a.BSS.Registry().Refresh(ctx)
	a.StreetNetwork.Registry().Refresh(ctx)

	watchCtx, cancel := context.WithCancel(context.Background())
	a.stopWatches = cancel
	for _, watch := range a.watches {
		a.watchGroup.Add(1)
		go func(w Hook) {
			defer a.watchGroup.Done()
			if err := w(watchCtx); err != nil {
				a.Logger.Error("provider file watch stopped", logger.MergeWithError(nil, err))
			}
		}(watch)
	}

	if a.Admin != nil {
		if err := a.Admin.Start(ctx); err != nil {
			return err
		}
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary(time.Since(start)).Display(os.Stdout)
	return nil
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx cancellation.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("context canceled, shutting down")
		return nil
	}
}

// Shutdown stops the App within the graceful timeout. The first error is
// returned; later steps still run.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(ctx, a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.MergeWithError(nil, err))
		shutdownErr = err
	}

	if a.Admin != nil {
		if err := a.Admin.Stop(ctx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	if a.stopWatches != nil {
		a.stopWatches()
		a.watchGroup.Wait()
	}

	if err := a.release(ctx); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	a.Logger.Info("application shutdown complete")
	return shutdownErr
}

// release closes providers, owned connections and telemetry, in that order.
func (a *App) release(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil

	if a.ownsRedis && a.redis != nil {
		keep(a.redis.Close())
		a.redis = nil
	}
	if a.ownsDB && a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			keep(sqlDB.Close())
		}
		a.db = nil
	}
	if a.shutdownTelemetry != nil {
		keep(a.shutdownTelemetry(ctx))
		a.shutdownTelemetry = nil
	}
	return firstErr
}
