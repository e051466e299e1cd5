package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/mobilitykit/bss"
	"github.com/kbukum/mobilitykit/config"
	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/provider"
	"github.com/kbukum/mobilitykit/source"
	"github.com/kbukum/mobilitykit/streetnetwork"
)

// Implementation references kept for configurations written for the legacy
// deployment.
const (
	legacyGBFSReference   = "jormungandr.parking_space_availability.bss.gbfs.Gbfs"
	legacyKrakenReference = "jormungandr.street_network.kraken.Kraken"
)

// BSSFactory returns the factory of bike-share providers.
func (a *App) BSSFactory() *provider.Factory[bss.Provider] {
	f := provider.NewFactory[bss.Provider]()
	f.Register("gbfs", bss.NewGBFSConstructor(
		bss.WithGBFSLogger(a.Logger.WithComponent("bss.gbfs")),
		bss.WithGBFSMetrics(a.Metrics),
	), legacyGBFSReference)
	return f
}

// StreetNetworkFactory returns the factory of street-network backends. Direct
// paths are cached per backend when path_cache.size is positive.
func (a *App) StreetNetworkFactory() *provider.Factory[streetnetwork.Service] {
	f := provider.NewFactory[streetnetwork.Service]()
	kraken := streetnetwork.NewKrakenConstructor(
		streetnetwork.WithKrakenLogger(a.Logger.WithComponent("streetnetwork.kraken")),
		streetnetwork.WithKrakenMetrics(a.Metrics),
	)
	f.Register("kraken", streetnetwork.Cached(kraken, a.Cfg.PathCache.Size), legacyKrakenReference)
	return f
}

func buildRegistry[T provider.Provider](a *App, family string, factory *provider.Factory[T], static []provider.StaticConfig) (*provider.Registry[T], error) {
	legacy, err := provider.BuildLegacy(factory, static)
	if err != nil {
		return nil, fmt.Errorf("building static %s providers: %w", family, err)
	}

	opts := []provider.Option[T]{
		provider.WithLegacy(legacy),
		provider.WithInterval[T](a.Cfg.Registry.UpdateInterval),
		provider.WithLogger[T](a.Logger.WithComponent("provider.registry")),
		provider.WithMetrics[T](a.Metrics),
	}
	if a.now != nil {
		opts = append(opts, provider.WithClock[T](a.now))
	}

	src, err := a.newSource(family)
	if err != nil {
		return nil, err
	}
	if src != nil {
		opts = append(opts, provider.WithSource[T](source.Coalesce(src)))
	}

	reg := provider.NewRegistry(family, factory, opts...)
	if f, ok := src.(*source.File); ok && a.Cfg.Source.File.Watch {
		a.watches = append(a.watches, func(ctx context.Context) error {
			return f.Watch(ctx, a.Cfg.Source.File.Debounce, reg.Invalidate)
		})
	}
	a.closers = append(a.closers, func(ctx context.Context) {
		closeProviders(ctx, a.Logger, family, reg.Merged())
	})
	return reg, nil
}

// newSource returns the dynamic source of family, or nil when the
// deployment only uses static providers.
func (a *App) newSource(family string) (provider.Source, error) {
	cfg := a.Cfg.Source
	switch cfg.Kind {
	case config.SourceSQL:
		if a.db == nil {
			db, err := source.OpenSQLite(cfg.SQL.DSN, a.Logger.WithComponent("source.sql"), cfg.SQL.AutoMigrate)
			if err != nil {
				return nil, err
			}
			a.db = db
			a.ownsDB = true
		}
		return source.NewSQL(a.db, family, cfg.SQL.QueryTimeout), nil
	case config.SourceRedis:
		if a.redis == nil {
			a.redis = goredis.NewClient(&goredis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			a.ownsRedis = true
		}
		return source.NewRedis(a.redis, cfg.Redis.KeyPrefix+family, cfg.Redis.Timeout, a.Logger.WithComponent("source.redis")), nil
	case config.SourceFile:
		path := filepath.Join(cfg.File.Dir, family+".yml")
		return source.NewFile(path, a.Logger.WithComponent("source.file")), nil
	default:
		return nil, nil
	}
}

func closeProviders[T provider.Provider](ctx context.Context, log *logger.Logger, family string, providers []T) {
	for _, p := range providers {
		c, ok := any(p).(provider.Closeable)
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil {
			log.Warn("closing provider failed", logger.MergeWithError(logger.Fields(
				logger.FieldFamily, family,
				logger.FieldProviderID, p.ID(),
			), err))
		}
	}
}
