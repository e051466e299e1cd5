package bootstrap

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/kbukum/mobilitykit/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	redis           goredis.UniversalClient
	db              *gorm.DB
	now             func() time.Time
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger. If not set, the logger is initialized from
// the service logging config.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithRedisClient supplies the client used by the redis source. The App does
// not close a client it did not create.
func WithRedisClient(c goredis.UniversalClient) Option {
	return func(o *appOptions) {
		o.redis = c
	}
}

// WithDatabase supplies the gorm handle used by the sql source.
func WithDatabase(db *gorm.DB) Option {
	return func(o *appOptions) {
		o.db = db
	}
}

// WithClock injects the time source of every registry poller.
func WithClock(now func() time.Time) Option {
	return func(o *appOptions) {
		o.now = now
	}
}
