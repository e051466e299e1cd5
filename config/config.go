package config

import (
	"fmt"
	"time"

	"github.com/kbukum/mobilitykit/observability"
	"github.com/kbukum/mobilitykit/provider"
	"github.com/kbukum/mobilitykit/validation"
)

// Source kinds.
const (
	SourceNone  = "none"
	SourceSQL   = "sql"
	SourceRedis = "redis"
	SourceFile  = "file"
)

// Config is the full mobilityd configuration tree.
type Config struct {
	Service       ServiceConfig        `yaml:"service" mapstructure:"service"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Registry      RegistryConfig       `yaml:"registry" mapstructure:"registry"`
	Source        SourceConfig         `yaml:"source" mapstructure:"source"`
	BSS           BSSConfig            `yaml:"bss" mapstructure:"bss"`
	StreetNetwork StreetNetworkConfig  `yaml:"street_network" mapstructure:"street_network"`
	PathCache     PathCacheConfig      `yaml:"path_cache" mapstructure:"path_cache"`
	Admin         AdminConfig          `yaml:"admin" mapstructure:"admin"`
}

// RegistryConfig controls provider refresh.
type RegistryConfig struct {
	// UpdateInterval is the minimum delay between two reads of the provider source.
	UpdateInterval time.Duration `yaml:"update_interval" mapstructure:"update_interval"`
}

// SourceConfig selects where dynamic provider definitions come from.
type SourceConfig struct {
	Kind  string            `yaml:"kind" mapstructure:"kind" validate:"oneof=none sql redis file"`
	SQL   SQLSourceConfig   `yaml:"sql" mapstructure:"sql"`
	Redis RedisSourceConfig `yaml:"redis" mapstructure:"redis"`
	File  FileSourceConfig  `yaml:"file" mapstructure:"file"`
}

// SQLSourceConfig configures the gorm-backed source.
type SQLSourceConfig struct {
	// DSN is the sqlite database path or URI.
	DSN          string        `yaml:"dsn" mapstructure:"dsn"`
	QueryTimeout time.Duration `yaml:"query_timeout" mapstructure:"query_timeout"`
	AutoMigrate  bool          `yaml:"auto_migrate" mapstructure:"auto_migrate"`
}

// RedisSourceConfig configures the Redis hash source. Each family reads the
// hash KeyPrefix + family.
type RedisSourceConfig struct {
	Addr      string        `yaml:"addr" mapstructure:"addr"`
	Password  string        `yaml:"password" mapstructure:"password"`
	DB        int           `yaml:"db" mapstructure:"db"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// FileSourceConfig configures the YAML file source. Each family reads
// Dir/<family>.yml.
type FileSourceConfig struct {
	Dir      string        `yaml:"dir" mapstructure:"dir"`
	Watch    bool          `yaml:"watch" mapstructure:"watch"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// BSSConfig lists the static bike-share providers.
type BSSConfig struct {
	Providers []provider.StaticConfig `yaml:"providers" mapstructure:"providers"`
}

// StreetNetworkConfig lists the static street-network backends.
type StreetNetworkConfig struct {
	Backends []provider.StaticConfig `yaml:"backends" mapstructure:"backends"`
}

// PathCacheConfig sizes the direct path cache. Size 0 disables it.
type PathCacheConfig struct {
	Size int `yaml:"size" mapstructure:"size" validate:"gte=0"`
}

// AdminConfig configures the operational HTTP surface.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// ApplyDefaults fills every unset section.
func (c *Config) ApplyDefaults() {
	c.Service.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Registry.UpdateInterval == 0 {
		c.Registry.UpdateInterval = provider.DefaultUpdateInterval
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceNone
	}
	if c.Source.SQL.QueryTimeout == 0 {
		c.Source.SQL.QueryTimeout = 5 * time.Second
	}
	if c.Source.Redis.KeyPrefix == "" {
		c.Source.Redis.KeyPrefix = "mobilitykit:providers:"
	}
	if c.Source.Redis.Timeout == 0 {
		c.Source.Redis.Timeout = 2 * time.Second
	}
	if c.Source.File.Debounce == 0 {
		c.Source.File.Debounce = 500 * time.Millisecond
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = ":8081"
	}
}

// Validate checks the whole tree.
func (c *Config) Validate() error {
	if err := c.Service.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	if err := validation.Struct(c); err != nil {
		return err
	}
	switch c.Source.Kind {
	case SourceSQL:
		if c.Source.SQL.DSN == "" {
			return fmt.Errorf("source.sql.dsn is required for kind %q", SourceSQL)
		}
	case SourceRedis:
		if c.Source.Redis.Addr == "" {
			return fmt.Errorf("source.redis.addr is required for kind %q", SourceRedis)
		}
	case SourceFile:
		if c.Source.File.Dir == "" {
			return fmt.Errorf("source.file.dir is required for kind %q", SourceFile)
		}
	}
	for i, p := range c.BSS.Providers {
		if p.Reference() == "" {
			return fmt.Errorf("bss.providers[%d]: class is required", i)
		}
	}
	for i, b := range c.StreetNetwork.Backends {
		if b.Reference() == "" {
			return fmt.Errorf("street_network.backends[%d]: class is required", i)
		}
	}
	return nil
}
