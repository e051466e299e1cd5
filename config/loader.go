package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes the environment variables read by Load.
// Nested keys are separated by a double underscore:
//
//	MOBILITYKIT_REGISTRY__UPDATE_INTERVAL=30s  ->  registry.update_interval
const DefaultEnvPrefix = "MOBILITYKIT"

// FileSystem abstracts the file operations of the loader (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem with the os package and godotenv.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

type loaderOptions struct {
	fs         FileSystem
	configFile string
	envFile    string
	envPrefix  string
}

// Option configures Load.
type Option func(*loaderOptions)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) Option {
	return func(o *loaderOptions) { o.fs = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *loaderOptions) { o.envPrefix = prefix }
}

// Load builds a Config for serviceName: the YAML file, then the .env file,
// then prefixed environment variables, with defaults applied and the result
// validated.
func Load(serviceName string, opts ...Option) (*Config, error) {
	cfg := &Config{}
	if err := Unmarshal(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Unmarshal resolves the config and env files for serviceName and decodes
// the merged result into out.
func Unmarshal(serviceName string, out any, opts ...Option) error {
	o := loaderOptions{fs: OSFileSystem{}, envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	configFile := o.configFile
	if configFile == "" {
		configFile = firstExisting(o.fs, configCandidates(serviceName))
	}
	envFile := o.envFile
	if envFile == "" {
		envFile = firstExisting(o.fs, envCandidates(serviceName))
	}

	v := viper.New()
	if configFile != "" {
		if !o.fs.Exists(configFile) {
			return fmt.Errorf("config file %s not found", configFile)
		}
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}
	if envFile != "" && o.fs.Exists(envFile) {
		if err := o.fs.LoadEnv(envFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}
	bindEnv(v, o.envPrefix, os.Environ())

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

func configCandidates(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../../cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
}

func envCandidates(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/.env", serviceName),
		fmt.Sprintf(".env.%s", serviceName),
		".env",
	}
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// bindEnv copies PREFIX_A__B_C=value entries into v as a.b_c.
func bindEnv(v *viper.Viper, prefix string, environ []string) {
	if prefix == "" {
		return
	}
	head := strings.ToUpper(prefix) + "_"
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, head) {
			continue
		}
		if k := EnvKey(strings.TrimPrefix(key, head)); k != "" {
			v.Set(k, value)
		}
	}
}

// EnvKey converts an unprefixed variable name to a viper key.
func EnvKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "__", ".")
}
