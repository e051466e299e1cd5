package provider

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/mobilitykit/errors"
)

// Constructor builds a provider instance from its id and argument map.
type Constructor[T Provider] func(id string, args map[string]any) (T, error)

var referencePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Factory maps implementation references to constructors. It is filled at
// startup; lookups are case-insensitive.
type Factory[T Provider] struct {
	mu    sync.RWMutex
	ctors map[string]Constructor[T]
}

// NewFactory creates an empty Factory.
func NewFactory[T Provider]() *Factory[T] {
	return &Factory[T]{ctors: make(map[string]Constructor[T])}
}

// Register binds name and its aliases to ctor. Registering a name twice panics.
func (f *Factory[T]) Register(name string, ctor Constructor[T], aliases ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		key := strings.ToLower(n)
		if _, dup := f.ctors[key]; dup {
			panic(fmt.Sprintf("provider implementation %q already registered", n))
		}
		f.ctors[key] = ctor
	}
}

// Names returns the registered references, sorted.
func (f *Factory[T]) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.ctors))
	for name := range f.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Construct resolves ref and builds the provider. A reference is looked up by
// its full name, then by its last dotted segment. Unknown or malformed
// references return CONFIGURATION_ERROR; a constructor failure returns
// CONSTRUCTION_FAILED.
func (f *Factory[T]) Construct(id, ref string, args map[string]any) (T, error) {
	var zero T
	ctor, err := f.resolve(ref)
	if err != nil {
		return zero, err
	}
	if args == nil {
		args = map[string]any{}
	}
	instance, err := ctor(id, args)
	if err != nil {
		return zero, errors.ConstructionFailed(id, ref, err)
	}
	return instance, nil
}

func (f *Factory[T]) resolve(ref string) (Constructor[T], error) {
	if ref == "" {
		return nil, errors.Configuration("impossible to build a provider without an implementation reference")
	}
	if !referencePattern.MatchString(ref) {
		return nil, errors.Configuration(fmt.Sprintf("malformed implementation reference %q", ref))
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	key := strings.ToLower(ref)
	if ctor, ok := f.ctors[key]; ok {
		return ctor, nil
	}
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		if ctor, ok := f.ctors[key[i+1:]]; ok {
			return ctor, nil
		}
	}
	return nil, errors.Configuration(fmt.Sprintf("impossible to find implementation %q", ref))
}

// StaticConfig is a provider declared in the service configuration file.
// Class is the implementation reference; Klass is accepted as a synonym.
type StaticConfig struct {
	ID    string         `yaml:"id" mapstructure:"id"`
	Class string         `yaml:"class" mapstructure:"class"`
	Klass string         `yaml:"klass" mapstructure:"klass"`
	Args  map[string]any `yaml:"args" mapstructure:"args"`
}

// Reference returns the implementation reference, preferring Class.
func (c StaticConfig) Reference() string {
	if c.Class != "" {
		return c.Class
	}
	return c.Klass
}

// BuildLegacy constructs the static providers in declaration order. Static
// configuration cannot heal on its own, so any failure is returned.
func BuildLegacy[T Provider](factory *Factory[T], configs []StaticConfig) ([]T, error) {
	out := make([]T, 0, len(configs))
	for i, cfg := range configs {
		ref := cfg.Reference()
		if ref == "" {
			return nil, errors.Configuration(fmt.Sprintf("static provider #%d: impossible to build a provider without class or klass", i))
		}
		id := cfg.ID
		if id == "" {
			if v, ok := cfg.Args["id"].(string); ok {
				id = v
			}
		}
		if id == "" {
			id = fmt.Sprintf("%s-%d", ref, i)
		}
		p, err := factory.Construct(id, ref, cfg.Args)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
