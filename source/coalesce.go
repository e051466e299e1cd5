package source

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/kbukum/mobilitykit/provider"
)

// Coalescing shares one in-flight enumeration of the wrapped source between
// concurrent callers.
type Coalescing struct {
	src   provider.Source
	group singleflight.Group
}

// Coalesce wraps src.
func Coalesce(src provider.Source) *Coalescing {
	return &Coalescing{src: src}
}

// ListProviders implements provider.Source. Callers joining an in-flight call
// receive their own copy of its result.
func (c *Coalescing) ListProviders(ctx context.Context) ([]provider.Definition, error) {
	v, err, _ := c.group.Do("providers", func() (interface{}, error) {
		return c.src.ListProviders(ctx)
	})
	if err != nil {
		return nil, err
	}
	defs := v.([]provider.Definition)
	return append(make([]provider.Definition, 0, len(defs)), defs...), nil
}
