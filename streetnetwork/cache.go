package streetnetwork

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/kbukum/mobilitykit/provider"
	"github.com/kbukum/mobilitykit/wire"
)

// CachedService memoizes successful direct paths of a Service. Entries are
// keyed by PathKey plus a fingerprint of the request parameters, so requests
// with other speeds, budgets or direction never share a path. Cached
// responses are shared and must be treated as read-only.
type CachedService struct {
	Service
	cache *lru.Cache
}

// PathFingerprinter is implemented by services that can fingerprint the
// backend request a DirectPathRequest produces, datetime excluded.
type PathFingerprinter interface {
	PathFingerprint(req DirectPathRequest) string
}

type cacheKey struct {
	path   PathKey
	params string
}

// NewCachedService wraps svc with an LRU cache of size entries.
func NewCachedService(svc Service, size int) (*CachedService, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedService{Service: svc, cache: c}, nil
}

// DirectPath returns the cached path for the request's key or computes it.
func (c *CachedService) DirectPath(ctx context.Context, req DirectPathRequest) (*wire.Response, error) {
	key := c.key(req)
	if v, ok := c.cache.Get(key); ok {
		return v.(*wire.Response), nil
	}
	resp, err := c.Service.DirectPath(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, resp)
	return resp, nil
}

func (c *CachedService) key(req DirectPathRequest) cacheKey {
	extremity := req.Extremity
	key := cacheKey{path: c.MakePathKey(req.Mode, req.Origin.WireURI(), req.Destination.WireURI(), req.PathType, &extremity)}
	if fp, ok := c.Service.(PathFingerprinter); ok {
		key.params = fp.PathFingerprint(req)
	} else {
		// fmt prints maps sorted by key.
		key.params = fmt.Sprint(req.Params, req.Extremity.RepresentsStart)
	}
	return key
}

// Len returns the number of cached paths.
func (c *CachedService) Len() int { return c.cache.Len() }

// Close drops the cache and closes the wrapped service when it is closeable.
func (c *CachedService) Close(ctx context.Context) error {
	c.cache.Purge()
	if closer, ok := c.Service.(provider.Closeable); ok {
		return closer.Close(ctx)
	}
	return nil
}

// Cached decorates a constructor so every built service gets its own cache.
// A non-positive size leaves services uncached.
func Cached(ctor provider.Constructor[Service], size int) provider.Constructor[Service] {
	if size <= 0 {
		return ctor
	}
	return func(id string, args map[string]any) (Service, error) {
		svc, err := ctor(id, args)
		if err != nil {
			return nil, err
		}
		return NewCachedService(svc, size)
	}
}
