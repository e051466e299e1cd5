package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/provider"
)

// Redis reads one hash per family: field = provider id, value = JSON
// definition. The hash field wins over an "id" inside the document.
type Redis struct {
	client  goredis.UniversalClient
	key     string
	timeout time.Duration
	log     *logger.Logger
}

// NewRedis creates a Redis source reading hash key.
func NewRedis(client goredis.UniversalClient, key string, timeout time.Duration, log *logger.Logger) *Redis {
	if log == nil {
		log = logger.Get("source.redis")
	}
	return &Redis{client: client, key: key, timeout: timeout, log: log}
}

// ListProviders implements provider.Source. A missing hash means no
// provider. An entry that is not valid JSON is listed by id only, so the
// registry keeps the instance it already serves for that id.
func (r *Redis) ListProviders(ctx context.Context) ([]provider.Definition, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	entries, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading provider hash %s: %w", r.key, err)
	}

	defs := make([]provider.Definition, 0, len(entries))
	for id, raw := range entries {
		var def provider.Definition
		if err := json.Unmarshal([]byte(raw), &def); err != nil {
			r.log.Warn("malformed provider definition, keeping current instance", logger.MergeWithError(
				logger.Fields(logger.FieldProviderID, id, "key", r.key), err))
			def = provider.Definition{}
		}
		def.ID = id
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// Put stores def in the hash, stamping LastUpdate when unset.
func (r *Redis) Put(ctx context.Context, def provider.Definition) error {
	if def.LastUpdate.IsZero() {
		def.LastUpdate = time.Now().UTC()
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding provider %s: %w", def.ID, err)
	}
	return r.client.HSet(ctx, r.key, def.ID, raw).Err()
}

// Delete removes a provider from the hash.
func (r *Redis) Delete(ctx context.Context, id string) error {
	return r.client.HDel(ctx, r.key, id).Err()
}
