package source

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/provider"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "mobilitykit:providers:bss", time.Second, logger.Nop()), mini
}

func TestRedisListProviders(t *testing.T) {
	ctx := context.Background()
	src, mini := newTestRedis(t)

	defs, err := src.ListProviders(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("expected no providers for a missing hash, got %d", len(defs))
	}

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := src.Put(ctx, provider.Definition{
		ID: "velib", Implementation: "gbfs", Arguments: map[string]any{"network": "Velib"}, LastUpdate: at,
	}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	mini.HSet("mobilitykit:providers:bss", "bicloo", `{"id":"ignored","implementation":"gbfs"}`)
	mini.HSet("mobilitykit:providers:bss", "broken", `{not json`)

	defs, err = src.ListProviders(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	if defs[0].ID != "bicloo" || defs[1].ID != "broken" || defs[2].ID != "velib" {
		t.Errorf("expected [bicloo broken velib], got [%s %s %s]", defs[0].ID, defs[1].ID, defs[2].ID)
	}
	if diff := cmp.Diff(provider.Definition{ID: "broken"}, defs[1]); diff != "" {
		t.Errorf("expected the malformed entry listed by id only (-want +got):\n%s", diff)
	}
	if !defs[2].LastUpdate.Equal(at) {
		t.Errorf("expected last update %v, got %v", at, defs[2].LastUpdate)
	}
	if defs[2].Arguments["network"] != "Velib" {
		t.Errorf("expected network arg, got %v", defs[2].Arguments)
	}

	if err := src.Delete(ctx, "velib"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	defs, _ = src.ListProviders(ctx)
	if len(defs) != 2 {
		t.Errorf("expected 2 definitions after delete, got %d", len(defs))
	}
}

func TestRedisListProvidersUnavailable(t *testing.T) {
	src, mini := newTestRedis(t)
	mini.Close()
	if _, err := src.ListProviders(context.Background()); err == nil {
		t.Error("expected an error with redis down")
	}
}

func TestRedisPutStampsLastUpdate(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestRedis(t)
	if err := src.Put(ctx, provider.Definition{ID: "velib", Implementation: "gbfs"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	defs, _ := src.ListProviders(ctx)
	if len(defs) != 1 || defs[0].LastUpdate.IsZero() {
		t.Errorf("expected a stamped definition, got %+v", defs)
	}
}

type stationFeed struct{ id, network string }

func (p *stationFeed) ID() string              { return p.id }
func (p *stationFeed) Status() provider.Status { return provider.Status{ID: p.id, Kind: "stub"} }

func TestRedisMalformedEntryKeepsProvider(t *testing.T) {
	ctx := context.Background()
	src, mini := newTestRedis(t)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	factory := provider.NewFactory[*stationFeed]()
	factory.Register("gbfs", func(id string, args map[string]any) (*stationFeed, error) {
		network, _ := args["network"].(string)
		return &stationFeed{id: id, network: network}, nil
	})
	reg := provider.NewRegistry("bss", factory,
		provider.WithSource[*stationFeed](src),
		provider.WithInterval[*stationFeed](time.Minute),
		provider.WithClock[*stationFeed](func() time.Time { return now }),
		provider.WithLogger[*stationFeed](logger.Nop()),
	)

	if err := src.Put(ctx, provider.Definition{
		ID: "velib", Implementation: "gbfs", Arguments: map[string]any{"network": "Velib"}, LastUpdate: now,
	}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got := reg.Providers(ctx)
	if len(got) != 1 || got[0].ID() != "velib" {
		t.Fatalf("expected velib, got %v", reg.Status())
	}
	velib := got[0]

	tests := []struct {
		name  string
		field string
		raw   string
	}{
		{"velib overwritten with invalid json", "velib", `{"implementation":`},
		{"new id with invalid json", "bicloo", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mini.HSet("mobilitykit:providers:bss", tt.field, tt.raw)
			now = now.Add(2 * time.Minute)

			got := reg.Providers(ctx)
			if len(got) != 1 || got[0] != velib {
				t.Errorf("expected the original velib instance to keep serving, got %v", reg.Status())
			}
		})
	}
}
