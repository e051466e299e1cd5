package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/mobilitykit/config"
	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/provider"
	"github.com/kbukum/mobilitykit/source"
	"github.com/kbukum/mobilitykit/streetnetwork"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "mobilityd-test", Environment: "development"},
		StreetNetwork: config.StreetNetworkConfig{Backends: []provider.StaticConfig{{
			ID:    "kraken-static",
			Klass: "jormungandr.street_network.kraken.Kraken",
			Args: map[string]any{
				"service_url": "tcp://127.0.0.1:30000",
				"modes":       []any{"walking", "car"},
			},
		}}},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop()), WithGracefulTimeout(2 * time.Second)}, opts...)
	app, err := NewApp(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func gbfsDefinition(id string) map[string]any {
	return map[string]any{
		"feed_url": "http://127.0.0.1:1/" + id + "/station_status.json",
		"network":  id,
	}
}

func TestNewAppStaticProviders(t *testing.T) {
	app := newTestApp(t, newTestConfig())
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

	if app.Name != "mobilityd-test" {
		t.Errorf("expected name mobilityd-test, got %q", app.Name)
	}
	if app.Admin != nil {
		t.Error("expected no admin server when disabled")
	}

	svc, err := app.StreetNetwork.ForMode(context.Background(), streetnetwork.Car)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.ID() != "kraken-static" {
		t.Errorf("expected kraken-static, got %s", svc.ID())
	}
	if _, ok := svc.(*streetnetwork.CachedService); ok {
		t.Error("expected no path cache with size 0")
	}
	if got := app.BSS.Providers(context.Background()); len(got) != 0 {
		t.Errorf("expected no bss providers, got %d", len(got))
	}
}

func TestNewAppPathCache(t *testing.T) {
	cfg := newTestConfig()
	cfg.PathCache.Size = 16
	app := newTestApp(t, cfg)
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

	svc, err := app.StreetNetwork.Get(context.Background(), "kraken-static")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.(*streetnetwork.CachedService); !ok {
		t.Errorf("expected a cached service, got %T", svc)
	}
}

func TestNewAppErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"sql source without dsn", func(c *config.Config) { c.Source.Kind = config.SourceSQL }},
		{"unknown source kind", func(c *config.Config) { c.Source.Kind = "etcd" }},
		{"unknown static implementation", func(c *config.Config) {
			c.StreetNetwork.Backends[0].Klass = "jormungandr.street_network.valhalla.Valhalla"
		}},
		{"static backend without service url", func(c *config.Config) {
			delete(c.StreetNetwork.Backends[0].Args, "service_url")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			tt.modify(cfg)
			if _, err := NewApp(context.Background(), cfg, WithLogger(logger.Nop())); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSQLSource(t *testing.T) {
	ctx := context.Background()
	db, err := source.OpenSQLite(filepath.Join(t.TempDir(), "providers.db"), logger.Nop(), true)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	sqlSource := source.NewSQL(db, "bss", time.Second)
	if err := sqlSource.Save(ctx, &source.ProviderRecord{
		ID: "velib", Family: "bss", Klass: "gbfs", Args: gbfsDefinition("Velib"),
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	cfg := newTestConfig()
	cfg.Source.Kind = config.SourceSQL
	cfg.Source.SQL.DSN = "unused"
	app := newTestApp(t, cfg, WithDatabase(db))
	t.Cleanup(func() { _ = app.Shutdown(ctx) })

	providers := app.BSS.Providers(ctx)
	if len(providers) != 1 || providers[0].ID() != "velib" {
		t.Fatalf("expected the velib provider, got %v", app.BSS.Status())
	}
	// street_network records live under another family.
	if got := app.StreetNetwork.Registry().Providers(ctx); len(got) != 1 {
		t.Errorf("expected only the static backend, got %d", len(got))
	}
}

func TestRedisSource(t *testing.T) {
	ctx := context.Background()
	mini := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := newTestConfig()
	cfg.Source.Kind = config.SourceRedis
	cfg.Source.Redis.Addr = mini.Addr()
	app := newTestApp(t, cfg, WithRedisClient(client))
	t.Cleanup(func() { _ = app.Shutdown(ctx) })

	mini.HSet("mobilitykit:providers:street_network", "kraken-dyn",
		`{"implementation":"kraken","arguments":{"service_url":"tcp://127.0.0.1:30001","modes":["bike"]}}`)

	var got []string
	for _, st := range app.StreetNetwork.Registry().Providers(ctx) {
		got = append(got, st.ID())
	}
	if diff := cmp.Diff([]string{"kraken-dyn", "kraken-static"}, got); diff != "" {
		t.Errorf("providers mismatch (-want +got):\n%s", diff)
	}

	svc, err := app.StreetNetwork.ForMode(ctx, streetnetwork.Bike)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.ID() != "kraken-dyn" {
		t.Errorf("expected kraken-dyn to serve bike, got %s", svc.ID())
	}
}

func writeProviderFile(t *testing.T, path string, ids ...string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("providers:\n")
	for _, id := range ids {
		b.WriteString("  - id: " + id + "\n")
		b.WriteString("    implementation: gbfs\n")
		b.WriteString("    arguments:\n")
		b.WriteString("      feed_url: http://127.0.0.1:1/" + id + "/station_status.json\n")
		b.WriteString("      network: " + id + "\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestFileSourceWatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "bss.yml")
	writeProviderFile(t, path, "velib")

	cfg := newTestConfig()
	cfg.Registry.UpdateInterval = time.Hour
	cfg.Source.Kind = config.SourceFile
	cfg.Source.File = config.FileSourceConfig{Dir: dir, Watch: true, Debounce: 20 * time.Millisecond}
	app := newTestApp(t, cfg)
	if err := app.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Shutdown(ctx) })

	if got := app.BSS.Registry().Merged(); len(got) != 1 {
		t.Fatalf("expected 1 provider after start, got %d", len(got))
	}

	// let the watcher register the directory
	time.Sleep(100 * time.Millisecond)
	writeProviderFile(t, path, "velib", "bicloo")

	deadline := time.Now().Add(5 * time.Second)
	for {
		if len(app.BSS.Providers(ctx)) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected the file change to add a provider, got %v", app.BSS.Status())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestAdminServer(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	cfg.Admin = config.AdminConfig{Enabled: true, Addr: "127.0.0.1:0"}
	app := newTestApp(t, cfg)

	var events []string
	app.OnStart(func(context.Context) error { events = append(events, "start"); return nil })
	app.OnReady(func(context.Context) error { events = append(events, "ready"); return nil })
	app.OnStop(func(context.Context) error { events = append(events, "stop"); return nil })

	if err := app.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	resp, err := http.Get("http://" + app.Admin.Addr() + "/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Data struct {
			Service  string                       `json:"service"`
			Families map[string][]provider.Status `json:"families"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Data.Service != "mobilityd-test" {
		t.Errorf("expected service mobilityd-test, got %q", body.Data.Service)
	}
	want := []provider.Status{{ID: "kraken-static", Kind: "Kraken", Modes: []string{"walking", "car"}}}
	if diff := cmp.Diff(want, body.Data.Families["street_network"]); diff != "" {
		t.Errorf("street_network status mismatch (-want +got):\n%s", diff)
	}

	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if diff := cmp.Diff([]string{"start", "ready", "stop"}, events); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}
}

func TestStartHookFailure(t *testing.T) {
	app := newTestApp(t, newTestConfig())
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	app.OnStart(func(context.Context) error { return os.ErrPermission })

	if err := app.Start(context.Background()); err == nil {
		t.Error("expected start to fail")
	}
}

func TestSummaryDisplay(t *testing.T) {
	s := &Summary{
		Service:         "mobilityd",
		Version:         "1.2.0",
		StartupDuration: 1500 * time.Millisecond,
		Source:          "redis",
		AdminAddr:       "127.0.0.1:8081",
		Families: []FamilySummary{
			{Family: "bss", Providers: []provider.Status{{ID: "velib", Kind: "GBFS"}}},
			{Family: "street_network", Providers: []provider.Status{
				{ID: "k1", Kind: "Kraken", Modes: []string{"walking"}},
				{ID: "k2", Kind: "Kraken", Modes: []string{"car", "taxi"}},
			}},
		},
	}
	var buf bytes.Buffer
	s.Display(&buf)
	out := buf.String()

	for _, want := range []string{
		"mobilityd 1.2.0 started in 1.50s",
		"Provider source: redis",
		"bss (1)",
		"└── velib [GBFS]",
		"├── k1 [Kraken] walking",
		"└── k2 [Kraken] car,taxi",
		"Admin: http://127.0.0.1:8081",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, out)
		}
	}
}
