package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/observability"
	"github.com/kbukum/mobilitykit/provider"
	"github.com/kbukum/mobilitykit/source"
)

type backend struct {
	id  string
	url string
}

func (b *backend) ID() string { return b.id }
func (b *backend) Status() provider.Status {
	return provider.Status{ID: b.id, Kind: "Backend", Modes: []string{"walking"}}
}

func newBackendFactory() *provider.Factory[*backend] {
	f := provider.NewFactory[*backend]()
	f.Register("backend", func(id string, args map[string]any) (*backend, error) {
		url, _ := args["url"].(string)
		if url == "" {
			return nil, fmt.Errorf("url is required")
		}
		return &backend{id: id, url: url}, nil
	})
	return f
}

func newTestEngine(t *testing.T) (*gin.Engine, *provider.Registry[*backend], *provider.Registry[*backend]) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sn := provider.NewRegistry("street_network", newBackendFactory(),
		provider.WithSource[*backend](source.NewMemory(provider.Definition{
			ID: "kraken", Implementation: "backend", Arguments: map[string]any{"url": "tcp://k:1"},
		})),
		provider.WithLogger[*backend](logger.Nop()),
	)
	bss := provider.NewRegistry("bss", newBackendFactory(), provider.WithLogger[*backend](logger.Nop()))

	e := gin.New()
	NewHandler("mobilityd", logger.Nop(), sn, bss).Register(e)
	return e, sn, bss
}

func do(e *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	e.ServeHTTP(w, req)
	return w
}

func TestHealth_DegradedWhenFamilyEmpty(t *testing.T) {
	e, sn, _ := newTestEngine(t)
	sn.Refresh(t.Context())

	w := do(e, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got observability.ServiceHealth
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != observability.HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", got.Status)
	}
	if len(got.Components) != 2 || got.Components[0].Name != "bss" {
		t.Errorf("expected families sorted by name, got %+v", got.Components)
	}
}

func TestStatus(t *testing.T) {
	e, sn, _ := newTestEngine(t)
	sn.Refresh(t.Context())

	w := do(e, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got struct {
		Data StatusResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string][]provider.Status{
		"street_network": {{ID: "kraken", Kind: "Backend", Modes: []string{"walking"}}},
		"bss":            {},
	}
	if diff := cmp.Diff(want, got.Data.Families); diff != "" {
		t.Errorf("families mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateProvider(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"constructed", "/providers/bss/velib", `{"implementation":"backend","arguments":{"url":"http://v"}}`, http.StatusOK},
		{"unknown family", "/providers/parking/p1", `{"implementation":"backend"}`, http.StatusNotFound},
		{"malformed body", "/providers/bss/velib", `{`, http.StatusBadRequest},
		{"missing implementation", "/providers/bss/velib", `{"arguments":{}}`, http.StatusBadRequest},
		{"unknown implementation", "/providers/bss/velib", `{"implementation":"nope"}`, http.StatusBadRequest},
		{"construction failure", "/providers/bss/velib", `{"implementation":"backend","arguments":{}}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newTestEngine(t)
			w := do(e, http.MethodPut, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestUpdateProvider_SwapsInstance(t *testing.T) {
	e, _, bss := newTestEngine(t)
	w := do(e, http.MethodPut, "/providers/bss/velib", `{"implementation":"backend","arguments":{"url":"http://v1"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	p, ok := bss.Get("velib")
	if !ok || p.url != "http://v1" {
		t.Fatalf("expected velib with url v1, got %+v", p)
	}

	do(e, http.MethodPut, "/providers/bss/velib", `{"implementation":"backend","arguments":{"url":"http://v2"}}`)
	p, _ = bss.Get("velib")
	if p.url != "http://v2" {
		t.Errorf("expected url v2, got %s", p.url)
	}
}

func TestRefresh(t *testing.T) {
	e, sn, _ := newTestEngine(t)
	sn.Refresh(t.Context())
	if sn.Refresh(t.Context()) {
		t.Fatal("expected no refresh within the interval")
	}

	w := do(e, http.MethodPost, "/providers/street_network/refresh", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if !sn.Refresh(t.Context()) {
		t.Error("expected a refresh after invalidation")
	}
}
