package streetnetwork

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kbukum/mobilitykit/wire"
)

func TestCachedService_IgnoresRequestTime(t *testing.T) {
	tr := &recordingTransport{resp: &wire.Response{Journeys: []wire.Journey{{Duration: 300}}}}
	svc, err := NewCachedService(newTestKraken(tr), 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := DirectPathRequest{
		Mode: Walking, Origin: Place{URI: "a"}, Destination: Place{URI: "b"},
		Extremity: departure, PathType: Direct, Params: DefaultParams(),
	}
	first, err := svc.DirectPath(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req.Extremity = PeriodExtremity{Datetime: departure.Datetime.Add(5 * time.Hour), RepresentsStart: true}
	second, err := svc.DirectPath(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("expected the cached response to be returned")
	}
	if tr.calls() != 1 {
		t.Errorf("expected 1 backend call, got %d", tr.calls())
	}

	req.PathType = BeginningFallback
	if _, err := svc.DirectPath(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.calls() != 2 {
		t.Errorf("expected a new path type to miss the cache, got %d calls", tr.calls())
	}
	if svc.Len() != 2 {
		t.Errorf("expected 2 cached paths, got %d", svc.Len())
	}
}

func TestCachedService_KeysOnRequestParameters(t *testing.T) {
	tr := &recordingTransport{resp: &wire.Response{Journeys: []wire.Journey{{Duration: 300}}}}
	svc, err := NewCachedService(newTestKraken(tr), 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	withWalkingSpeed := func(speed float64) Params {
		p := DefaultParams()
		p.Speed[Walking] = speed
		return p
	}
	longerDirect := DefaultParams()
	longerDirect.MaxDirectPathDuration[Walking] = 2 * 86400
	arrival := PeriodExtremity{Datetime: departure.Datetime}

	tests := []struct {
		name      string
		params    Params
		extremity PeriodExtremity
		wantCalls int
	}{
		{"slow walker", withWalkingSpeed(0.5), departure, 1},
		{"fast walker", withWalkingSpeed(2.0), departure, 2},
		{"fast walker arriving", withWalkingSpeed(2.0), arrival, 3},
		{"longer direct budget", longerDirect, departure, 4},
		{"fast walker again", withWalkingSpeed(2.0), departure, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.DirectPath(context.Background(), DirectPathRequest{
				Mode: Walking, Origin: Place{URI: "a"}, Destination: Place{URI: "b"},
				Extremity: tt.extremity, PathType: Direct, Params: tt.params,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.calls() != tt.wantCalls {
				t.Errorf("expected %d backend calls, got %d", tt.wantCalls, tr.calls())
			}
		})
	}

	if got := tr.requests[1].DirectPath.Params.WalkingSpeed; got != 2.0 {
		t.Errorf("expected the fast walker request to carry speed 2.0, got %v", got)
	}
}

func TestCachedService_DoesNotCacheErrors(t *testing.T) {
	tr := &recordingTransport{err: fmt.Errorf("down")}
	svc, err := NewCachedService(newTestKraken(tr), 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := DirectPathRequest{Mode: Walking, Origin: Place{URI: "a"}, Destination: Place{URI: "b"}, Params: DefaultParams()}

	for i := 0; i < 2; i++ {
		if _, err := svc.DirectPath(context.Background(), req); err == nil {
			t.Fatal("expected an error")
		}
	}
	if tr.calls() != 2 {
		t.Errorf("expected 2 backend calls, got %d", tr.calls())
	}
	if svc.Len() != 0 {
		t.Errorf("expected empty cache, got %d", svc.Len())
	}
}

func TestCachedService_Close(t *testing.T) {
	tr := &recordingTransport{}
	svc, _ := NewCachedService(newTestKraken(tr), 4)
	_, _ = svc.DirectPath(context.Background(), DirectPathRequest{Mode: Walking, Params: DefaultParams()})
	if err := svc.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Len() != 0 {
		t.Errorf("expected purged cache, got %d", svc.Len())
	}
}

func TestCached_Decorator(t *testing.T) {
	ctor := func(id string, _ map[string]any) (Service, error) {
		return newTestKraken(&recordingTransport{}), nil
	}

	svc, err := Cached(ctor, 4)("x", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.(*CachedService); !ok {
		t.Errorf("expected *CachedService, got %T", svc)
	}

	svc, _ = Cached(ctor, 0)("x", nil)
	if _, ok := svc.(*Kraken); !ok {
		t.Errorf("expected uncached *Kraken, got %T", svc)
	}
}
