package bss

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/mobilitykit/httpclient"
	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/observability"
	"github.com/kbukum/mobilitykit/provider"
)

// GBFSKind is the implementation name reported in statuses.
const GBFSKind = "GBFS"

// GBFSArgs are the provider arguments of a GBFS feed.
type GBFSArgs struct {
	// FeedURL points at station_status.json.
	FeedURL   string            `mapstructure:"feed_url" validate:"required,url"`
	Network   string            `mapstructure:"network" validate:"required"`
	Operators []string          `mapstructure:"operators"`
	TTL       time.Duration     `mapstructure:"ttl"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	Headers   map[string]string `mapstructure:"headers"`
}

// GBFS reads stand availability from a GBFS station_status feed.
type GBFS struct {
	id        string
	network   string
	operators []string
	feedURL   string
	ttl       time.Duration
	client    *httpclient.Client
	fetch     provider.RequestResponse[feedRequest, *gbfsStationStatus]
	now       func() time.Time
	metrics   *observability.Metrics
	log       *logger.Logger

	group     singleflight.Group
	mu        sync.RWMutex
	stations  map[string]gbfsStation
	fetchedAt time.Time
}

// GBFSOption configures a GBFS provider.
type GBFSOption func(*GBFS)

// WithGBFSClock sets the clock used for the feed TTL.
func WithGBFSClock(now func() time.Time) GBFSOption {
	return func(g *GBFS) { g.now = now }
}

// WithGBFSMetrics sets the backend request instruments.
func WithGBFSMetrics(m *observability.Metrics) GBFSOption {
	return func(g *GBFS) { g.metrics = m }
}

// WithGBFSLogger sets the logger.
func WithGBFSLogger(l *logger.Logger) GBFSOption {
	return func(g *GBFS) { g.log = l }
}

// NewGBFS creates a provider from decoded arguments.
func NewGBFS(id string, args GBFSArgs, opts ...GBFSOption) (*GBFS, error) {
	if args.TTL <= 0 {
		args.TTL = time.Minute
	}
	client, err := httpclient.New(httpclient.Config{
		Name:           id,
		Timeout:        args.Timeout,
		Headers:        args.Headers,
		Retry:          httpclient.DefaultRetryConfig(),
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(id),
	})
	if err != nil {
		return nil, err
	}
	operators := make([]string, len(args.Operators))
	for i, op := range args.Operators {
		operators[i] = strings.ToLower(op)
	}
	g := &GBFS{
		id:        id,
		network:   args.Network,
		operators: operators,
		feedURL:   args.FeedURL,
		ttl:       args.TTL,
		client:    client,
		now:       time.Now,
		log:       logger.Get("bss.gbfs"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.fetch = provider.Chain(
		provider.WithTracing[feedRequest, *gbfsStationStatus]("bss.gbfs"),
		provider.WithLogging[feedRequest, *gbfsStationStatus](g.log),
		provider.WithRequestMetrics[feedRequest, *gbfsStationStatus](g.metrics),
	)(provider.RequestResponseFunc(id, g.fetchStatus))
	return g, nil
}

// NewGBFSConstructor returns the registry constructor for GBFS providers.
func NewGBFSConstructor(opts ...GBFSOption) provider.Constructor[Provider] {
	return func(id string, args map[string]any) (Provider, error) {
		var a GBFSArgs
		if err := provider.DecodeArgs(args, &a); err != nil {
			return nil, err
		}
		return NewGBFS(id, a, opts...)
	}
}

// ID returns the provider id.
func (g *GBFS) ID() string { return g.id }

// Status describes the provider.
func (g *GBFS) Status() provider.Status {
	return provider.Status{ID: g.id, Kind: GBFSKind}
}

// Close drops the idle connections to the feed.
func (g *GBFS) Close(context.Context) error {
	g.client.CloseIdleConnections()
	return nil
}

// Handles matches stations of the configured network, restricted to the
// configured operators when any. Stations need a ref to be looked up.
func (g *GBFS) Handles(poi *POI) bool {
	if poi == nil || poi.Properties["ref"] == "" {
		return false
	}
	if !strings.EqualFold(poi.Properties["network"], g.network) {
		return false
	}
	if len(g.operators) == 0 {
		return true
	}
	return slices.Contains(g.operators, strings.ToLower(poi.Properties["operator"]))
}

// Stands returns the availability of poi's station. A station missing from
// the feed is reported unavailable.
func (g *GBFS) Stands(ctx context.Context, poi *POI) (*Stands, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanBSSStands,
		attribute.String(observability.AttrProviderID, g.id),
	)
	defer span.End()

	stations, err := g.feed(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	st, ok := stations[poi.Properties["ref"]]
	if !ok {
		return UnavailableStands(), nil
	}
	return st.stands(), nil
}

// feed returns the cached stations, refetching once the TTL has elapsed.
// Concurrent refetches share one request, which is not cancelled when the
// caller that started it goes away; each caller still returns on its own
// ctx.
func (g *GBFS) feed(ctx context.Context) (map[string]gbfsStation, error) {
	g.mu.RLock()
	stations, fetchedAt := g.stations, g.fetchedAt
	g.mu.RUnlock()
	if stations != nil && g.now().Sub(fetchedAt) < g.ttl {
		return stations, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan("feed", func() (any, error) {
		doc, err := g.fetch.Execute(fetchCtx, feedRequest{url: g.feedURL})
		if err != nil {
			return nil, err
		}
		fresh := make(map[string]gbfsStation, len(doc.Data.Stations))
		for _, st := range doc.Data.Stations {
			fresh[st.StationID] = st
		}
		g.mu.Lock()
		g.stations, g.fetchedAt = fresh, g.now()
		g.mu.Unlock()
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]gbfsStation), nil
	}
}

func (g *GBFS) fetchStatus(ctx context.Context, req feedRequest) (*gbfsStationStatus, error) {
	var doc gbfsStationStatus
	if err := g.client.GetJSON(ctx, req.url, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

type feedRequest struct{ url string }

func (feedRequest) Operation() string { return "station_status" }

type gbfsStationStatus struct {
	LastUpdated int64 `json:"last_updated"`
	TTL         int   `json:"ttl"`
	Data        struct {
		Stations []gbfsStation `json:"stations"`
	} `json:"data"`
}

type gbfsStation struct {
	StationID         string    `json:"station_id"`
	NumBikesAvailable int       `json:"num_bikes_available"`
	NumBikesDisabled  int       `json:"num_bikes_disabled"`
	NumDocksAvailable int       `json:"num_docks_available"`
	NumDocksDisabled  int       `json:"num_docks_disabled"`
	IsInstalled       *flexBool `json:"is_installed"`
	IsRenting         *flexBool `json:"is_renting"`
	IsReturning       *flexBool `json:"is_returning"`
}

func (s gbfsStation) stands() *Stands {
	status := StatusOpen
	if !s.IsInstalled.orTrue() || !s.IsRenting.orTrue() || !s.IsReturning.orTrue() {
		status = StatusClosed
	}
	return &Stands{
		AvailablePlaces: s.NumDocksAvailable,
		AvailableBikes:  s.NumBikesAvailable,
		TotalStands: s.NumBikesAvailable + s.NumBikesDisabled +
			s.NumDocksAvailable + s.NumDocksDisabled,
		Status: status,
	}
}

// flexBool accepts GBFS v1 integers as well as v2 booleans.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(data, `"`)) {
	case "1", "true":
		*b = true
	default:
		*b = false
	}
	return nil
}

func (b *flexBool) orTrue() bool {
	return b == nil || bool(*b)
}
