package streetnetwork

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/mobilitykit/errors"
	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/observability"
	"github.com/kbukum/mobilitykit/provider"
	"github.com/kbukum/mobilitykit/resilience"
	"github.com/kbukum/mobilitykit/wire"
)

const (
	// KrakenKind is the implementation name reported in statuses.
	KrakenKind = "Kraken"
	// DefaultKrakenID is used when no id is configured.
	DefaultKrakenID = "kraken"
)

// KrakenArgs are the provider arguments of a Kraken backend.
type KrakenArgs struct {
	ServiceURL    string        `mapstructure:"service_url" validate:"required"`
	Modes         []string      `mapstructure:"modes"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxFailures   int           `mapstructure:"circuit_breaker_max_failures" validate:"gte=0"`
	ResetTimeout  time.Duration `mapstructure:"circuit_breaker_reset_timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent" validate:"gte=0"`
	// RateLimit caps requests per second to the backend; 0 disables it.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`
}

// Kraken is the adapter for the Kraken routing engine.
type Kraken struct {
	id        string
	modes     []Mode
	transport wire.Transport
	exchange  provider.RequestResponse[*wire.Request, *wire.Response]
	log       *logger.Logger
	metrics   *observability.Metrics
}

// KrakenOption configures a Kraken adapter.
type KrakenOption func(*Kraken)

// WithKrakenLogger sets the logger.
func WithKrakenLogger(l *logger.Logger) KrakenOption {
	return func(k *Kraken) { k.log = l }
}

// WithKrakenMetrics sets the backend request instruments.
func WithKrakenMetrics(m *observability.Metrics) KrakenOption {
	return func(k *Kraken) { k.metrics = m }
}

// NewKraken creates an adapter sending through transport. An empty id
// defaults to "kraken".
func NewKraken(id string, modes []Mode, transport wire.Transport, opts ...KrakenOption) *Kraken {
	if id == "" {
		id = DefaultKrakenID
	}
	k := &Kraken{
		id:        id,
		modes:     modes,
		transport: transport,
		log:       logger.Get("streetnetwork.kraken"),
	}
	for _, opt := range opts {
		opt(k)
	}
	k.exchange = provider.Chain(
		provider.WithTracing[*wire.Request, *wire.Response]("streetnetwork.kraken"),
		provider.WithLogging[*wire.Request, *wire.Response](k.log),
		provider.WithRequestMetrics[*wire.Request, *wire.Response](k.metrics),
	)(provider.RequestResponseFunc(id, k.roundTrip))
	k.log = k.log.WithFields(logger.Fields(logger.FieldProviderID, id))
	return k
}

// NewKrakenConstructor returns the registry constructor for Kraken backends.
// Arguments are decoded from KrakenArgs and a socket transport is opened to
// service_url.
func NewKrakenConstructor(opts ...KrakenOption) provider.Constructor[Service] {
	return func(id string, args map[string]any) (Service, error) {
		var a KrakenArgs
		if err := provider.DecodeArgs(args, &a); err != nil {
			return nil, err
		}
		modes := make([]Mode, 0, len(a.Modes))
		for _, s := range a.Modes {
			m, err := ParseMode(s)
			if err != nil {
				return nil, err
			}
			modes = append(modes, m)
		}
		if id == "" {
			id = DefaultKrakenID
		}
		cfg := wire.SocketConfig{
			Name:    id,
			Address: a.ServiceURL,
			Timeout: a.Timeout,
			CircuitBreaker: &resilience.CircuitBreakerConfig{
				MaxFailures: a.MaxFailures,
				Timeout:     a.ResetTimeout,
			},
		}
		if a.MaxConcurrent > 0 {
			cfg.Bulkhead = &resilience.BulkheadConfig{MaxConcurrent: a.MaxConcurrent}
		}
		if a.RateLimit > 0 {
			cfg.RateLimiter = &resilience.RateLimiterConfig{Rate: a.RateLimit, Burst: a.RateBurst}
		}
		transport, err := wire.NewSocketTransport(cfg)
		if err != nil {
			return nil, fmt.Errorf("service_url %s is not a valid url: %w", a.ServiceURL, err)
		}
		return NewKraken(id, modes, transport, opts...), nil
	}
}

// ID returns the backend id.
func (k *Kraken) ID() string { return k.id }

// Modes returns the served modes.
func (k *Kraken) Modes() []Mode { return k.modes }

// Status describes the backend.
func (k *Kraken) Status() provider.Status {
	modes := make([]string, len(k.modes))
	for i, m := range k.modes {
		modes[i] = string(m)
	}
	return provider.Status{ID: k.id, Kind: KrakenKind, Modes: modes}
}

// DirectPath computes a direct path.
//
// A car ending fallback is computed from the destination to the origin, then
// reversed, so parking happens next to the transit stop. A DIRECT path
// replaces the duration-to-transit budget of its wire mode by half of the
// mode's direct path budget; the caller's params are left untouched.
func (k *Kraken) DirectPath(ctx context.Context, req DirectPathRequest) (*wire.Response, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanDirectPath,
		attribute.String(observability.AttrProviderID, k.id),
		attribute.String(observability.AttrMode, string(req.Mode)),
		attribute.String(observability.AttrPathType, req.PathType.String()),
	)
	defer span.End()

	wr, invert := k.wireDirectPath(req)
	resp, err := k.send(ctx, wr)
	if err != nil {
		return nil, err
	}
	if invert {
		reverseJourneys(resp)
	}
	return resp, nil
}

// PathFingerprint identifies everything sent for req except its datetime:
// endpoints after inversion, wire mode, speeds, budgets and Clockwise.
func (k *Kraken) PathFingerprint(req DirectPathRequest) string {
	wr, _ := k.wireDirectPath(req)
	wr.DirectPath.Datetime = 0
	return string(wire.MarshalRequest(wr))
}

// wireDirectPath builds the backend request of req and reports whether the
// returned journeys must be reversed.
func (k *Kraken) wireDirectPath(req DirectPathRequest) (*wire.Request, bool) {
	origin, destination := req.Origin, req.Destination
	invert := req.Mode == Car && req.PathType == EndingFallback
	if invert {
		origin, destination = destination, origin
	}

	params := req.Params.Clone()
	if req.PathType == Direct {
		params.MaxDurationToPT[req.Mode.WireMode()] = params.MaxDirectPathDuration[req.Mode] / 2
	}
	return k.directPathRequest(req.Mode, origin, destination, req.Extremity, params), invert
}

func (k *Kraken) directPathRequest(mode Mode, origin, destination Place, extremity PeriodExtremity, p Params) *wire.Request {
	wm := string(mode.WireMode())
	return &wire.Request{
		API: wire.APIDirectPath,
		DirectPath: &wire.DirectPathRequest{
			Origin:      wire.LocationContext{Place: origin.WireURI()},
			Destination: wire.LocationContext{Place: destination.WireURI()},
			Datetime:    extremity.Datetime.Unix(),
			Clockwise:   extremity.RepresentsStart,
			Params: wire.StreetNetworkParams{
				OriginMode:               wm,
				DestinationMode:          wm,
				WalkingSpeed:             p.Speed[Walking],
				MaxWalkingDurationToPT:   p.MaxDurationToPT[Walking],
				BikeSpeed:                p.Speed[Bike],
				MaxBikeDurationToPT:      p.MaxDurationToPT[Bike],
				BSSSpeed:                 p.Speed[BSS],
				MaxBSSDurationToPT:       p.MaxDurationToPT[BSS],
				CarSpeed:                 p.Speed[Car],
				MaxCarDurationToPT:       p.MaxDurationToPT[Car],
				CarNoParkSpeed:           p.Speed[CarNoPark],
				MaxCarNoParkDurationToPT: p.MaxDurationToPT[CarNoPark],
			},
		},
	}
}

// RoutingMatrix computes durations between one center and many places.
// Many-to-one requests are sent as one-to-many and the backend matrix is
// returned as is, without transposition.
func (k *Kraken) RoutingMatrix(ctx context.Context, req MatrixRequest) (*wire.RoutingMatrix, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRoutingMatrix,
		attribute.String(observability.AttrProviderID, k.id),
		attribute.String(observability.AttrMode, string(req.Mode)),
		attribute.Int(observability.AttrOrigins, len(req.Origins)),
		attribute.Int(observability.AttrDestinations, len(req.Destinations)),
	)
	defer span.End()

	origins, destinations := req.Origins, req.Destinations
	if len(origins) > 1 {
		if len(destinations) > 1 {
			err := errors.Technical("routing matrix error, no unique center point")
			k.log.Error("routing matrix error, no unique center point", logger.Fields(
				"origins", len(origins), "destinations", len(destinations)))
			observability.SetSpanError(ctx, err)
			return nil, err
		}
		origins, destinations = destinations, origins
	}

	mr := &wire.RoutingMatrixRequest{
		Origins:      locations(origins),
		Destinations: locations(destinations),
		Mode:         string(req.Mode.WireMode()),
		Speed:        req.Params.SpeedFor(req.Mode),
		MaxDuration:  req.MaxDuration,
	}
	resp, err := k.send(ctx, &wire.Request{API: wire.APIRoutingMatrix, RoutingMatrix: mr})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		err := errors.Technical("routing matrix fail").
			WithDetail("backend_error_id", resp.Error.ID).
			WithDetail("backend_error", resp.Error.Message)
		k.log.Error("routing matrix query error", logger.Fields(
			"backend_error_id", resp.Error.ID, "backend_error", resp.Error.Message))
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	if resp.RoutingMatrix == nil {
		return &wire.RoutingMatrix{}, nil
	}
	return resp.RoutingMatrix, nil
}

// MakePathKey returns the memoization key of a direct path. The extremity is
// ignored.
func (k *Kraken) MakePathKey(mode Mode, origin, destination string, pathType PathType, _ *PeriodExtremity) PathKey {
	return PathKey{Mode: mode, Origin: origin, Destination: destination, Type: pathType}
}

func (k *Kraken) send(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	resp, err := k.exchange.Execute(ctx, req)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return resp, err
}

// roundTrip is the innermost exchange; transport failures that are not
// already AppErrors are reported against the backend id.
func (k *Kraken) roundTrip(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	resp, err := k.transport.Send(ctx, req)
	if err != nil {
		if _, ok := errors.AsAppError(err); !ok {
			err = errors.ExternalServiceError(k.id, err)
		}
		return nil, err
	}
	return resp, nil
}

func locations(places []Place) []wire.LocationContext {
	out := make([]wire.LocationContext, len(places))
	for i, p := range places {
		out[i] = wire.LocationContext{Place: p.WireURI()}
	}
	return out
}
