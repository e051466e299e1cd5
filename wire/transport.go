package wire

import (
	"context"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kbukum/mobilitykit/errors"
	"github.com/kbukum/mobilitykit/resilience"
)

// MaxFrameSize bounds a single encoded message.
const MaxFrameSize = 64 << 20

// Transport sends one request and waits for its response.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// SocketConfig configures a SocketTransport.
type SocketConfig struct {
	// Name identifies the backend in errors.
	Name string
	// Address is host:port; a tcp:// prefix is accepted.
	Address string
	// Timeout bounds one exchange when ctx carries no earlier deadline.
	Timeout time.Duration
	// CircuitBreaker is optional.
	CircuitBreaker *resilience.CircuitBreakerConfig
	// Bulkhead is optional.
	Bulkhead *resilience.BulkheadConfig
	// RateLimiter is optional.
	RateLimiter *resilience.RateLimiterConfig
}

// SocketTransport exchanges length-prefixed frames over TCP, one connection
// per request.
type SocketTransport struct {
	config SocketConfig
	dialer net.Dialer
	cb     *resilience.CircuitBreaker
	bh     *resilience.Bulkhead
	rl     *resilience.RateLimiter
}

// NewSocketTransport creates a transport for cfg.
func NewSocketTransport(cfg SocketConfig) (*SocketTransport, error) {
	if cfg.Address == "" {
		return nil, errors.Configuration("socket transport needs an address")
	}
	cfg.Address = trimScheme(cfg.Address)
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("invalid backend address %q", cfg.Address)).WithCause(err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Address
	}
	t := &SocketTransport{config: cfg}
	if cfg.CircuitBreaker != nil {
		cb := *cfg.CircuitBreaker
		if cb.Name == "" {
			cb.Name = cfg.Name
		}
		t.cb = resilience.NewCircuitBreaker(cb)
	}
	if cfg.Bulkhead != nil {
		bh := *cfg.Bulkhead
		if bh.Name == "" {
			bh.Name = cfg.Name
		}
		t.bh = resilience.NewBulkhead(bh)
	}
	if cfg.RateLimiter != nil {
		rl := *cfg.RateLimiter
		if rl.Name == "" {
			rl.Name = cfg.Name
		}
		t.rl = resilience.NewRateLimiter(rl)
	}
	return t, nil
}

// Address returns the dialed host:port.
func (t *SocketTransport) Address() string { return t.config.Address }

// Send performs one exchange through the rate limiter, the bulkhead and the
// circuit breaker, in that order.
func (t *SocketTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if t.rl != nil {
		if err := t.rl.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var resp *Response
	exchange := func(ctx context.Context) error {
		var err error
		resp, err = t.exchange(ctx, req)
		return err
	}

	guarded := exchange
	if t.bh != nil {
		guarded = func(ctx context.Context) error { return t.bh.Execute(ctx, exchange) }
	}
	var err error
	if t.cb != nil {
		err = t.cb.Execute(ctx, guarded)
	} else {
		err = guarded(ctx)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *SocketTransport) exchange(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	conn, err := t.dialer.DialContext(ctx, "tcp", t.config.Address)
	if err != nil {
		return nil, t.classify(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Unblock pending I/O when ctx is cancelled before the deadline.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := WriteFrame(conn, MarshalRequest(req)); err != nil {
		return nil, t.classify(err)
	}
	payload, err := ReadFrame(conn)
	if err != nil {
		return nil, t.classify(err)
	}
	resp, err := UnmarshalResponse(payload)
	if err != nil {
		return nil, errors.ExternalServiceError(t.config.Name, err).WithDetail("reason", "malformed response")
	}
	return resp, nil
}

func (t *SocketTransport) classify(err error) error {
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.New(errors.ErrCodeTimeout,
			fmt.Sprintf("%s did not answer in time", t.config.Name), http.StatusGatewayTimeout).WithCause(err)
	}
	return errors.ExternalServiceError(t.config.Name, err)
}

// WriteFrame writes payload preceded by its 4-byte big-endian length.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", len(payload))
	}
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame written by WriteFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func trimScheme(addr string) string {
	for _, p := range []string{"tcp://", "zmq+tcp://"} {
		if len(addr) > len(p) && addr[:len(p)] == p {
			return addr[len(p):]
		}
	}
	return addr
}
