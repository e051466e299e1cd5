package wire

import (
	"bytes"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/mobilitykit/errors"
	"github.com/kbukum/mobilitykit/resilience"
)

// serve answers every connection on a local listener with handler.
func serve(t *testing.T, handler func(*Request) *Response) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				payload, err := ReadFrame(conn)
				if err != nil {
					return
				}
				req, err := UnmarshalRequest(payload)
				if err != nil {
					return
				}
				resp := handler(req)
				if resp == nil {
					// Hold the connection open to provoke a timeout.
					time.Sleep(time.Second)
					return
				}
				_ = WriteFrame(conn, MarshalResponse(resp))
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func TestSocketTransport_Exchange(t *testing.T) {
	addr := serve(t, func(req *Request) *Response {
		return &Response{Journeys: []Journey{{Duration: int32(req.DirectPath.Datetime % 1000)}}}
	})

	tr, err := NewSocketTransport(SocketConfig{Address: "tcp://" + addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Address() != addr {
		t.Errorf("expected scheme to be trimmed, got %s", tr.Address())
	}

	resp, err := tr.Send(context.Background(), &Request{
		API:        APIDirectPath,
		DirectPath: &DirectPathRequest{Datetime: 1042},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Journeys) != 1 || resp.Journeys[0].Duration != 42 {
		t.Errorf("expected echoed duration 42, got %+v", resp.Journeys)
	}
}

func TestSocketTransport_Timeout(t *testing.T) {
	addr := serve(t, func(*Request) *Response { return nil })

	tr, err := NewSocketTransport(SocketConfig{Address: addr, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = tr.Send(context.Background(), &Request{API: APIDirectPath, DirectPath: &DirectPathRequest{}})
	if !errors.IsCode(err, errors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
}

func TestSocketTransport_ConnectionRefusedOpensCircuit(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	tr, err := NewSocketTransport(SocketConfig{
		Name:    "kraken",
		Address: addr,
		Timeout: time.Second,
		CircuitBreaker: &resilience.CircuitBreakerConfig{
			MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxCalls: 1,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		_, err := tr.Send(context.Background(), &Request{API: APIRoutingMatrix})
		if !errors.IsCode(err, errors.ErrCodeExternalService) {
			t.Fatalf("attempt %d: expected EXTERNAL_SERVICE_ERROR, got %v", i, err)
		}
	}
	_, err = tr.Send(context.Background(), &Request{API: APIRoutingMatrix})
	if !errors.IsCode(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("expected open circuit, got %v", err)
	}
}

func TestSocketTransport_RateLimited(t *testing.T) {
	var served atomic.Int32
	addr := serve(t, func(*Request) *Response {
		served.Add(1)
		return &Response{}
	})

	tr, err := NewSocketTransport(SocketConfig{
		Name:        "kraken",
		Address:     addr,
		Timeout:     time.Second,
		RateLimiter: &resilience.RateLimiterConfig{Rate: 0.01, Burst: 1, MaxWait: 10 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := tr.Send(context.Background(), &Request{API: APIRoutingMatrix}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = tr.Send(context.Background(), &Request{API: APIRoutingMatrix})
	if !errors.IsCode(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if got := served.Load(); got != 1 {
		t.Errorf("expected 1 request to reach the backend, got %d", got)
	}
}

func TestNewSocketTransport_InvalidAddress(t *testing.T) {
	for _, addr := range []string{"", "no-port"} {
		if _, err := NewSocketTransport(SocketConfig{Address: addr}); !errors.IsCode(err, errors.ErrCodeConfiguration) {
			t.Errorf("address %q: expected CONFIGURATION_ERROR, got %v", addr, err)
		}
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 9 {
		t.Errorf("expected 9 bytes on the wire, got %d", buf.Len())
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestReadFrame_TooLarge(t *testing.T) {
	buf := bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := ReadFrame(buf); err == nil {
		t.Error("expected an error for an oversized frame")
	}
}
