package provider

import "context"

// RequestResponse is one backend exchange: a single input answered by a
// single output. Adapters wrap their wire calls in one so logging, metrics
// and tracing compose as middleware.
type RequestResponse[I, O any] interface {
	// Name identifies the backend, usually the provider id.
	Name() string
	Execute(ctx context.Context, input I) (O, error)
}

// RequestResponseFunc adapts a function to RequestResponse under name.
func RequestResponseFunc[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return &funcRR[I, O]{name: name, fn: fn}
}

type funcRR[I, O any] struct {
	name string
	fn   func(ctx context.Context, input I) (O, error)
}

func (f *funcRR[I, O]) Name() string { return f.name }

func (f *funcRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return f.fn(ctx, input)
}

// Operational is implemented by inputs that name the operation they request.
// Middleware label logs, metrics and spans with it.
type Operational interface {
	Operation() string
}

func operationOf(input any) string {
	if o, ok := input.(Operational); ok {
		return o.Operation()
	}
	return "execute"
}

// Middleware transforms a RequestResponse by wrapping it.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares into one. The first middleware is outermost:
// Chain(a, b, c)(rr) is a(b(c(rr))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}
