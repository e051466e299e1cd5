package provider

import "context"

// Closeable is optionally implemented by providers holding resources
// (connections, HTTP clients with pooled transports).
// The registry closes an instance once it has been replaced or removed.
type Closeable interface {
	Close(ctx context.Context) error
}
