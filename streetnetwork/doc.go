// Package streetnetwork adapts abstract street-network queries (direct paths
// and one-to-many routing matrices) to routing backends.
//
// Backends are Service providers managed by a provider.Registry. Kraken
// speaks the binary wire protocol of package wire; CachedService memoizes
// direct paths by PathKey, which deliberately ignores the request time.
//
//	backend, err := manager.ForMode(ctx, streetnetwork.Walking)
//	if err != nil {
//		return err
//	}
//	resp, err := backend.DirectPath(ctx, streetnetwork.DirectPathRequest{...})
package streetnetwork
