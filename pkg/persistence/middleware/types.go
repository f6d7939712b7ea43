// Package middleware decorates a ports.TimelineStore with cross-cutting behaviour.
package middleware

import "github.com/aretw0/waypoint/pkg/ports"

// Middleware wraps a TimelineStore.
type Middleware func(ports.TimelineStore) ports.TimelineStore

// Chain applies mws to store so that the first middleware is the outermost.
func Chain(store ports.TimelineStore, mws ...Middleware) ports.TimelineStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
