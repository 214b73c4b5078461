package middleware

import "github.com/aretw0/hexcast/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// HistoryMiddleware allows wrapping a HistoryStore to add behavior.
type HistoryMiddleware func(ports.HistoryStore) ports.HistoryStore

// Chain applies the middlewares so that the first one is the outermost.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
