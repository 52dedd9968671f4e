package api

import (
	"net/http"
)

// Instrumenter wraps a handler with per-route metrics.
type Instrumenter interface {
	Instrument(route string, next http.Handler) http.Handler
}

// Routes holds the authenticated API handlers.
type Routes struct {
	Search     *SearchHandler
	LastResult *LastResultHandler
	Platforms  *PlatformsHandler
}

// Register mounts the API on mux behind requireAuth.
func (rt Routes) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler, metrics Instrumenter) {
	handle := func(pattern, route string, h http.HandlerFunc) {
		var handler http.Handler = requireAuth(h)
		if metrics != nil {
			handler = metrics.Instrument(route, handler)
		}
		mux.Handle(pattern, handler)
	}

	handle("POST /api/v1/codes/search", "/api/v1/codes/search", rt.Search.Search)
	handle("GET /api/v1/codes/last", "/api/v1/codes/last", rt.LastResult.GetLast)
	handle("GET /api/v1/platforms", "/api/v1/platforms", rt.Platforms.GetPlatforms)
}
