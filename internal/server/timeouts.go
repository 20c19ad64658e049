// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// A build can run for many minutes, so the write timeout is far longer than
// a typical web service would use:
//
//   • ReadTimeout   – abort slow-loris headers (10 s)
//   • WriteTimeout  – cap total response time, one full build (60 min)
//   • IdleTimeout   – close keep-alives on idle clients (60 s)
//

package server

import (
	"net/http"
	"time"
)

// BuildTimeout bounds a single build request.
const BuildTimeout = 60 * time.Minute

// New constructs an *http.Server with the defaults above.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: BuildTimeout,
		IdleTimeout:  60 * time.Second,
	}
}
