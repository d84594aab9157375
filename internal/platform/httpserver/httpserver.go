// Package httpserver builds the HTTP server with the project's timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with bounded request lifetimes. Claim requests
// take a row lock inside a transaction, so slow clients must not be able to
// hold requests open indefinitely.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
