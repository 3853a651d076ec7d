// Package httpserver builds the HTTP server the gateway listens on.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the server. The write timeout sits above the in-request timeout
// middleware so slow handlers answer with 504 before the connection is cut.
func New(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
