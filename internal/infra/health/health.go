// Package health exposes liveness and readiness probes. Readiness flips to
// false during shutdown so load balancers drain before connections drop.
package health

import (
	"net/http"
	"sync/atomic"
)

var ready atomic.Bool

// SetReady flips the readiness state reported by Readyz.
func SetReady(v bool) { ready.Store(v) }

// Ready reports the current readiness state.
func Ready() bool { return ready.Load() }

// Healthz is the liveness probe; it answers as long as the process serves.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz answers 200 only while the service is ready to take traffic.
func Readyz(w http.ResponseWriter, _ *http.Request) {
	if !Ready() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
