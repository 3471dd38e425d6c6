// Package metrics exposes the process's Prometheus collectors over HTTP.
// Each domain package (irq, netcore) defines its own metrics.go with
// package-scoped collectors; this package only wires promhttp's handler onto
// the default registry they register against.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler serving every registered collector in
// the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
