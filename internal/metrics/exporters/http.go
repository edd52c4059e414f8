// Package exporters publishes the scheduler metrics over HTTP for Prometheus
// scrapes and over the event bus for SSE clients.
package exporters

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler serves every promauto-registered collector in the text
// exposition format. Collection errors are reported in the response body
// instead of failing the scrape.
func HTTPHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
