// Package metrics holds the Prometheus collectors shared across packages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studiogear"

var (
	// ImageSearchCalls counts metered search calls by result ("ok", "error").
	ImageSearchCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_search_calls_total",
		Help:      "Calls made to the external image search API.",
	}, []string{"result"})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_rejections_total",
		Help:      "Image search calls refused because the daily quota was used up.",
	})

	QuotaCallsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_calls_recorded_total",
		Help:      "Successful image search calls charged against the daily quota.",
	})

	// ImportLines counts bulk import lines by outcome
	// ("created", "review", "failed", "skipped").
	ImportLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_lines_total",
		Help:      "Lines processed by the bulk gear importer.",
	}, []string{"outcome"})

	ImageQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_queue_dropped_total",
		Help:      "Background image fetch requests dropped because the queue was full.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
