// Package metrics documents the Prometheus metrics of the extractor and
// exports them for batch runs.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, sink) to avoid circular dependencies.
//
// An export is a short-lived process, so metrics are not scraped. WriteTextfile
// dumps them in the text format read by the node_exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the registerer all packages register with via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the registered metrics for WriteTextfile.
var Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all registered metrics to path. The file is written to
// a temporary name and renamed, so a collector never reads a partial file.
func WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("metrics file path is empty")
	}
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - ghextract_requests_total{route, status} (Counter): Requests by normalized route and HTTP status
//   - ghextract_request_duration_seconds{route} (Histogram): Request duration by route
//   - ghextract_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Cache Metrics (pkg/cache):
//   - ghextract_cache_hits_total (Counter): Page cache hits
//   - ghextract_cache_misses_total (Counter): Page cache misses
//   - ghextract_cache_stored_bytes_total (Counter): Bytes written to Redis
//   - ghextract_cache_conditional_requests_total (Counter): Requests sent with If-None-Match
//   - ghextract_cache_not_modified_total (Counter): 304 responses served from cache
//   - ghextract_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - ghextract_rate_limit_remaining{resource} (Gauge): Requests left in the window
//   - ghextract_rate_limit_blocks_total{resource} (Counter): Requests refused with an exhausted quota
//
// Walk Metrics (pkg/pagination):
//   - ghextract_pages_total{walker} (Counter): Pages fetched
//   - ghextract_items_total{walker} (Counter): Items emitted
//   - ghextract_early_stops_total{walker} (Counter): Walks ended by the since cutoff
//
// Sink Metrics (pkg/sink):
//   - ghextract_rows_written_total (Counter): CSV rows written
//   - ghextract_rows_skipped_total (Counter): Records dropped by the skip row policy
//
// Example Prometheus Queries:
//
//   # Cache revalidation rate
//   ghextract_cache_not_modified_total / ghextract_cache_conditional_requests_total
//
//   # Quota left after the last export
//   ghextract_rate_limit_remaining{resource="core"}
//
//   # Pages saved by the since cutoff
//   sum by (walker) (ghextract_early_stops_total)
