package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Acquisition results.
const (
	AcquireReused = "reused"
	AcquireOpened = "opened"
	AcquireFailed = "failed"
)

var (
	// ConnectionAcquisitions counts connection cache acquisitions by result.
	ConnectionAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urls_node_connection_acquisitions_total",
		Help: "Connection cache acquisitions by result (reused, opened, failed)",
	}, []string{"result"})

	// ConnectionReleases counts connections closed at the end of an invocation.
	ConnectionReleases = promauto.NewCounter(prometheus.CounterOpts{
		Name: "urls_node_connection_closes_total",
		Help: "Total number of cached connections closed",
	})

	// CredentialFetches counts credential lookups against the secret store.
	CredentialFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urls_node_credential_fetches_total",
		Help: "Credential fetches from the secret store by result",
	}, []string{"result"})

	// Requests counts handler invocations by operation and outcome.
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urls_node_requests_total",
		Help: "Handler invocations by operation and outcome",
	}, []string{"operation", "outcome"})

	// Events counts messaging events by topic, direction and outcome.
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urls_node_events_total",
		Help: "Published and consumed events by topic, direction and outcome",
	}, []string{"topic", "direction", "outcome"})
)

// RecordAcquisition records a connection cache acquisition.
func RecordAcquisition(result string) {
	ConnectionAcquisitions.WithLabelValues(result).Inc()
}

// RecordCredentialFetch records a credential fetch.
func RecordCredentialFetch(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	CredentialFetches.WithLabelValues(result).Inc()
}

// RecordRequest records a handler outcome.
func RecordRequest(operation, outcome string) {
	Requests.WithLabelValues(operation, outcome).Inc()
}

// RecordEvent records a published or consumed event.
func RecordEvent(topic, direction, outcome string) {
	Events.WithLabelValues(topic, direction, outcome).Inc()
}
