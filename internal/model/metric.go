package model

// Metric is a scoring criterion applied to every model response of a case.
// The metric set is global: it is fetched once from the record API and
// shared across all cases.
type Metric struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MetricPendingID marks the sentinel metric used while the real set has
// not been fetched yet. Consumers must treat a list whose first element
// carries this id as "not ready".
const MetricPendingID = "0"

// PendingMetrics returns the sentinel list used before the metric set
// has loaded.
func PendingMetrics() []Metric {
	return []Metric{{ID: MetricPendingID, Name: "Loading..."}}
}

// FallbackMetrics is the static set used when the record API returns an
// empty or undecodable metric list.
func FallbackMetrics() []Metric {
	return []Metric{
		{ID: "1", Name: "Accuracy"},
		{ID: "2", Name: "Completeness"},
		{ID: "3", Name: "Relevance"},
	}
}

// MetricsReady reports whether the metric set has actually loaded.
func MetricsReady(metrics []Metric) bool {
	return len(metrics) > 0 && metrics[0].ID != MetricPendingID
}
