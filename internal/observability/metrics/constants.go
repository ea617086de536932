// Package metrics provides Prometheus collectors for the review engine.
package metrics

import "time"

// Endpoint labels for API request metrics.
const (
	EndpointListSheets  = "list_sheets"
	EndpointGetSheet    = "get_sheet"
	EndpointSubmitVotes = "submit_votes"
	EndpointProgress    = "progress"
)

// Result labels shared by several metrics.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultStale   = "stale"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

// ShutdownTimeout bounds graceful shutdown of the metrics listener.
const ShutdownTimeout = 5 * time.Second
