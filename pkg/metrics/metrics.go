// Package metrics holds the Prometheus collectors shared by the repository
// and the tool-calling loop. Collectors are registered once at import time
// via promauto against the default registry; pkg/mcpsurface exposes them
// on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SlowQueries counts repository queries that exceeded the slow-query
// threshold, labeled by the operation name passed to Client.timed.
var SlowQueries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "memoryd",
	Subsystem: "store",
	Name:      "slow_queries_total",
	Help:      "Repository queries that exceeded the slow-query threshold, by operation.",
}, []string{"op"})

// ToolLoopIterations records how many tool-call round trips one Run
// completed before returning a final answer or forcing a conclusion.
var ToolLoopIterations = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "memoryd",
	Subsystem: "toolruntime",
	Name:      "tool_loop_iterations",
	Help:      "Number of tool-call iterations a Run completed before producing a final answer.",
	Buckets:   prometheus.LinearBuckets(1, 1, 10),
})

// ToolLoopForcedConclusions counts Runs that exhausted their iteration
// budget and had to be forced to a conclusion with no tools bound.
var ToolLoopForcedConclusions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "memoryd",
	Subsystem: "toolruntime",
	Name:      "tool_loop_forced_conclusions_total",
	Help:      "Runs that exhausted their tool-call iteration budget before a final answer.",
})
