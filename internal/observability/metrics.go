package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teachctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "teachctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teachctl",
			Subsystem: "dispatch",
			Name:      "actions_total",
			Help:      "Operator actions dispatched, by result.",
		},
		[]string{"action", "result"},
	)
	resetTargets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teachctl",
			Subsystem: "reset",
			Name:      "target_results_total",
			Help:      "Reset trigger results per target.",
		},
		[]string{"target", "result"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "teachctl",
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Orchestrated command duration in seconds.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"command", "success"},
	)
	goalTerminals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teachctl",
			Subsystem: "match",
			Name:      "goal_terminal_total",
			Help:      "Terminal statuses observed for match goals.",
		},
		[]string{"status"},
	)
	poseUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "teachctl",
			Subsystem: "pose",
			Name:      "updates_total",
			Help:      "Ghost pose updates written into the cache.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			dispatches,
			resetTargets,
			commandDuration,
			goalTerminals,
			poseUpdates,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordDispatch(action, result string) {
	RegisterMetrics()
	dispatches.WithLabelValues(action, result).Inc()
}

func RecordResetTarget(target, result string) {
	RegisterMetrics()
	resetTargets.WithLabelValues(target, result).Inc()
}

func RecordCommand(command string, success bool, duration time.Duration) {
	RegisterMetrics()
	commandDuration.WithLabelValues(command, strconv.FormatBool(success)).Observe(duration.Seconds())
}

func RecordGoalTerminal(status string) {
	RegisterMetrics()
	goalTerminals.WithLabelValues(status).Inc()
}

func RecordPoseUpdate() {
	RegisterMetrics()
	poseUpdates.Inc()
}
