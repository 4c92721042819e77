package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinesObserved tracks raw output lines fed to the classifier
	LinesObserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remedy_lines_observed_total",
			Help: "Total number of raw output lines observed",
		},
	)

	// ErrorsDetected tracks classified errors per source and severity
	ErrorsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remedy_errors_detected_total",
			Help: "Total number of classified errors",
		},
		[]string{"source", "severity"},
	)

	// DuplicatesSuppressed tracks errors dropped by the dedup gate
	DuplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remedy_duplicates_suppressed_total",
			Help: "Total number of errors suppressed as duplicates",
		},
	)

	// ReportsSent tracks outbound batch reports by outcome
	ReportsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remedy_reports_sent_total",
			Help: "Total number of batch reports sent",
		},
		[]string{"outcome"},
	)

	// FixEvents tracks inbound remediation lifecycle events by type
	FixEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remedy_fix_events_total",
			Help: "Total number of remediation lifecycle events received",
		},
		[]string{"type"},
	)

	// ReconnectsTotal tracks scheduled reconnect attempts
	ReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remedy_reconnects_total",
			Help: "Total number of scheduled reconnect attempts",
		},
	)

	// ConnectionState is 1 while the remediation connection is open
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remedy_connection_state",
			Help: "Remediation connection state (1 = connected)",
		},
	)

	// FixAttempts tracks the current retry budget consumption
	FixAttempts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remedy_fix_attempts",
			Help: "Remediation attempts consumed in the current incident",
		},
	)

	// DBConnectionPoolUsage tracks database pool utilization percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remedy_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
