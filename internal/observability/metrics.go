// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// ConnectionRequests counts connection requests by outcome
	// (pending, auto_accepted, conflict, forbidden, invalid, not_found, error).
	ConnectionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fittedin_connection_requests_total",
		Help: "Connection requests by outcome",
	}, []string{"outcome"})

	// ConnectionResolutions counts accept/reject decisions.
	ConnectionResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fittedin_connection_resolutions_total",
		Help: "Connection requests resolved by the receiver, by decision",
	}, []string{"decision"})

	// AutoAccepts counts requests auto-accepted on behalf of seeded accounts.
	AutoAccepts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fittedin_connection_auto_accepts_total",
		Help: "Connection requests auto-accepted for seeded accounts, by trigger",
	}, []string{"trigger"})

	// NotificationFailures counts notifications that could not be delivered.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fittedin_notification_failures_total",
		Help: "Best-effort notifications that failed, by type",
	}, []string{"type"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fittedin_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnections is the gauge of open notification streams.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fittedin_websocket_connections",
		Help: "Number of open notification websocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped because a client's buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fittedin_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

const queryStartKey = "fittedin:query_start"

// RegisterDatabaseMetrics installs GORM callbacks that feed DatabaseQueryLatency.
func RegisterDatabaseMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		op       string
		register func(name string, fn func(*gorm.DB)) error
		after    func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.register("metrics:before_"+s.op, before); err != nil {
			return err
		}
		if err := s.after("metrics:after_"+s.op, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}
