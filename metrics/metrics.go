// Package metrics exposes prometheus collectors for the storage core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BufferWaits counts pin requests that had to wait for a free buffer.
	BufferWaits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simpledb",
			Subsystem: "buffer",
			Name:      "waits_total",
			Help:      "Counter of pin requests that waited for a free buffer.",
		})

	// BufferAborts counts pin requests that gave up after the wait limit.
	BufferAborts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simpledb",
			Subsystem: "buffer",
			Name:      "aborts_total",
			Help:      "Counter of pin requests aborted after waiting too long.",
		})

	// LockWaits counts lock requests that had to wait, by mode.
	LockWaits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simpledb",
			Subsystem: "lock",
			Name:      "waits_total",
			Help:      "Counter of lock requests that waited.",
		}, []string{"mode"})

	// LockAborts counts lock requests that gave up after the wait limit, by mode.
	LockAborts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simpledb",
			Subsystem: "lock",
			Name:      "aborts_total",
			Help:      "Counter of lock requests aborted after waiting too long.",
		}, []string{"mode"})

	// LogAppends counts records appended to the write-ahead log.
	LogAppends = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simpledb",
			Subsystem: "log",
			Name:      "appends_total",
			Help:      "Counter of log records appended.",
		})

	// LogFlushes counts log pages written to disk.
	LogFlushes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simpledb",
			Subsystem: "log",
			Name:      "flushes_total",
			Help:      "Counter of log pages written to disk.",
		})

	// Transactions counts finished transactions by outcome.
	Transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simpledb",
			Subsystem: "tx",
			Name:      "finished_total",
			Help:      "Counter of finished transactions.",
		}, []string{"outcome"})
)

// Lock modes and transaction outcomes used as label values.
const (
	ModeShared    = "shared"
	ModeExclusive = "exclusive"

	OutcomeCommit   = "commit"
	OutcomeRollback = "rollback"
)

func init() {
	prometheus.MustRegister(BufferWaits)
	prometheus.MustRegister(BufferAborts)
	prometheus.MustRegister(LockWaits)
	prometheus.MustRegister(LockAborts)
	prometheus.MustRegister(LogAppends)
	prometheus.MustRegister(LogFlushes)
	prometheus.MustRegister(Transactions)
}
