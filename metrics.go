package dacs7

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics defines the interface for collecting operational metrics.
// Implementations can export metrics to various backends.
type Metrics interface {
	ConnectionAttempts()
	ConnectionSuccesses()
	ConnectionFailures()
	ConnectionActive(active bool)
	Reconnections()

	OperationStarted(operation string)
	OperationCompleted(operation string, duration time.Duration, err error)

	BytesSent(bytes int64)
	BytesReceived(bytes int64)

	// PackagesSent/PackagesSplit track the planner's batching behavior: how
	// many PDU packages were sent on the wire, and, for a call that needed
	// more than one package, how many packages it used beyond the first.
	PackagesSent(count int)
	PackagesSplit(count int)

	AlarmReceived()
	AlarmsDropped()
	AlarmSubscriptionActive(active bool)

	ErrorOccurred(category ErrorCategory, operation string)

	HealthCheckStarted()
	HealthCheckCompleted(success bool)
}

type noopMetrics struct{}

func (n *noopMetrics) ConnectionAttempts()                                                    {}
func (n *noopMetrics) ConnectionSuccesses()                                                   {}
func (n *noopMetrics) ConnectionFailures()                                                    {}
func (n *noopMetrics) ConnectionActive(active bool)                                           {}
func (n *noopMetrics) Reconnections()                                                         {}
func (n *noopMetrics) OperationStarted(operation string)                                      {}
func (n *noopMetrics) OperationCompleted(operation string, duration time.Duration, err error) {}
func (n *noopMetrics) BytesSent(bytes int64)                                                  {}
func (n *noopMetrics) BytesReceived(bytes int64)                                              {}
func (n *noopMetrics) PackagesSent(count int)                                                 {}
func (n *noopMetrics) PackagesSplit(count int)                                                {}
func (n *noopMetrics) AlarmReceived()                                                         {}
func (n *noopMetrics) AlarmsDropped()                                                         {}
func (n *noopMetrics) AlarmSubscriptionActive(active bool)                                    {}
func (n *noopMetrics) ErrorOccurred(category ErrorCategory, operation string)                 {}
func (n *noopMetrics) HealthCheckStarted()                                                    {}
func (n *noopMetrics) HealthCheckCompleted(success bool)                                      {}

// DefaultMetrics is a no-op metrics collector to minimize overhead when
// metrics are not configured.
var DefaultMetrics Metrics = &noopMetrics{}

// InMemoryMetrics provides a simple in-memory metrics collector for testing
// and debugging.
type InMemoryMetrics struct {
	mu sync.RWMutex

	ConnectionAttemptsCount  atomic.Int64
	ConnectionSuccessesCount atomic.Int64
	ConnectionFailuresCount  atomic.Int64
	ConnectionActiveState    atomic.Bool
	ReconnectionsCount       atomic.Int64

	OperationCounts    map[string]*atomic.Int64
	OperationDurations map[string][]time.Duration
	OperationErrors    map[string]*atomic.Int64

	BytesSentCount     atomic.Int64
	BytesReceivedCount atomic.Int64

	PackagesSentCount  atomic.Int64
	PackagesSplitCount atomic.Int64

	AlarmsReceivedCount        atomic.Int64
	AlarmsDroppedCount         atomic.Int64
	AlarmSubscriptionActiveState atomic.Bool

	ErrorsByCategory  map[ErrorCategory]*atomic.Int64
	ErrorsByOperation map[string]*atomic.Int64

	HealthChecksStartedCount atomic.Int64
	HealthChecksSuccessCount atomic.Int64
	HealthChecksFailureCount atomic.Int64
}

// NewInMemoryMetrics creates a new in-memory metrics collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		OperationCounts:    make(map[string]*atomic.Int64),
		OperationDurations: make(map[string][]time.Duration),
		OperationErrors:    make(map[string]*atomic.Int64),
		ErrorsByCategory:   make(map[ErrorCategory]*atomic.Int64),
		ErrorsByOperation:  make(map[string]*atomic.Int64),
	}
}

func (m *InMemoryMetrics) ConnectionAttempts()  { m.ConnectionAttemptsCount.Add(1) }
func (m *InMemoryMetrics) ConnectionSuccesses() { m.ConnectionSuccessesCount.Add(1) }
func (m *InMemoryMetrics) ConnectionFailures()  { m.ConnectionFailuresCount.Add(1) }
func (m *InMemoryMetrics) ConnectionActive(active bool) {
	m.ConnectionActiveState.Store(active)
}
func (m *InMemoryMetrics) Reconnections() { m.ReconnectionsCount.Add(1) }

func (m *InMemoryMetrics) OperationStarted(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.OperationCounts[operation]; !exists {
		m.OperationCounts[operation] = &atomic.Int64{}
	}
	m.OperationCounts[operation].Add(1)
}

func (m *InMemoryMetrics) OperationCompleted(operation string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OperationDurations[operation] = append(m.OperationDurations[operation], duration)
	if err != nil {
		if _, exists := m.OperationErrors[operation]; !exists {
			m.OperationErrors[operation] = &atomic.Int64{}
		}
		m.OperationErrors[operation].Add(1)
	}
}

func (m *InMemoryMetrics) BytesSent(bytes int64)     { m.BytesSentCount.Add(bytes) }
func (m *InMemoryMetrics) BytesReceived(bytes int64) { m.BytesReceivedCount.Add(bytes) }

func (m *InMemoryMetrics) PackagesSent(count int)  { m.PackagesSentCount.Add(int64(count)) }
func (m *InMemoryMetrics) PackagesSplit(count int) { m.PackagesSplitCount.Add(int64(count)) }

func (m *InMemoryMetrics) AlarmReceived() { m.AlarmsReceivedCount.Add(1) }
func (m *InMemoryMetrics) AlarmsDropped() { m.AlarmsDroppedCount.Add(1) }
func (m *InMemoryMetrics) AlarmSubscriptionActive(active bool) {
	m.AlarmSubscriptionActiveState.Store(active)
}

func (m *InMemoryMetrics) ErrorOccurred(category ErrorCategory, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.ErrorsByCategory[category]; !exists {
		m.ErrorsByCategory[category] = &atomic.Int64{}
	}
	m.ErrorsByCategory[category].Add(1)
	if _, exists := m.ErrorsByOperation[operation]; !exists {
		m.ErrorsByOperation[operation] = &atomic.Int64{}
	}
	m.ErrorsByOperation[operation].Add(1)
}

func (m *InMemoryMetrics) HealthCheckStarted() { m.HealthChecksStartedCount.Add(1) }
func (m *InMemoryMetrics) HealthCheckCompleted(success bool) {
	if success {
		m.HealthChecksSuccessCount.Add(1)
	} else {
		m.HealthChecksFailureCount.Add(1)
	}
}

// Snapshot returns a copy of current metrics for reporting.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		ConnectionAttempts:    m.ConnectionAttemptsCount.Load(),
		ConnectionSuccesses:   m.ConnectionSuccessesCount.Load(),
		ConnectionFailures:    m.ConnectionFailuresCount.Load(),
		ConnectionActive:      m.ConnectionActiveState.Load(),
		Reconnections:         m.ReconnectionsCount.Load(),
		BytesSent:             m.BytesSentCount.Load(),
		BytesReceived:         m.BytesReceivedCount.Load(),
		PackagesSent:          m.PackagesSentCount.Load(),
		PackagesSplit:         m.PackagesSplitCount.Load(),
		AlarmsReceived:        m.AlarmsReceivedCount.Load(),
		AlarmsDropped:         m.AlarmsDroppedCount.Load(),
		AlarmSubscriptionActive: m.AlarmSubscriptionActiveState.Load(),
		HealthChecksStarted:   m.HealthChecksStartedCount.Load(),
		HealthChecksSuccess:   m.HealthChecksSuccessCount.Load(),
		HealthChecksFailure:   m.HealthChecksFailureCount.Load(),
		OperationCounts:       make(map[string]int64),
		OperationErrors:       make(map[string]int64),
		ErrorsByCategory:      make(map[ErrorCategory]int64),
		ErrorsByOperation:     make(map[string]int64),
	}

	for op, counter := range m.OperationCounts {
		snapshot.OperationCounts[op] = counter.Load()
	}
	for op, counter := range m.OperationErrors {
		snapshot.OperationErrors[op] = counter.Load()
	}
	for cat, counter := range m.ErrorsByCategory {
		snapshot.ErrorsByCategory[cat] = counter.Load()
	}
	for op, counter := range m.ErrorsByOperation {
		snapshot.ErrorsByOperation[op] = counter.Load()
	}

	return snapshot
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	ConnectionAttempts      int64
	ConnectionSuccesses     int64
	ConnectionFailures      int64
	ConnectionActive        bool
	Reconnections           int64
	BytesSent               int64
	BytesReceived           int64
	PackagesSent            int64
	PackagesSplit           int64
	AlarmsReceived          int64
	AlarmsDropped           int64
	AlarmSubscriptionActive bool
	HealthChecksStarted     int64
	HealthChecksSuccess     int64
	HealthChecksFailure     int64
	OperationCounts         map[string]int64
	OperationErrors         map[string]int64
	ErrorsByCategory        map[ErrorCategory]int64
	ErrorsByOperation       map[string]int64
}

// WithMetrics returns an option that sets the metrics collector for the
// client.
func WithMetrics(metrics Metrics) Option {
	return func(c *clientConfig) error {
		c.metrics = metrics
		return nil
	}
}
