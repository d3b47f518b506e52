// Package monitor aggregates error occurrences into rate and health
// metrics and pushes alerts when severity or rate thresholds are
// crossed. One Monitor instance is constructed per process and injected
// wherever errors are recorded; there is no package-level singleton.
package monitor

import (
	"sync"
	"time"

	"github.com/errata-io/errata/backend/internal/apperror"
)

// Status is the coarse health verdict of a health check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Snapshot is the result of one health check.
type Snapshot struct {
	Status          Status        `json:"status"`
	ErrorRate       float64       `json:"error_rate"` // errors per minute over the rate window
	AvgResponseTime time.Duration `json:"avg_response_time"`
	Timestamp       time.Time     `json:"timestamp"`
}

// AlertSink receives alert notifications. Concrete delivery (paging,
// chat, ticketing) lives outside this package.
type AlertSink interface {
	Notify(severity apperror.Severity, err *apperror.Error, snapshot Snapshot)
}

// Meta carries optional per-occurrence metadata for RecordError.
type Meta struct {
	Operation string
	Duration  time.Duration
}

// Config bounds the monitor's memory and sets its thresholds.
type Config struct {
	// WindowSize caps the number of retained occurrence records.
	WindowSize int
	// RateWindow is the period the error rate is measured over.
	RateWindow time.Duration
	// WarnRate and CriticalRate are errors-per-minute thresholds for
	// degraded and unhealthy status.
	WarnRate     float64
	CriticalRate float64
	// CriticalErrorLimit marks the process unhealthy once this many
	// CRITICAL-severity errors sit in the rate window.
	CriticalErrorLimit int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		WindowSize:         1024,
		RateWindow:         time.Minute,
		WarnRate:           10,
		CriticalRate:       30,
		CriticalErrorLimit: 3,
	}
}

type record struct {
	at       time.Time
	severity apperror.Severity
	duration time.Duration
}

// Monitor tracks error occurrences in a fixed-capacity ring. All methods
// are safe for concurrent use; RecordError is amortized O(1): aggregates
// over the window are kept as running counts, and each occurrence is
// evicted at most once.
type Monitor struct {
	cfg Config

	mu   sync.Mutex
	ring []record
	head int // oldest retained occurrence
	size int

	// running aggregates over the retained occurrences
	critical int
	total    time.Duration

	alerting bool // true while above the critical rate, edge-triggers rate alerts

	sink     AlertSink
	recorder *Recorder
	now      func() time.Time
}

// Option customizes a Monitor at construction.
type Option func(*Monitor)

// WithAlertSink registers the alert destination.
func WithAlertSink(sink AlertSink) Option {
	return func(m *Monitor) { m.sink = sink }
}

// WithRecorder attaches a Prometheus recorder.
func WithRecorder(r *Recorder) Option {
	return func(m *Monitor) { m.recorder = r }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// New constructs a Monitor. Zero or negative config values fall back to
// the defaults so a partially filled Config stays usable.
func New(cfg Config, opts ...Option) *Monitor {
	def := DefaultConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = def.RateWindow
	}
	if cfg.WarnRate <= 0 {
		cfg.WarnRate = def.WarnRate
	}
	if cfg.CriticalRate <= 0 {
		cfg.CriticalRate = def.CriticalRate
	}
	if cfg.CriticalErrorLimit <= 0 {
		cfg.CriticalErrorLimit = def.CriticalErrorLimit
	}

	m := &Monitor{
		cfg:  cfg,
		ring: make([]record, cfg.WindowSize),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RecordError appends one occurrence to the window and fires alerts for
// CRITICAL errors and critical-rate crossings. The ring never grows past
// WindowSize regardless of how many errors are recorded.
func (m *Monitor) RecordError(err *apperror.Error, meta Meta) {
	if err == nil {
		return
	}
	now := m.now()

	m.mu.Lock()
	if m.size == len(m.ring) {
		m.dropOldestLocked()
	}
	r := record{at: now, severity: err.Severity, duration: meta.Duration}
	m.ring[(m.head+m.size)%len(m.ring)] = r
	m.size++
	m.total += r.duration
	if r.severity >= apperror.SeverityCritical {
		m.critical++
	}

	snap := m.snapshotLocked(now)

	alert := err.Severity.ShouldAlert()
	if snap.Status == StatusUnhealthy && snap.ErrorRate > m.cfg.CriticalRate {
		if !m.alerting {
			m.alerting = true
			alert = true
		}
	} else if snap.ErrorRate <= m.cfg.CriticalRate {
		m.alerting = false
	}
	sink := m.sink
	m.mu.Unlock()

	m.recorder.ObserveError(err, meta.Duration)
	m.recorder.SetHealth(snap.Status)

	if alert && sink != nil {
		sink.Notify(err.Severity, err, snap)
	}
}

// HealthCheck reports the current status over the retained window. It
// never blocks beyond the internal mutex and never panics.
func (m *Monitor) HealthCheck() Snapshot {
	m.mu.Lock()
	snap := m.snapshotLocked(m.now())
	m.mu.Unlock()

	m.recorder.SetHealth(snap.Status)
	return snap
}

// dropOldestLocked removes the oldest retained occurrence and unwinds
// its contribution to the running aggregates.
func (m *Monitor) dropOldestLocked() {
	r := m.ring[m.head]
	m.head = (m.head + 1) % len(m.ring)
	m.size--
	m.total -= r.duration
	if r.severity >= apperror.SeverityCritical {
		m.critical--
	}
}

func (m *Monitor) snapshotLocked(now time.Time) Snapshot {
	// Occurrences arrive in time order, so expired ones sit at the head.
	cutoff := now.Add(-m.cfg.RateWindow)
	for m.size > 0 && m.ring[m.head].at.Before(cutoff) {
		m.dropOldestLocked()
	}

	rate := float64(m.size) / m.cfg.RateWindow.Minutes()

	status := StatusHealthy
	switch {
	case rate > m.cfg.CriticalRate || m.critical >= m.cfg.CriticalErrorLimit:
		status = StatusUnhealthy
	case rate > m.cfg.WarnRate:
		status = StatusDegraded
	}

	var avg time.Duration
	if m.size > 0 {
		avg = m.total / time.Duration(m.size)
	}

	return Snapshot{
		Status:          status,
		ErrorRate:       rate,
		AvgResponseTime: avg,
		Timestamp:       now,
	}
}
