package monitor

import (
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/errata-io/errata/backend/internal/apperror"
)

type fakeSink struct {
	mu    sync.Mutex
	calls []apperror.Severity
}

func (s *fakeSink) Notify(sev apperror.Severity, _ *apperror.Error, _ Snapshot) {
	s.mu.Lock()
	s.calls = append(s.calls, sev)
	s.mu.Unlock()
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestHealthyByDefault(t *testing.T) {
	m := New(DefaultConfig())
	snap := m.HealthCheck()
	if snap.Status != StatusHealthy {
		t.Errorf("Status = %q, want healthy", snap.Status)
	}
	if snap.ErrorRate != 0 {
		t.Errorf("ErrorRate = %v, want 0", snap.ErrorRate)
	}
}

func TestDegradedAboveWarnRate(t *testing.T) {
	now := time.Now()
	m := New(Config{WarnRate: 2, CriticalRate: 100}, WithClock(fixedClock(now)))

	for i := 0; i < 3; i++ {
		m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{})
	}

	snap := m.HealthCheck()
	if snap.Status != StatusDegraded {
		t.Errorf("Status = %q, want degraded (rate %v)", snap.Status, snap.ErrorRate)
	}
}

func TestUnhealthyAboveCriticalRate(t *testing.T) {
	now := time.Now()
	m := New(Config{WarnRate: 2, CriticalRate: 5}, WithClock(fixedClock(now)))

	for i := 0; i < 6; i++ {
		m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{})
	}

	if snap := m.HealthCheck(); snap.Status != StatusUnhealthy {
		t.Errorf("Status = %q, want unhealthy (rate %v)", snap.Status, snap.ErrorRate)
	}
}

// Three CRITICAL errors in quick succession flip the monitor to
// unhealthy regardless of the configured rate thresholds.
func TestCriticalErrorsForceUnhealthy(t *testing.T) {
	now := time.Now()
	m := New(Config{WarnRate: 1000, CriticalRate: 2000}, WithClock(fixedClock(now)))

	for i := 0; i < 3; i++ {
		m.RecordError(apperror.NewInternal("boom"), Meta{})
	}

	if snap := m.HealthCheck(); snap.Status != StatusUnhealthy {
		t.Errorf("Status = %q, want unhealthy after 3 critical errors", snap.Status)
	}
}

func TestCriticalSeverityAlwaysAlerts(t *testing.T) {
	sink := &fakeSink{}
	m := New(DefaultConfig(), WithAlertSink(sink))

	m.RecordError(apperror.NewInternal("boom"), Meta{})

	if sink.count() != 1 {
		t.Fatalf("sink notified %d times, want 1", sink.count())
	}
	if sink.calls[0] != apperror.SeverityCritical {
		t.Errorf("alert severity = %v, want critical", sink.calls[0])
	}
}

// Crossing the critical rate alerts once, not on every record while the
// rate stays elevated.
func TestRateAlertIsEdgeTriggered(t *testing.T) {
	now := time.Now()
	sink := &fakeSink{}
	m := New(Config{WarnRate: 1, CriticalRate: 3},
		WithAlertSink(sink), WithClock(fixedClock(now)))

	for i := 0; i < 10; i++ {
		m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{})
	}

	if sink.count() != 1 {
		t.Errorf("sink notified %d times, want 1", sink.count())
	}
}

// Old occurrences age out of the rate window.
func TestRateWindowExpiry(t *testing.T) {
	at := time.Now()
	clock := func() time.Time { return at }
	m := New(Config{WarnRate: 2, CriticalRate: 100, RateWindow: time.Minute}, WithClock(clock))

	for i := 0; i < 5; i++ {
		m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{})
	}
	if snap := m.HealthCheck(); snap.Status != StatusDegraded {
		t.Fatalf("Status = %q, want degraded while errors are fresh", snap.Status)
	}

	at = at.Add(2 * time.Minute)
	if snap := m.HealthCheck(); snap.Status != StatusHealthy {
		t.Errorf("Status = %q, want healthy after the window passed", snap.Status)
	}
}

// Critical occurrences age out of the window like any other, releasing
// the unhealthy verdict once they expire.
func TestCriticalCountAgesOut(t *testing.T) {
	at := time.Now()
	clock := func() time.Time { return at }
	m := New(Config{WarnRate: 1000, CriticalRate: 2000, RateWindow: time.Minute}, WithClock(clock))

	for i := 0; i < 3; i++ {
		m.RecordError(apperror.NewInternal("boom"), Meta{})
	}
	if snap := m.HealthCheck(); snap.Status != StatusUnhealthy {
		t.Fatalf("Status = %q, want unhealthy while criticals are fresh", snap.Status)
	}

	at = at.Add(2 * time.Minute)
	if snap := m.HealthCheck(); snap.Status != StatusHealthy {
		t.Errorf("Status = %q, want healthy after the criticals expired", snap.Status)
	}
}

// When the ring overflows, the evicted occurrence's contribution to the
// critical count and the duration sum must be unwound.
func TestOverflowUnwindsAggregates(t *testing.T) {
	now := time.Now()
	m := New(Config{WindowSize: 2, WarnRate: 1000, CriticalRate: 2000, CriticalErrorLimit: 1},
		WithClock(fixedClock(now)))

	m.RecordError(apperror.NewInternal("boom"), Meta{Duration: 900 * time.Millisecond})
	if snap := m.HealthCheck(); snap.Status != StatusUnhealthy {
		t.Fatalf("Status = %q, want unhealthy with one critical retained", snap.Status)
	}

	// two more occurrences push the critical out of the ring
	m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{Duration: 100 * time.Millisecond})
	m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{Duration: 300 * time.Millisecond})

	snap := m.HealthCheck()
	if snap.Status != StatusHealthy {
		t.Errorf("Status = %q, want healthy after the critical was evicted", snap.Status)
	}
	if snap.AvgResponseTime != 200*time.Millisecond {
		t.Errorf("AvgResponseTime = %v, want 200ms over the retained pair", snap.AvgResponseTime)
	}
}

// The ring must not grow with the number of recorded errors.
func TestBoundedMemory(t *testing.T) {
	m := New(Config{WindowSize: 8})

	for i := 0; i < 10_000; i++ {
		m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{Duration: time.Millisecond})
	}

	if len(m.ring) != 8 || cap(m.ring) != 8 {
		t.Errorf("ring len/cap = %d/%d, want 8/8", len(m.ring), cap(m.ring))
	}
}

func TestAvgResponseTime(t *testing.T) {
	now := time.Now()
	m := New(Config{}, WithClock(fixedClock(now)))

	m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{Duration: 100 * time.Millisecond})
	m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{Duration: 300 * time.Millisecond})

	snap := m.HealthCheck()
	if snap.AvgResponseTime != 200*time.Millisecond {
		t.Errorf("AvgResponseTime = %v, want 200ms", snap.AvgResponseTime)
	}
}

func TestConcurrentRecording(t *testing.T) {
	m := New(Config{WindowSize: 64}, WithRecorder(NewRecorder(prom.NewRegistry())))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				m.RecordError(apperror.NewDatabase("db down", "08006"), Meta{})
				m.HealthCheck()
			}
		}()
	}
	wg.Wait()
}

func TestRecorderNilSafe(t *testing.T) {
	var r *Recorder
	r.ObserveError(apperror.NewInternal("boom"), time.Second)
	r.SetHealth(StatusUnhealthy)
}
