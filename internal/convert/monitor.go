package convert

import "time"

// MonitorSamples is how many recent chunk durations the ETA averages over.
const MonitorSamples = 10

// Monitor keeps a rolling average of chunk processing times.
type Monitor struct {
	start   time.Time
	samples []time.Duration
	now     func() time.Time
}

// NewMonitor returns a monitor using the wall clock.
func NewMonitor() *Monitor {
	return &Monitor{now: time.Now}
}

// Start marks the beginning of a chunk.
func (m *Monitor) Start() {
	m.start = m.now()
}

// End records the time since Start, dropping the oldest sample when full.
func (m *Monitor) End() {
	if m.start.IsZero() {
		return
	}
	m.samples = append(m.samples, m.now().Sub(m.start))
	if len(m.samples) > MonitorSamples {
		m.samples = m.samples[1:]
	}
	m.start = time.Time{}
}

// Samples returns the number of recorded durations.
func (m *Monitor) Samples() int {
	return len(m.samples)
}

// Average returns the mean of the recorded durations, or 0 with none.
func (m *Monitor) Average() time.Duration {
	if len(m.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range m.samples {
		total += d
	}
	return total / time.Duration(len(m.samples))
}

// Estimate returns the expected time for the remaining chunks.
func (m *Monitor) Estimate(remaining int) time.Duration {
	return m.Average() * time.Duration(remaining)
}
