package common

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Metrics accumulates codec throughput counters. It is safe for concurrent
// use by batch workers.
type Metrics struct {
	mu        sync.Mutex
	start     time.Time
	end       time.Time
	telegrams int64
	total     int64
	packets   int64
	bits      int64
	failures  int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
		m.end = time.Time{}
	}
	m.mu.Unlock()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
	m.mu.Unlock()
}

// Record counts one decode attempt. Every attempt is a telegram, so
// failures never exceed telegrams; failed marks an attempt that stopped on
// an error, including one whose header could not be read. A nil Metrics
// records nothing.
func (m *Metrics) Record(packets, bits int, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.telegrams++
	if packets > 0 {
		m.packets += int64(packets)
	}
	if bits > 0 {
		m.bits += int64(bits)
	}
	if failed {
		m.failures++
	}
	m.mu.Unlock()
}

// SetTotal sets the number of telegrams expected, for progress reporting.
func (m *Metrics) SetTotal(total int64) {
	if total < 0 {
		total = 0
	}
	m.mu.Lock()
	m.total = total
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Duration:  m.elapsedLocked(),
		Telegrams: m.telegrams,
		Total:     m.total,
		Packets:   m.packets,
		Bits:      m.bits,
		Failures:  m.failures,
	}
}

func (m *Metrics) elapsedLocked() time.Duration {
	if m.start.IsZero() {
		return 0
	}
	if !m.end.IsZero() {
		return m.end.Sub(m.start)
	}
	return time.Since(m.start)
}

type MetricsSnapshot struct {
	Duration  time.Duration
	Telegrams int64
	Total     int64
	Packets   int64
	Bits      int64
	Failures  int64
}

func (s MetricsSnapshot) TelegramsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Telegrams) / s.Duration.Seconds()
}

func (s MetricsSnapshot) Completion() float64 {
	if s.Total <= 0 {
		return 0
	}
	ratio := float64(s.Telegrams) / float64(s.Total)
	if ratio > 1 {
		return 1
	}
	return ratio
}

func (s MetricsSnapshot) String() string {
	return fmt.Sprintf("duration=%s telegrams=%d packets=%d bits=%d failures=%d rate=%.0f/s",
		s.Duration.Round(time.Millisecond), s.Telegrams, s.Packets, s.Bits, s.Failures, s.TelegramsPerSecond())
}

func formatProgressLine(s MetricsSnapshot) string {
	if s.Total > 0 {
		return fmt.Sprintf("Progress: %6.2f%% (%d / %d telegrams) %.0f/s", s.Completion()*100, s.Telegrams, s.Total, s.TelegramsPerSecond())
	}
	return fmt.Sprintf("Processed: %d telegrams %.0f/s", s.Telegrams, s.TelegramsPerSecond())
}

// StartProgressPrinter rewrites a single progress line on w every interval
// until the returned stop function is called.
func StartProgressPrinter(w io.Writer, m *Metrics, interval time.Duration) func() {
	if m == nil || w == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		lastLen := 0
		for {
			select {
			case <-ticker.C:
				line := formatProgressLine(m.Snapshot())
				if pad := lastLen - len(line); pad > 0 {
					line += strings.Repeat(" ", pad)
				}
				fmt.Fprintf(w, "\r%s", line)
				lastLen = len(line)
			case <-done:
				if lastLen > 0 {
					fmt.Fprintf(w, "\r%s\r\n", strings.Repeat(" ", lastLen))
				}
				return
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
