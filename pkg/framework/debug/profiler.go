package debug

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Profiler records call timings per named section.
type Profiler struct {
	mu           sync.RWMutex
	measurements map[string]*Measurement
	enabled      atomic.Bool
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name  string
	Count uint64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration
}

// NewProfiler creates an enabled profiler.
func NewProfiler() *Profiler {
	p := &Profiler{
		measurements: make(map[string]*Measurement),
	}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// Start begins timing a named section and returns the function that stops it.
func (p *Profiler) Start(name string) func() time.Duration {
	if !p.enabled.Load() {
		return func() time.Duration { return 0 }
	}

	start := time.Now()
	return func() time.Duration {
		elapsed := time.Since(start)
		p.record(name, elapsed)
		return elapsed
	}
}

func (p *Profiler) record(name string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, exists := p.measurements[name]
	if !exists {
		m = &Measurement{Name: name, Min: elapsed, Max: elapsed}
		p.measurements[name] = m
	}

	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	if elapsed < m.Min {
		m.Min = elapsed
	}
	if elapsed > m.Max {
		m.Max = elapsed
	}
}

// Get returns a copy of the measurement for a named section.
func (p *Profiler) Get(name string) (Measurement, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, exists := p.measurements[name]
	if !exists {
		return Measurement{}, false
	}
	return *m, true
}

// All returns copies of all measurements sorted by name.
func (p *Profiler) All() []Measurement {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]Measurement, 0, len(p.measurements))
	for _, m := range p.measurements {
		result = append(result, *m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Reset clears all measurements.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.measurements = make(map[string]*Measurement)
}

// Average returns the mean duration
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Report renders a plain-text table of all measurements.
func (p *Profiler) Report() string {
	all := p.All()
	if len(all) == 0 {
		return "No measurements recorded"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-24s %8s %12s %12s %12s\n", "section", "count", "avg", "min", "max")
	for _, m := range all {
		fmt.Fprintf(&sb, "%-24s %8d %12v %12v %12v\n", m.Name, m.Count, m.Average(), m.Min, m.Max)
	}
	return sb.String()
}
