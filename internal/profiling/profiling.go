package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Lightweight cumulative timers for the generation and edit paths.

// Sample is the accumulated cost of one named operation.
type Sample struct {
	Total time.Duration
	Count int
}

// Mean returns the average duration per call.
func (s Sample) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

var (
	mu      sync.Mutex
	samples = make(map[string]Sample)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("world.ApplyEdit")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		s := samples[name]
		s.Total += d
		s.Count++
		samples[name] = s
		mu.Unlock()
	}
}

// Reset clears all samples.
func Reset() {
	mu.Lock()
	clear(samples)
	mu.Unlock()
}

// Snapshot returns a copy of the current samples.
func Snapshot() map[string]Sample {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]Sample, len(samples))
	for k, v := range samples {
		out[k] = v
	}
	return out
}

// TopN formats the n most expensive operations by total time.
// Example: "meshing.Build:12.4ms/3, world.ApplyEdit:0.8ms/40"
func TopN(n int) string {
	ss := Snapshot()
	names := make([]string, 0, len(ss))
	for k := range ss {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return ss[names[i]].Total > ss[names[j]].Total })
	if n > len(names) {
		n = len(names)
	}
	parts := make([]string, 0, n)
	for _, name := range names[:n] {
		s := ss[name]
		ms := float64(s.Total.Microseconds()) / 1000.0
		parts = append(parts, fmt.Sprintf("%s:%.1fms/%d", name, ms, s.Count))
	}
	return strings.Join(parts, ", ")
}
