// Package profiling adds opt-in CPU, heap and wall-clock timing profiles to
// the telemetry CLI.
package profiling

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	profiler *Profiler
}

// Stop records the span's duration and pops it off the stack.
func (s *span) Stop() {
	s.profiler.endSpan(s, time.Since(s.start))
}

// Profiler records nested spans. Spans nest in the order they are started,
// so it is meant for the sequential parts of a command.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	stack   []*span
}

var defaultProfiler = &Profiler{}

// Enable turns on the global profiler.
func Enable() {
	defaultProfiler.enable()
}

// Start begins a span on the global profiler. Use it as
// defer profiling.Start("name").Stop().
func Start(name string) Stopper {
	return defaultProfiler.Start(name)
}

// Summarize writes the global profile to w.
func Summarize(w io.Writer) {
	defaultProfiler.Summarize(w)
}

// NewProfiler returns an enabled profiler.
func NewProfiler() *Profiler {
	p := &Profiler{}
	p.enable()
	return p
}

func (p *Profiler) enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		return
	}
	p.enabled = true
	p.root = &span{name: "total", start: time.Now(), profiler: p}
	p.stack = []*span{p.root}
}

// Start begins a span nested under the innermost open span.
func (p *Profiler) Start(name string) Stopper {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return noopStopper{}
	}
	parent := p.stack[len(p.stack)-1]
	s := &span{name: name, start: time.Now(), profiler: p}
	parent.children = append(parent.children, s)
	p.stack = append(p.stack, s)
	return s
}

func (p *Profiler) endSpan(s *span, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.duration = d
	for i := len(p.stack) - 1; i > 0; i-- {
		if p.stack[i] == s {
			p.stack = p.stack[:i]
			return
		}
	}
}

// Summarize writes every span as an indented tree with its share of the total.
func (p *Profiler) Summarize(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	if p.root.duration == 0 {
		p.root.duration = time.Since(p.root.start)
	}
	fmt.Fprintf(w, "\n--- Timing (%v) ---\n", p.root.duration.Round(100*time.Microsecond))
	for _, c := range p.root.children {
		printSpan(w, c, 0, p.root.duration)
	}
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	pct := 0.0
	if total > 0 {
		pct = float64(s.duration) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s- %s (%v, %.1f%%)\n", strings.Repeat("  ", depth), s.name,
		s.duration.Round(100*time.Microsecond), pct)

	sort.Slice(s.children, func(i, j int) bool {
		return s.children[i].start.Before(s.children[j].start)
	})
	for _, c := range s.children {
		printSpan(w, c, depth+1, total)
	}
}

type noopStopper struct{}

func (noopStopper) Stop() {}
