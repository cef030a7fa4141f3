package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a single self-overwriting progress line.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu           sync.Mutex
	writer       io.Writer
	total        int
	current      int
	every        int
	lastReported int
	startTime    time.Time
	started      bool
}

// NewProgressTracker reports to writer every time at least every more of
// total items have been processed.
func NewProgressTracker(writer io.Writer, total, every int) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressTracker{writer: writer, total: total, every: max(every, 1)}
}

func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Add records n more processed items.
func (p *ProgressTracker) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.current = min(p.current+n, p.total)
	if p.current-p.lastReported >= p.every {
		p.report()
		p.lastReported = p.current
	}
}

// Current returns the number of items recorded so far.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish prints the final line followed by a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report must be called with mu held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed
	}
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.current) / float64(p.total) * 100
	}
	fmt.Fprintf(p.writer, "\rReembedded %d/%d chunks (%.1f%%) - %.1f chunks/s", p.current, p.total, pct, rate)
}
