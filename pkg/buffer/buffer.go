// Package buffer holds the per-process scrollback: a bounded ring of output
// lines plus the operator's scroll position within it.
package buffer

import "sync"

// Ring is a thread-safe ring buffer keeping the last N output lines of one
// process, with a scroll offset measured in lines up from the live tail
// (0 means follow the tail).
type Ring struct {
	mu     sync.Mutex
	lines  []string
	size   int
	pos    int
	full   bool
	scroll int
}

// New creates a ring buffer that stores the last n lines.
func New(n int) *Ring {
	if n <= 0 {
		n = 1
	}
	return &Ring{
		lines: make([]string, n),
		size:  n,
	}
}

// Append adds one complete line at the tail. If the operator has scrolled
// up, the viewed region keeps its absolute position: the offset grows with
// the buffer instead of snapping back to the tail.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicting := r.full
	r.lines[r.pos] = line
	r.pos = (r.pos + 1) % r.size
	if r.pos == 0 {
		r.full = true
	}

	if r.scroll > 0 && !evicting {
		// Growing buffer: the viewed lines moved one further from the tail.
		// Once eviction starts the distance from the tail is already fixed.
		r.scroll++
	}
	r.clampLocked()
}

// Scroll moves the view by delta lines (positive = up, toward older output)
// and returns the clamped offset.
func (r *Ring) Scroll(delta int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scroll += delta
	r.clampLocked()
	return r.scroll
}

// ResetScroll snaps the view back to the live tail.
func (r *Ring) ResetScroll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scroll = 0
}

func (r *Ring) clampLocked() {
	n := r.lenLocked()
	if r.scroll < 0 {
		r.scroll = 0
	}
	if r.scroll > n {
		r.scroll = n
	}
}

func (r *Ring) lenLocked() int {
	if r.full {
		return r.size
	}
	return r.pos
}

// Len returns the number of stored lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

// ScrollOffset returns the current offset from the tail.
func (r *Ring) ScrollOffset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scroll
}

// Lines returns all stored lines oldest first, as a copy.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.linesLocked()
}

func (r *Ring) linesLocked() []string {
	if !r.full {
		out := make([]string, r.pos)
		copy(out, r.lines[:r.pos])
		return out
	}
	out := make([]string, r.size)
	copy(out, r.lines[r.pos:])
	copy(out[r.size-r.pos:], r.lines[:r.pos])
	return out
}

// Snapshot returns the stored lines and the scroll offset as one consistent
// read.
func (r *Ring) Snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.linesLocked(), r.scroll
}

// Window returns the height lines ending at Len()-ScrollOffset, i.e. the
// region a pane of that height should display.
func (r *Ring) Window(height int) []string {
	lines, scroll := r.Snapshot()
	return Visible(lines, scroll, height)
}

// Visible slices the display window out of a line snapshot: height lines
// ending scroll lines above the tail. Shared by Ring.Window and the renderer,
// which works from copied snapshots.
func Visible(lines []string, scroll, height int) []string {
	if height <= 0 {
		return nil
	}
	end := len(lines) - scroll
	if end < 0 {
		end = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	start := end - height
	if start < 0 {
		start = 0
	}
	return lines[start:end]
}
