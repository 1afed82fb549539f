// Package process owns child-process lifecycles: spawning, concurrent
// output capture, graceful stop with escalation, and restart with stale
// output filtering.
package process

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panerun/panerun/pkg/models"
)

// DefaultStopGrace is how long a process gets to exit after SIGTERM before
// SIGKILL is sent.
const DefaultStopGrace = 5 * time.Second

// ErrNoneStarted is returned by StartAll when every configured entry failed
// to launch.
var ErrNoneStarted = errors.New("no process could be started")

// ErrShutdown is returned by operations that would spawn a process after
// Shutdown has begun.
var ErrShutdown = errors.New("supervisor is shut down")

// Options configures a Supervisor.
type Options struct {
	Scrollback int           // lines kept per process, 0 for default
	StopGrace  time.Duration // SIGTERM grace period, 0 for default
	Logger     *slog.Logger  // nil discards
}

// Supervisor owns the ordered set of process handles. The set is fixed at
// construction; only the state within each handle changes afterwards.
type Supervisor struct {
	handles []*Handle
	grace   time.Duration
	log     *slog.Logger

	mu           sync.Mutex
	closed       bool
	shutdownOnce sync.Once
}

// New builds a supervisor for the given specs. Nothing is spawned until
// StartAll.
func New(specs []models.ProcessSpec, opts Options) *Supervisor {
	if opts.Scrollback <= 0 {
		opts.Scrollback = 1000
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	handles := make([]*Handle, 0, len(specs))
	for _, spec := range specs {
		handles = append(handles, newHandle(spec, opts.Scrollback, opts.Logger))
	}
	return &Supervisor{
		handles: handles,
		grace:   opts.StopGrace,
		log:     opts.Logger,
	}
}

// Len returns the number of supervised processes.
func (s *Supervisor) Len() int { return len(s.handles) }

// StartAll spawns every configured process in declared order. A spawn
// failure marks that entry and moves on; the error is ErrNoneStarted only
// when not a single entry launched.
func (s *Supervisor) StartAll() error {
	started := 0
	for _, h := range s.handles {
		h.lifecycle.Lock()
		if s.isClosed() {
			h.lifecycle.Unlock()
			return ErrShutdown
		}
		err := h.start(false)
		h.lifecycle.Unlock()
		if err != nil {
			s.log.Error("entry failed to start", "proc", h.Name(), "error", err)
			continue
		}
		started++
	}
	if started == 0 {
		return ErrNoneStarted
	}
	return nil
}

// Stop terminates the process at index i. Stopping an already stopped or
// stopping entry is a no-op.
func (s *Supervisor) Stop(i int) error {
	h, err := s.handle(i)
	if err != nil {
		return err
	}
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()
	return h.stop(s.grace)
}

// Restart stops the process at index i if it is live, then spawns a new
// generation. Output history is preserved; a restart marker is appended so
// the operator can see the boundary, and any trailing output from the old
// generation is discarded.
func (s *Supervisor) Restart(i int) error {
	h, err := s.handle(i)
	if err != nil {
		return err
	}
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	// Checked under the lifecycle lock: either the flag is already visible
	// here, or Shutdown is still waiting on this lock and will stop whatever
	// this restart spawns.
	if s.isClosed() {
		return ErrShutdown
	}

	if err := h.stop(s.grace); err != nil {
		// Still alive after SIGKILL; spawning a duplicate would leak it.
		return err
	}

	h.mu.Lock()
	h.state = models.StateRestarting
	h.mu.Unlock()
	return h.start(true)
}

// Shutdown stops every live process, each bounded by the grace period plus
// the kill wait. Safe to call more than once; only the first call does the
// work, and it blocks until every handle has been dealt with. Restarts
// requested after Shutdown begins are refused with ErrShutdown.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		// Flip the flag before touching any lifecycle lock so a restart
		// racing with quit either sees it or loses its spawn to the stop
		// below.
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.log.Info("shutting down")
		var wg sync.WaitGroup
		for _, h := range s.handles {
			wg.Add(1)
			go func(h *Handle) {
				defer wg.Done()
				h.lifecycle.Lock()
				defer h.lifecycle.Unlock()
				if err := h.stop(s.grace); err != nil {
					s.log.Error("shutdown: process left behind", "proc", h.Name(), "error", err)
				}
			}(h)
		}
		wg.Wait()
	})
}

// Snapshot returns a per-handle-consistent view of every process, in
// declared order. Safe to call concurrently with captures and lifecycle
// transitions.
func (s *Supervisor) Snapshot() []models.ProcessView {
	views := make([]models.ProcessView, 0, len(s.handles))
	for _, h := range s.handles {
		views = append(views, h.View())
	}
	return views
}

// Scroll moves the scrollback view of the process at index i.
func (s *Supervisor) Scroll(i, delta int) error {
	h, err := s.handle(i)
	if err != nil {
		return err
	}
	h.Scroll(delta)
	return nil
}

func (s *Supervisor) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Supervisor) handle(i int) (*Handle, error) {
	if i < 0 || i >= len(s.handles) {
		return nil, fmt.Errorf("no process at index %d", i)
	}
	return s.handles[i], nil
}
