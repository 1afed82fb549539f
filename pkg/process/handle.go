package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/panerun/panerun/pkg/buffer"
	"github.com/panerun/panerun/pkg/models"
)

// After SIGKILL a process group has no way to linger; this is how long we
// are willing to wait for the exit to be observed anyway.
const killWait = 2 * time.Second

// SpawnError reports an entry whose executable could not be launched.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TerminationTimeout reports a process that outlived even the SIGKILL wait.
type TerminationTimeout struct {
	Name string
	PID  int
}

func (e *TerminationTimeout) Error() string {
	return fmt.Sprintf("process %q (pid %d) did not terminate", e.Name, e.PID)
}

// Handle owns one configured process for the lifetime of the program. The
// underlying OS process and its two capture goroutines are recreated on every
// (re)start; the handle and its scrollback persist across them.
type Handle struct {
	spec models.ProcessSpec
	log  *slog.Logger

	// lifecycle serializes start/stop/restart on this handle. Held across
	// the whole transition, including graceful-stop waits, so no two
	// lifecycle operations on the same handle ever overlap.
	lifecycle sync.Mutex

	// mu guards the fields below. State and buffer commits both happen
	// under it, so View never observes one without the other.
	mu         sync.Mutex
	state      models.ProcState
	pid        int
	exit       *models.ExitInfo
	generation uint64
	buf        *buffer.Ring
	done       chan struct{}
}

func newHandle(spec models.ProcessSpec, scrollback int, log *slog.Logger) *Handle {
	return &Handle{
		spec:  spec,
		log:   log.With("proc", spec.Name),
		state: models.StateStopped,
		buf:   buffer.New(scrollback),
	}
}

// Name returns the spec name, the stable identity across restarts.
func (h *Handle) Name() string { return h.spec.Name }

// start spawns a new generation. Caller holds h.lifecycle.
func (h *Handle) start(markRestart bool) error {
	h.mu.Lock()
	h.generation++
	gen := h.generation
	h.state = models.StateStarting
	h.exit = nil
	h.pid = 0
	if markRestart {
		h.buf.Append(fmt.Sprintf("----- restart #%d -----", gen))
	}
	h.mu.Unlock()

	cmd := exec.Command(h.spec.Command, h.spec.Args...)
	cmd.Dir = h.spec.CWD
	// Own process group so stop/kill reaches the whole child tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return h.failSpawn(gen, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return h.failSpawn(gen, err)
	}

	if err := cmd.Start(); err != nil {
		return h.failSpawn(gen, err)
	}

	done := make(chan struct{})
	h.mu.Lock()
	h.pid = cmd.Process.Pid
	h.state = models.StateRunning
	h.done = done
	h.mu.Unlock()
	h.log.Info("process started", "pid", cmd.Process.Pid, "generation", gen)

	var readers sync.WaitGroup
	readers.Add(2)
	go h.capture(gen, "stdout", stdout, &readers)
	go h.capture(gen, "stderr", stderr, &readers)
	go h.watch(gen, cmd, done, &readers)
	return nil
}

func (h *Handle) failSpawn(gen uint64, err error) error {
	h.mu.Lock()
	if gen == h.generation {
		h.state = models.StateStopped
		h.exit = &models.ExitInfo{SpawnFailed: true, Err: err.Error()}
		h.buf.Append(fmt.Sprintf("[panerun] spawn failed: %v", err))
	}
	h.mu.Unlock()
	h.log.Error("spawn failed", "error", err)
	return &SpawnError{Name: h.spec.Name, Err: err}
}

// capture reads one stream line by line into the scrollback. Appends carry
// the generation the reader was spawned under; once the handle has moved on
// the remaining output is drained and discarded.
func (h *Handle) capture(gen uint64, stream string, r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		h.appendLine(gen, sc.Text())
	}
	if err := sc.Err(); err != nil {
		h.appendLine(gen, fmt.Sprintf("[panerun] %s read error: %v", stream, err))
		h.log.Error("stream read failed", "stream", stream, "error", err)
	}
}

// appendLine commits one captured line, unless the generation is stale.
func (h *Handle) appendLine(gen uint64, line string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.generation {
		return false
	}
	h.buf.Append(line)
	return true
}

// watch observes process exit for one generation. The pipes must be drained
// before Wait, otherwise trailing output is lost.
func (h *Handle) watch(gen uint64, cmd *exec.Cmd, done chan struct{}, readers *sync.WaitGroup) {
	readers.Wait()
	err := cmd.Wait()

	code := 0
	errText := ""
	if err != nil {
		errText = err.Error()
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}

	h.mu.Lock()
	if gen == h.generation {
		h.state = models.StateStopped
		h.exit = &models.ExitInfo{Code: code, Err: errText}
		h.pid = 0
	}
	h.mu.Unlock()
	close(done)
	h.log.Info("process exited", "code", code, "generation", gen)
}

// stop terminates the current generation: SIGTERM to the process group,
// grace period, then SIGKILL. No-op when the process is not live.
// Caller holds h.lifecycle.
func (h *Handle) stop(grace time.Duration) error {
	h.mu.Lock()
	if h.state != models.StateRunning && h.state != models.StateStarting {
		h.mu.Unlock()
		return nil
	}
	h.state = models.StateStopping
	pid := h.pid
	done := h.done
	h.mu.Unlock()

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		_ = syscall.Kill(pid, syscall.SIGTERM)
	}

	select {
	case <-done:
		return nil
	case <-time.After(grace):
	}

	h.log.Warn("termination timed out, escalating to SIGKILL", "pid", pid)
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}

	select {
	case <-done:
		return nil
	case <-time.After(killWait):
		return &TerminationTimeout{Name: h.spec.Name, PID: pid}
	}
}

// View returns a consistent snapshot of the handle. Safe to call
// concurrently with capture appends and lifecycle transitions.
func (h *Handle) View() models.ProcessView {
	h.mu.Lock()
	defer h.mu.Unlock()

	lines, scroll := h.buf.Snapshot()
	var exit *models.ExitInfo
	if h.exit != nil {
		e := *h.exit
		exit = &e
	}
	return models.ProcessView{
		Name:         h.spec.Name,
		State:        h.state,
		PID:          h.pid,
		Generation:   h.generation,
		Exit:         exit,
		Lines:        lines,
		ScrollOffset: scroll,
	}
}

// Scroll moves this handle's scrollback view by delta lines.
func (h *Handle) Scroll(delta int) int {
	return h.buf.Scroll(delta)
}
