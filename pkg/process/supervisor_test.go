package process

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/panerun/panerun/pkg/models"
)

func shSpec(name, script string) models.ProcessSpec {
	return models.ProcessSpec{
		Name:    name,
		Command: "sh",
		Args:    []string{"-c", script},
		CWD:     ".",
	}
}

func testOptions() Options {
	return Options{Scrollback: 200, StopGrace: 500 * time.Millisecond}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartAllCapturesNumberedOutput(t *testing.T) {
	t.Parallel()

	s := New([]models.ProcessSpec{
		shSpec("counter", `printf "1\n2\n3\n4\n5\n"`),
	}, testOptions())
	if err := s.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}
	defer s.Shutdown()

	waitFor(t, 5*time.Second, "counter to exit", func() bool {
		return s.Snapshot()[0].State == models.StateStopped
	})

	v := s.Snapshot()[0]
	if v.Exit == nil || v.Exit.Code != 0 {
		t.Fatalf("expected clean exit, got %+v", v.Exit)
	}
	want := []string{"1", "2", "3", "4", "5"}
	if len(v.Lines) != len(want) {
		t.Fatalf("expected %d lines, got %v", len(want), v.Lines)
	}
	for i, l := range want {
		if v.Lines[i] != l {
			t.Fatalf("line %d: expected %q, got %q", i, l, v.Lines[i])
		}
	}
	if v.StatusTag() != "stopped:0" {
		t.Fatalf("expected stopped:0 tag, got %q", v.StatusTag())
	}
}

func TestLineOrderPreserved(t *testing.T) {
	t.Parallel()

	s := New([]models.ProcessSpec{
		shSpec("seq", `i=1; while [ $i -le 50 ]; do echo $i; i=$((i+1)); done`),
	}, testOptions())
	if err := s.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}
	defer s.Shutdown()

	waitFor(t, 5*time.Second, "seq to exit", func() bool {
		return s.Snapshot()[0].State == models.StateStopped
	})

	lines := s.Snapshot()[0].Lines
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(lines))
	}
	for i, l := range lines {
		if l != fmt.Sprintf("%d", i+1) {
			t.Fatalf("line %d out of order: %q", i, l)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	s := New([]models.ProcessSpec{shSpec("sleeper", "sleep 30")}, testOptions())
	if err := s.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}
	defer s.Shutdown()

	waitFor(t, 2*time.Second, "sleeper to run", func() bool {
		return s.Snapshot()[0].State == models.StateRunning
	})

	if err := s.Stop(0); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitFor(t, 3*time.Second, "sleeper to stop", func() bool {
		return s.Snapshot()[0].State == models.StateStopped
	})
	first := s.Snapshot()[0]

	if err := s.Stop(0); err != nil {
		t.Fatalf("second stop must be a no-op, got: %v", err)
	}
	second := s.Snapshot()[0]
	if first.State != second.State || first.Generation != second.Generation {
		t.Fatalf("second stop changed state: %+v vs %+v", first, second)
	}
}

func TestSpawnFailureIsolation(t *testing.T) {
	t.Parallel()

	s := New([]models.ProcessSpec{
		shSpec("a", "sleep 30"),
		{Name: "b", Command: "/nonexistent/panerun-no-such-binary", CWD: "."},
		shSpec("c", "sleep 30"),
	}, testOptions())

	if err := s.StartAll(); err != nil {
		t.Fatalf("start all should tolerate one bad entry, got: %v", err)
	}
	defer s.Shutdown()

	waitFor(t, 2*time.Second, "a and c to run", func() bool {
		vs := s.Snapshot()
		return vs[0].State == models.StateRunning && vs[2].State == models.StateRunning
	})

	b := s.Snapshot()[1]
	if b.StatusTag() != "spawn-failed" {
		t.Fatalf("expected spawn-failed tag for b, got %q", b.StatusTag())
	}
	if len(b.Lines) == 0 || !strings.Contains(b.Lines[0], "spawn failed") {
		t.Fatalf("expected spawn diagnostic in buffer, got %v", b.Lines)
	}
}

func TestStartAllNoneStarted(t *testing.T) {
	t.Parallel()

	s := New([]models.ProcessSpec{
		{Name: "bad", Command: "/nonexistent/panerun-no-such-binary", CWD: "."},
	}, testOptions())

	if err := s.StartAll(); !errors.Is(err, ErrNoneStarted) {
		t.Fatalf("expected ErrNoneStarted, got %v", err)
	}
}

func TestRestartPreservesHistoryAndStartsNewGeneration(t *testing.T) {
	t.Parallel()

	s := New([]models.ProcessSpec{shSpec("oneshot", "echo done")}, testOptions())
	if err := s.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}
	defer s.Shutdown()

	waitFor(t, 3*time.Second, "first run to exit", func() bool {
		return s.Snapshot()[0].State == models.StateStopped
	})

	if err := s.Restart(0); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitFor(t, 3*time.Second, "second run to exit", func() bool {
		v := s.Snapshot()[0]
		return v.State == models.StateStopped && v.Generation == 2
	})

	lines := s.Snapshot()[0].Lines
	want := []string{"done", "----- restart #2 -----", "done"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestRestartFiltersOldGenerationOutput(t *testing.T) {
	t.Parallel()

	// The child reports its own pid on every line and ignores SIGTERM, so
	// the old generation is still printing right up until SIGKILL lands.
	script := `trap "" TERM; while true; do echo tick-$$; sleep 0.05; done`
	s := New([]models.ProcessSpec{shSpec("ticker", script)}, testOptions())
	if err := s.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}
	defer s.Shutdown()

	waitFor(t, 3*time.Second, "first ticks", func() bool {
		return len(s.Snapshot()[0].Lines) > 2
	})
	oldPID := s.Snapshot()[0].PID

	if err := s.Restart(0); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitFor(t, 3*time.Second, "new generation ticks", func() bool {
		v := s.Snapshot()[0]
		return v.State == models.StateRunning && v.PID != oldPID && len(v.Lines) > 0 &&
			strings.Contains(v.Lines[len(v.Lines)-1], fmt.Sprintf("tick-%d", v.PID))
	})

	v := s.Snapshot()[0]
	marker := -1
	for i, l := range v.Lines {
		if strings.HasPrefix(l, "----- restart") {
			marker = i
		}
	}
	if marker < 0 {
		t.Fatalf("restart marker missing from %v", v.Lines)
	}
	oldTick := fmt.Sprintf("tick-%d", oldPID)
	for _, l := range v.Lines[marker+1:] {
		if strings.Contains(l, oldTick) {
			t.Fatalf("stale line %q appeared after restart marker", l)
		}
	}
}

func TestShutdownStopsEverythingOnce(t *testing.T) {
	t.Parallel()

	s := New([]models.ProcessSpec{
		shSpec("a", "sleep 30"),
		shSpec("b", "sleep 30"),
	}, testOptions())
	if err := s.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}

	waitFor(t, 2*time.Second, "both running", func() bool {
		vs := s.Snapshot()
		return vs[0].State == models.StateRunning && vs[1].State == models.StateRunning
	})

	s.Shutdown()
	for _, v := range s.Snapshot() {
		if v.State != models.StateStopped {
			t.Fatalf("process %s still %s after shutdown", v.Name, v.State)
		}
	}

	// Second call is a no-op and must return promptly.
	start := time.Now()
	s.Shutdown()
	if time.Since(start) > time.Second {
		t.Fatal("second shutdown did not return promptly")
	}
}

func TestRestartAfterShutdownIsRefused(t *testing.T) {
	t.Parallel()

	s := New([]models.ProcessSpec{shSpec("daemon", "sleep 30")}, testOptions())
	if err := s.StartAll(); err != nil {
		t.Fatalf("start all: %v", err)
	}
	waitFor(t, 2*time.Second, "running", func() bool {
		return s.Snapshot()[0].State == models.StateRunning
	})

	s.Shutdown()

	// A restart landing after quit tore everything down must not spawn a
	// new child that nothing would ever stop.
	if err := s.Restart(0); !errors.Is(err, ErrShutdown) {
		t.Fatalf("restart after shutdown: got %v, want ErrShutdown", err)
	}
	v := s.Snapshot()[0]
	if v.State != models.StateStopped {
		t.Fatalf("process %s after refused restart, want stopped", v.State)
	}
	if v.Generation != 1 {
		t.Fatalf("generation %d after refused restart, want 1", v.Generation)
	}
	if err := s.StartAll(); !errors.Is(err, ErrShutdown) {
		t.Fatalf("start all after shutdown: got %v, want ErrShutdown", err)
	}
}

func TestIndexBounds(t *testing.T) {
	t.Parallel()

	s := New([]models.ProcessSpec{shSpec("only", "sleep 1")}, testOptions())
	if err := s.Stop(5); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
	if err := s.Scroll(-1, 1); err == nil {
		t.Fatal("expected error for negative index")
	}
}
