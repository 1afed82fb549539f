package process

import (
	"log/slog"
	"testing"

	"github.com/panerun/panerun/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAppendLineDropsStaleGeneration(t *testing.T) {
	t.Parallel()

	h := newHandle(shSpec("x", "true"), 10, discardLogger())
	h.generation = 1

	if !h.appendLine(1, "current") {
		t.Fatal("current-generation append was dropped")
	}

	h.generation = 2
	if h.appendLine(1, "stale") {
		t.Fatal("stale-generation append was accepted")
	}

	lines := h.View().Lines
	if len(lines) != 1 || lines[0] != "current" {
		t.Fatalf("unexpected buffer contents: %v", lines)
	}
}

func TestViewCopiesExitInfo(t *testing.T) {
	t.Parallel()

	h := newHandle(shSpec("x", "true"), 10, discardLogger())
	h.exit = &models.ExitInfo{Code: 3}

	v := h.View()
	v.Exit.Code = 99
	if h.exit.Code != 3 {
		t.Fatal("View leaked internal exit info")
	}
}

func TestStopWithoutProcessIsNoop(t *testing.T) {
	t.Parallel()

	h := newHandle(shSpec("x", "true"), 10, discardLogger())
	if err := h.stop(DefaultStopGrace); err != nil {
		t.Fatalf("stop on never-started handle: %v", err)
	}
	if h.View().State != models.StateStopped {
		t.Fatalf("unexpected state %s", h.View().State)
	}
}
