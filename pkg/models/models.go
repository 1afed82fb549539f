package models

import "fmt"

// ProcState is the lifecycle state of one supervised process.
type ProcState string

const (
	StateStarting   ProcState = "starting"
	StateRunning    ProcState = "running"
	StateStopping   ProcState = "stopping"
	StateStopped    ProcState = "stopped"
	StateRestarting ProcState = "restarting"
)

// ProcessSpec describes one configured command. Specs are immutable after
// config load; Name is the stable identity across restarts.
type ProcessSpec struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	CWD     string   `yaml:"cwd"`
}

// ExitInfo records how the last run of a process ended.
type ExitInfo struct {
	Code        int
	SpawnFailed bool
	Err         string
}

// ProcessView is a point-in-time snapshot of one process handle, handed to
// the renderer. Lines is a copy; mutating it does not affect the supervisor.
type ProcessView struct {
	Name         string
	State        ProcState
	PID          int
	Generation   uint64
	Exit         *ExitInfo
	Lines        []string
	ScrollOffset int
}

// StatusTag returns the display tag for a view:
// starting|running|stopping|stopped:<code>|spawn-failed.
func (v ProcessView) StatusTag() string {
	if v.State == StateStopped && v.Exit != nil {
		if v.Exit.SpawnFailed {
			return "spawn-failed"
		}
		return fmt.Sprintf("stopped:%d", v.Exit.Code)
	}
	return string(v.State)
}

// Toggleable reports whether the toggle key should act on this view and
// what it would do: stop when live, restart when terminal.
func (v ProcessView) Toggleable() (action string, ok bool) {
	switch v.State {
	case StateRunning, StateStarting:
		return "stop", true
	case StateStopped:
		return "restart", true
	default:
		return "", false
	}
}
