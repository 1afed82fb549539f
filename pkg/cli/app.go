// Package cli wires the configuration, the supervisor, and the terminal UI
// into the panerun application.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/panerun/panerun/pkg/config"
	"github.com/panerun/panerun/pkg/process"
)

// App is the main application handler.
type App struct {
	sup    *process.Supervisor
	log    *slog.Logger
	logOut io.Closer
}

// NewApp loads the config at configPath and builds the supervisor. When
// logPath is non-empty, supervisor diagnostics go to that file; the terminal
// itself belongs to the UI.
func NewApp(configPath, logPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.DiscardHandler)
	var logOut io.Closer
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger = slog.New(slog.NewTextHandler(f, nil))
		logOut = f
	}

	sup := process.New(cfg.Processes, process.Options{
		Scrollback: cfg.Scrollback,
		Logger:     logger,
	})

	return &App{sup: sup, log: logger, logOut: logOut}, nil
}

// Run starts every configured process and hands the terminal to the UI.
// It returns after the operator quits and every child has been torn down.
func (a *App) Run() error {
	a.log.Info("supervising", "processes", a.sup.Len())
	if a.logOut != nil {
		defer a.logOut.Close()
	}
	if err := a.sup.StartAll(); err != nil {
		return err
	}
	// The UI triggers Shutdown on quit; this covers abnormal UI exits.
	defer a.sup.Shutdown()

	p := tea.NewProgram(newPaneModel(a.sup), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
