package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/panerun/panerun/pkg/buffer"
	"github.com/panerun/panerun/pkg/models"
)

// Screen lines reserved outside the panes: help line and status line.
const chromeHeight = 2

// renderScreen is a pure view over the snapshot: it reads the views and the
// selection and produces the full screen, never touching supervision state.
func renderScreen(views []models.ProcessView, selected, width, height int, shuttingDown bool, status, help string) string {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	if len(views) == 0 {
		return "no processes configured\n"
	}

	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	selectedStyle := lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("15")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	paneH := (height - chromeHeight) / len(views)
	if paneH < 2 {
		paneH = 2
	}
	bodyH := paneH - 1

	var b strings.Builder
	for i, v := range views {
		title := fitLine(paneTitle(i, v), width)
		if i == selected {
			b.WriteString(selectedStyle.Render(title))
		} else {
			b.WriteString(titleStyle.Render(title))
		}
		b.WriteString("\n")

		window := buffer.Visible(v.Lines, v.ScrollOffset, bodyH)
		for _, line := range window {
			b.WriteString(fitCell(line, width))
			b.WriteString("\n")
		}
		for pad := len(window); pad < bodyH; pad++ {
			b.WriteString(fitLine("", width))
			b.WriteString("\n")
		}
	}

	if shuttingDown {
		b.WriteString(dimStyle.Render(fitLine("shutting down, terminating processes...", width)))
	} else {
		b.WriteString(dimStyle.Render(fitLine(status, width)))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Italic(true).Render(fitLine(help, width)))
	b.WriteString("\n")
	return b.String()
}

// paneTitle builds one pane's header: index, name, status tag, pid, and the
// scroll position when the operator has scrolled off the tail.
func paneTitle(i int, v models.ProcessView) string {
	t := fmt.Sprintf(" %d %s [%s]", i+1, v.Name, v.StatusTag())
	if v.PID > 0 {
		t += fmt.Sprintf(" pid %d", v.PID)
	}
	if v.ScrollOffset > 0 {
		t += fmt.Sprintf("  ↑%d/%d", v.ScrollOffset, len(v.Lines))
	}
	return t
}

// fitCell truncates or pads a line to exactly the given display width.
func fitCell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "…")
	}
	return s + strings.Repeat(" ", width-runewidth.StringWidth(s))
}

// fitLine pads a line to the viewport width so stale cells get overwritten,
// leaving overlong lines alone.
func fitLine(line string, width int) string {
	if width <= 0 {
		return line
	}
	lineWidth := runewidth.StringWidth(line)
	if lineWidth >= width {
		return line
	}
	return line + strings.Repeat(" ", width-lineWidth)
}
