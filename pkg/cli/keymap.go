package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap declares every binding in one place so the key values stay
// adjustable instead of being scattered through Update as literals.
type keyMap struct {
	Quit     key.Binding
	Toggle   key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Select   []key.Binding
}

func defaultKeyMap(n int) keyMap {
	km := keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("t", "enter"),
			key.WithHelp("t", "stop/restart"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
	}
	if n > 9 {
		n = 9
	}
	for i := 0; i < n; i++ {
		d := fmt.Sprintf("%d", i+1)
		km.Select = append(km.Select, key.NewBinding(
			key.WithKeys(d),
			key.WithHelp(d, "select"),
		))
	}
	return km
}

func (k keyMap) helpLine() string {
	parts := []string{}
	if n := len(k.Select); n > 1 {
		parts = append(parts, fmt.Sprintf("1-%d select", n))
	}
	for _, b := range []key.Binding{k.Toggle, k.Up, k.Down, k.PageUp, k.PageDown, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " | ")
}
