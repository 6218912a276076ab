package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding of the history screen.
type KeyMap struct {
	Quit       key.Binding
	Month      key.Binding
	Year       key.Binding
	PrevPeriod key.Binding
	NextPeriod key.Binding
	Today      key.Binding
	PrevBucket key.Binding
	NextBucket key.Binding
	Refresh    key.Binding
	SignOut    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Month:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "month")),
		Year:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "year")),
		PrevPeriod: key.NewBinding(key.WithKeys("[", "pgup"), key.WithHelp("[", "prev period")),
		NextPeriod: key.NewBinding(key.WithKeys("]", "pgdown"), key.WithHelp("]", "next period")),
		Today:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		PrevBucket: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "select")),
		NextBucket: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "select")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		SignOut:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "sign out")),
	}
}

// ShortHelp is the footer line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Month, k.Year, k.PrevPeriod, k.NextPeriod, k.PrevBucket, k.Today, k.Refresh, k.Quit}
}
