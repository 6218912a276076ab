package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const maxFieldLen = 128

func (m Model) updateSignIn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.signingIn {
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.focus = 1 - m.focus
	case tea.KeyEnter:
		if m.focus == 0 {
			m.focus = 1
			return m, nil
		}
		if strings.TrimSpace(m.username) == "" || m.password == "" {
			m.message = "Username and password are required"
			return m, nil
		}
		m.signingIn = true
		m.message = ""
		return m, m.signInCmd()
	case tea.KeyBackspace:
		m.setField(dropLast(m.field()))
	case tea.KeySpace:
		m.setField(m.field() + " ")
	case tea.KeyRunes:
		m.setField(m.field() + string(msg.Runes))
	}
	return m, nil
}

func (m Model) field() string {
	if m.focus == 0 {
		return m.username
	}
	return m.password
}

func (m *Model) setField(s string) {
	if len([]rune(s)) > maxFieldLen {
		return
	}
	if m.focus == 0 {
		m.username = s
	} else {
		m.password = s
	}
}

func dropLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

func (m Model) signInView() string {
	cursor := func(i int) string {
		if i == m.focus && !m.signingIn {
			return "▏"
		}
		return ""
	}
	label := func(i int, s string) string {
		if i == m.focus {
			return activeTabStyle.Render(s)
		}
		return mutedStyle.Render(s)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign in to centsible"))
	b.WriteString("\n\n")
	b.WriteString(label(0, "Username") + "  " + m.username + cursor(0) + "\n")
	b.WriteString(label(1, "Password") + "  " + strings.Repeat("•", len([]rune(m.password))) + cursor(1) + "\n\n")
	switch {
	case m.signingIn:
		b.WriteString(m.spinner.View() + " Signing in…\n")
	case m.message != "":
		b.WriteString(errorStyle.Render(m.message) + "\n")
	}
	b.WriteString(mutedStyle.Render("tab switch field • enter submit • esc quit"))
	return boxStyle.Render(b.String())
}
