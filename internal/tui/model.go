// Package tui is the terminal front-end of the history chart.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"centsible/internal/core"
	"centsible/internal/history"
	applog "centsible/internal/log"
)

// Client is the server API the terminal needs.
type Client interface {
	history.Fetcher
	Periods(ctx context.Context) ([]int, error)
	SignIn(ctx context.Context, username, password string) error
	SignOut(ctx context.Context) error
}

type Screen int

const (
	ScreenHistory Screen = iota
	ScreenSignIn
)

const (
	requestTimeout = 15 * time.Second
	animInterval   = 33 * time.Millisecond
	barRows        = 12
	defaultWidth   = 80
)

type (
	loadedMsg struct {
		ticket   history.Ticket
		applied  bool
		navigate string
	}
	periodsMsg struct {
		years []int
		err   error
	}
	signInMsg  struct{ err error }
	signOutMsg struct{ err error }
	animMsg    time.Time
)

// navSignal records the navigation the view asks for during a load so the
// model can act on it from Update.
type navSignal struct {
	mu   sync.Mutex
	path string
}

func (n *navSignal) Navigate(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()
}

func (n *navSignal) take() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.path
	n.path = ""
	return p
}

// Model is the bubbletea model of the history screen and its sign-in form.
type Model struct {
	client    Client
	view      *history.View
	nav       *navSignal
	labeler   history.Labeler
	formatter history.Formatter
	keys      KeyMap
	spinner   spinner.Model
	logger    *applog.Logger
	now       func() time.Time
	autoLoad  bool

	screen   Screen
	width    int
	selected int
	shown    core.HistoryQuery
	counters []*history.CountUp
	years    []int
	message  string

	username  string
	password  string
	focus     int
	signingIn bool
	quitting  bool
}

type Option func(*Model)

func WithLocale(locale string) Option {
	return func(m *Model) {
		m.labeler = history.NewLabeler(locale)
		m.formatter = history.NumberFormatterFor(locale)
	}
}

func WithNow(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithUsername prefills the sign-in form.
func WithUsername(name string) Option {
	return func(m *Model) { m.username = name }
}

// WithAutoLoad controls whether Init fetches the current period.
func WithAutoLoad(on bool) Option {
	return func(m *Model) { m.autoLoad = on }
}

func NewModel(c Client, opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	m := Model{
		client:    c,
		nav:       &navSignal{},
		labeler:   history.NewLabeler(string(history.DefaultLocale)),
		formatter: history.NumberFormatterFor(string(history.DefaultLocale)),
		keys:      DefaultKeyMap(),
		spinner:   s,
		now:       time.Now,
		autoLoad:  true,
		width:     defaultWidth,
		selected:  -1,
		counters:  newCounters(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.logger == nil {
		m.logger = applog.Discard()
	}
	m.view = history.NewView(c,
		history.WithNavigator(m.nav),
		history.WithNow(m.now),
		history.WithLogger(m.logger.WithComponent(applog.ComponentHistory)),
	)
	return m
}

func newCounters() []*history.CountUp {
	return []*history.CountUp{history.NewCountUp(), history.NewCountUp(), history.NewCountUp()}
}

func (m Model) Screen() Screen { return m.screen }

func (m Model) Init() tea.Cmd {
	if !m.autoLoad {
		return m.spinner.Tick
	}
	return tea.Batch(m.spinner.Tick, m.loadCmd(m.view.Start()), m.periodsCmd())
}

func (m Model) loadCmd(t history.Ticket) tea.Cmd {
	view, nav := m.view, m.nav
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		applied := view.Load(ctx, t)
		return loadedMsg{ticket: t, applied: applied, navigate: nav.take()}
	}
}

func (m Model) periodsCmd() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		years, err := c.Periods(ctx)
		return periodsMsg{years: years, err: err}
	}
}

func (m Model) signInCmd() tea.Cmd {
	c, user, pass := m.client, m.username, m.password
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return signInMsg{err: c.SignIn(ctx, user, pass)}
	}
}

func (m Model) signOutCmd() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return signOutMsg{err: c.SignOut(ctx)}
	}
}

func animTick() tea.Cmd {
	return tea.Tick(animInterval, func(t time.Time) tea.Msg { return animMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		if !msg.applied {
			return m, nil
		}
		if msg.navigate != "" {
			m.logger.Info("Session required, showing sign-in")
			m.screen = ScreenSignIn
			m.password = ""
			m.focus = 0
			if m.username != "" {
				m.focus = 1
			}
			m.message = "Please sign in to view your history"
			return m, nil
		}
		// a different period's buckets invalidate the selection
		res := m.view.Snapshot().Result
		if res.Query != m.shown {
			m.shown = res.Query
			m.selected = -1
			m.counters = newCounters()
		}
		if n := len(res.Records); m.selected >= n {
			m.selected = n - 1
		}
		return m, m.retarget()

	case periodsMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, history.ErrUnauthorized) {
				m.logger.Warn("Failed to load periods", applog.FieldError, msg.err)
			}
			return m, nil
		}
		m.years = msg.years
		return m, nil

	case signInMsg:
		m.signingIn = false
		m.password = ""
		if msg.err != nil {
			m.logger.Warn("Sign-in failed", applog.FieldOperation, applog.OpSignIn, applog.FieldError, msg.err)
			if errors.Is(msg.err, history.ErrUnauthorized) {
				m.message = "Invalid username or password"
			} else {
				m.message = "Sign-in failed: " + msg.err.Error()
			}
			m.focus = 1
			return m, nil
		}
		m.screen = ScreenHistory
		m.message = ""
		return m, tea.Batch(m.loadCmd(m.view.Start()), m.periodsCmd())

	case signOutMsg:
		if msg.err != nil {
			m.message = "Sign-out failed: " + msg.err.Error()
			return m, nil
		}
		m.screen = ScreenSignIn
		m.message = "Signed out"
		return m, nil

	case animMsg:
		if m.animating(time.Time(msg)) {
			return m, animTick()
		}
		return m, nil

	case tea.KeyMsg:
		if m.screen == ScreenSignIn {
			return m.updateSignIn(msg)
		}
		return m.updateHistory(msg)
	}
	return m, nil
}

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Month):
		return m.switchTimeframe(core.TimeframeMonth)
	case key.Matches(msg, m.keys.Year):
		return m.switchTimeframe(core.TimeframeYear)
	case key.Matches(msg, m.keys.PrevPeriod):
		return m.switchPeriod(m.view.Period().Prev(m.view.Timeframe()))
	case key.Matches(msg, m.keys.NextPeriod):
		return m.switchPeriod(m.view.Period().Next(m.view.Timeframe()))
	case key.Matches(msg, m.keys.Today):
		return m.switchPeriod(core.CurrentPeriod(m.now()))
	case key.Matches(msg, m.keys.PrevBucket):
		return m.moveSelection(-1)
	case key.Matches(msg, m.keys.NextBucket):
		return m.moveSelection(1)
	case key.Matches(msg, m.keys.Refresh):
		m.message = ""
		return m, tea.Batch(m.loadCmd(m.view.Start()), m.periodsCmd())
	case key.Matches(msg, m.keys.SignOut):
		return m, m.signOutCmd()
	}
	return m, nil
}

func (m Model) switchTimeframe(tf core.Timeframe) (tea.Model, tea.Cmd) {
	if tf == m.view.Timeframe() {
		return m, nil
	}
	t, err := m.view.SetTimeframe(tf)
	if err != nil {
		m.message = err.Error()
		return m, nil
	}
	m.message = ""
	m.selected = -1
	return m, m.loadCmd(t)
}

func (m Model) switchPeriod(p core.Period) (tea.Model, tea.Cmd) {
	if p == m.view.Period() {
		return m, nil
	}
	if !m.inRange(p.Year) {
		m.message = fmt.Sprintf("No history for %d", p.Year)
		return m, nil
	}
	t, err := m.view.SetPeriod(p)
	if err != nil {
		m.message = err.Error()
		return m, nil
	}
	m.message = ""
	m.selected = -1
	return m, m.loadCmd(t)
}

// inRange bounds navigation by the years that hold data, always allowing
// the current year. Unknown periods allow everything.
func (m Model) inRange(year int) bool {
	if len(m.years) == 0 {
		return true
	}
	lo, hi := m.years[0], m.years[0]
	for _, y := range m.years {
		lo, hi = min(lo, y), max(hi, y)
	}
	current := m.now().Year()
	return year >= min(lo, current) && year <= max(hi, current)
}

func (m Model) moveSelection(delta int) (tea.Model, tea.Cmd) {
	snap := m.view.Snapshot()
	n := len(snap.Result.Records)
	if n == 0 || snap.Loading {
		return m, nil
	}
	switch {
	case m.selected < 0 && delta < 0:
		m.selected = n - 1
	case m.selected < 0:
		m.selected = 0
	default:
		m.selected = min(max(m.selected+delta, 0), n-1)
	}
	return m, m.retarget()
}

func (m Model) tooltip(c history.Chart) []history.TooltipRow {
	if m.selected < 0 || m.selected >= len(c.Points) {
		return nil
	}
	return history.TooltipFor(&c.Points[m.selected], true, m.formatter)
}

// retarget points the tooltip counters at the selected bucket and starts
// the animation.
func (m Model) retarget() tea.Cmd {
	rows := m.tooltip(m.view.Chart(m.labeler))
	if rows == nil {
		return nil
	}
	now := m.now()
	for i, r := range rows {
		m.counters[i].Set(r.Value, now)
	}
	return animTick()
}

func (m Model) animating(now time.Time) bool {
	for _, c := range m.counters {
		if !c.Done(now) {
			return true
		}
	}
	return false
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.screen == ScreenSignIn {
		return m.signInView()
	}
	return m.historyView()
}

func (m Model) historyView() string {
	snap := m.view.Snapshot()
	c := m.view.Chart(m.labeler)
	q := core.HistoryQuery{Timeframe: snap.Timeframe, Period: snap.Period}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.labeler.Title(q)))
	b.WriteString("  ")
	b.WriteString(m.tabs(snap.Timeframe))
	if snap.Loading {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n")
	b.WriteString(renderLegend())
	b.WriteString("\n\n")

	// the skeleton replaces everything the pending response will redraw
	if c.Loading || snap.Result.Status == history.StatusNotLoaded {
		b.WriteString(renderSkeleton(m.width, barRows+1))
		b.WriteString("\n")
	} else {
		if c.Empty() {
			b.WriteString(renderEmpty(m.width, barRows+1))
		} else {
			b.WriteString(renderBars(c, barRows, m.selected))
		}
		b.WriteString("\n")

		if snap.Result.Status == history.StatusFailed {
			b.WriteString(errorStyle.Render("Could not load history: " + snap.Result.Err.Error()))
			b.WriteString("\n")
		}
		if rows := m.tooltip(c); rows != nil {
			b.WriteString(m.tooltipView(c.Points[m.selected].Label, rows))
			b.WriteString("\n")
		}
	}
	if m.message != "" {
		b.WriteString(mutedStyle.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(m.helpView())
	return b.String()
}

func (m Model) tabs(active core.Timeframe) string {
	render := func(tf core.Timeframe, label string) string {
		if tf == active {
			return activeTabStyle.Render(label)
		}
		return mutedStyle.Render(label)
	}
	return render(core.TimeframeMonth, "Month") + " " + render(core.TimeframeYear, "Year")
}

func (m Model) tooltipView(label string, rows []history.TooltipRow) string {
	now := m.now()
	lines := []string{titleStyle.Render(label)}
	for i, r := range rows {
		lines = append(lines, fmt.Sprintf("%s %-8s %s",
			seriesStyle(r.Label).Render(barFull), r.Label, m.counters[i].Text(now, m.formatter)))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) helpView() string {
	bindings := m.keys.ShortHelp()
	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		h := kb.Help()
		parts[i] = h.Key + " " + h.Desc
	}
	return mutedStyle.Render(strings.Join(parts, " • "))
}
