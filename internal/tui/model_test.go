package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"centsible/internal/core"
	"centsible/internal/history"
)

type fakeClient struct {
	mu            sync.Mutex
	records       map[string][]core.HistoryRecord
	years         []int
	requireSignIn bool
	signedIn      bool
	queries       []core.HistoryQuery
	signIns       []string
}

func (f *fakeClient) Fetch(_ context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.requireSignIn && !f.signedIn {
		return nil, history.ErrUnauthorized
	}
	return f.records[q.Key()], nil
}

func (f *fakeClient) Periods(context.Context) ([]int, error) {
	return f.years, nil
}

func (f *fakeClient) SignIn(_ context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns = append(f.signIns, username)
	if password != "secret" {
		return history.ErrUnauthorized
	}
	f.signedIn = true
	return nil
}

func (f *fakeClient) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedIn = false
	return nil
}

func (f *fakeClient) fetches() []core.HistoryQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.HistoryQuery(nil), f.queries...)
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func marchRecords() map[string][]core.HistoryRecord {
	return map[string][]core.HistoryRecord{
		"month:2024:3": {
			{Year: 2024, Month: 3, Day: core.DayPtr(5), Income: core.Money{Cents: 10000}, Expense: core.Money{Cents: 4000}},
			{Year: 2024, Month: 3, Day: core.DayPtr(20), Expense: core.Money{Cents: 2500}},
		},
		"year:2024": {
			{Year: 2024, Month: 1, Income: core.Money{Cents: 50000}},
			{Year: 2024, Month: 3, Income: core.Money{Cents: 10000}, Expense: core.Money{Cents: 6500}},
		},
	}
}

func newTestModel(f *fakeClient) (Model, *testClock) {
	clock := &testClock{t: time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)}
	return NewModel(f, WithNow(clock.Now), WithLocale("en_US")), clock
}

// drain runs cmd and every command it leads to, feeding the messages back
// into the model. Animation and spinner ticks are not fed back.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case spinner.TickMsg, animMsg:
		default:
			next, more := m.Update(msg)
			m = next.(Model)
			queue = append(queue, more)
		}
	}
	return m
}

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = drain(t, next.(Model), cmd)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelInitialLoad(t *testing.T) {
	f := &fakeClient{records: marchRecords(), years: []int{2023, 2024}}
	m, _ := newTestModel(f)
	m = drain(t, m, m.Init())

	if got := f.fetches(); len(got) != 1 || got[0].Key() != "month:2024:3" {
		t.Fatalf("fetches = %v", got)
	}
	out := m.View()
	for _, want := range []string{"March 2024", "Income", "Expense", "05", "20", barFull} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if len(m.years) != 2 {
		t.Fatalf("years = %v", m.years)
	}
}

func TestModelWithoutAutoLoad(t *testing.T) {
	f := &fakeClient{records: marchRecords()}
	clock := &testClock{t: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)}
	m := NewModel(f, WithNow(clock.Now), WithAutoLoad(false))
	m = drain(t, m, m.Init())

	if len(f.fetches()) != 0 {
		t.Fatalf("expected no fetch, got %v", f.fetches())
	}
	if !strings.Contains(m.View(), "Loading history") {
		t.Fatalf("expected placeholder:\n%s", m.View())
	}

	m = press(t, m, runes("r"))
	if len(f.fetches()) != 1 {
		t.Fatalf("refresh should fetch once, got %v", f.fetches())
	}
}

func TestModelEmptyPeriod(t *testing.T) {
	f := &fakeClient{}
	m, _ := newTestModel(f)
	m = drain(t, m, m.Init())

	out := m.View()
	if !strings.Contains(out, history.EmptyTitle) || !strings.Contains(out, history.EmptyHint) {
		t.Fatalf("expected empty state:\n%s", out)
	}
	// legend stays visible
	if !strings.Contains(out, "Income") {
		t.Fatalf("legend missing:\n%s", out)
	}
}

func TestModelTimeframeSwitch(t *testing.T) {
	f := &fakeClient{records: marchRecords()}
	m, _ := newTestModel(f)
	m = drain(t, m, m.Init())

	m = press(t, m, runes("y"))
	got := f.fetches()
	if len(got) != 2 || got[1].Key() != "year:2024" {
		t.Fatalf("fetches = %v", got)
	}
	out := m.View()
	if !strings.Contains(out, "Jan") || !strings.Contains(out, "Mar") {
		t.Fatalf("expected month labels:\n%s", out)
	}

	// selecting the active timeframe again does nothing
	m = press(t, m, runes("y"))
	if len(f.fetches()) != 2 {
		t.Fatalf("repeat selection fetched again: %v", f.fetches())
	}

	m = press(t, m, runes("m"))
	if got := f.fetches(); len(got) != 3 || got[2].Key() != "month:2024:3" {
		t.Fatalf("fetches = %v", got)
	}
}

func TestModelPeriodNavigation(t *testing.T) {
	f := &fakeClient{records: marchRecords(), years: []int{2024}}
	m, _ := newTestModel(f)
	m = drain(t, m, m.Init())

	m = press(t, m, runes("["))
	if got := f.fetches(); len(got) != 2 || got[1].Key() != "month:2024:2" {
		t.Fatalf("fetches = %v", got)
	}

	m = press(t, m, runes("t"))
	if got := f.fetches(); len(got) != 3 || got[2].Key() != "month:2024:3" {
		t.Fatalf("fetches = %v", got)
	}

	m = press(t, m, runes("y"), runes("["))
	if got := f.fetches(); len(got) != 4 {
		t.Fatalf("out-of-range year should not fetch: %v", got)
	}
	if !strings.Contains(m.View(), "No history for 2023") {
		t.Fatalf("expected range message:\n%s", m.View())
	}

	m = press(t, m, runes("]"))
	if len(f.fetches()) != 4 {
		t.Fatalf("future year should not fetch: %v", f.fetches())
	}
}

func TestModelSelectionShowsTooltip(t *testing.T) {
	f := &fakeClient{records: marchRecords()}
	m, clock := newTestModel(f)
	m = drain(t, m, m.Init())

	if strings.Contains(m.View(), "Balance") {
		t.Fatal("tooltip shown before any selection")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	clock.t = clock.t.Add(time.Second)
	line := lineWith(m.View(), "Balance")
	if !strings.Contains(line, "60") {
		t.Fatalf("balance row = %q", line)
	}

	m = press(t, m, runes("l"))
	clock.t = clock.t.Add(time.Second)
	line = lineWith(m.View(), "Balance")
	if !strings.Contains(line, "-25") {
		t.Fatalf("balance row = %q", line)
	}

	// selection is clamped to the last bucket
	m = press(t, m, runes("l"))
	if m.selected != 1 {
		t.Fatalf("selected = %d", m.selected)
	}
}

func lineWith(out, substr string) string {
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, substr) {
			return l
		}
	}
	return ""
}

func TestModelSkeletonReplacesContentWhileLoading(t *testing.T) {
	f := &fakeClient{records: marchRecords()}
	m, _ := newTestModel(f)
	m = drain(t, m, m.Init())
	if !strings.Contains(m.View(), "05") {
		t.Fatalf("expected March bars:\n%s", m.View())
	}

	next, cmd := m.Update(runes("y"))
	m = next.(Model)
	if !m.view.Loading() {
		t.Fatal("switching timeframe should start loading")
	}
	out := m.View()
	if !strings.Contains(out, "Loading history") {
		t.Fatalf("expected skeleton while loading:\n%s", out)
	}
	if strings.Contains(out, "05") || strings.Contains(out, "Balance") {
		t.Fatalf("previous bars visible under the skeleton:\n%s", out)
	}
	if !strings.Contains(out, "Income") {
		t.Fatalf("legend should stay visible while loading:\n%s", out)
	}

	// selection keys do nothing until the data is back
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	if m.selected != -1 {
		t.Fatalf("selected = %d during load", m.selected)
	}

	m = drain(t, m, cmd)
	out = m.View()
	if m.view.Loading() || strings.Contains(out, "Loading history") {
		t.Fatalf("skeleton should be gone once settled:\n%s", out)
	}
	if !strings.Contains(out, "Jan") {
		t.Fatalf("expected year labels:\n%s", out)
	}
}

func TestModelSkeletonHidesEmptyPanel(t *testing.T) {
	f := &fakeClient{}
	m, _ := newTestModel(f)
	m = drain(t, m, m.Init())
	if !strings.Contains(m.View(), history.EmptyTitle) {
		t.Fatalf("expected empty state:\n%s", m.View())
	}

	next, _ := m.Update(runes("["))
	out := next.(Model).View()
	if strings.Contains(out, history.EmptyTitle) {
		t.Fatalf("empty panel visible while loading:\n%s", out)
	}
}

func TestModelNewPeriodClearsSelection(t *testing.T) {
	f := &fakeClient{records: marchRecords()}
	m, clock := newTestModel(f)
	m = drain(t, m, m.Init())
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	clock.t = clock.t.Add(time.Second)
	if got := m.counters[1].Value(clock.t); got != 100 {
		t.Fatalf("income counter = %v, want 100", got)
	}

	next, cmd := m.Update(runes("y"))
	m = next.(Model)
	m.selected = 0
	m = drain(t, m, cmd)
	if m.selected != -1 {
		t.Fatalf("selection carried over to another period: %d", m.selected)
	}

	// a fresh selection animates from zero, not from the old bucket
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.counters[1].Value(clock.t); got != 0 {
		t.Fatalf("income counter starts at %v, want 0", got)
	}

	// reloading the same period keeps the selection
	m = press(t, m, runes("r"))
	if m.selected != 0 {
		t.Fatalf("refresh cleared selection: %d", m.selected)
	}
}

func TestModelUnauthorizedShowsSignIn(t *testing.T) {
	f := &fakeClient{records: marchRecords(), requireSignIn: true}
	m, _ := newTestModel(f)
	m = drain(t, m, m.Init())

	if m.Screen() != ScreenSignIn {
		t.Fatalf("screen = %v", m.Screen())
	}
	if !strings.Contains(m.View(), "Sign in") {
		t.Fatalf("expected sign-in form:\n%s", m.View())
	}

	enter := tea.KeyMsg{Type: tea.KeyEnter}
	m = press(t, m, runes("bob"), enter, runes("nope"), enter)
	if m.Screen() != ScreenSignIn || !strings.Contains(m.View(), "Invalid username or password") {
		t.Fatalf("wrong password should stay on sign-in:\n%s", m.View())
	}
	if m.password != "" {
		t.Fatal("password should be cleared after a failed attempt")
	}

	m = press(t, m, runes("secret"), enter)
	if m.Screen() != ScreenHistory {
		t.Fatalf("screen = %v after sign-in", m.Screen())
	}
	if len(f.signIns) != 2 || f.signIns[1] != "bob" {
		t.Fatalf("sign-ins = %v", f.signIns)
	}
	if got := f.fetches(); len(got) != 2 {
		t.Fatalf("fetches = %v", got)
	}
	if !strings.Contains(m.View(), "March 2024") {
		t.Fatalf("expected history:\n%s", m.View())
	}
}

func TestModelSignInRequiresFields(t *testing.T) {
	f := &fakeClient{requireSignIn: true}
	m, _ := newTestModel(f)
	m = drain(t, m, m.Init())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyEnter})
	if len(f.signIns) != 0 {
		t.Fatal("empty form should not be submitted")
	}
	if !strings.Contains(m.View(), "required") {
		t.Fatalf("expected validation message:\n%s", m.View())
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, runes("al"), tea.KeyMsg{Type: tea.KeyBackspace})
	if m.username != "a" {
		t.Fatalf("username = %q", m.username)
	}
}

func TestModelSignOut(t *testing.T) {
	f := &fakeClient{records: marchRecords()}
	m, _ := newTestModel(f)
	m = drain(t, m, m.Init())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.Screen() != ScreenSignIn {
		t.Fatalf("screen = %v", m.Screen())
	}
}

func TestModelIgnoresStaleLoad(t *testing.T) {
	f := &fakeClient{records: marchRecords()}
	m, _ := newTestModel(f)
	m.selected = 1

	next, cmd := m.Update(loadedMsg{applied: false})
	if cmd != nil {
		t.Fatal("stale load should not schedule work")
	}
	if next.(Model).selected != 1 {
		t.Fatal("stale load changed the model")
	}
}

func TestModelQuit(t *testing.T) {
	m, _ := newTestModel(&fakeClient{})
	next, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if next.View() != "" {
		t.Fatal("view should be blank after quitting")
	}
}

func TestRenderBars(t *testing.T) {
	l := history.NewLabeler("en_US")
	recs := marchRecords()["month:2024:3"]
	c := history.BuildChart(core.TimeframeMonth, recs, false, l)

	out := renderBars(c, 4, -1)
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("want 4 bar rows and a label row, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], barFull) {
		t.Fatalf("tallest bar should reach the top row:\n%s", out)
	}
	if !strings.Contains(lines[4], "05") || !strings.Contains(lines[4], "20") {
		t.Fatalf("label row = %q", lines[4])
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		in          string
		keep, width int
		want        string
	}{
		{"March", 3, 4, "Mar "},
		{"05", 3, 2, "05"},
		{"Mai", 3, 4, "Mai "},
		{"", 3, 2, "  "},
	}
	for _, tt := range tests {
		if got := fit(tt.in, tt.keep, tt.width); got != tt.want {
			t.Errorf("fit(%q, %d, %d) = %q, want %q", tt.in, tt.keep, tt.width, got, tt.want)
		}
	}
}
