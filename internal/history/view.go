// Package history is the client side of the income/expense history chart:
// selection state, fetching, and the render model the terminal and web
// front-ends draw from.
package history

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"centsible/internal/core"
	"centsible/internal/log"
)

// Status is the outcome of the most recent applied fetch.
type Status int

const (
	StatusNotLoaded Status = iota
	StatusLoaded
	StatusUnauthorized
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusFailed:
		return "failed"
	default:
		return "not_loaded"
	}
}

// Result separates "never loaded" and "failed" from a genuinely empty
// answer. Records are the ones on display; a failed or unauthorized fetch
// keeps the previous records.
type Result struct {
	Status  Status
	Query   core.HistoryQuery
	Records []core.HistoryRecord
	Err     error
}

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Ticket identifies one fetch. Only the ticket with the latest generation
// may change the view.
type Ticket struct {
	Generation uint64
	Query      core.HistoryQuery
}

// Snapshot is a consistent copy of the view state.
type Snapshot struct {
	Timeframe  core.Timeframe
	Period     core.Period
	Loading    bool
	Generation uint64
	Result     Result
}

// View owns the history selection and the records fetched for it. It is
// safe for concurrent use.
type View struct {
	fetcher    Fetcher
	navigator  Navigator
	logger     *log.Logger
	signInPath string

	mu        sync.Mutex
	timeframe core.Timeframe
	period    core.Period
	gen       uint64
	loading   bool
	result    Result
}

type Option func(*View)

func WithNavigator(n Navigator) Option {
	return func(v *View) { v.navigator = n }
}

func WithLogger(l *log.Logger) Option {
	return func(v *View) { v.logger = l }
}

// WithNow sets the clock used for the default period.
func WithNow(now func() time.Time) Option {
	return func(v *View) { v.period = core.CurrentPeriod(now()) }
}

// WithSelection sets the initial selection.
func WithSelection(tf core.Timeframe, p core.Period) Option {
	return func(v *View) {
		v.timeframe = tf
		v.period = p
	}
}

func WithSignInPath(path string) Option {
	return func(v *View) { v.signInPath = path }
}

// NewView returns a view on the month timeframe and the current period.
// Nothing is fetched until Start.
func NewView(f Fetcher, opts ...Option) *View {
	v := &View{
		fetcher:    f,
		timeframe:  core.TimeframeMonth,
		period:     core.CurrentPeriod(time.Now()),
		signInPath: SignInPath,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = log.FromSlog(nil, log.ComponentHistory)
	}
	if v.navigator == nil {
		v.navigator = NavigatorFunc(func(string) {})
	}
	return v
}

// Start begins the initial fetch for the current selection.
func (v *View) Start() Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.beginLocked()
}

// SetTimeframe changes the timeframe and begins a fetch for it.
func (v *View) SetTimeframe(tf core.Timeframe) (Ticket, error) {
	if !tf.Valid() {
		return Ticket{}, core.ErrInvalidTimeframe
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeframe = tf
	return v.beginLocked(), nil
}

// SetPeriod changes the period and begins a fetch for it.
func (v *View) SetPeriod(p core.Period) (Ticket, error) {
	if err := p.Validate(); err != nil {
		return Ticket{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.period = p
	return v.beginLocked(), nil
}

func (v *View) beginLocked() Ticket {
	v.gen++
	v.loading = true
	return Ticket{
		Generation: v.gen,
		Query:      core.HistoryQuery{Timeframe: v.timeframe, Period: v.period},
	}
}

// Load runs the fetch for t and applies its outcome. It reports false when
// a newer ticket was issued meanwhile; the response is then dropped and the
// view is left alone.
func (v *View) Load(ctx context.Context, t Ticket) bool {
	logger := v.logger.WithFields(log.NewFields().
		WithHistoryQuery(t.Query.Timeframe.String(), t.Query.Period.Year, t.Query.Period.Month)).
		With(log.FieldGeneration, t.Generation)

	records, err := v.fetcher.Fetch(ctx, t.Query)

	applied, navigate := v.apply(t, records, err)
	if !applied {
		logger.DebugContext(ctx, "Dropping stale history response")
		return false
	}
	switch {
	case err == nil:
		logger.DebugContext(ctx, "History loaded", log.FieldRecords, len(records))
	case errors.Is(err, ErrUnauthorized):
		logger.InfoContext(ctx, "History requires sign-in")
	default:
		logger.ErrorOp(ctx, "Failed to fetch history data", log.OpFetch, err)
	}
	if navigate {
		v.navigator.Navigate(v.signInPath)
	}
	return true
}

func (v *View) apply(t Ticket, records []core.HistoryRecord, err error) (applied, navigate bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t.Generation != v.gen {
		return false, false
	}
	defer func() { v.loading = false }()

	switch {
	case err == nil:
		if records == nil {
			records = []core.HistoryRecord{}
		}
		v.result = Result{Status: StatusLoaded, Query: t.Query, Records: records}
	case errors.Is(err, ErrUnauthorized):
		v.result = Result{Status: StatusUnauthorized, Query: v.result.Query, Records: v.result.Records, Err: err}
		return true, true
	default:
		v.result = Result{Status: StatusFailed, Query: v.result.Query, Records: v.result.Records, Err: err}
	}
	return true, false
}

// Refresh begins a fetch for the current selection and waits for it.
func (v *View) Refresh(ctx context.Context) bool {
	return v.Load(ctx, v.Start())
}

func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

func (v *View) Timeframe() core.Timeframe {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timeframe
}

func (v *View) Period() core.Period {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.period
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	res := v.result
	res.Records = slices.Clone(res.Records)
	return Snapshot{
		Timeframe:  v.timeframe,
		Period:     v.period,
		Loading:    v.loading,
		Generation: v.gen,
		Result:     res,
	}
}

// Chart builds the render model for the current state. Labels follow the
// timeframe the records were fetched for.
func (v *View) Chart(l Labeler) Chart {
	s := v.Snapshot()
	tf := s.Result.Query.Timeframe
	if !tf.Valid() {
		tf = s.Timeframe
	}
	return BuildChart(tf, s.Result.Records, s.Loading, l)
}
