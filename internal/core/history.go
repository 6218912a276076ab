package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

// Timeframe is the history granularity: a month of daily buckets or a year
// of monthly buckets.
type Timeframe string

var ErrInvalidTimeframe = errors.New("invalid timeframe")

func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(strings.ToLower(strings.TrimSpace(s))) {
	case TimeframeMonth:
		return TimeframeMonth, nil
	case TimeframeYear:
		return TimeframeYear, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
}

func (tf Timeframe) Valid() bool {
	return tf == TimeframeMonth || tf == TimeframeYear
}

func (tf Timeframe) String() string {
	return string(tf)
}

// Period is the month/year the user is looking at. Month is ignored by
// year-timeframe queries but always kept valid.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Month: int(now.Month()), Year: now.Year()}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Next moves the period forward by one unit of the timeframe.
func (p Period) Next(tf Timeframe) Period {
	return p.shift(tf, 1)
}

// Prev moves the period back by one unit of the timeframe.
func (p Period) Prev(tf Timeframe) Period {
	return p.shift(tf, -1)
}

func (p Period) shift(tf Timeframe, n int) Period {
	if tf == TimeframeYear {
		return Period{Month: p.Month, Year: p.Year + n}
	}
	t := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// HistoryRecord is one aggregated bucket. Day is set only for daily buckets
// (month timeframe).
type HistoryRecord struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"`
	Day     *int  `json:"day,omitempty"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// Balance is income minus expense. It is never stored.
func (r HistoryRecord) Balance() Money {
	return r.Income.Sub(r.Expense)
}

// DayOrFirst returns the bucket's day, or 1 for monthly buckets.
func (r HistoryRecord) DayOrFirst() int {
	if r.Day == nil || *r.Day < 1 {
		return 1
	}
	return *r.Day
}

// Date returns the first instant the bucket covers.
func (r HistoryRecord) Date() time.Time {
	return time.Date(r.Year, time.Month(r.Month), r.DayOrFirst(), 0, 0, 0, 0, time.UTC)
}

// DayPtr is a helper for building daily buckets.
func DayPtr(d int) *int {
	return &d
}

// HistoryQuery identifies one history request.
type HistoryQuery struct {
	Timeframe Timeframe
	Period    Period
}

func (q HistoryQuery) Validate() error {
	if !q.Timeframe.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTimeframe, q.Timeframe)
	}
	if q.Period.Year < 1 || q.Period.Year > 9999 {
		return ErrInvalidYear
	}
	if q.Timeframe == TimeframeMonth && (q.Period.Month < 1 || q.Period.Month > 12) {
		return ErrInvalidMonth
	}
	return nil
}

// Key is a stable cache key: "month:2024:3" or "year:2024".
func (q HistoryQuery) Key() string {
	if q.Timeframe == TimeframeYear {
		return fmt.Sprintf("%s:%d", q.Timeframe, q.Period.Year)
	}
	return fmt.Sprintf("%s:%d:%d", q.Timeframe, q.Period.Year, q.Period.Month)
}

// Range returns the half-open [from, to) date interval the query covers.
func (q HistoryQuery) Range() (from, to time.Time) {
	if q.Timeframe == TimeframeYear {
		from = time.Date(q.Period.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0)
	}
	from = time.Date(q.Period.Year, time.Month(q.Period.Month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// BucketOf returns the bucket a transaction date falls into for the query's timeframe.
func (q HistoryQuery) BucketOf(d time.Time) HistoryRecord {
	r := HistoryRecord{Year: d.Year(), Month: int(d.Month())}
	if q.Timeframe == TimeframeMonth {
		r.Day = DayPtr(d.Day())
	}
	return r
}

// Aggregate folds transactions into chronologically ordered buckets for q.
// Transactions outside the query range are skipped; buckets with no
// transactions are omitted.
func Aggregate(q HistoryQuery, txs []Transaction) []HistoryRecord {
	from, to := q.Range()
	index := map[time.Time]int{}
	var out []HistoryRecord
	for _, tx := range txs {
		d := tx.Date.Time
		if d.Before(from) || !d.Before(to) {
			continue
		}
		b := q.BucketOf(d)
		key := b.Date()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, b)
		}
		switch tx.Kind {
		case KindIncome:
			out[i].Income = out[i].Income.Add(tx.Amount)
		case KindExpense:
			out[i].Expense = out[i].Expense.Add(tx.Amount)
		}
	}
	slices.SortStableFunc(out, func(a, b HistoryRecord) int {
		return a.Date().Compare(b.Date())
	})
	return out
}
