package history

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"centsible/internal/core"
)

// Values encodes q as history endpoint query parameters. month is sent only
// for the month timeframe.
func Values(q core.HistoryQuery) url.Values {
	v := url.Values{}
	v.Set("timeframe", q.Timeframe.String())
	v.Set("year", strconv.Itoa(q.Period.Year))
	if q.Timeframe == core.TimeframeMonth {
		v.Set("month", strconv.Itoa(q.Period.Month))
	}
	return v
}

// ParseQuery decodes and validates history query parameters. A month
// parameter sent with the year timeframe is ignored.
func ParseQuery(v url.Values) (core.HistoryQuery, error) {
	tf, err := core.ParseTimeframe(v.Get("timeframe"))
	if err != nil {
		return core.HistoryQuery{}, err
	}
	year, err := strconv.Atoi(strings.TrimSpace(v.Get("year")))
	if err != nil {
		return core.HistoryQuery{}, fmt.Errorf("%w: %q", core.ErrInvalidYear, v.Get("year"))
	}
	q := core.HistoryQuery{Timeframe: tf, Period: core.Period{Month: 1, Year: year}}
	if tf == core.TimeframeMonth {
		month, err := strconv.Atoi(strings.TrimSpace(v.Get("month")))
		if err != nil {
			return core.HistoryQuery{}, fmt.Errorf("%w: %q", core.ErrInvalidMonth, v.Get("month"))
		}
		q.Period.Month = month
	}
	if err := q.Validate(); err != nil {
		return core.HistoryQuery{}, err
	}
	return q, nil
}
