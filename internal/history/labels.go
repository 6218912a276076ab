package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"

	"centsible/internal/core"
)

const DefaultLocale = monday.LocaleEnUS

// Labeler derives x-axis labels in a locale.
type Labeler struct {
	Locale monday.Locale
}

// NewLabeler accepts "en_US", "en-US" or "it_IT" style names and falls back
// to en_US for anything monday does not know.
func NewLabeler(locale string) Labeler {
	want := strings.ReplaceAll(strings.TrimSpace(locale), "-", "_")
	for _, l := range monday.ListLocales() {
		if strings.EqualFold(string(l), want) {
			return Labeler{Locale: l}
		}
	}
	return Labeler{Locale: DefaultLocale}
}

// Label is the full month name for the year timeframe and the two-digit
// day of month otherwise; a missing day counts as the 1st.
func (l Labeler) Label(tf core.Timeframe, r core.HistoryRecord) string {
	if tf == core.TimeframeYear {
		return monday.Format(r.Date(), "January", l.locale())
	}
	return fmt.Sprintf("%02d", r.DayOrFirst())
}

// Title names the period q covers: "March 2024" or "2024".
func (l Labeler) Title(q core.HistoryQuery) string {
	if q.Timeframe == core.TimeframeYear {
		return strconv.Itoa(q.Period.Year)
	}
	first := time.Date(q.Period.Year, time.Month(q.Period.Month), 1, 0, 0, 0, 0, time.UTC)
	return monday.Format(first, "January 2006", l.locale())
}

func (l Labeler) locale() monday.Locale {
	if l.Locale == "" {
		return DefaultLocale
	}
	return l.Locale
}
