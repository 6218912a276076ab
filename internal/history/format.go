package history

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders a number for display.
type Formatter interface {
	Format(v float64) string
}

type FormatterFunc func(v float64) string

func (f FormatterFunc) Format(v float64) string { return f(v) }

// NumberFormatter groups digits and keeps up to three fraction digits in
// the conventions of its language.
type NumberFormatter struct {
	printer *message.Printer
}

func NewNumberFormatter(tag language.Tag) NumberFormatter {
	return NumberFormatter{printer: message.NewPrinter(tag)}
}

// NumberFormatterFor parses "en_US" or "en-US" style names; unknown names
// format as English.
func NumberFormatterFor(locale string) NumberFormatter {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		tag = language.English
	}
	return NewNumberFormatter(tag)
}

func (f NumberFormatter) Format(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
