package report

import (
	"math"
	"strconv"
	"strings"
	"time"

	"dealflow/internal/eventlog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// Formatter renders report values for one locale. Absent values render as "-".
type Formatter struct {
	locale  string
	printer *message.Printer
	layout  string
}

// NewFormatter supports "de" (default) and "en".
func NewFormatter(locale string) *Formatter {
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		return &Formatter{locale: "en", printer: message.NewPrinter(language.English), layout: "2006-01-02"}
	}
	return &Formatter{locale: "de", printer: message.NewPrinter(language.German), layout: "02.01.2006"}
}

func (f *Formatter) Locale() string {
	return f.locale
}

// MonthName returns the full month name.
func (f *Formatter) MonthName(m time.Month) string {
	if f.locale == "de" && m >= time.January && m <= time.December {
		return germanMonths[m-1]
	}
	return m.String()
}

// Amount renders a whole-unit currency amount such as "50.000 €".
func (f *Formatter) Amount(v *float64) string {
	if v == nil {
		return "-"
	}
	return f.currency(int64(math.Round(*v)))
}

// AmountTotal renders a KPI total; zero renders as "-".
func (f *Formatter) AmountTotal(v int64) string {
	if v == 0 {
		return "-"
	}
	return f.currency(v)
}

// AmountChange renders the change between two amounts with its percentage, e.g. "+5.000 € (+10,0%)".
func (f *Formatter) AmountChange(start, end *float64) string {
	if start == nil || end == nil {
		return "-"
	}
	if *start == 0 && *end == 0 {
		return f.currency(0) + " (" + f.Percent(0) + "%)"
	}

	change := *end - *start
	var pct string
	switch {
	case *start != 0:
		pct = f.signedPercent(change / *start * 100)
	case *end > 0:
		pct = "+∞%"
	default:
		pct = f.Percent(0) + "%"
	}

	rounded := int64(math.Round(change))
	sign := ""
	if rounded > 0 {
		sign = "+"
	}
	return sign + f.currency(rounded) + " (" + pct + ")"
}

// Percent renders a one-decimal percentage without sign, e.g. "33,3".
func (f *Formatter) Percent(v float64) string {
	return f.printer.Sprintf("%.1f", v)
}

// Date renders a close date; unparseable values render as "-".
func (f *Formatter) Date(v eventlog.Value) string {
	if !v.Present() {
		return "-"
	}
	t, err := eventlog.ParseTime(v.Raw)
	if err != nil {
		return "-"
	}
	return t.Format(f.layout)
}

// Days renders a signed day shift: "+N", "-N" or "0".
func (f *Formatter) Days(v *int) string {
	if v == nil {
		return "-"
	}
	if *v > 0 {
		return "+" + strconv.Itoa(*v)
	}
	return strconv.Itoa(*v)
}

func (f *Formatter) currency(v int64) string {
	if v < 0 {
		return "-" + f.printer.Sprintf("%d", -v) + " €"
	}
	return f.printer.Sprintf("%d", v) + " €"
}

func (f *Formatter) signedPercent(v float64) string {
	if v < 0 {
		return "-" + f.printer.Sprintf("%.1f", -v) + "%"
	}
	return "+" + f.printer.Sprintf("%.1f", v) + "%"
}
