package report

import (
	"testing"
	"time"

	"dealflow/internal/eventlog"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int         { return &v }

func TestFormatter_German(t *testing.T) {
	f := NewFormatter("de")

	assert.Equal(t, "de", f.Locale())
	assert.Equal(t, "März", f.MonthName(time.March))
	assert.Equal(t, "50.000 €", f.Amount(f64(50000)))
	assert.Equal(t, "1.234.568 €", f.Amount(f64(1234567.89)))
	assert.Equal(t, "-", f.Amount(nil))
	assert.Equal(t, "-", f.AmountTotal(0))
	assert.Equal(t, "12.500 €", f.AmountTotal(12500))
	assert.Equal(t, "33,3", f.Percent(33.3))

	assert.Equal(t, "+5.000 € (+10,0%)", f.AmountChange(f64(50000), f64(55000)))
	assert.Equal(t, "-5.000 € (-10,0%)", f.AmountChange(f64(50000), f64(45000)))
	assert.Equal(t, "0 € (+0,0%)", f.AmountChange(f64(100), f64(100)))
	assert.Equal(t, "0 € (0,0%)", f.AmountChange(f64(0), f64(0)))
	assert.Equal(t, "+700 € (+∞%)", f.AmountChange(f64(0), f64(700)))
	assert.Equal(t, "-", f.AmountChange(nil, f64(700)))

	assert.Equal(t, "01.06.2025", f.Date(eventlog.KnownValue("2025-06-01T00:00:00Z")))
	assert.Equal(t, "-", f.Date(eventlog.KnownValue("")))
	assert.Equal(t, "-", f.Date(eventlog.KnownValue("soon")))

	assert.Equal(t, "+92", f.Days(intp(92)))
	assert.Equal(t, "-3", f.Days(intp(-3)))
	assert.Equal(t, "0", f.Days(intp(0)))
	assert.Equal(t, "-", f.Days(nil))
}

func TestFormatter_English(t *testing.T) {
	f := NewFormatter("en")

	assert.Equal(t, "March", f.MonthName(time.March))
	assert.Equal(t, "50,000 €", f.Amount(f64(50000)))
	assert.Equal(t, "+5,000 € (+10.0%)", f.AmountChange(f64(50000), f64(55000)))
	assert.Equal(t, "2025-06-01", f.Date(eventlog.KnownValue("2025-06-01")))
}

func TestFormatter_DefaultsToGerman(t *testing.T) {
	assert.Equal(t, "de", NewFormatter("").Locale())
	assert.Equal(t, "de", NewFormatter("fr").Locale())
	assert.Equal(t, "en", NewFormatter("en-GB").Locale())
}
