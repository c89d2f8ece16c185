package stats

import (
	"cmp"
	"math"
	"slices"
	"time"

	"dealflow/internal/eventlog"

	"github.com/rs/zerolog/log"
)

// FunnelMonth is the lead funnel rollup of one month.
type FunnelMonth struct {
	MonthKey string     `json:"month"`
	Label    string     `json:"label"`
	Year     int        `json:"year"`
	Month    time.Month `json:"month_number"`
	MQLs     int        `json:"mqls"`
	SQLs     int        `json:"sqls"`
	// Conversions counts contacts that became MQL and SQL within the month.
	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate_percent"`
	VelocityDays   float64 `json:"velocity_days"`
	// Partial is set while the month is still running.
	Partial bool `json:"partial,omitempty"`
}

// SQLDetail is one contact that became SQL.
type SQLDetail struct {
	Date      time.Time `json:"sql_date"`
	ContactID string    `json:"contact_id"`
	Contact   string    `json:"contact"`
	Company   string    `json:"company,omitempty"`
	Source    string    `json:"source"`
}

// SourceCell counts one source's MQLs and SQLs in one month.
type SourceCell struct {
	MonthKey string `json:"month"`
	MQLs     int    `json:"mqls"`
	SQLs     int    `json:"sqls"`
}

// SourceRow is one lead source across the analysed months.
type SourceRow struct {
	Source         string       `json:"source"`
	Months         []SourceCell `json:"months"`
	MQLs           int          `json:"mqls"`
	SQLs           int          `json:"sqls"`
	ConversionRate float64      `json:"conversion_rate_percent"`
}

// LeadFunnel holds the monthly funnel, the SQL list of one month and the source breakdown.
type LeadFunnel struct {
	Months      []FunnelMonth `json:"months"`
	DetailMonth string        `json:"detail_month"`
	SQLDetails  []SQLDetail   `json:"sql_details"`
	Sources     []SourceRow   `json:"sources"`
}

type lead struct {
	contact  eventlog.Contact
	mql, sql time.Time
}

// FunnelCalculator rolls contacts up into lead funnel tables. Dates are parsed once.
type FunnelCalculator struct {
	leads []lead
}

// NewFunnelCalculator indexes contacts. Unparseable MQL or SQL dates count as absent.
func NewFunnelCalculator(contacts []eventlog.Contact) *FunnelCalculator {
	f := &FunnelCalculator{leads: make([]lead, 0, len(contacts))}
	for _, c := range contacts {
		f.leads = append(f.leads, lead{
			contact: c,
			mql:     contactDate(c.ContactID, "mql_date", c.MQLDate),
			sql:     contactDate(c.ContactID, "sql_date", c.SQLDate),
		})
	}
	return f
}

func contactDate(id, field, raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := eventlog.ParseTime(raw)
	if err != nil {
		log.Warn().Str("contact", id).Str("field", field).Str("value", raw).Msg("Ignoring unparseable contact date")
		return time.Time{}
	}
	return t.UTC()
}

func within(month MonthBoundary, t time.Time) bool {
	return !t.IsZero() && month.Contains(t)
}

// Calculate builds the funnel for months and the SQL list of detail.
func (f *FunnelCalculator) Calculate(months []MonthBoundary, detail MonthBoundary) LeadFunnel {
	out := LeadFunnel{
		DetailMonth: detail.Key(),
		SQLDetails:  f.SQLDetails(detail),
		Sources:     f.Sources(months),
	}
	for _, m := range months {
		out.Months = append(out.Months, f.Month(m))
	}
	return out
}

// Month counts the month's MQLs and SQLs. The conversion rate is same-month conversions over
// MQLs; velocity averages the floored days from MQL to SQL over the month's SQLs.
func (f *FunnelCalculator) Month(month MonthBoundary) FunnelMonth {
	fm := FunnelMonth{
		MonthKey: month.Key(),
		Label:    month.GenerateLabel(),
		Year:     month.Year,
		Month:    month.Month,
		Partial:  month.IsPartial(),
	}

	var days, timed int
	for _, l := range f.leads {
		isMQL := within(month, l.mql)
		isSQL := within(month, l.sql)
		if isMQL {
			fm.MQLs++
		}
		if !isSQL {
			continue
		}
		fm.SQLs++
		if isMQL {
			fm.Conversions++
		}
		if !l.mql.IsZero() {
			days += int(math.Floor(l.sql.Sub(l.mql).Hours() / 24))
			timed++
		}
	}

	fm.ConversionRate = conversionRate(fm.Conversions, fm.MQLs)
	if timed > 0 {
		fm.VelocityDays = math.Round(float64(days)/float64(timed)*10) / 10
	}
	return fm
}

// SQLDetails lists the contacts that became SQL in the month, newest first.
func (f *FunnelCalculator) SQLDetails(month MonthBoundary) []SQLDetail {
	out := []SQLDetail{}
	for _, l := range f.leads {
		if !within(month, l.sql) {
			continue
		}
		out = append(out, SQLDetail{
			Date:      l.sql,
			ContactID: l.contact.ContactID,
			Contact:   l.contact.Name(),
			Company:   l.contact.CompanyName,
			Source:    l.contact.Source,
		})
	}
	slices.SortStableFunc(out, func(a, b SQLDetail) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ContactID, b.ContactID)
	})
	return out
}

// Sources breaks MQLs and SQLs down by lead source. Sources without activity in the months are
// left out; the rest are ordered by SQLs, then MQLs, descending.
func (f *FunnelCalculator) Sources(months []MonthBoundary) []SourceRow {
	bySource := make(map[string]*SourceRow)
	for _, l := range f.leads {
		for i, m := range months {
			isMQL, isSQL := within(m, l.mql), within(m, l.sql)
			if !isMQL && !isSQL {
				continue
			}
			row, ok := bySource[l.contact.Source]
			if !ok {
				row = &SourceRow{Source: l.contact.Source, Months: make([]SourceCell, len(months))}
				for j, mm := range months {
					row.Months[j].MonthKey = mm.Key()
				}
				bySource[l.contact.Source] = row
			}
			if isMQL {
				row.Months[i].MQLs++
				row.MQLs++
			}
			if isSQL {
				row.Months[i].SQLs++
				row.SQLs++
			}
		}
	}

	out := make([]SourceRow, 0, len(bySource))
	for _, row := range bySource {
		row.ConversionRate = conversionRate(row.SQLs, row.MQLs)
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b SourceRow) int {
		if c := cmp.Compare(b.SQLs, a.SQLs); c != 0 {
			return c
		}
		if c := cmp.Compare(b.MQLs, a.MQLs); c != 0 {
			return c
		}
		return cmp.Compare(a.Source, b.Source)
	})
	return out
}

// conversionRate is n/d as a percentage rounded to one decimal, 0 when d is 0.
func conversionRate(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(d)*1000) / 10
}

// LastCompletedMonths returns the n calendar months before the one containing now, oldest first.
func LastCompletedMonths(now time.Time, n int) []MonthBoundary {
	if n <= 0 {
		return nil
	}
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return GenerateMonthBoundaries(current.AddDate(0, -n, 0), current.AddDate(0, -1, 0))
}
