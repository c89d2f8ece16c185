package report

import (
	"strconv"
	"time"

	"dealflow/internal/stats"

	"github.com/rs/zerolog/log"
)

var funnelHeaders = map[string][]string{
	"de": {"Monat", "MQLs", "SQLs", "Conv.Rate (%)", "Ø Tage (MQL→SQL)"},
	"en": {"Month", "MQLs", "SQLs", "Conv. Rate (%)", "Avg Days (MQL→SQL)"},
}

var sqlDetailHeaders = map[string][]string{
	"de": {"SQL Datum", "Kontakt", "Firma", "Quelle"},
	"en": {"SQL Date", "Contact", "Company", "Source"},
}

var sourceHeaders = map[string][3]string{
	"de": {"Quelle", "Gesamt", "Conv.Rate (%)"},
	"en": {"Source", "Total", "Conv. Rate (%)"},
}

var partialSuffix = map[string]string{
	"de": " (laufend)",
	"en": " (running)",
}

// noValue stands in for an empty contact field.
const noValue = "–"

// monthLabel is the month name with the running-month marker.
func monthLabel(f *Formatter, m time.Month, partial bool) string {
	name := f.MonthName(m)
	if partial {
		name += partialSuffix[f.Locale()]
	}
	return name
}

func orNoValue(s string) string {
	if s == "" {
		return noValue
	}
	return s
}

func funnelTable(months []stats.FunnelMonth, f *Formatter) table {
	t := table{header: funnelHeaders[f.Locale()]}
	for _, m := range months {
		t.rows = append(t.rows, []cell{
			text(monthLabel(f, m.Month, m.Partial) + " " + strconv.Itoa(m.Year)),
			number(strconv.Itoa(m.MQLs), m.MQLs),
			number(strconv.Itoa(m.SQLs), m.SQLs),
			number(f.Percent(m.ConversionRate), m.ConversionRate),
			number(f.Percent(m.VelocityDays), m.VelocityDays),
		})
	}
	return t
}

func sqlDetailTable(details []stats.SQLDetail, f *Formatter) table {
	t := table{header: sqlDetailHeaders[f.Locale()]}
	for _, d := range details {
		t.rows = append(t.rows, []cell{
			text(d.Date.Format(f.layout)),
			text(orNoValue(d.Contact)),
			text(orNoValue(d.Company)),
			text(orNoValue(d.Source)),
		})
	}
	return t
}

// sourceTable renders one "MQLs/SQLs" column per month; months without leads show "-".
func sourceTable(funnel stats.LeadFunnel, f *Formatter) table {
	h := sourceHeaders[f.Locale()]
	header := []string{h[0]}
	for _, m := range funnel.Months {
		header = append(header, m.Label)
	}
	t := table{header: append(header, h[1], h[2])}

	for _, s := range funnel.Sources {
		row := []cell{text(s.Source)}
		for _, c := range s.Months {
			if c.MQLs == 0 && c.SQLs == 0 {
				row = append(row, text("-"))
				continue
			}
			row = append(row, text(ratio(c.MQLs, c.SQLs)))
		}
		row = append(row,
			text(ratio(s.MQLs, s.SQLs)),
			number(f.Percent(s.ConversionRate), s.ConversionRate),
		)
		t.rows = append(t.rows, row)
	}
	return t
}

func ratio(mqls, sqls int) string {
	return strconv.Itoa(mqls) + "/" + strconv.Itoa(sqls)
}

// WriteFunnel writes contacts_kpi_<date>.csv, sql_details_<date>.csv and source_breakdown_<date>.csv.
func (w *Writer) WriteFunnel(funnel stats.LeadFunnel, stamp time.Time) ([]string, error) {
	tables := []struct {
		name string
		t    table
	}{
		{"contacts_kpi", funnelTable(funnel.Months, w.format)},
		{"sql_details", sqlDetailTable(funnel.SQLDetails, w.format)},
		{"source_breakdown", sourceTable(funnel, w.format)},
	}

	paths := make([]string, 0, len(tables))
	for _, tbl := range tables {
		path := w.path(tbl.name, stamp, "csv")
		if err := writeCSV(path, tbl.t); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	log.Info().
		Int("months", len(funnel.Months)).
		Int("sqls", len(funnel.SQLDetails)).
		Int("sources", len(funnel.Sources)).
		Msg("Written lead funnel")
	return paths, nil
}
