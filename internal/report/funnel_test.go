package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dealflow/internal/eventlog"
	"dealflow/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func funnelResult(t *testing.T) *Result {
	t.Helper()
	contacts := []eventlog.Contact{
		{ContactID: "1", FirstName: "Ada", LastName: "Lovelace", CompanyName: "Acme", Source: "ORGANIC_SEARCH",
			MQLDate: "2025-01-05T00:00:00Z", SQLDate: "2025-02-10T00:00:00Z"},
		{ContactID: "2", FirstName: "Grace", Source: "PAID_SOCIAL",
			MQLDate: "2025-02-01T00:00:00Z", SQLDate: "2025-02-15T00:00:00Z"},
		{ContactID: "3", Source: eventlog.UnknownSource, MQLDate: "2025-02-20T00:00:00Z"},
	}
	g := NewGenerator(eventlog.NewStore(nil, nil), testTaxonomy(), stats.GermanPhrases, 1).WithContacts(contacts)
	res, err := g.Generate(context.Background(), month(2025, 1), month(2025, 2))
	require.NoError(t, err)
	res.GeneratedAt = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	return res
}

func TestGenerate_WithContacts(t *testing.T) {
	res := funnelResult(t)
	require.NotNil(t, res.Funnel)
	assert.Equal(t, "2025-02", res.Funnel.DetailMonth)
	require.Len(t, res.Funnel.Months, 2)
	assert.Equal(t, 50.0, res.Funnel.Months[1].ConversionRate)
	assert.Equal(t, 25.0, res.Funnel.Months[1].VelocityDays)
}

func TestWriteAll_WithFunnel(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, NewFormatter("de"), testTaxonomy())

	manifest, err := w.WriteAll(funnelResult(t))
	require.NoError(t, err)
	assert.Equal(t, 2, manifest.SQLRows)
	assert.Equal(t, []string{
		"kpi_overview_2025-03-01.csv",
		"deal_movements_detail_2025-03-01.csv",
		"contacts_kpi_2025-03-01.csv",
		"sql_details_2025-03-01.csv",
		"source_breakdown_2025-03-01.csv",
		"monthly_report_2025-03-01.xlsx",
	}, manifest.Files)

	assert.Equal(t, [][]string{
		{"Monat", "MQLs", "SQLs", "Conv.Rate (%)", "Ø Tage (MQL→SQL)"},
		{"Januar 2025", "1", "0", "0,0", "0,0"},
		{"Februar 2025", "2", "2", "50,0", "25,0"},
	}, readCSV(t, filepath.Join(dir, "contacts_kpi_2025-03-01.csv")))

	assert.Equal(t, [][]string{
		{"SQL Datum", "Kontakt", "Firma", "Quelle"},
		{"15.02.2025", "Grace", "–", "PAID_SOCIAL"},
		{"10.02.2025", "Ada Lovelace", "Acme", "ORGANIC_SEARCH"},
	}, readCSV(t, filepath.Join(dir, "sql_details_2025-03-01.csv")))

	assert.Equal(t, [][]string{
		{"Quelle", "Jan 2025", "Feb 2025", "Gesamt", "Conv.Rate (%)"},
		{"ORGANIC_SEARCH", "1/0", "0/1", "1/1", "100,0"},
		{"PAID_SOCIAL", "-", "1/1", "1/1", "100,0"},
		{"Unbekannt", "-", "1/0", "1/0", "0,0"},
	}, readCSV(t, filepath.Join(dir, "source_breakdown_2025-03-01.csv")))

	book, err := excelize.OpenFile(filepath.Join(dir, "monthly_report_2025-03-01.xlsx"))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"KPI", "Movements", "Lead Funnel", "SQL Details", "Sources"}, book.GetSheetList())
	rows, err := book.GetRows("Lead Funnel")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Februar 2025", rows[2][0])
	assert.Equal(t, "2", rows[2][1])
}

func TestSQLDetailTable_English(t *testing.T) {
	tbl := sqlDetailTable([]stats.SQLDetail{
		{Date: time.Date(2025, 2, 15, 9, 0, 0, 0, time.UTC), Contact: "Grace", Source: "PAID_SOCIAL"},
	}, NewFormatter("en"))
	assert.Equal(t, [][]string{
		{"SQL Date", "Contact", "Company", "Source"},
		{"2025-02-15", "Grace", "–", "PAID_SOCIAL"},
	}, tbl.records())
}

func TestKPITable_FlagsRunningMonth(t *testing.T) {
	kpis := []stats.MonthlyKPI{
		{Year: 2025, Month: time.February},
		{Year: 2025, Month: time.March, Partial: true},
	}

	de := kpiTable(kpis, NewFormatter("de")).records()
	assert.Equal(t, "Februar", de[1][0])
	assert.Equal(t, "März (laufend)", de[2][0])

	en := kpiTable(kpis, NewFormatter("en")).records()
	assert.Equal(t, "March (running)", en[2][0])
}

func TestDetailMonth(t *testing.T) {
	now := time.Now().UTC()
	current := stats.NewMonthBoundary(now.Year(), now.Month())
	previous := current.Start.AddDate(0, -1, 0)
	last := stats.NewMonthBoundary(previous.Year(), previous.Month())

	assert.Equal(t, last, detailMonth([]stats.MonthBoundary{last, current}))
	assert.Equal(t, current, detailMonth([]stats.MonthBoundary{current}))
}
