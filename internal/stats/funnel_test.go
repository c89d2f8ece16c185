package stats

import (
	"testing"
	"time"

	"dealflow/internal/eventlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func funnelContacts() []eventlog.Contact {
	return []eventlog.Contact{
		// MQL and SQL in January, 10 days apart
		{ContactID: "1", FirstName: "Ada", LastName: "Lovelace", CompanyName: "Acme", Source: "ORGANIC_SEARCH",
			MQLDate: "2025-01-05T12:00:00Z", SQLDate: "2025-01-15T13:00:00Z"},
		// MQL in January, SQL in February after 31.5 days
		{ContactID: "2", FirstName: "Grace", LastName: "Hopper", Source: "PAID_SOCIAL",
			MQLDate: "2025-01-20T00:00:00Z", SQLDate: "2025-02-20T12:00:00Z"},
		// MQL only
		{ContactID: "3", LastName: "Turing", Source: "ORGANIC_SEARCH", MQLDate: "2025-01-31T23:59:59Z"},
		// SQL without an MQL date and an unparseable MQL date
		{ContactID: "4", FirstName: "Alan", Source: "REFERRALS", SQLDate: "2025-02-03T00:00:00Z"},
		{ContactID: "5", Source: "REFERRALS", MQLDate: "soon", SQLDate: "2025-02-03T00:00:00Z"},
		// outside the analysed months
		{ContactID: "6", Source: "OFFLINE", MQLDate: "2024-12-31T23:59:59Z"},
	}
}

func TestFunnelMonth(t *testing.T) {
	f := NewFunnelCalculator(funnelContacts())

	jan := f.Month(NewMonthBoundary(2025, time.January))
	assert.Equal(t, "2025-01", jan.MonthKey)
	assert.Equal(t, "Jan 2025", jan.Label)
	assert.Equal(t, 3, jan.MQLs)
	assert.Equal(t, 1, jan.SQLs)
	assert.Equal(t, 1, jan.Conversions)
	assert.Equal(t, 33.3, jan.ConversionRate)
	assert.Equal(t, 10.0, jan.VelocityDays)
	assert.False(t, jan.Partial)

	feb := f.Month(NewMonthBoundary(2025, time.February))
	assert.Equal(t, 0, feb.MQLs)
	assert.Equal(t, 3, feb.SQLs)
	assert.Equal(t, 0, feb.Conversions)
	assert.Equal(t, 0.0, feb.ConversionRate)
	// only contact 2 has both dates
	assert.Equal(t, 31.0, feb.VelocityDays)
}

func TestFunnelMonth_Empty(t *testing.T) {
	now := time.Now().UTC()
	m := NewFunnelCalculator(nil).Month(NewMonthBoundary(now.Year(), now.Month()))
	assert.Zero(t, m.MQLs)
	assert.Zero(t, m.VelocityDays)
	assert.True(t, m.Partial)
}

func TestSQLDetails(t *testing.T) {
	f := NewFunnelCalculator(funnelContacts())

	details := f.SQLDetails(NewMonthBoundary(2025, time.February))
	require.Len(t, details, 3)
	assert.Equal(t, "2", details[0].ContactID, "newest first")
	assert.Equal(t, "Grace Hopper", details[0].Contact)
	assert.Equal(t, "PAID_SOCIAL", details[0].Source)
	assert.Equal(t, "4", details[1].ContactID, "same instant ordered by id")
	assert.Equal(t, "Alan", details[1].Contact)
	assert.Empty(t, details[1].Company)
	assert.Equal(t, "5", details[2].ContactID)

	assert.Empty(t, f.SQLDetails(NewMonthBoundary(2025, time.March)))
	assert.NotNil(t, f.SQLDetails(NewMonthBoundary(2025, time.March)))
}

func TestSources(t *testing.T) {
	f := NewFunnelCalculator(funnelContacts())
	months := GenerateMonthBoundaries(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	rows := f.Sources(months)
	require.Len(t, rows, 3, "sources without activity are left out")

	assert.Equal(t, "REFERRALS", rows[0].Source)
	assert.Equal(t, 0, rows[0].MQLs)
	assert.Equal(t, 2, rows[0].SQLs)
	assert.Equal(t, 0.0, rows[0].ConversionRate)
	assert.Equal(t, []SourceCell{{MonthKey: "2025-01"}, {MonthKey: "2025-02", SQLs: 2}}, rows[0].Months)

	assert.Equal(t, "ORGANIC_SEARCH", rows[1].Source, "ties on SQLs go to more MQLs")
	assert.Equal(t, 2, rows[1].MQLs)
	assert.Equal(t, 1, rows[1].SQLs)
	assert.Equal(t, 50.0, rows[1].ConversionRate)

	assert.Equal(t, "PAID_SOCIAL", rows[2].Source)
	assert.Equal(t, []SourceCell{{MonthKey: "2025-01", MQLs: 1}, {MonthKey: "2025-02", SQLs: 1}}, rows[2].Months)
	assert.Equal(t, 100.0, rows[2].ConversionRate)
}

func TestFunnelCalculate(t *testing.T) {
	f := NewFunnelCalculator(funnelContacts())
	months := GenerateMonthBoundaries(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	funnel := f.Calculate(months, months[1])
	require.Len(t, funnel.Months, 2)
	assert.Equal(t, "2025-02", funnel.DetailMonth)
	assert.Len(t, funnel.SQLDetails, 3)
	assert.Len(t, funnel.Sources, 3)
}

func TestLastCompletedMonths(t *testing.T) {
	months := LastCompletedMonths(time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), 12)
	require.Len(t, months, 12)
	assert.Equal(t, "2024-03", months[0].Key())
	assert.Equal(t, "2025-02", months[11].Key())

	assert.Nil(t, LastCompletedMonths(time.Now(), 0))
}

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0.0, conversionRate(3, 0))
	assert.Equal(t, 66.7, conversionRate(2, 3))
	assert.Equal(t, 150.0, conversionRate(3, 2))
}
