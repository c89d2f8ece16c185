package visuals

import (
	"strings"
	"testing"

	"dealflow/internal/stats"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRevenueChart(t *testing.T) {
	assert.Empty(t, GenerateRevenueChart(nil))

	chart := GenerateRevenueChart([]stats.MonthlyKPI{
		{MonthKey: "2025-01", RevenueWon: 0, PipelineNew: 50000},
		{MonthKey: "2025-02", RevenueWon: 60000, PipelineNew: 10000},
	})
	assert.True(t, strings.HasPrefix(chart, "```mermaid\nxychart-beta\n"))
	assert.Contains(t, chart, `x-axis ["2025-01", "2025-02"]`)
	assert.Contains(t, chart, "y-axis \"Amount\" 0 --> 72000")
	assert.Contains(t, chart, "bar [0, 60000]")
	assert.Contains(t, chart, "line [50000, 10000]")
}

func TestGenerateRevenueChart_AllZero(t *testing.T) {
	chart := GenerateRevenueChart([]stats.MonthlyKPI{{MonthKey: "2025-01"}})
	assert.Contains(t, chart, "0 --> 1\n")
}

func TestGenerateWinRateChart(t *testing.T) {
	chart := GenerateWinRateChart([]stats.MonthlyKPI{{MonthKey: "2025-03", WinRate: 33.3}})
	assert.Contains(t, chart, "line [33.3]")
	assert.Contains(t, chart, "0 --> 100")
}

func TestGenerateFunnelChart(t *testing.T) {
	assert.Empty(t, GenerateFunnelChart(nil))

	chart := GenerateFunnelChart([]stats.FunnelMonth{
		{Label: "Jan 2025", MQLs: 10, SQLs: 2},
		{Label: "Feb 2025", MQLs: 4, SQLs: 5},
	})
	assert.Contains(t, chart, `title "MQLs vs. SQLs"`)
	assert.Contains(t, chart, `x-axis ["Jan 2025", "Feb 2025"]`)
	assert.Contains(t, chart, "y-axis \"Leads\" 0 --> 12\n")
	assert.Contains(t, chart, "bar [10, 4]")
	assert.Contains(t, chart, "line [2, 5]")
}

func TestGenerateMovementPie(t *testing.T) {
	assert.Empty(t, GenerateMovementPie("Movements", nil))

	chart := GenerateMovementPie("Movements 2025-03", []stats.Movement{
		{Type: stats.MovementLost},
		{Type: stats.MovementWon},
		{Type: stats.MovementWon},
	})
	assert.Contains(t, chart, "pie title Movements 2025-03\n")
	assert.Less(t, strings.Index(chart, `"WON" : 2`), strings.Index(chart, `"LOST" : 1`))
	assert.NotContains(t, chart, "STALLED")
}
