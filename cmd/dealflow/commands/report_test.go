package commands

import (
	"testing"
	"time"

	"dealflow/internal/config"
	"dealflow/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRange(t *testing.T) {
	c := &config.AppConfig{StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	start, end, err := reportRange(c, "", "")
	require.NoError(t, err)
	assert.Equal(t, c.StartDate, start)
	assert.True(t, end.IsZero())

	start, end, err = reportRange(c, "2025-02", "2025-04-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), end)

	_, _, err = reportRange(c, "2025-05", "2025-04")
	assert.Error(t, err)

	_, _, err = reportRange(c, "Feb 2025", "")
	assert.Error(t, err)
}

func TestWorkbookPath(t *testing.T) {
	c := &config.AppConfig{ReportsDir: "reports"}
	m := &report.Manifest{Files: []string{"kpi_overview_2025-04-01.csv", "monthly_report_2025-04-01.xlsx"}}
	assert.Equal(t, "reports/monthly_report_2025-04-01.xlsx", workbookPath(c, m))
	assert.Empty(t, workbookPath(c, &report.Manifest{}))
}
