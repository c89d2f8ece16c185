package visuals

import (
	"fmt"
	"math"
	"strings"

	"dealflow/internal/stats"
)

// GenerateRevenueChart creates a Mermaid xychart-beta with won revenue as bars and new pipeline as a line.
func GenerateRevenueChart(kpis []stats.MonthlyKPI) string {
	if len(kpis) == 0 {
		return ""
	}

	var labels []string
	var won []string
	var pipeline []string
	var maxVal int64
	for _, k := range kpis {
		labels = append(labels, fmt.Sprintf("\"%s\"", k.MonthKey))
		won = append(won, fmt.Sprintf("%d", k.RevenueWon))
		pipeline = append(pipeline, fmt.Sprintf("%d", k.PipelineNew))
		maxVal = max(maxVal, k.RevenueWon, k.PipelineNew)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Won Revenue vs. New Pipeline\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Amount\" 0 --> %d\n", headroom(maxVal)))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(won, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(pipeline, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateWinRateChart creates a Mermaid line chart of the monthly win rate.
func GenerateWinRateChart(kpis []stats.MonthlyKPI) string {
	if len(kpis) == 0 {
		return ""
	}

	var labels []string
	var rates []string
	for _, k := range kpis {
		labels = append(labels, fmt.Sprintf("\"%s\"", k.MonthKey))
		rates = append(rates, fmt.Sprintf("%.1f", k.WinRate))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Win Rate (%)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Percent\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(rates, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateFunnelChart creates a Mermaid xychart-beta with monthly MQLs as bars and SQLs as a line.
func GenerateFunnelChart(months []stats.FunnelMonth) string {
	if len(months) == 0 {
		return ""
	}

	var labels, mqls, sqls []string
	var maxVal int64
	for _, m := range months {
		labels = append(labels, fmt.Sprintf("\"%s\"", m.Label))
		mqls = append(mqls, fmt.Sprintf("%d", m.MQLs))
		sqls = append(sqls, fmt.Sprintf("%d", m.SQLs))
		maxVal = max(maxVal, int64(m.MQLs), int64(m.SQLs))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"MQLs vs. SQLs\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Leads\" 0 --> %d\n", headroom(maxVal)))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(mqls, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(sqls, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateMovementPie creates a Mermaid pie chart of movement types. Types without movements are left out.
func GenerateMovementPie(title string, movements []stats.Movement) string {
	counts := make(map[stats.MovementType]int)
	for _, m := range movements {
		counts[m.Type]++
	}
	if len(counts) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString(fmt.Sprintf("pie title %s\n", title))
	for _, t := range stats.MovementTypes {
		if n := counts[t]; n > 0 {
			sb.WriteString(fmt.Sprintf("    \"%s\" : %d\n", t, n))
		}
	}
	sb.WriteString("```")
	return sb.String()
}

// headroom rounds the axis maximum up with 20% breathing room.
func headroom(v int64) int64 {
	if v <= 0 {
		return 1
	}
	return int64(math.Ceil(float64(v) * 1.2))
}
