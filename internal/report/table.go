package report

import (
	"strconv"
	"time"

	"dealflow/internal/eventlog"
	"dealflow/internal/stats"
)

// StageNamer resolves stage ids to display names.
type StageNamer interface {
	Name(id string) string
}

// MovementRow is the flat, presentation-ready form of a Movement.
type MovementRow struct {
	Month              string   `json:"month"`
	Year               int      `json:"year"`
	MonthNumber        int      `json:"month_number"`
	DealID             string   `json:"deal_id"`
	DealName           string   `json:"deal_name"`
	StageStart         string   `json:"stage_start"`
	StageEnd           string   `json:"stage_end"`
	MovementType       string   `json:"movement_type"`
	AmountStart        *float64 `json:"amount_start,omitempty"`
	AmountEnd          *float64 `json:"amount_end,omitempty"`
	AmountChange       *float64 `json:"amount_change,omitempty"`
	AmountChangePct    *float64 `json:"amount_change_percent,omitempty"`
	CloseDateStart     string   `json:"closedate_start,omitempty"`
	CloseDateEnd       string   `json:"closedate_end,omitempty"`
	CloseDateShiftDays *int     `json:"closedate_days_shifted,omitempty"`
	DaysInStage        int      `json:"days_in_stage"`
	Explanation        string   `json:"explanation"`
}

// NewMovementRow flattens a movement, naming its stages.
func NewMovementRow(m stats.Movement, names StageNamer) MovementRow {
	row := MovementRow{
		Month:              m.MonthKey,
		Year:               m.Year,
		MonthNumber:        int(m.Month),
		DealID:             m.DealID,
		DealName:           m.DealName,
		StageEnd:           stageName(m.End.Stage, names),
		MovementType:       string(m.Type),
		AmountStart:        m.AmountStart,
		AmountEnd:          m.AmountEnd,
		AmountChange:       m.AmountChange,
		AmountChangePct:    m.AmountChangePct,
		CloseDateEnd:       m.End.CloseDate.String(),
		CloseDateShiftDays: m.CloseDateShiftDays,
		DaysInStage:        m.DaysInStage,
		Explanation:        m.Explanation,
	}
	if m.Start != nil {
		row.StageStart = stageName(m.Start.Stage, names)
		row.CloseDateStart = m.Start.CloseDate.String()
	}
	return row
}

// MovementRows flattens all movements of a result in report order.
func MovementRows(res *Result, names StageNamer) []MovementRow {
	movements := res.AllMovements()
	rows := make([]MovementRow, len(movements))
	for i, m := range movements {
		rows[i] = NewMovementRow(m, names)
	}
	return rows
}

func stageName(v eventlog.Value, names StageNamer) string {
	if !v.Present() {
		return ""
	}
	return names.Name(v.Raw)
}

// cell carries the display text and, where it exists, the typed value for spreadsheets.
type cell struct {
	text  string
	value any
}

type table struct {
	header []string
	rows   [][]cell
}

func (t table) records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.header)
	for _, row := range t.rows {
		rec := make([]string, len(row))
		for i, c := range row {
			rec[i] = c.text
		}
		out = append(out, rec)
	}
	return out
}

var kpiHeaders = map[string][]string{
	"de": {"Monat", "Jahr", "Pipeline Neu (€)", "Revenue Won (€)", "Win Rate (%)", "Deals Erstellt", "Deals Gewonnen", "Deals Verloren"},
	"en": {"Month", "Year", "Pipeline New (€)", "Revenue Won (€)", "Win Rate (%)", "Deals Created", "Deals Won", "Deals Lost"},
}

var movementHeaders = map[string][]string{
	"de": {
		"Monat", "Jahr", "Deal Name", "Deal ID", "Status (Monatsanfang)", "Status (Monatsende)", "Bewegungstyp",
		"Wert Monatsanfang (€)", "Wert Monatsende (€)", "Wertänderung (€)",
		"Zieldatum Anfang", "Zieldatum Ende", "Tage verschoben", "Tage in Phase", "Kommentar / Slippage",
	},
	"en": {
		"Month", "Year", "Deal Name", "Deal ID", "Stage (Month Start)", "Stage (Month End)", "Movement Type",
		"Amount Month Start (€)", "Amount Month End (€)", "Amount Change (€)",
		"Close Date Start", "Close Date End", "Days Shifted", "Days in Stage", "Comment / Slippage",
	},
}

func text(s string) cell {
	return cell{text: s, value: s}
}

func number[T int | int64 | float64](s string, v T) cell {
	return cell{text: s, value: v}
}

func optional[T int | float64](s string, v *T) cell {
	if v == nil {
		return cell{text: s}
	}
	return cell{text: s, value: *v}
}

func kpiTable(kpis []stats.MonthlyKPI, f *Formatter) table {
	t := table{header: kpiHeaders[f.Locale()]}
	for _, k := range kpis {
		t.rows = append(t.rows, []cell{
			text(monthLabel(f, k.Month, k.Partial)),
			number(strconv.Itoa(k.Year), k.Year),
			number(f.AmountTotal(k.PipelineNew), k.PipelineNew),
			number(f.AmountTotal(k.RevenueWon), k.RevenueWon),
			number(f.Percent(k.WinRate), k.WinRate),
			number(strconv.Itoa(k.DealsCreated), k.DealsCreated),
			number(strconv.Itoa(k.DealsWon), k.DealsWon),
			number(strconv.Itoa(k.DealsLost), k.DealsLost),
		})
	}
	return t
}

func movementTable(rows []MovementRow, f *Formatter) table {
	t := table{header: movementHeaders[f.Locale()]}
	for _, r := range rows {
		t.rows = append(t.rows, []cell{
			text(f.MonthName(time.Month(r.MonthNumber))),
			number(strconv.Itoa(r.Year), r.Year),
			text(r.DealName),
			text(r.DealID),
			text(r.StageStart),
			text(r.StageEnd),
			text(r.MovementType),
			optional(f.Amount(r.AmountStart), r.AmountStart),
			optional(f.Amount(r.AmountEnd), r.AmountEnd),
			optional(f.AmountChange(r.AmountStart, r.AmountEnd), r.AmountChange),
			text(f.Date(eventlog.KnownValue(r.CloseDateStart))),
			text(f.Date(eventlog.KnownValue(r.CloseDateEnd))),
			optional(f.Days(r.CloseDateShiftDays), r.CloseDateShiftDays),
			number(strconv.Itoa(r.DaysInStage), r.DaysInStage),
			text(r.Explanation),
		})
	}
	return t
}
