package report

import (
	"context"
	"runtime"
	"time"

	"dealflow/internal/eventlog"
	"dealflow/internal/stats"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DealSource is the read side of the event store the generator works on.
type DealSource interface {
	StateAt(dealID string, at time.Time) (*eventlog.DealState, bool)
	CreatedUpTo(at time.Time) []string
	stats.StageHistory
	stats.CreationIndex
}

// Result holds everything one generator run produced.
type Result struct {
	RunID       string
	GeneratedAt time.Time
	Months      []stats.MonthBoundary
	Movements   map[string][]stats.Movement
	KPIs        []stats.MonthlyKPI
	// Funnel is nil unless the generator was given contacts.
	Funnel *stats.LeadFunnel
}

// AllMovements returns every movement, months in chronological order and deals by id within a month.
func (r *Result) AllMovements() []stats.Movement {
	var out []stats.Movement
	for _, m := range r.Months {
		out = append(out, r.Movements[m.Key()]...)
	}
	return out
}

// Generator drives resolution, categorisation and KPI rollup across months.
type Generator struct {
	source      DealSource
	categorizer *stats.Categorizer
	kpis        *stats.KPICalculator
	funnel      *stats.FunnelCalculator
	workers     int
}

// NewGenerator creates a generator. workers <= 0 means one per CPU; 1 runs sequentially.
func NewGenerator(source DealSource, taxonomy stats.StageTaxonomy, phrases stats.Phrases, workers int) *Generator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Generator{
		source:      source,
		categorizer: stats.NewCategorizer(taxonomy, source, phrases),
		kpis:        stats.NewKPICalculator(source),
		workers:     workers,
	}
}

// WithContacts adds the lead funnel of contacts to every generated result.
func (g *Generator) WithContacts(contacts []eventlog.Contact) *Generator {
	g.funnel = stats.NewFunnelCalculator(contacts)
	return g
}

// Generate computes movements and KPIs for every month from start through end (zero end means now).
// The run holds no state; identical inputs produce identical tables.
func (g *Generator) Generate(ctx context.Context, start, end time.Time) (*Result, error) {
	res := &Result{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Months:      stats.GenerateMonthBoundaries(start, end),
		Movements:   make(map[string][]stats.Movement),
	}
	logger := log.With().Str("run_id", res.RunID).Logger()
	logger.Info().Int("months", len(res.Months)).Time("start", start).Msg("Generating monthly report")

	for _, month := range res.Months {
		movements, err := g.MonthMovements(ctx, month)
		if err != nil {
			return nil, err
		}
		res.Movements[month.Key()] = movements
		logger.Debug().Str("month", month.Key()).Int("movements", len(movements)).Msg("Month analysed")
	}

	for _, month := range res.Months {
		res.KPIs = append(res.KPIs, g.kpis.Calculate(month, res.Movements[month.Key()]))
	}

	if g.funnel != nil && len(res.Months) > 0 {
		funnel := g.funnel.Calculate(res.Months, detailMonth(res.Months))
		res.Funnel = &funnel
		logger.Info().Int("sqls", len(funnel.SQLDetails)).Int("sources", len(funnel.Sources)).Msg("Lead funnel computed")
	}

	logger.Info().Int("movements", len(res.AllMovements())).Msg("Report generated")
	return res, nil
}

// detailMonth is the last completed month of the range, or its last month when none is completed.
func detailMonth(months []stats.MonthBoundary) stats.MonthBoundary {
	for i := len(months) - 1; i >= 0; i-- {
		if !months[i].IsPartial() {
			return months[i]
		}
	}
	return months[len(months)-1]
}

// MonthMovements returns the reportable movements of one month in deal id order.
func (g *Generator) MonthMovements(ctx context.Context, month stats.MonthBoundary) ([]stats.Movement, error) {
	ids := g.source.CreatedUpTo(month.End)
	slots := make([]*stats.Movement, len(ids))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, id := range ids {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = g.movement(month, id)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	movements := make([]stats.Movement, 0, len(ids))
	for _, m := range slots {
		if m != nil {
			movements = append(movements, *m)
		}
	}
	return movements, nil
}

// movement builds the deal's movement for the month, or nil when there is nothing to report.
func (g *Generator) movement(month stats.MonthBoundary, dealID string) *stats.Movement {
	end, ok := g.source.StateAt(dealID, month.End)
	if !ok {
		return nil
	}
	start, ok := g.source.StateAt(dealID, month.Start)
	if !ok {
		start = nil
	}

	// unchanged deals are skipped, except when the start stage is unknown
	if start != nil && start.SameValues(*end) && start.Stage.Present() {
		return nil
	}

	typ, explanation := g.categorizer.Categorize(start, *end)
	m := &stats.Movement{
		MonthKey:    month.Key(),
		Year:        month.Year,
		Month:       month.Month,
		DealID:      dealID,
		DealName:    end.DealName,
		Start:       start,
		End:         *end,
		Type:        typ,
		Explanation: explanation,
		DaysInStage: g.categorizer.DaysInStage(*end),
	}

	if v, ok := stats.ParseAmount(end.Amount); ok {
		m.AmountEnd = &v
	}
	if start == nil {
		return m
	}

	if v, ok := stats.ParseAmount(start.Amount); ok {
		m.AmountStart = &v
	}
	if m.AmountStart != nil && m.AmountEnd != nil {
		change := *m.AmountEnd - *m.AmountStart
		m.AmountChange = &change
		if *m.AmountStart > 0 {
			pct := change / *m.AmountStart * 100
			m.AmountChangePct = &pct
		}
	}
	if days, ok := stats.CloseDateShift(start.CloseDate, end.CloseDate); ok {
		m.CloseDateShiftDays = &days
	}
	return m
}
