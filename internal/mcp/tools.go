package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dealflow/internal/eventlog"
	"dealflow/internal/report"
	"dealflow/internal/stats"
	"dealflow/internal/visuals"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type ReportInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"first month to report as YYYY-MM-DD; defaults to the configured start date"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"last month to report as YYYY-MM-DD; defaults to the current month"`
}

type ReportOutput struct {
	RunID     string             `json:"run_id" jsonschema:"identifier of this report run"`
	Movements int                `json:"movements" jsonschema:"number of movements behind the KPIs"`
	Months    []stats.MonthlyKPI `json:"months" jsonschema:"one KPI row per month in chronological order"`
	Charts    []string           `json:"charts,omitempty" jsonschema:"Mermaid charts of revenue, pipeline and win rate"`
}

type MovementsInput struct {
	Month        string `json:"month" jsonschema:"month to analyse as YYYY-MM"`
	MovementType string `json:"movement_type,omitempty" jsonschema:"only return movements of this type"`
}

type MovementsOutput struct {
	Month     string               `json:"month"`
	Count     int                  `json:"count"`
	Movements []report.MovementRow `json:"movements"`
	Chart     string               `json:"chart,omitempty" jsonschema:"Mermaid pie chart of the movement types"`
}

type DealStateInput struct {
	DealID string `json:"deal_id" jsonschema:"CRM deal id"`
	At     string `json:"at,omitempty" jsonschema:"instant to resolve the deal at; a bare YYYY-MM-DD means the end of that day; defaults to now"`
}

type DealStateOutput struct {
	DealID           string `json:"deal_id"`
	DealName         string `json:"deal_name"`
	At               string `json:"at"`
	CreatedAt        string `json:"created_at,omitempty"`
	Existed          bool   `json:"existed" jsonschema:"false when the deal had not been created yet"`
	StageID          string `json:"stage_id,omitempty"`
	Stage            string `json:"stage,omitempty"`
	Amount           string `json:"amount,omitempty"`
	AmountDisplay    string `json:"amount_display,omitempty"`
	CloseDate        string `json:"closedate,omitempty"`
	CloseDateDisplay string `json:"closedate_display,omitempty"`
}

type LeadFunnelInput struct {
	StartMonth  string `json:"start_month,omitempty" jsonschema:"first month as YYYY-MM; defaults to eleven months before end_month"`
	EndMonth    string `json:"end_month,omitempty" jsonschema:"last month as YYYY-MM; defaults to the last completed month"`
	DetailMonth string `json:"detail_month,omitempty" jsonschema:"month whose new SQLs are listed as YYYY-MM; defaults to end_month"`
}

type SQLDetailRow struct {
	SQLDate   string `json:"sql_date"`
	ContactID string `json:"contact_id"`
	Contact   string `json:"contact"`
	Company   string `json:"company,omitempty"`
	Source    string `json:"source"`
}

type LeadFunnelOutput struct {
	Months      []stats.FunnelMonth `json:"months" jsonschema:"MQL and SQL counts, conversion rate and velocity per month"`
	DetailMonth string              `json:"detail_month"`
	SQLDetails  []SQLDetailRow      `json:"sql_details" jsonschema:"contacts that became SQL in detail_month, newest first"`
	Sources     []stats.SourceRow   `json:"sources" jsonschema:"MQLs and SQLs per lead source, most SQLs first"`
	Chart       string              `json:"chart,omitempty" jsonschema:"Mermaid chart of monthly MQLs and SQLs"`
}

type ListStagesInput struct{}

type StageInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position" jsonschema:"1-based position in the pipeline"`
	Won      bool   `json:"won"`
	Lost     bool   `json:"lost"`
}

type ListStagesOutput struct {
	Stages []StageInfo `json:"stages"`
}

func (s *Server) registerTools() error {
	reportSchema, err := inputSchema[ReportInput]()
	if err != nil {
		return err
	}
	reportSchema.Properties["start_date"].Pattern = `^\d{4}-\d{2}-\d{2}$`
	reportSchema.Properties["end_date"].Pattern = `^\d{4}-\d{2}-\d{2}$`

	movementsSchema, err := inputSchema[MovementsInput]()
	if err != nil {
		return err
	}
	movementsSchema.Properties["month"].Pattern = `^\d{4}-\d{2}$`
	types := make([]any, len(stats.MovementTypes))
	for i, t := range stats.MovementTypes {
		types[i] = string(t)
	}
	movementsSchema.Properties["movement_type"].Enum = types

	stateSchema, err := inputSchema[DealStateInput]()
	if err != nil {
		return err
	}
	stagesSchema, err := inputSchema[ListStagesInput]()
	if err != nil {
		return err
	}
	funnelSchema, err := inputSchema[LeadFunnelInput]()
	if err != nil {
		return err
	}
	for _, name := range []string{"start_month", "end_month", "detail_month"} {
		funnelSchema.Properties[name].Pattern = `^\d{4}-\d{2}$`
	}

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "generate_monthly_report",
		Description: "Compute the monthly KPI rollup (new pipeline, won revenue, win rate, created/won/lost counts) for a range of months.",
		InputSchema: reportSchema,
	}, s.handleGenerateReport)
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "get_deal_movements",
		Description: "List every deal that moved in one month with its movement type, stage transition, amount and close date changes.",
		InputSchema: movementsSchema,
	}, s.handleDealMovements)
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "get_deal_state",
		Description: "Reconstruct one deal's stage, amount and close date as they were at a given instant.",
		InputSchema: stateSchema,
	}, s.handleDealState)
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "list_stages",
		Description: "List the pipeline stages in pipeline order with their terminal classification.",
		InputSchema: stagesSchema,
	}, s.handleListStages)
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "get_lead_funnel",
		Description: "Compute the contact lead funnel: monthly MQLs, SQLs, conversion rate and MQL-to-SQL velocity, the SQLs of one month and a breakdown by lead source.",
		InputSchema: funnelSchema,
	}, s.handleLeadFunnel)
	return nil
}

func inputSchema[T any]() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("input schema for %T: %w", *new(T), err)
	}
	return schema, nil
}

func (s *Server) handleGenerateReport(ctx context.Context, _ *sdk.CallToolRequest, in ReportInput) (*sdk.CallToolResult, ReportOutput, error) {
	start := s.startDate
	if in.StartDate != "" {
		t, err := time.Parse("2006-01-02", in.StartDate)
		if err != nil {
			return nil, ReportOutput{}, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", in.StartDate)
		}
		start = t
	}
	var end time.Time
	if in.EndDate != "" {
		t, err := time.Parse("2006-01-02", in.EndDate)
		if err != nil {
			return nil, ReportOutput{}, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", in.EndDate)
		}
		end = t
	}
	if !end.IsZero() && end.Before(start) {
		return nil, ReportOutput{}, fmt.Errorf("end_date %s is before start_date %s", in.EndDate, start.Format("2006-01-02"))
	}

	res, err := s.generator.Generate(ctx, start, end)
	if err != nil {
		return nil, ReportOutput{}, err
	}
	out := ReportOutput{
		RunID:     res.RunID,
		Movements: len(res.AllMovements()),
		Months:    res.KPIs,
	}
	for _, chart := range []string{visuals.GenerateRevenueChart(res.KPIs), visuals.GenerateWinRateChart(res.KPIs)} {
		if chart != "" {
			out.Charts = append(out.Charts, chart)
		}
	}
	return nil, out, nil
}

func (s *Server) handleDealMovements(ctx context.Context, _ *sdk.CallToolRequest, in MovementsInput) (*sdk.CallToolResult, MovementsOutput, error) {
	month, err := stats.ParseMonthKey(in.Month)
	if err != nil {
		return nil, MovementsOutput{}, fmt.Errorf("invalid month %q: expected YYYY-MM", in.Month)
	}
	var only stats.MovementType
	if in.MovementType != "" {
		t, ok := stats.ParseMovementType(in.MovementType)
		if !ok {
			return nil, MovementsOutput{}, fmt.Errorf("unknown movement_type %q", in.MovementType)
		}
		only = t
	}

	movements, err := s.generator.MonthMovements(ctx, month)
	if err != nil {
		return nil, MovementsOutput{}, err
	}
	out := MovementsOutput{Month: month.Key(), Movements: []report.MovementRow{}}
	var selected []stats.Movement
	for _, m := range movements {
		if only != "" && m.Type != only {
			continue
		}
		selected = append(selected, m)
		out.Movements = append(out.Movements, report.NewMovementRow(m, s.stages))
	}
	out.Count = len(out.Movements)
	out.Chart = visuals.GenerateMovementPie("Movements "+month.Key(), selected)
	return nil, out, nil
}

func (s *Server) handleDealState(_ context.Context, _ *sdk.CallToolRequest, in DealStateInput) (*sdk.CallToolResult, DealStateOutput, error) {
	id := strings.TrimSpace(in.DealID)
	snap, ok := s.store.Snapshot(id)
	if !ok {
		return nil, DealStateOutput{}, fmt.Errorf("unknown deal %q", in.DealID)
	}
	at := time.Now().UTC()
	if in.At != "" {
		t, err := eventlog.ParseInstant(in.At)
		if err != nil {
			return nil, DealStateOutput{}, fmt.Errorf("invalid at %q: %w", in.At, err)
		}
		at = t.UTC()
	}

	out := DealStateOutput{DealID: id, DealName: snap.DealName, At: at.Format(time.RFC3339Nano)}
	if created, ok := s.store.CreatedAt(id); ok {
		out.CreatedAt = created.UTC().Format(time.RFC3339)
	}
	state, ok := s.store.StateAt(id, at)
	if !ok {
		log.Debug().Str("deal", id).Time("at", at).Msg("Deal did not exist at lookup instant")
		return nil, out, nil
	}

	out.Existed = true
	if state.Stage.Present() {
		out.StageID = state.Stage.Raw
		out.Stage = s.stages.Name(state.Stage.Raw)
	}
	out.Amount = state.Amount.String()
	if v, ok := stats.ParseAmount(state.Amount); ok {
		out.AmountDisplay = s.format.Amount(&v)
	}
	out.CloseDate = state.CloseDate.String()
	if state.CloseDate.Present() {
		out.CloseDateDisplay = s.format.Date(state.CloseDate)
	}
	return nil, out, nil
}

func (s *Server) handleListStages(_ context.Context, _ *sdk.CallToolRequest, _ ListStagesInput) (*sdk.CallToolResult, ListStagesOutput, error) {
	order := s.stages.Order()
	out := ListStagesOutput{Stages: make([]StageInfo, len(order))}
	for i, id := range order {
		out.Stages[i] = StageInfo{
			ID:       id,
			Name:     s.stages.Name(id),
			Position: i + 1,
			Won:      s.stages.IsWon(id),
			Lost:     s.stages.IsLost(id),
		}
	}
	return nil, out, nil
}

// defaultFunnelMonths is the window of the lead funnel when no start month is given.
const defaultFunnelMonths = 12

func (s *Server) handleLeadFunnel(_ context.Context, _ *sdk.CallToolRequest, in LeadFunnelInput) (*sdk.CallToolResult, LeadFunnelOutput, error) {
	if s.funnel == nil {
		return nil, LeadFunnelOutput{}, errors.New("no contacts loaded, run fetch first")
	}

	months := stats.LastCompletedMonths(time.Now(), defaultFunnelMonths)
	end := months[len(months)-1]
	if in.EndMonth != "" {
		m, err := stats.ParseMonthKey(in.EndMonth)
		if err != nil {
			return nil, LeadFunnelOutput{}, fmt.Errorf("invalid end_month %q: expected YYYY-MM", in.EndMonth)
		}
		end = m
	}
	start := end.Start.AddDate(0, -(defaultFunnelMonths - 1), 0)
	if in.StartMonth != "" {
		m, err := stats.ParseMonthKey(in.StartMonth)
		if err != nil {
			return nil, LeadFunnelOutput{}, fmt.Errorf("invalid start_month %q: expected YYYY-MM", in.StartMonth)
		}
		start = m.Start
	}
	if end.Start.Before(start) {
		return nil, LeadFunnelOutput{}, fmt.Errorf("end_month %s is before start_month %s", end.Key(), start.Format("2006-01"))
	}
	months = stats.GenerateMonthBoundaries(start, end.Start)

	detail := end
	if in.DetailMonth != "" {
		m, err := stats.ParseMonthKey(in.DetailMonth)
		if err != nil {
			return nil, LeadFunnelOutput{}, fmt.Errorf("invalid detail_month %q: expected YYYY-MM", in.DetailMonth)
		}
		detail = m
	}

	funnel := s.funnel.Calculate(months, detail)
	out := LeadFunnelOutput{
		Months:      funnel.Months,
		DetailMonth: funnel.DetailMonth,
		SQLDetails:  make([]SQLDetailRow, 0, len(funnel.SQLDetails)),
		Sources:     funnel.Sources,
		Chart:       visuals.GenerateFunnelChart(funnel.Months),
	}
	for _, d := range funnel.SQLDetails {
		out.SQLDetails = append(out.SQLDetails, SQLDetailRow{
			SQLDate:   d.Date.Format(time.RFC3339),
			ContactID: d.ContactID,
			Contact:   d.Contact,
			Company:   d.Company,
			Source:    d.Source,
		})
	}
	return nil, out, nil
}
