package mcp

import (
	"context"
	"fmt"
	"time"

	"dealflow/internal/eventlog"
	"dealflow/internal/report"
	"dealflow/internal/stages"
	"dealflow/internal/stats"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const serverName = "dealflow"

// Deps is everything the tool server reads. The store and taxonomy are loaded once at startup.
type Deps struct {
	Store     *eventlog.Store
	Stages    *stages.Mapper
	Locale    string
	Workers   int
	StartDate time.Time
	Version   string

	// Contacts feed the lead funnel tool; nil when contacts were never fetched.
	Contacts []eventlog.Contact
}

// Server exposes the deal movement and lead funnel tables as MCP tools.
type Server struct {
	store     *eventlog.Store
	stages    *stages.Mapper
	generator *report.Generator
	format    *report.Formatter
	funnel    *stats.FunnelCalculator
	startDate time.Time
	server    *sdk.Server
}

// NewServer creates the server and registers its tools.
func NewServer(d Deps) (*Server, error) {
	if d.Store == nil || d.Stages == nil {
		return nil, fmt.Errorf("mcp server needs a deal store and a stage taxonomy")
	}
	version := d.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		store:     d.Store,
		stages:    d.Stages,
		generator: report.NewGenerator(d.Store, d.Stages, stats.PhrasesFor(d.Locale), d.Workers),
		format:    report.NewFormatter(d.Locale),
		startDate: d.StartDate,
		server:    sdk.NewServer(&sdk.Implementation{Name: serverName, Version: version}, nil),
	}
	if d.Contacts != nil {
		s.funnel = stats.NewFunnelCalculator(d.Contacts)
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Info().
		Int("deals", s.store.SnapshotCount()).
		Int("changes", s.store.ChangeCount()).
		Msg("MCP server starting stdio loop")
	return s.run(ctx, &sdk.StdioTransport{})
}

func (s *Server) run(ctx context.Context, transport sdk.Transport) error {
	if err := s.server.Run(ctx, transport); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
