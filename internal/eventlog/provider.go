package eventlog

import (
	"context"
	"fmt"
	"time"

	"dealflow/internal/checkpoint"
	"dealflow/internal/hubspot"

	"github.com/rs/zerolog/log"
)

// DefaultFlushEvery is how many deals are processed between dataset flushes and checkpoint saves.
const DefaultFlushEvery = 100

// Log is a complete set of deal baselines and change records.
type Log struct {
	Snapshots []Snapshot
	Records   []ChangeRecord
}

// Sink persists a partial or complete Log.
type Sink interface {
	Flush(l *Log) error
}

// LogProvider orchestrates fetching deals and their histories into a Log.
type LogProvider struct {
	client      hubspot.Client
	checkpoints checkpoint.Store
	sink        Sink
	prior       *Log
	flushEvery  int
}

func NewLogProvider(client hubspot.Client, checkpoints checkpoint.Store, sink Sink) *LogProvider {
	return &LogProvider{
		client:      client,
		checkpoints: checkpoints,
		sink:        sink,
		flushEvery:  DefaultFlushEvery,
	}
}

// WithPrior sets the dataset that deals already in the checkpoint are carried over from.
func (p *LogProvider) WithPrior(prior *Log) *LogProvider {
	p.prior = prior
	return p
}

// WithFlushEvery overrides DefaultFlushEvery.
func (p *LogProvider) WithFlushEvery(n int) *LogProvider {
	if n > 0 {
		p.flushEvery = n
	}
	return p
}

// Hydrate fetches every deal and its history. Deals listed in the checkpoint are not fetched
// again; their rows are taken from the prior dataset instead. A failed history fetch leaves the deal
// with a snapshot and no history. The caller clears the checkpoint after a complete run.
func (p *LogProvider) Hydrate(ctx context.Context, fetchedAt time.Time) (*Log, error) {
	processed := map[string]bool{}
	if p.checkpoints != nil {
		loaded, err := p.checkpoints.Load()
		if err != nil {
			return nil, err
		}
		processed = loaded
	}

	deals, err := p.client.GetAllDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydration failed: %w", err)
	}
	log.Info().Int("deals", len(deals)).Int("checkpointed", len(processed)).Msg("Starting hydration process")

	out := &Log{}
	if len(processed) > 0 {
		p.carryOver(out, processed)
	}

	pending := 0
	withHistory := 0
	for i, deal := range deals {
		if processed[deal.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		history, err := p.client.GetDealHistory(ctx, deal.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Error().Err(err).Str("deal", deal.ID).Msg("Failed to fetch deal history")
			history = nil
		}

		snap, records := TransformDeal(deal, history, fetchedAt)
		out.Snapshots = append(out.Snapshots, snap)
		out.Records = append(out.Records, records...)
		if snap.HasHistory {
			withHistory++
		}
		processed[deal.ID] = true
		pending++

		if pending >= p.flushEvery {
			log.Info().Int("done", i+1).Int("total", len(deals)).Msg("Hydration progress")
			if err := p.persist(out, processed); err != nil {
				return nil, err
			}
			pending = 0
		}
	}

	if err := p.persist(out, processed); err != nil {
		return nil, err
	}

	log.Info().
		Int("snapshots", len(out.Snapshots)).
		Int("with_history", withHistory).
		Int("records", len(out.Records)).
		Int("api_calls", p.client.CallCount()).
		Msg("Hydration complete")
	return out, nil
}

// persist flushes the dataset before the checkpoint, so a checkpointed id always has its rows on disk.
func (p *LogProvider) persist(l *Log, processed map[string]bool) error {
	if p.sink != nil {
		if err := p.sink.Flush(l); err != nil {
			return fmt.Errorf("failed to flush dataset: %w", err)
		}
	}
	if p.checkpoints != nil {
		if err := p.checkpoints.Save(processed); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
	}
	return nil
}

func (p *LogProvider) carryOver(out *Log, processed map[string]bool) {
	if p.prior == nil {
		log.Warn().Int("checkpointed", len(processed)).Msg("Checkpoint present but no prior dataset, checkpointed deals will be missing")
		return
	}
	for _, snap := range p.prior.Snapshots {
		if processed[snap.DealID] {
			out.Snapshots = append(out.Snapshots, snap)
		}
	}
	for _, rec := range p.prior.Records {
		if processed[rec.DealID] {
			out.Records = append(out.Records, rec)
		}
	}
	log.Info().Int("snapshots", len(out.Snapshots)).Int("records", len(out.Records)).Msg("Carried over checkpointed deals")
}
