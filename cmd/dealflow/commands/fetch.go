package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dealflow/internal/checkpoint"
	"dealflow/internal/config"
	"dealflow/internal/dataset"
	"dealflow/internal/eventlog"
	"dealflow/internal/hubspot"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	fetchSkipContacts bool
	fetchContactLimit int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch deals with their property histories, and contacts, from HubSpot into the output dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := runFetch(cmd.Context(), cfg); err != nil {
			return err
		}
		if fetchSkipContacts {
			return nil
		}
		_, err := runFetchContacts(cmd.Context(), cfg, fetchContactLimit)
		return err
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchSkipContacts, "skip-contacts", false, "fetch deals only")
	fetchCmd.Flags().IntVar(&fetchContactLimit, "contact-limit", 0, "only process the first N contacts (0 processes all)")
	rootCmd.AddCommand(fetchCmd)
}

// runFetch hydrates the dataset, resuming from the checkpoint of an interrupted run.
func runFetch(ctx context.Context, cfg *config.AppConfig) (*eventlog.Log, error) {
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}

	fetchedAt := time.Now().UTC()
	checkpoints := checkpoint.NewFileStore(cfg.OutputDir, "deals")
	writer := dataset.NewWriter(cfg.OutputDir, fetchedAt)
	client := hubspot.NewClient(cfg.HubSpot)
	provider := eventlog.NewLogProvider(client, checkpoints, writer)

	processed, err := checkpoints.Load()
	if err != nil {
		return nil, err
	}
	if len(processed) > 0 {
		prior, err := dataset.Load(cfg.OutputDir)
		switch {
		case errors.Is(err, dataset.ErrNoDataset):
			log.Warn().Int("checkpointed", len(processed)).Msg("Checkpoint found without a dataset, refetching everything")
			if err := checkpoints.Clear(); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			log.Info().Int("checkpointed", len(processed)).Msg("Resuming from checkpoint")
			provider.WithPrior(prior)
		}
	}

	started := time.Now()
	l, err := provider.Hydrate(ctx, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	if _, issues, err := writer.WriteQualityReport(l); err != nil {
		log.Warn().Err(err).Msg("Failed to write data quality report")
	} else if len(issues) > 0 {
		log.Warn().Int("issues", len(issues)).Msg("Dataset has data quality issues")
	}

	if err := checkpoints.Clear(); err != nil {
		return nil, err
	}

	log.Info().
		Int("deals", len(l.Snapshots)).
		Int("changes", len(l.Records)).
		Int("api_calls", client.CallCount()).
		Dur("duration", time.Since(started)).
		Str("snapshot", writer.SnapshotPath()).
		Str("history", writer.HistoryPath()).
		Msg("Fetch complete")
	return l, nil
}

// runFetchContacts writes the contact snapshot used by the lead funnel.
func runFetchContacts(ctx context.Context, cfg *config.AppConfig, limit int) ([]eventlog.Contact, error) {
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}

	fetchedAt := time.Now().UTC()
	started := time.Now()
	client := hubspot.NewClient(cfg.HubSpot)
	contacts, err := eventlog.NewContactProvider(client, cfg.HubSpot.ContactSourceProperty, cfg.FetchWorkers).
		WithLimit(limit).
		Fetch(ctx, fetchedAt)
	if err != nil {
		return nil, err
	}

	writer := dataset.NewWriter(cfg.OutputDir, fetchedAt)
	if err := writer.WriteContacts(contacts); err != nil {
		return nil, err
	}

	stages := map[string]int{}
	for _, c := range contacts {
		stages[c.LifecycleStage]++
	}
	log.Info().
		Int("contacts", len(contacts)).
		Int("mqls", stages["marketingqualifiedlead"]).
		Int("sqls", stages["salesqualifiedlead"]).
		Int("api_calls", client.CallCount()).
		Dur("duration", time.Since(started)).
		Str("snapshot", writer.ContactsPath()).
		Msg("Contact fetch complete")
	return contacts, nil
}

// loadContacts reads the latest contact snapshot. It returns nil without error when contacts were
// never fetched.
func loadContacts(cfg *config.AppConfig) ([]eventlog.Contact, error) {
	contacts, err := dataset.LoadContacts(cfg.OutputDir)
	if errors.Is(err, dataset.ErrNoDataset) {
		log.Info().Msg("No contact snapshot, lead funnel disabled")
		return nil, nil
	}
	return contacts, err
}
