package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"dealflow/internal/config"
	"dealflow/internal/dataset"
	"dealflow/internal/eventlog"
	"dealflow/internal/report"
	"dealflow/internal/stages"
	"dealflow/internal/stats"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	reportStart string
	reportEnd   string
	reportOpen  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the monthly KPI, deal movement and lead funnel reports from the latest dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := reportRange(cfg, reportStart, reportEnd)
		if err != nil {
			return err
		}
		m, err := runReport(cmd.Context(), cfg, start, end)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Report %s: %d months, %d movements\n", m.RunID, m.Months, m.MovementRows)
		for _, f := range m.Files {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", filepath.Join(cfg.ReportsDir, f))
		}

		if reportOpen {
			if workbook := workbookPath(cfg, m); workbook != "" {
				if err := browser.OpenFile(workbook); err != nil {
					log.Warn().Err(err).Str("path", workbook).Msg("Failed to open workbook")
				}
			}
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportStart, "start", "", "first month to report (YYYY-MM or YYYY-MM-DD, default START_DATE)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "last month to report (YYYY-MM or YYYY-MM-DD, default current month)")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "open the generated workbook")
	rootCmd.AddCommand(reportCmd)
}

// loadDealStore loads the stage taxonomy and the latest dataset into a resolver-ready store.
func loadDealStore(cfg *config.AppConfig) (*eventlog.Store, *stages.Mapper, error) {
	mapper, err := stages.Load(cfg.StageMappingPath)
	if err != nil {
		return nil, nil, err
	}
	l, err := dataset.Load(cfg.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	store := eventlog.NewStore(l.Snapshots, dataset.History(l))
	log.Info().
		Int("deals", store.SnapshotCount()).
		Int("changes", store.ChangeCount()).
		Msg("Deal history indexed")
	return store, mapper, nil
}

// runReport generates and writes the report tables for the given range.
func runReport(ctx context.Context, cfg *config.AppConfig, start, end time.Time) (*report.Manifest, error) {
	store, mapper, err := loadDealStore(cfg)
	if err != nil {
		return nil, err
	}

	contacts, err := loadContacts(cfg)
	if err != nil {
		return nil, err
	}

	generator := report.NewGenerator(store, mapper, stats.PhrasesFor(cfg.ReportLocale), cfg.ReportWorkers)
	if contacts != nil {
		generator.WithContacts(contacts)
	}
	res, err := generator.Generate(ctx, start, end)
	if err != nil {
		return nil, err
	}

	writer := report.NewWriter(cfg.ReportsDir, report.NewFormatter(cfg.ReportLocale), mapper)
	m, err := writer.WriteAll(res)
	if err != nil {
		return nil, err
	}
	log.Info().Str("run_id", m.RunID).Strs("files", m.Files).Msg("Reports written")
	return m, nil
}

// reportRange parses the --start and --end flags. An empty end leaves the range open to now.
func reportRange(cfg *config.AppConfig, start, end string) (time.Time, time.Time, error) {
	from := cfg.StartDate
	if start != "" {
		t, err := parseMonthFlag(start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
		}
		from = t
	}
	var to time.Time
	if end != "" {
		t, err := parseMonthFlag(end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
		}
		to = t
	}
	if !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end %s is before --start %s", to.Format("2006-01"), from.Format("2006-01"))
	}
	return from, to, nil
}

func parseMonthFlag(s string) (time.Time, error) {
	if m, err := stats.ParseMonthKey(s); err == nil {
		return m.Start, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM nor YYYY-MM-DD", s)
	}
	return t, nil
}

func workbookPath(cfg *config.AppConfig, m *report.Manifest) string {
	for _, f := range m.Files {
		if strings.HasSuffix(f, ".xlsx") {
			return filepath.Join(cfg.ReportsDir, f)
		}
	}
	return ""
}
