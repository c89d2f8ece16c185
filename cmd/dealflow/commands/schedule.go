package commands

import (
	"context"
	"fmt"
	"time"

	"dealflow/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var scheduleNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run fetch followed by report on REPORT_SCHEDULE until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireToken(); err != nil {
			return err
		}
		ctx := cmd.Context()

		c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		id, err := c.AddFunc(cfg.ReportSchedule, func() { runCycle(ctx, cfg) })
		if err != nil {
			return fmt.Errorf("invalid REPORT_SCHEDULE %q: %w", cfg.ReportSchedule, err)
		}

		if scheduleNow {
			runCycle(ctx, cfg)
		}

		c.Start()
		log.Info().
			Str("schedule", cfg.ReportSchedule).
			Time("next", c.Entry(id).Schedule.Next(time.Now())).
			Msg("Scheduler started")

		<-ctx.Done()
		log.Info().Msg("Stopping scheduler")
		<-c.Stop().Done()
		log.Info().Msg("Scheduler stopped")
		return nil
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run one cycle immediately before waiting for the schedule")
	rootCmd.AddCommand(scheduleCmd)
}

// runCycle fetches and reports once. Failures are logged; the next tick tries again.
func runCycle(ctx context.Context, cfg *config.AppConfig) {
	started := time.Now()
	log.Info().Msg("Scheduled cycle started")

	if _, err := runFetch(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Scheduled fetch failed")
		return
	}
	// the report falls back to the previous contact snapshot
	if _, err := runFetchContacts(ctx, cfg, 0); err != nil {
		log.Error().Err(err).Msg("Scheduled contact fetch failed")
	}
	m, err := runReport(ctx, cfg, cfg.StartDate, time.Time{})
	if err != nil {
		log.Error().Err(err).Msg("Scheduled report failed")
		return
	}
	log.Info().
		Str("run_id", m.RunID).
		Dur("duration", time.Since(started)).
		Msg("Scheduled cycle complete")
}
