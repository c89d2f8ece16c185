package commands

import (
	"fmt"
	"time"

	"dealflow/internal/eventlog"
	"dealflow/internal/report"
	"dealflow/internal/stats"

	"github.com/spf13/cobra"
)

var (
	stateDeal string
	stateAt   string
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show a deal's stage, amount and close date as they were at an instant",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, mapper, err := loadDealStore(cfg)
		if err != nil {
			return err
		}
		if _, ok := store.Snapshot(stateDeal); !ok {
			return fmt.Errorf("unknown deal %q", stateDeal)
		}

		at := time.Now().UTC()
		if stateAt != "" {
			at, err = eventlog.ParseInstant(stateAt)
			if err != nil {
				return fmt.Errorf("invalid --at %q: %w", stateAt, err)
			}
		}

		out := cmd.OutOrStdout()
		state, ok := store.StateAt(stateDeal, at)
		if !ok {
			fmt.Fprintf(out, "Deal %s did not exist at %s\n", stateDeal, at.Format(time.RFC3339))
			if created, ok := store.CreatedAt(stateDeal); ok {
				fmt.Fprintf(out, "  Created:    %s\n", created.UTC().Format(time.RFC3339))
			}
			return nil
		}

		format := report.NewFormatter(cfg.ReportLocale)
		stage := "-"
		if state.Stage.Present() {
			stage = mapper.Name(state.Stage.Raw)
		}
		amount := "-"
		if v, ok := stats.ParseAmount(state.Amount); ok {
			amount = format.Amount(&v)
		}

		fmt.Fprintf(out, "Deal %s (%s) at %s\n", state.DealID, state.DealName, at.Format(time.RFC3339))
		fmt.Fprintf(out, "  Stage:      %s\n", stage)
		fmt.Fprintf(out, "  Amount:     %s\n", amount)
		fmt.Fprintf(out, "  Close date: %s\n", format.Date(state.CloseDate))
		return nil
	},
}

func init() {
	stateCmd.Flags().StringVar(&stateDeal, "deal", "", "deal id")
	stateCmd.Flags().StringVar(&stateAt, "at", "", "instant to resolve at (RFC 3339, or YYYY-MM-DD for the end of that day; default now)")
	_ = stateCmd.MarkFlagRequired("deal")
	rootCmd.AddCommand(stateCmd)
}
