package commands

import (
	"dealflow/internal/mcp"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the deal movement and lead funnel tables as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, mapper, err := loadDealStore(cfg)
		if err != nil {
			return err
		}
		contacts, err := loadContacts(cfg)
		if err != nil {
			return err
		}
		server, err := mcp.NewServer(mcp.Deps{
			Store:     store,
			Stages:    mapper,
			Locale:    cfg.ReportLocale,
			Workers:   cfg.ReportWorkers,
			StartDate: cfg.StartDate,
			Version:   Version,
			Contacts:  contacts,
		})
		if err != nil {
			return err
		}
		return server.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
