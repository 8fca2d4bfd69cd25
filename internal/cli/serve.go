package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/buyerdesk-backend/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime hub and template worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Start()
			return a.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.LoadDotEnv()
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			store, err := app.OpenDatabase(log, app.LoadConfig(log))
			if err != nil {
				return err
			}
			log.Info("migrations applied")
			return store.Close()
		},
	}
}
