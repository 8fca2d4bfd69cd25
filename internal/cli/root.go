package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/buyerdesk-backend/internal/platform/envutil"
)

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "buyerdesk",
		Short:        "Agent and buyer collaboration backend",
		SilenceUsage: true,
		Version:      version,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newDraftCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newTemplateCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.SetVersionTemplate("{{.Version}}\n")
	return cmd
}

// remoteFlags are shared by the commands that talk to a running API.
type remoteFlags struct {
	baseURL string
	token   string
}

func (f *remoteFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.baseURL, "api", envutil.String("BUYERDESK_API", "http://localhost:8080"), "API base URL (env: BUYERDESK_API)")
	cmd.Flags().StringVar(&f.token, "token", envutil.String("BUYERDESK_TOKEN", ""), "bearer token (env: BUYERDESK_TOKEN)")
}
