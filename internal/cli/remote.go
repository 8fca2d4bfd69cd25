package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/buyerdesk-backend/pkg/draftclient"
)

func newDraftCmd() *cobra.Command {
	var (
		remote     remoteFlags
		buyerID    string
		intent     string
		visibility string
	)
	cmd := &cobra.Command{
		Use:   "draft <command...>",
		Short: "Stream an AI draft from a running API",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := draftclient.New(remote.baseURL, remote.token)
			req := draftclient.DraftRequest{
				BuyerID:    buyerID,
				Command:    strings.Join(args, " "),
				Intent:     intent,
				Visibility: visibility,
			}
			out := cmd.OutOrStdout()
			if intent == "actions" {
				actions, err := client.Actions(cmd.Context(), req)
				if err != nil {
					return err
				}
				for _, a := range actions {
					_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", a.Type, a.Label, a.Command)
				}
				return nil
			}
			_, err := client.Draft(cmd.Context(), req, func(delta string) {
				_, _ = fmt.Fprint(out, delta)
			})
			_, _ = fmt.Fprintln(out)
			return err
		},
	}
	remote.bind(cmd)
	cmd.Flags().StringVar(&buyerID, "buyer", "", "buyer id; the draft is stored in their workspace")
	cmd.Flags().StringVar(&intent, "intent", "", "draft intent (message, email, summary, actions)")
	cmd.Flags().StringVar(&visibility, "visibility", "", "internal or buyer_facing")
	return cmd
}

func newScrapeCmd() *cobra.Command {
	var remote remoteFlags
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Extract listing details through a running API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := draftclient.New(remote.baseURL, remote.token).Scrape(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
	remote.bind(cmd)
	return cmd
}

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Offer template analysis",
	}
	cmd.AddCommand(newTemplateAnalyzeCmd())
	return cmd
}

func newTemplateAnalyzeCmd() *cobra.Command {
	var (
		remote   remoteFlags
		fileURL  string
		fileType string
		wait     bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <template-id>",
		Short: "Queue field extraction for an offer template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := draftclient.New(remote.baseURL, remote.token)
			ack, err := client.AnalyzeTemplate(cmd.Context(), args[0], fileURL, fileType)
			if err != nil {
				return err
			}
			if !wait {
				return printJSON(cmd, ack)
			}
			t, err := client.WaitForAnalysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := printJSON(cmd, t); err != nil {
				return err
			}
			if t.AnalysisStatus == "failed" {
				return fmt.Errorf("analysis failed: %s", t.AnalysisError)
			}
			return nil
		},
	}
	remote.bind(cmd)
	cmd.Flags().StringVar(&fileURL, "file-url", "", "override the stored file URL")
	cmd.Flags().StringVar(&fileType, "file-type", "", "pdf, docx or txt")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until analysis completes or fails")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
