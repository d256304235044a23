package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/edvin/budget/internal/summary"
)

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Preview or send the daily summary",
	}

	var (
		since  time.Duration
		from   string
		format string
	)
	preview := &cobra.Command{
		Use:   "preview",
		Short: "Show what the summary would report, without sending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now().Add(-since).UTC().Format(time.RFC3339)
			if from != "" {
				start = from
			}
			q := url.Values{"since": {start}}
			if format == "html" {
				q.Set("format", "html")
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Get(cmd.Context(), "/api/v1/summary?"+q.Encode())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "html":
				_, err := out.Write(resp.Body)
				return err
			case "json":
				var buf bytes.Buffer
				if err := json.Indent(&buf, resp.Body, "", "  "); err != nil {
					return err
				}
				buf.WriteByte('\n')
				_, err := buf.WriteTo(out)
				return err
			}

			var report summary.Report
			if err := resp.Decode(&report); err != nil {
				return err
			}
			fmt.Fprintf(out, "Window: %s to %s\n\n", report.Window.Start.Format(time.RFC3339), report.Window.End.Format(time.RFC3339))
			w := newTable(out, "SECTION", "COUNT")
			w.row("new subscriptions", fmt.Sprint(len(report.NewSubscriptions)))
			w.row("status changes", fmt.Sprint(len(report.StatusChanges)))
			w.row("approvals and allocations", fmt.Sprint(len(report.NewApprovalsAndAllocations)))
			w.row("notifications", fmt.Sprint(report.NumNotifications))
			w.row("finance", fmt.Sprint(report.NumFinance))
			return w.flush()
		},
	}
	preview.Flags().DurationVar(&since, "since", 24*time.Hour, "How far back the window reaches")
	preview.Flags().StringVar(&from, "from", "", "Window start as RFC3339, overrides --since")
	preview.Flags().StringVar(&format, "format", "table", "Output format: table, json or html")

	send := &cobra.Command{
		Use:   "send",
		Short: "Run the daily summary job now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Post(cmd.Context(), "/api/v1/summary/send", nil)
			if err != nil {
				return err
			}
			var started struct {
				WorkflowID string `json:"workflow_id"`
				RunID      string `json:"run_id"`
			}
			if err := resp.Decode(&started); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started workflow %s (run %s)\n", started.WorkflowID, started.RunID)
			return nil
		},
	}

	cmd.AddCommand(preview, send)
	return cmd
}
