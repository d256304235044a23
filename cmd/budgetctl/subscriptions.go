package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/edvin/budget/internal/model"
	"github.com/edvin/budget/internal/platform"
)

func newSubscriptionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Inspect subscriptions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every subscription with its budget totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Get(cmd.Context(), "/api/v1/subscriptions")
			if err != nil {
				return err
			}
			var subs []model.SubscriptionSummary
			if err := resp.Decode(&subs); err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout(), "ID", "NAME", "STATE", "APPROVED", "ALLOCATED", "COST", "REMAINING", "APPROVED TO")
			for _, s := range subs {
				state := string(s.State)
				if s.Abolished {
					state += " (abolished)"
				}
				w.row(s.SubscriptionID, s.Name, state,
					s.Approved.StringFixedBank(2), s.Allocated.StringFixedBank(2),
					s.TotalCost.StringFixedBank(2), s.Remaining.StringFixedBank(2),
					formatDate(s.ApprovedTo))
			}
			return w.flush()
		},
	}

	history := &cobra.Command{
		Use:   "history <subscription-id>",
		Short: "Show the recorded status history of a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := platform.ParseSubscriptionID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Get(cmd.Context(), "/api/v1/subscriptions/"+id+"/history")
			if err != nil {
				return err
			}
			var details []model.SubscriptionDetail
			if err := resp.Decode(&details); err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout(), "TIME", "NAME", "STATE", "ROLES")
			for _, d := range details {
				w.row(d.TimeCreated.UTC().Format(time.RFC3339), d.DisplayName, string(d.State), fmt.Sprint(len(d.RoleAssignments)))
			}
			return w.flush()
		},
	}

	var outPath string
	export := &cobra.Command{
		Use:   "export",
		Short: "Download the subscription summary as an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Get(cmd.Context(), "/api/v1/subscriptions/export")
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = "subscriptions-" + time.Now().UTC().Format("20060102") + ".xlsx"
			}
			if err := os.WriteFile(outPath, resp.Body, 0644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}
	export.Flags().StringVarP(&outPath, "out", "o", "", "Output file")

	cmd.AddCommand(list, history, export)
	return cmd
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
