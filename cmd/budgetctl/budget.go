package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/platform"
)

func newApproveCmd(opts *rootOptions) *cobra.Command {
	var (
		body   request.CreateApproval
		amount string
	)
	cmd := &cobra.Command{
		Use:   "approve <subscription-id>",
		Short: "Record a budget approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if body.Amount, err = parseAmount(amount); err != nil {
				return err
			}
			return postBudget(cmd, opts, args[0], "approvals", body)
		},
	}
	cmd.Flags().StringVar(&body.Ticket, "ticket", "", "Ticket reference (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, negative to reduce (required)")
	cmd.Flags().StringVar(&body.Currency, "currency", "", "Currency (default GBP)")
	cmd.Flags().StringVar(&body.DateFrom, "from", "", "Start date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&body.DateTo, "to", "", "End date YYYY-MM-DD (required)")
	cmd.Flags().BoolVar(&body.Allocate, "allocate", false, "Also allocate the approved amount")
	cmd.Flags().BoolVar(&body.Force, "force", false, "Allow a start date older than 30 days")
	markRequired(cmd, "ticket", "amount", "from", "to")
	return cmd
}

func newAllocateCmd(opts *rootOptions) *cobra.Command {
	var (
		body   request.CreateAllocation
		amount string
	)
	cmd := &cobra.Command{
		Use:   "allocate <subscription-id>",
		Short: "Allocate approved budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if body.Amount, err = parseAmount(amount); err != nil {
				return err
			}
			return postBudget(cmd, opts, args[0], "allocations", body)
		},
	}
	cmd.Flags().StringVar(&body.Ticket, "ticket", "", "Ticket reference (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, negative to release (required)")
	cmd.Flags().StringVar(&body.Currency, "currency", "", "Currency (default GBP)")
	markRequired(cmd, "ticket", "amount")
	return cmd
}

func newFinanceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Manage finance records",
	}

	var (
		body   request.CreateFinance
		amount string
	)
	add := &cobra.Command{
		Use:   "add <subscription-id>",
		Short: "Record which finance code pays for a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if body.Amount, err = parseAmount(amount); err != nil {
				return err
			}
			return postBudget(cmd, opts, args[0], "finances", body)
		},
	}
	add.Flags().StringVar(&body.Ticket, "ticket", "", "Ticket reference (required)")
	add.Flags().StringVar(&amount, "amount", "", "Amount (required)")
	add.Flags().IntVar(&body.Priority, "priority", 0, "Priority, lower is charged first")
	add.Flags().StringVar(&body.FinanceCode, "code", "", "Finance code (required)")
	add.Flags().StringVar(&body.DateFrom, "from", "", "Start date YYYY-MM-DD (required)")
	add.Flags().StringVar(&body.DateTo, "to", "", "End date YYYY-MM-DD (required)")
	markRequired(add, "ticket", "amount", "code", "from", "to")

	cmd.AddCommand(add)
	return cmd
}

func postBudget(cmd *cobra.Command, opts *rootOptions, rawID, kind string, body any) error {
	id, err := platform.ParseSubscriptionID(rawID)
	if err != nil {
		return err
	}
	c, err := opts.client()
	if err != nil {
		return err
	}
	resp, err := c.Post(cmd.Context(), "/api/v1/subscriptions/"+id+"/"+kind, body)
	if err != nil {
		return err
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := resp.Decode(&created); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s %d for %s\n", singular(kind), created.ID, id)
	return nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

func singular(kind string) string {
	switch kind {
	case "approvals":
		return "approval"
	case "allocations":
		return "allocation"
	default:
		return "finance record"
	}
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		_ = cmd.MarkFlagRequired(n)
	}
}
