package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/budget/internal/cli"
)

func newProfileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage API profiles",
	}

	var url, key string
	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Create or update a profile and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := opts.loadConfig()
			if err != nil {
				return err
			}
			name, err := cfg.SetProfile(args[0], cli.Profile{APIURL: url, APIKey: key})
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active profile set to %q\n", name)
			return nil
		},
	}
	set.Flags().StringVar(&url, "url", "", "Budget API base URL")
	set.Flags().StringVar(&key, "key", "", "API key")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Profiles) == 0 {
				fmt.Fprintln(out, "No profiles found. Add one with: budgetctl profile set <name> --url <url> --key <key>")
				return nil
			}
			w := newTable(out, "NAME", "URL", "KEY", "ACTIVE")
			for _, name := range sortedKeys(cfg.Profiles) {
				p := cfg.Profiles[name]
				marker := ""
				if name == cfg.Active {
					marker = "*"
				}
				w.row(name, p.APIURL, p.MaskedKey(), marker)
			}
			return w.flush()
		},
	}

	cmd.AddCommand(set, show)
	return cmd
}
