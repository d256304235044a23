package main

import (
	"github.com/spf13/cobra"

	"github.com/edvin/budget/internal/cli"
	"github.com/edvin/budget/internal/client"
)

type rootOptions struct {
	profile    string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Manage Azure subscription budgets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "", "Profile to use (default: active profile)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the profile file")

	cmd.AddCommand(
		newProfileCmd(opts),
		newSubscriptionsCmd(opts),
		newApproveCmd(opts),
		newAllocateCmd(opts),
		newFinanceCmd(opts),
		newSummaryCmd(opts),
	)
	return cmd
}

func (o *rootOptions) path() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return cli.ConfigPath()
}

func (o *rootOptions) loadConfig() (*cli.Config, string, error) {
	path, err := o.path()
	if err != nil {
		return nil, "", err
	}
	cfg, err := cli.LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func (o *rootOptions) client() (*client.Client, error) {
	cfg, _, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	p, err := cli.Resolve(cfg, o.profile)
	if err != nil {
		return nil, err
	}
	return client.NewClient(p.APIURL, p.APIKey), nil
}
