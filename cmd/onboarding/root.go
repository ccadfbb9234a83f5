package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the onboarding service CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Account onboarding service for tenants, landlords and service providers",
		Long: `onboarding registers and signs in users of the rental platform,
keeps their browser sessions alive and issues signed access tokens
for the rest of the platform to verify.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewIndexesCmd())
	cmd.AddCommand(NewKeygenCmd())

	return cmd
}
