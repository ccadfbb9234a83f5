package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/letwise/onboarding/internal/infrastructure/token"
)

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA signing key in PKCS#8 PEM form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := token.GenerateKey()
			if err != nil {
				return err
			}
			pemBytes, err := token.EncodePrivateKey(key)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(pemBytes)
				return err
			}
			return os.WriteFile(out, pemBytes, 0o600)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the key to this file instead of stdout")
	return cmd
}
