package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/letwise/onboarding/internal/infrastructure/config"
	mongodb "github.com/letwise/onboarding/internal/infrastructure/db/mongo"
)

// NewIndexesCmd creates the indexes subcommand.
func NewIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes the credential store relies on",
		Long: `Create the unique indexes on the users collection. serve does this on
startup as well; run it on its own when the service account lacks index privileges.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			client, db, err := mongodb.Connect(cmd.Context(), mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()

			if err := mongodb.NewUserRepository(db).EnsureIndexes(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("indexes ensured on %s.users\n", cfg.Mongo.Database)
			return nil
		},
	}
}
