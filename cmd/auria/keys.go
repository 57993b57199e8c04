package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/auria-labs/auria-agent/internal/auth"
	"github.com/auria-labs/auria-agent/internal/seeder"
)

func newKeysCmd() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	var owner string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeyStore(cmd.Context(), func(store *auth.PostgresStore) error {
				raw, key, err := seeder.IssueKey(cmd.Context(), store, owner)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "id:    %s\nowner: %s\nkey:   %s\n", key.ID, key.Owner, raw)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&owner, "owner", "", "Owner recorded with the key")
	_ = createCmd.MarkFlagRequired("owner")

	revokeCmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Deactivate an API key by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeyStore(cmd.Context(), func(store *auth.PostgresStore) error {
				if err := store.Revoke(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
				return nil
			})
		},
	}

	keysCmd.AddCommand(createCmd, revokeCmd)
	return keysCmd
}

func withKeyStore(ctx context.Context, fn func(*auth.PostgresStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.PostgresDSN == "" {
		return errors.New("postgres_dsn is required to manage api keys")
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pool.Close()

	store := auth.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	return fn(store)
}
