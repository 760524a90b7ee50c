package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/temcen/dishrec/internal/app"
	"github.com/temcen/dishrec/internal/database"
	"github.com/temcen/dishrec/internal/services"
)

// tokenCmd mints a bearer token signed with auth.jwt_secret. When the hot
// Redis tier is configured the session is stored there as well.
func tokenCmd(load configLoader) *cobra.Command {
	var (
		userID string
		role   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user id: %w", err)
				}
			}

			logger := app.NewLogger(cfg.Logging)
			var sessions *redis.Client
			if cfg.Redis.Hot.URL != "" {
				if sessions, err = database.NewRedisClient(cmd.Context(), cfg.Redis.Hot); err != nil {
					return fmt.Errorf("failed to connect to session store: %w", err)
				}
				defer sessions.Close()
			}

			auth := services.NewAuthService(cfg, logger, sessions)
			token, err := auth.GenerateToken(cmd.Context(), id, role)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (random when empty)")
	cmd.Flags().StringVar(&role, "role", "user", "token role")
	return cmd
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the Postgres schema the store expects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), database.Schema)
			return err
		},
	}
}
