package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/benvon/time-import/internal/config"
	"github.com/benvon/time-import/internal/database"
	"github.com/benvon/time-import/internal/models"
	"github.com/spf13/cobra"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long: "List or update the stored rate limits (e.g. 5-S, 100-M). The http key limits API " +
			"requests per user; the collaborator key is the shared AI quota. Stored in database.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func openRatelimitRepo() (*database.DB, *database.RatelimitConfigRepository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, database.NewRatelimitConfigRepository(db), nil
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, repo, err := openRatelimitRepo()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			return listRatelimits(cmd.Context(), cmd.OutOrStdout(), repo)
		},
	}
}

type ratelimitLister interface {
	List(ctx context.Context) ([]*models.RatelimitConfig, error)
}

func listRatelimits(ctx context.Context, w io.Writer, repo ratelimitLister) error {
	configs, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list ratelimit config: %w", err)
	}
	if len(configs) == 0 {
		fmt.Fprintln(w, "No rate limit configuration in database. Use 'ratelimit set' to add one.")
		return nil
	}
	fmt.Fprintln(w, "Rate limit configuration:")
	for _, c := range configs {
		fmt.Fprintf(w, "  %s: %s\n", c.ConfigKey, c.Rate)
	}
	return nil
}

func newRatelimitSetCmd() *cobra.Command {
	var key, rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		Long:  "Update a rate limit (e.g. 5-S, 100-M, 1000-H). Running servers pick up the http key within a minute.",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, rate, err := database.NormalizeRatelimit(key, rate)
			if err != nil {
				return err
			}
			db, repo, err := openRatelimitRepo()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if err := repo.Set(cmd.Context(), &models.RatelimitConfig{ConfigKey: key, Rate: rate}); err != nil {
				return fmt.Errorf("set ratelimit config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rate limit %s set to %s.\n", key, rate)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", models.RatelimitKeyHTTP, "Rate limit key (http or collaborator)")
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	return cmd
}
