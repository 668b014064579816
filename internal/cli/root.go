// Package cli implements wardenctl, the operator tool for schema migrations,
// superuser bootstrap, account unlock and security-record pruning.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

// Runner performs the operations behind each command.
type Runner interface {
	Migrate(ctx context.Context, command string, args ...string) error
	CreateSuperuser(ctx context.Context, email, password string) (bool, error)
	Unlock(ctx context.Context, email string) error
	Prune(ctx context.Context) (map[string]int64, error)
}

// NewRootCommand builds the command tree around runner.
func NewRootCommand(runner Runner, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "wardenctl",
		Short: "Operate a Warden identity service",
		Long: `wardenctl manages the database behind a Warden deployment.

It reads the same environment (or .env file) as the API server.

  wardenctl migrate up                     Apply pending migrations
  wardenctl create-superuser --email X     Ensure a superuser exists
  wardenctl unlock user@example.com        Clear a login lockout
  wardenctl prune                          Delete stale tokens and devices`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		newMigrateCommand(runner),
		newCreateSuperuserCommand(runner),
		newUnlockCommand(runner),
		newPruneCommand(runner),
	)
	return root
}

func newMigrateCommand(runner Runner) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <up|down|status|version|redo|reset|up-to|down-to> [version]",
		Short:     "Run goose migrations against the configured database",
		ValidArgs: []string{"up", "down", "status", "version", "redo", "reset", "up-to", "down-to"},
		Args:      cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runner.Migrate(cmd.Context(), args[0], args[1:]...); err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			return nil
		},
	}
}

func newCreateSuperuserCommand(runner Runner) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create the superuser unless the email already exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("FIRST_SUPERUSER_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("a password is required (--password or FIRST_SUPERUSER_PASSWORD)")
			}

			created, err := runner.CreateSuperuser(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("creating superuser: %w", err)
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "superuser %s created\n", email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists, nothing to do\n", email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "superuser email")
	cmd.Flags().StringVar(&password, "password", "", "superuser password (defaults to FIRST_SUPERUSER_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUnlockCommand(runner Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <email>",
		Short: "Clear failed-login counters and lockout for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runner.Unlock(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("unlocking %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s unlocked\n", args[0])
			return nil
		},
	}
}

func newPruneCommand(runner Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired refresh tokens, revoked JTIs, trusted devices and verification tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := runner.Prune(cmd.Context())
			if err != nil {
				return fmt.Errorf("pruning: %w", err)
			}

			names := make([]string, 0, len(deleted))
			for name := range deleted {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %d\n", name, deleted[name])
			}
			return nil
		},
	}
}
