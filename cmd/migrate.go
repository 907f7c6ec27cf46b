package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/killallgit/castero/internal/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long: `Manage the database schema.

Migrations are applied automatically when any command opens the
database; these subcommands make the process explicit:
  up      - Apply all pending migrations
  status  - Show current schema version`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current schema version",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	version, err := database.SchemaVersion(env.db.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Database is at schema version %d\n", version)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	version, err := database.SchemaVersion(env.db.DB)
	if err != nil {
		return err
	}
	latest, err := database.LatestVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d\n", version)
	fmt.Fprintf(cmd.OutOrStdout(), "Latest version:  %d\n", latest)
	if version < latest {
		fmt.Fprintln(cmd.OutOrStdout(), "Pending migrations will be applied on next open")
	}
	return nil
}
