package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/killallgit/castero/internal/database"
	"github.com/killallgit/castero/internal/store"
	"github.com/killallgit/castero/pkg/config"
	"github.com/killallgit/castero/pkg/errors"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "castero",
	Short: "Podcast client for the terminal",
	Long: `castero - a podcast client for the terminal

Subscribe to RSS feeds, keep them synchronized, queue and play
episodes, and download media for offline listening. Subscriptions can
be exchanged with other clients via OPML.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.UserMessage(err))
		os.Exit(1)
	}
}

// NewRootCmd returns the root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is the XDG config location)")
	rootCmd.PersistentFlags().String("database", "", "database file (default is the XDG data location)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
}

// env bundles the loaded config with an open database and its store.
type env struct {
	cfg   *config.Config
	db    *database.DB
	store store.Store
}

// openEnv loads the config and opens the database per the command's
// persistent flags. Callers must close the returned env.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	dbPath, _ := cmd.Flags().GetString("database")
	if dbPath == "" {
		dbPath = config.DatabasePath()
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	db, err := database.Open(dbPath, !cfg.RestrictMemoryUsage, verbose)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, db: db, store: store.NewRepository(db.DB)}, nil
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		fmt.Fprintln(os.Stderr, errors.UserMessage(err))
	}
}
