package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/killallgit/castero/internal/feeds"
	"github.com/killallgit/castero/internal/models"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync [key ...]",
	Short: "Refresh subscribed feeds",
	Long: `Refresh feeds from their sources.

Without arguments every subscribed feed is refreshed; with arguments
only the named feeds are. Network feeds download in parallel, local
file feeds afterwards. Failures are counted and reported without
aborting the refresh.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	var feedList []models.Feed
	for _, key := range args {
		feed, err := env.store.Feed(cmd.Context(), key)
		if err != nil {
			return err
		}
		feedList = append(feedList, *feed)
	}

	fetcher := feeds.NewFetcher(env.cfg, Version)
	reconciler := feeds.NewReconciler(env.store, env.cfg.MaxEpisodes)
	sink := feeds.FuncSink{
		Status: func(status string) {
			fmt.Fprintln(cmd.OutOrStdout(), status)
		},
	}
	engine := feeds.NewEngine(env.store, fetcher, reconciler, sink)
	return engine.Reload(cmd.Context(), feedList)
}
