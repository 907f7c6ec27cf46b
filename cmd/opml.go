package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/killallgit/castero/internal/feeds"
	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/internal/opml"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Subscribe to every feed in an OPML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write subscriptions to an OPML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	urls, err := opml.ImportFile(args[0])
	if err != nil {
		return err
	}

	// Subscribe to each feed, then refresh them all at once.
	var feedList []models.Feed
	for _, u := range urls {
		feedList = append(feedList, models.Feed{Key: u, Title: u})
	}

	fetcher := feeds.NewFetcher(env.cfg, Version)
	reconciler := feeds.NewReconciler(env.store, env.cfg.MaxEpisodes)
	sink := feeds.FuncSink{
		Status: func(status string) {
			fmt.Fprintln(cmd.OutOrStdout(), status)
		},
	}
	engine := feeds.NewEngine(env.store, fetcher, reconciler, sink)
	if err := engine.Reload(cmd.Context(), feedList); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d feeds from %s\n", len(urls), args[0])
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	feedList, err := env.store.Feeds(cmd.Context())
	if err != nil {
		return err
	}
	if err := opml.ExportFile(args[0], feedList); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d feeds to %s\n", len(feedList), args[0])
	return nil
}
