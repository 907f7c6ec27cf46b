package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/killallgit/castero/internal/feeds"
	"github.com/killallgit/castero/internal/models"
)

// feedsCmd represents the feeds command
var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Manage feed subscriptions",
}

var feedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribed feeds",
	RunE:  runFeedsList,
}

var feedsAddCmd = &cobra.Command{
	Use:   "add <url-or-path>",
	Short: "Subscribe to a feed by URL or local file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedsAdd,
}

var feedsRemoveCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Unsubscribe from a feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedsRemove,
}

var feedsEpisodesCmd = &cobra.Command{
	Use:   "episodes [key]",
	Short: "List episodes, newest first across all feeds by default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFeedsEpisodes,
}

func init() {
	rootCmd.AddCommand(feedsCmd)
	feedsCmd.AddCommand(feedsListCmd)
	feedsCmd.AddCommand(feedsAddCmd)
	feedsCmd.AddCommand(feedsRemoveCmd)
	feedsCmd.AddCommand(feedsEpisodesCmd)
}

func runFeedsList(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	list, err := env.store.Feeds(cmd.Context())
	if err != nil {
		return err
	}
	for i := range list {
		feed := &list[i]
		episodes, err := env.store.Episodes(cmd.Context(), feed)
		if err != nil {
			return err
		}
		unplayed, err := env.store.UnplayedEpisodes(cmd.Context(), feed)
		if err != nil {
			return err
		}
		item := models.FeedItem{Feed: list[i], Episodes: len(episodes), Unplayed: len(unplayed)}
		fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\n    %s\n",
			item.Label(), item.Tags()[0], feed.Key)
	}
	return nil
}

func runFeedsAdd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	key := args[0]
	var parsed *feeds.ParsedFeed
	if (&models.Feed{Key: key}).IsURL() {
		fetcher := feeds.NewFetcher(env.cfg, Version)
		resp, err := fetcher.Fetch(cmd.Context(), key)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		parsed, err = feeds.Parse(resp.Body, key)
		if err != nil {
			return err
		}
	} else {
		parsed, err = feeds.ParseFile(key)
		if err != nil {
			return err
		}
	}

	reconciler := feeds.NewReconciler(env.store, env.cfg.MaxEpisodes)
	if err := reconciler.Reconcile(cmd.Context(), &parsed.Feed, parsed); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added feed %s with %d episodes\n",
		parsed.Feed.String(), len(parsed.Episodes))
	return nil
}

func runFeedsRemove(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	feed, err := env.store.Feed(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := env.store.DeleteFeed(cmd.Context(), feed); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed feed %s\n", feed.String())
	return nil
}

func runFeedsEpisodes(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	var feed *models.Feed
	if len(args) == 1 {
		feed, err = env.store.Feed(cmd.Context(), args[0])
		if err != nil {
			return err
		}
	}

	episodes, err := env.store.Episodes(cmd.Context(), feed)
	if err != nil {
		return err
	}

	if feed == nil {
		// Chronological view across all feeds, newest first. Episodes
		// without a parseable pubdate sort last.
		allFeeds, err := env.store.Feeds(cmd.Context())
		if err != nil {
			return err
		}
		titles := make(map[string]string, len(allFeeds))
		for _, f := range allFeeds {
			titles[f.Key] = f.String()
		}
		sort.SliceStable(episodes, func(i, j int) bool {
			return episodes[i].PubTime().After(episodes[j].PubTime())
		})
		for i := range episodes {
			item := models.ChronoItem{Episode: episodes[i], FeedTitle: titles[episodes[i].FeedKey]}
			fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s [%s]\n",
				episodes[i].ID, item.Label(), item.Tags()[0])
		}
		return nil
	}

	for i := range episodes {
		item := models.EpisodeItem{Episode: episodes[i]}
		fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s\n", episodes[i].ID, item.Label())
	}
	return nil
}
