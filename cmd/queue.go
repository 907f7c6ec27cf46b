package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/killallgit/castero/internal/models"
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the saved playback queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the saved queue in order",
	RunE:  runQueueList,
}

var queueAddCmd = &cobra.Command{
	Use:   "add <episode-id>",
	Short: "Append an episode to the saved queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueAdd,
}

var queueAddFeedCmd = &cobra.Command{
	Use:   "add-feed <key>",
	Short: "Append a feed's episodes to the saved queue",
	Long: `Append every episode of a feed to the saved queue.

With add_only_unplayed_episodes enabled in the config, only unplayed
episodes are appended.`,
	Args: cobra.ExactArgs(1),
	RunE: runQueueAddFeed,
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the saved queue",
	RunE:  runQueueClear,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueAddFeedCmd)
	queueCmd.AddCommand(queueClearCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	episodes, err := env.store.Queue(cmd.Context())
	if err != nil {
		return err
	}
	for i := range episodes {
		item := models.QueueItem{Position: i, Episode: episodes[i]}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", item.Tags()[0], item.Label())
	}
	return nil
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	id, err := parseEpisodeID(args[0])
	if err != nil {
		return err
	}
	episode, err := env.store.Episode(cmd.Context(), id)
	if err != nil {
		return err
	}

	ids, err := queuedIDs(cmd, env)
	if err != nil {
		return err
	}
	if err := env.store.ReplaceQueue(cmd.Context(), append(ids, episode.ID)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", episode.String())
	return nil
}

func runQueueAddFeed(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	feed, err := env.store.Feed(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var episodes []models.Episode
	if env.cfg.AddOnlyUnplayedEpisodes {
		episodes, err = env.store.UnplayedEpisodes(cmd.Context(), feed)
	} else {
		episodes, err = env.store.Episodes(cmd.Context(), feed)
	}
	if err != nil {
		return err
	}

	ids, err := queuedIDs(cmd, env)
	if err != nil {
		return err
	}
	for i := range episodes {
		ids = append(ids, episodes[i].ID)
	}
	if err := env.store.ReplaceQueue(cmd.Context(), ids); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Queued %d episodes from %s\n", len(episodes), feed.String())
	return nil
}

func runQueueClear(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.store.ReplaceQueue(cmd.Context(), nil); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cleared the queue")
	return nil
}

func queuedIDs(cmd *cobra.Command, env *env) ([]int64, error) {
	episodes, err := env.store.Queue(cmd.Context())
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(episodes))
	for i := range episodes {
		ids = append(ids, episodes[i].ID)
	}
	return ids, nil
}
