package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/killallgit/castero/internal/downloads"
	"github.com/killallgit/castero/internal/feeds"
	"github.com/killallgit/castero/internal/models"
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Manage downloaded episode media",
}

var downloadAddCmd = &cobra.Command{
	Use:   "add <episode-id> [episode-id ...]",
	Short: "Download episode media for offline playback",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDownloadAdd,
}

var downloadListCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloaded episodes",
	RunE:  runDownloadList,
}

var downloadRemoveCmd = &cobra.Command{
	Use:   "remove <episode-id>",
	Short: "Delete an episode's downloaded media",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownloadRemove,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.AddCommand(downloadAddCmd)
	downloadCmd.AddCommand(downloadListCmd)
	downloadCmd.AddCommand(downloadRemoveCmd)
}

func parseEpisodeID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid episode id %q", arg)
	}
	return id, nil
}

func newManager(cmd *cobra.Command, env *env) *downloads.Manager {
	return downloads.NewManager(env.cfg.DownloadDir(), feeds.UserAgent(Version),
		func(msg string) {
			fmt.Fprintln(cmd.OutOrStdout(), msg)
		})
}

func runDownloadAdd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	manager := newManager(cmd, env)
	for _, arg := range args {
		id, err := parseEpisodeID(arg)
		if err != nil {
			return err
		}
		episode, err := env.store.Episode(cmd.Context(), id)
		if err != nil {
			return err
		}
		feed, err := env.store.Feed(cmd.Context(), episode.FeedKey)
		if err != nil {
			return err
		}
		if err := manager.Enqueue(feed, episode); err != nil {
			return err
		}
	}
	manager.Wait()
	return nil
}

func runDownloadList(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	manager := newManager(cmd, env)
	episodes, err := manager.Downloaded(cmd.Context(), env.store)
	if err != nil {
		return err
	}
	for _, e := range episodes {
		feed, err := env.store.Feed(cmd.Context(), e.FeedKey)
		if err != nil {
			return err
		}
		path, _ := manager.IsDownloaded(feed, e)
		item := models.DownloadedItem{Episode: *e, Path: path}
		fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s\n        %s\n", e.ID, item.Label(), item.Path)
	}
	return nil
}

func runDownloadRemove(cmd *cobra.Command, args []string) error {
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
	feed, err := env.store.Feed(cmd.Context(), episode.FeedKey)
	if err != nil {
		return err
	}

	manager := newManager(cmd, env)
	if err := manager.Delete(feed, episode); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted download for %s\n", episode.String())
	return nil
}
