package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/killallgit/castero/internal/downloads"
	"github.com/killallgit/castero/internal/feeds"
	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/internal/player"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play [episode-id ...]",
	Short: "Play episodes",
	Long: `Play episodes through the detected media backend.

Without arguments the saved queue is restored and played from its
head. Downloaded media is preferred over streaming. Playback position
is recorded continuously so a later session resumes where this one
stopped; a finished episode is marked played and the queue advances.
Interrupt with Ctrl-C to stop and save state.`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	factory, backend, err := player.Detect()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Using %s backend\n", backend)

	manager := downloads.NewManager(env.cfg.DownloadDir(), feeds.UserAgent(Version), nil)
	queue := player.NewQueue(env.cfg.SeekDistance)

	if len(args) == 0 {
		resolve := func(e *models.Episode) string {
			if feed, err := env.store.Feed(cmd.Context(), e.FeedKey); err == nil {
				if path, ok := manager.IsDownloaded(feed, e); ok {
					return path
				}
			}
			return e.Enclosure
		}
		if err := queue.Restore(cmd.Context(), env.store, factory, resolve); err != nil {
			return err
		}
	} else {
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
			source := episode.Enclosure
			if path, ok := manager.IsDownloaded(feed, episode); ok {
				source = path
			}
			queue.Add(factory(episode.String(), source, episode))
		}
	}

	if queue.Length() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to play")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := player.NewTracker(env.store, queue, player.DefaultTrackInterval)
	tracker.Start(ctx)

	if err := queue.Play(); err != nil {
		return err
	}

	// Resume from any recorded position.
	if p := queue.First(); p != nil {
		if e := p.Episode(); e != nil && e.Progress > 0 {
			_ = p.SeekBy(1, int(e.Progress/1000))
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			tracker.Stop(cmd.Context())
			_ = queue.Stop()
			if err := queue.Save(cmd.Context(), env.store); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
			return nil
		case <-ticker.C:
			current := queue.First()
			if current == nil {
				tracker.Stop(cmd.Context())
				return env.store.ReplaceQueue(cmd.Context(), nil)
			}
			if dur := current.Duration(); dur > 0 && current.Position() >= dur {
				// Finished: mark played, clear progress, advance.
				if e := current.Episode(); e != nil {
					e.Played = true
					feed, err := env.store.Feed(ctx, e.FeedKey)
					if err == nil {
						_ = env.store.ReplaceEpisode(ctx, feed, e)
					}
					_ = env.store.DeleteProgress(ctx, e)
				}
				queue.Update()
			}
			if p := queue.First(); p != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\r%s  %s", p.Title(), p.TimeStr())
			}
		}
	}
}
