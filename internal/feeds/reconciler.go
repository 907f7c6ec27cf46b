package feeds

import (
	"context"
	"fmt"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/internal/store"
)

// Reconciler persists a freshly parsed feed while carrying forward the
// user-visible metadata of the previously stored version. Matching is
// by display string; only a unique match preserves anything.
type Reconciler struct {
	store       store.Store
	maxEpisodes int
}

// NewReconciler builds a reconciler. maxEpisodes caps the parsed
// episode list by truncation; -1 means unbounded.
func NewReconciler(s store.Store, maxEpisodes int) *Reconciler {
	return &Reconciler{store: s, maxEpisodes: maxEpisodes}
}

// Reconcile replaces oldFeed's persisted state with parsed. Every new
// episode whose display string uniquely matches an old one keeps the
// old id and played flag; nonzero progress is captured and written
// back after the new rows are persisted. On any error the old rows
// are untouched.
func (r *Reconciler) Reconcile(ctx context.Context, oldFeed *models.Feed, parsed *ParsedFeed) error {
	oldEpisodes, err := r.store.Episodes(ctx, oldFeed)
	if err != nil {
		return fmt.Errorf("reading old episodes: %w", err)
	}

	// Index old episodes by display string; non-unique strings shadow
	// each other and preserve nothing.
	byDisplay := make(map[string][]*models.Episode)
	for i := range oldEpisodes {
		key := oldEpisodes[i].String()
		byDisplay[key] = append(byDisplay[key], &oldEpisodes[i])
	}

	progressByDisplay := make(map[string]int64)
	for _, episode := range parsed.Episodes {
		matches := byDisplay[episode.String()]
		if len(matches) != 1 {
			continue
		}
		old := matches[0]
		episode.ID = old.ID
		episode.Played = old.Played
		if old.Progress > 0 {
			progressByDisplay[episode.String()] = old.Progress
		}
	}

	episodes := parsed.Episodes
	if r.maxEpisodes >= 0 && len(episodes) > r.maxEpisodes {
		episodes = episodes[:r.maxEpisodes]
	}

	if err := r.store.ReplaceFeed(ctx, &parsed.Feed); err != nil {
		return fmt.Errorf("persisting feed: %w", err)
	}
	if err := r.store.ReplaceEpisodes(ctx, &parsed.Feed, episodes); err != nil {
		return fmt.Errorf("persisting episodes: %w", err)
	}

	if len(progressByDisplay) == 0 {
		return nil
	}

	persisted, err := r.store.Episodes(ctx, &parsed.Feed)
	if err != nil {
		return fmt.Errorf("re-reading episodes: %w", err)
	}
	for i := range persisted {
		if t, ok := progressByDisplay[persisted[i].String()]; ok {
			if err := r.store.ReplaceProgress(ctx, &persisted[i], t); err != nil {
				return fmt.Errorf("restoring progress: %w", err)
			}
		}
	}
	return nil
}
