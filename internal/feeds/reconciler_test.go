package feeds

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/castero/internal/database"
	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "castero.db"), false, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewRepository(db.DB)
}

func seedReconcilerFeed(t *testing.T, s store.Store, titles ...string) (*models.Feed, []*models.Episode) {
	t.Helper()
	ctx := context.Background()
	feed := &models.Feed{Key: "https://example.com/rss", Title: "T"}
	require.NoError(t, s.ReplaceFeed(ctx, feed))

	episodes := make([]*models.Episode, len(titles))
	for i, title := range titles {
		episodes[i] = &models.Episode{Title: title}
	}
	require.NoError(t, s.ReplaceEpisodes(ctx, feed, episodes))
	return feed, episodes
}

func parsedWith(feed models.Feed, titles ...string) *ParsedFeed {
	parsed := &ParsedFeed{Feed: feed}
	for _, title := range titles {
		parsed.Episodes = append(parsed.Episodes, &models.Episode{Title: title, FeedKey: feed.Key})
	}
	return parsed
}

func TestReconcile_PreservesPlayedOnUniqueMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	feed, episodes := seedReconcilerFeed(t, s, "e1", "e2")
	episodes[0].Played = true
	require.NoError(t, s.ReplaceEpisode(ctx, feed, episodes[0]))

	rec := NewReconciler(s, -1)
	require.NoError(t, rec.Reconcile(ctx, feed, parsedWith(*feed, "e1", "e2", "e3")))

	all, err := s.Episodes(ctx, feed)
	require.NoError(t, err)
	require.Len(t, all, 3)

	byTitle := map[string]models.Episode{}
	for _, e := range all {
		byTitle[e.Title] = e
	}
	assert.True(t, byTitle["e1"].Played)
	assert.False(t, byTitle["e2"].Played)
	assert.False(t, byTitle["e3"].Played)

	// Matched episodes keep their id; the unmatched one got a new one.
	assert.Equal(t, episodes[0].ID, byTitle["e1"].ID)
	assert.Equal(t, episodes[1].ID, byTitle["e2"].ID)
	assert.NotZero(t, byTitle["e3"].ID)
}

func TestReconcile_PreservesNonzeroProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	feed, episodes := seedReconcilerFeed(t, s, "e1")
	require.NoError(t, s.ReplaceProgress(ctx, episodes[0], 1000))

	rec := NewReconciler(s, -1)
	require.NoError(t, rec.Reconcile(ctx, feed, parsedWith(*feed, "e1")))

	got, err := s.Episode(ctx, episodes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Progress)
}

func TestReconcile_ZeroProgressNotCarried(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	feed, episodes := seedReconcilerFeed(t, s, "e1")
	require.NoError(t, s.ReplaceProgress(ctx, episodes[0], 0))

	rec := NewReconciler(s, -1)
	require.NoError(t, rec.Reconcile(ctx, feed, parsedWith(*feed, "e1")))

	got, err := s.Episode(ctx, episodes[0].ID)
	require.NoError(t, err)
	assert.Zero(t, got.Progress)
}

func TestReconcile_AmbiguousMatchPreservesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Two old episodes share a display string.
	feed, episodes := seedReconcilerFeed(t, s, "dup", "dup")
	episodes[0].Played = true
	require.NoError(t, s.ReplaceEpisode(ctx, feed, episodes[0]))

	rec := NewReconciler(s, -1)
	require.NoError(t, rec.Reconcile(ctx, feed, parsedWith(*feed, "dup")))

	all, err := s.Episodes(ctx, feed)
	require.NoError(t, err)
	// The new episode matched neither old row uniquely; it was
	// inserted fresh and unplayed.
	var fresh *models.Episode
	for i := range all {
		if all[i].ID != episodes[0].ID && all[i].ID != episodes[1].ID {
			fresh = &all[i]
		}
	}
	require.NotNil(t, fresh)
	assert.False(t, fresh.Played)
}

func TestReconcile_MaxEpisodesCap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	feed := &models.Feed{Key: "https://example.com/rss", Title: "T"}
	require.NoError(t, s.ReplaceFeed(ctx, feed))

	rec := NewReconciler(s, 2)
	require.NoError(t, rec.Reconcile(ctx, feed, parsedWith(*feed, "e1", "e2", "e3", "e4")))

	all, err := s.Episodes(ctx, feed)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// -1 leaves the list unbounded.
	rec = NewReconciler(s, -1)
	require.NoError(t, rec.Reconcile(ctx, feed, parsedWith(*feed, "a1", "a2", "a3", "a4", "a5")))
	all, err = s.Episodes(ctx, feed)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 5)
}

func TestReconcile_UpdatesFeedMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	feed, _ := seedReconcilerFeed(t, s, "e1")
	updated := *feed
	updated.Title = "New Title"
	updated.Description = "fresh"

	rec := NewReconciler(s, -1)
	require.NoError(t, rec.Reconcile(ctx, feed, parsedWith(updated, "e1")))

	got, err := s.Feed(ctx, feed.Key)
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, "fresh", got.Description)
}
