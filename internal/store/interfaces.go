package store

import (
	"context"

	"github.com/killallgit/castero/internal/models"
)

// Store is the persistence surface for feeds, episodes, playback
// progress, and the saved queue. Every call commits before returning.
// Feeds and episodes handed out are detached values; mutations re-enter
// through the Replace operations.
type Store interface {
	// Feeds returns all feeds ordered case-insensitively by title.
	// Feeds with an empty title are considered corrupt and are deleted
	// in the same call.
	Feeds(ctx context.Context) ([]models.Feed, error)

	// Feed and Episode are point lookups; absence is a NOT_FOUND error.
	Feed(ctx context.Context, key string) (*models.Feed, error)
	Episode(ctx context.Context, id int64) (*models.Episode, error)

	// Episodes returns all episodes, optionally restricted to one
	// feed, with playback progress merged in.
	Episodes(ctx context.Context, feed *models.Feed) ([]models.Episode, error)
	UnplayedEpisodes(ctx context.Context, feed *models.Feed) ([]models.Episode, error)

	ReplaceFeed(ctx context.Context, feed *models.Feed) error
	ReplaceEpisode(ctx context.Context, feed *models.Feed, episode *models.Episode) error

	// ReplaceEpisodes bulk-upserts; episodes without an id receive
	// their newly allocated id on the passed values.
	ReplaceEpisodes(ctx context.Context, feed *models.Feed, episodes []*models.Episode) error

	DeleteFeed(ctx context.Context, feed *models.Feed) error

	// ReplaceQueue clears and rewrites the saved queue in order,
	// dropping ids whose episode no longer exists.
	ReplaceQueue(ctx context.Context, episodeIDs []int64) error

	// Queue returns episodes in queue order, duplicates preserved.
	Queue(ctx context.Context) ([]models.Episode, error)

	ReplaceProgress(ctx context.Context, episode *models.Episode, timeMS int64) error
	DeleteProgress(ctx context.Context, episode *models.Episode) error
}
