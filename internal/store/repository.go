package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/killallgit/castero/internal/models"
	apperrors "github.com/killallgit/castero/pkg/errors"
)

// Repository implements Store over a gorm/sqlite handle. The handle's
// single-connection pool serializes concurrent sync workers.
type Repository struct {
	db *gorm.DB
}

var _ Store = (*Repository)(nil)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Feeds(ctx context.Context) ([]models.Feed, error) {
	var feeds []models.Feed
	err := r.withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Self-healing read: a feed without a title is corrupt.
			if err := tx.Where("title IS NULL OR title = ''").Delete(&models.Feed{}).Error; err != nil {
				return fmt.Errorf("deleting corrupt feeds: %w", err)
			}
			return tx.Order("title COLLATE NOCASE").Find(&feeds).Error
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}
	return feeds, nil
}

func (r *Repository) Feed(ctx context.Context, key string) (*models.Feed, error) {
	var feed models.Feed
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&feed).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("feed", key)
		}
		return nil, fmt.Errorf("getting feed: %w", err)
	}
	return &feed, nil
}

func (r *Repository) Episode(ctx context.Context, id int64) (*models.Episode, error) {
	var episode models.Episode
	if err := r.db.WithContext(ctx).First(&episode, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("episode", id)
		}
		return nil, fmt.Errorf("getting episode: %w", err)
	}
	if err := r.mergeProgress(ctx, []*models.Episode{&episode}); err != nil {
		return nil, err
	}
	return &episode, nil
}

func (r *Repository) Episodes(ctx context.Context, feed *models.Feed) ([]models.Episode, error) {
	return r.episodes(ctx, feed, false)
}

func (r *Repository) UnplayedEpisodes(ctx context.Context, feed *models.Feed) ([]models.Episode, error) {
	return r.episodes(ctx, feed, true)
}

func (r *Repository) episodes(ctx context.Context, feed *models.Feed, unplayedOnly bool) ([]models.Episode, error) {
	query := r.db.WithContext(ctx).Model(&models.Episode{})
	if feed != nil {
		query = query.Where("feed_key = ?", feed.Key)
	}
	if unplayedOnly {
		query = query.Where("played = ?", false)
	}

	var episodes []models.Episode
	if err := query.Order("id").Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("listing episodes: %w", err)
	}

	refs := make([]*models.Episode, len(episodes))
	for i := range episodes {
		refs[i] = &episodes[i]
	}
	if err := r.mergeProgress(ctx, refs); err != nil {
		return nil, err
	}
	return episodes, nil
}

// mergeProgress fills the in-memory Progress field from the progress
// table for each passed episode.
func (r *Repository) mergeProgress(ctx context.Context, episodes []*models.Episode) error {
	if len(episodes) == 0 {
		return nil
	}
	ids := make([]int64, len(episodes))
	for i, e := range episodes {
		ids[i] = e.ID
	}

	var rows []models.Progress
	if err := r.db.WithContext(ctx).Where("ep_id IN ?", ids).Find(&rows).Error; err != nil {
		return fmt.Errorf("reading progress: %w", err)
	}
	byID := make(map[int64]int64, len(rows))
	for _, p := range rows {
		byID[p.EpID] = p.Time
	}
	for _, e := range episodes {
		e.Progress = byID[e.ID]
	}
	return nil
}

func (r *Repository) ReplaceFeed(ctx context.Context, feed *models.Feed) error {
	err := r.withRetry(func() error {
		return r.db.WithContext(ctx).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(feed).Error
	})
	if err != nil {
		return fmt.Errorf("replacing feed: %w", err)
	}
	return nil
}

func (r *Repository) ReplaceEpisode(ctx context.Context, feed *models.Feed, episode *models.Episode) error {
	return r.ReplaceEpisodes(ctx, feed, []*models.Episode{episode})
}

func (r *Repository) ReplaceEpisodes(ctx context.Context, feed *models.Feed, episodes []*models.Episode) error {
	if len(episodes) == 0 {
		return nil
	}

	// Partition into rows that already have a persistence identity and
	// rows that need one allocated.
	var existing, fresh []*models.Episode
	for _, e := range episodes {
		e.FeedKey = feed.Key
		if e.ID != 0 {
			existing = append(existing, e)
		} else {
			fresh = append(fresh, e)
		}
	}

	err := r.withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if len(existing) > 0 {
				if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(existing).Error; err != nil {
					return fmt.Errorf("updating episodes: %w", err)
				}
			}
			if len(fresh) > 0 {
				// Create assigns the new ids back onto the passed values.
				if err := tx.Create(fresh).Error; err != nil {
					return fmt.Errorf("inserting episodes: %w", err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("replacing episodes: %w", err)
	}
	return nil
}

func (r *Repository) DeleteFeed(ctx context.Context, feed *models.Feed) error {
	err := r.withRetry(func() error {
		// Episodes, progress, and queue rows go with the cascade.
		return r.db.WithContext(ctx).Where("key = ?", feed.Key).Delete(&models.Feed{}).Error
	})
	if err != nil {
		return fmt.Errorf("deleting feed: %w", err)
	}
	return nil
}

func (r *Repository) ReplaceQueue(ctx context.Context, episodeIDs []int64) error {
	err := r.withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("DELETE FROM queue").Error; err != nil {
				return fmt.Errorf("clearing queue: %w", err)
			}
			position := 0
			for _, id := range episodeIDs {
				var exists int64
				if err := tx.Model(&models.Episode{}).Where("id = ?", id).Count(&exists).Error; err != nil {
					return fmt.Errorf("checking episode %d: %w", id, err)
				}
				if exists == 0 {
					continue
				}
				entry := models.QueueEntry{Position: position, EpID: id}
				if err := tx.Create(&entry).Error; err != nil {
					return fmt.Errorf("saving queue entry %d: %w", position, err)
				}
				position++
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("replacing queue: %w", err)
	}
	return nil
}

func (r *Repository) Queue(ctx context.Context) ([]models.Episode, error) {
	var entries []models.QueueEntry
	if err := r.db.WithContext(ctx).Order("position").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("reading queue: %w", err)
	}

	episodes := make([]models.Episode, 0, len(entries))
	for _, entry := range entries {
		episode, err := r.Episode(ctx, entry.EpID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrCodeNotFound) {
				continue
			}
			return nil, err
		}
		episodes = append(episodes, *episode)
	}
	return episodes, nil
}

func (r *Repository) ReplaceProgress(ctx context.Context, episode *models.Episode, timeMS int64) error {
	err := r.withRetry(func() error {
		row := models.Progress{EpID: episode.ID, Time: timeMS}
		return r.db.WithContext(ctx).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("replacing progress: %w", err)
	}
	episode.Progress = timeMS
	return nil
}

func (r *Repository) DeleteProgress(ctx context.Context, episode *models.Episode) error {
	err := r.withRetry(func() error {
		return r.db.WithContext(ctx).Where("ep_id = ?", episode.ID).Delete(&models.Progress{}).Error
	})
	if err != nil {
		return fmt.Errorf("deleting progress: %w", err)
	}
	episode.Progress = 0
	return nil
}

// withRetry retries a busy store exactly once before surfacing the
// error as STORE_BUSY.
func (r *Repository) withRetry(fn func() error) error {
	err := fn()
	if err == nil || !isBusy(err) {
		return err
	}
	if err = fn(); err == nil {
		return nil
	}
	if isBusy(err) {
		return apperrors.Wrap(err, apperrors.ErrCodeStoreBusy, "store is busy")
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
