package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/killallgit/castero/internal/models"
)

const copyBatchSize = 500

// copyData copies every row from src into dst, parents before
// children so foreign keys hold throughout. Episode ids are carried
// verbatim; both sides must already be at the same schema version.
func copyData(src, dst *gorm.DB) error {
	var feeds []models.Feed
	if err := src.Find(&feeds).Error; err != nil {
		return fmt.Errorf("reading feeds: %w", err)
	}
	if len(feeds) > 0 {
		if err := dst.CreateInBatches(feeds, copyBatchSize).Error; err != nil {
			return fmt.Errorf("writing feeds: %w", err)
		}
	}

	var episodes []models.Episode
	if err := src.Find(&episodes).Error; err != nil {
		return fmt.Errorf("reading episodes: %w", err)
	}
	if len(episodes) > 0 {
		if err := dst.CreateInBatches(episodes, copyBatchSize).Error; err != nil {
			return fmt.Errorf("writing episodes: %w", err)
		}
	}

	var progresses []models.Progress
	if err := src.Find(&progresses).Error; err != nil {
		return fmt.Errorf("reading progress: %w", err)
	}
	if len(progresses) > 0 {
		if err := dst.CreateInBatches(progresses, copyBatchSize).Error; err != nil {
			return fmt.Errorf("writing progress: %w", err)
		}
	}

	var entries []models.QueueEntry
	if err := src.Find(&entries).Error; err != nil {
		return fmt.Errorf("reading queue: %w", err)
	}
	if len(entries) > 0 {
		if err := dst.CreateInBatches(entries, copyBatchSize).Error; err != nil {
			return fmt.Errorf("writing queue: %w", err)
		}
	}

	return nil
}
