package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/killallgit/castero/internal/models"
)

// legacyFeed is one entry of the pre-database JSON datafile: a map of
// feed key to feed metadata with the episodes nested inside.
type legacyFeed struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Link          string          `json:"link"`
	LastBuildDate string          `json:"last_build_date"`
	Copyright     string          `json:"copyright"`
	Episodes      []legacyEpisode `json:"episodes"`
}

type legacyEpisode struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Pubdate     string `json:"pubdate"`
	Copyright   string `json:"copyright"`
	Enclosure   string `json:"enclosure"`
}

// importLegacy bulk-inserts the legacy JSON datafile, if one exists,
// into the freshly created database. The datafile lives next to the
// database in the data dir.
func (db *DB) importLegacy() error {
	return ImportLegacyFile(db, filepath.Join(filepath.Dir(db.path), "castero.json"))
}

// ImportLegacyFile reads a legacy JSON datafile and bulk-inserts its
// feeds and episodes. A missing file is not an error.
func ImportLegacyFile(db *DB, path string) error {
	body, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading legacy datafile: %w", err)
	}

	var data map[string]legacyFeed
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("parsing legacy datafile: %w", err)
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		lf := data[key]
		feed := models.Feed{
			Key:           key,
			Title:         lf.Title,
			Description:   lf.Description,
			Link:          lf.Link,
			LastBuildDate: lf.LastBuildDate,
			Copyright:     lf.Copyright,
		}
		if err := db.Create(&feed).Error; err != nil {
			return fmt.Errorf("importing legacy feed %s: %w", key, err)
		}

		if len(lf.Episodes) == 0 {
			continue
		}
		episodes := make([]models.Episode, len(lf.Episodes))
		for i, le := range lf.Episodes {
			episodes[i] = models.Episode{
				Title:       le.Title,
				FeedKey:     key,
				Description: le.Description,
				Link:        le.Link,
				Pubdate:     le.Pubdate,
				Copyright:   le.Copyright,
				Enclosure:   le.Enclosure,
			}
		}
		if err := db.CreateInBatches(episodes, copyBatchSize).Error; err != nil {
			return fmt.Errorf("importing legacy episodes for %s: %w", key, err)
		}
	}
	return nil
}
