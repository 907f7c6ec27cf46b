package models

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Sentinel strings substituted for missing optional fields at read time.
// Parsed rows always store what the document actually carried.
const (
	NoTitle         = "Title not available."
	NoDescription   = "Description not available."
	NoLink          = "Link not available."
	NoPubdate       = "Publish date not available."
	NoCopyright     = "Copyright not available."
	NoEnclosure     = "Enclosure not available."
	NoLastBuildDate = "Last build date not available."
)

// Feed represents a single subscription. The key is either an HTTP(S)
// URL or a local file path, unique and immutable once stored.
type Feed struct {
	Key           string `gorm:"column:key;primaryKey"`
	Title         string `gorm:"column:title"`
	Description   string `gorm:"column:description"`
	Link          string `gorm:"column:link"`
	LastBuildDate string `gorm:"column:last_build_date"`
	Copyright     string `gorm:"column:copyright"`
}

func (Feed) TableName() string { return "feeds" }

// IsURL reports whether the feed key names a remote document.
func (f *Feed) IsURL() bool {
	return strings.HasPrefix(f.Key, "http://") || strings.HasPrefix(f.Key, "https://")
}

func (f *Feed) String() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Key
}

func (f *Feed) DescriptionText() string   { return orSentinel(f.Description, NoDescription) }
func (f *Feed) LinkText() string          { return orSentinel(f.Link, NoLink) }
func (f *Feed) LastBuildDateText() string { return orSentinel(f.LastBuildDate, NoLastBuildDate) }
func (f *Feed) CopyrightText() string     { return orSentinel(f.Copyright, NoCopyright) }

// Episode represents a single item of a feed. Episodes carry only the
// owning feed's key; the back reference to the Feed row is resolved
// through the store at display time.
type Episode struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string `gorm:"column:title"`
	FeedKey     string `gorm:"column:feed_key"`
	Description string `gorm:"column:description"`
	Link        string `gorm:"column:link"`
	Pubdate     string `gorm:"column:pubdate"`
	Copyright   string `gorm:"column:copyright"`
	Enclosure   string `gorm:"column:enclosure"`
	Played      bool   `gorm:"column:played"`

	// Progress is the playback position in milliseconds, merged in
	// from the progress table on read. Zero means not started.
	Progress int64 `gorm:"-"`
}

func (Episode) TableName() string { return "episodes" }

// String returns the episode's display string: the title if present,
// else the first line of the description. Reconciliation matches old
// and new episodes on this value.
func (e *Episode) String() string {
	if e.Title != "" {
		return firstLine(e.Title)
	}
	return firstLine(e.Description)
}

func (e *Episode) TitleText() string       { return orSentinel(e.Title, NoTitle) }
func (e *Episode) DescriptionText() string { return orSentinel(e.Description, NoDescription) }
func (e *Episode) LinkText() string        { return orSentinel(e.Link, NoLink) }
func (e *Episode) PubdateText() string     { return orSentinel(e.Pubdate, NoPubdate) }
func (e *Episode) CopyrightText() string   { return orSentinel(e.Copyright, NoCopyright) }
func (e *Episode) EnclosureText() string   { return orSentinel(e.Enclosure, NoEnclosure) }

// PubTime parses the episode's RFC-822 pubdate. The zero time is
// returned when the field is absent or unparseable, which sorts such
// episodes last in chronological listings.
func (e *Episode) PubTime() time.Time {
	if e.Pubdate == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(e.Pubdate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Progress is the persisted playback position of one episode.
type Progress struct {
	EpID int64 `gorm:"column:ep_id;primaryKey;autoIncrement:false"`
	Time int64 `gorm:"column:time"`
}

func (Progress) TableName() string { return "progress" }

// QueueEntry is one persisted slot of the playback queue.
type QueueEntry struct {
	Position int   `gorm:"column:position;primaryKey;autoIncrement:false"`
	EpID     int64 `gorm:"column:ep_id"`
}

func (QueueEntry) TableName() string { return "queue" }

func orSentinel(s, sentinel string) string {
	if s == "" {
		return sentinel
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
