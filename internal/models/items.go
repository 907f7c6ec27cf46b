package models

import "fmt"

// Kind discriminates the menu item variants.
type Kind int

const (
	KindFeed Kind = iota
	KindEpisode
	KindQueue
	KindDownloaded
	KindChrono
)

// Attr is a rendering hint for the UI layer.
type Attr int

const (
	AttrNormal Attr = iota
	AttrBold
	AttrDim
)

// Item is the common rendering capability shared by all menu entries.
// The UI renders Label with Attr and appends Tags; it never inspects
// the concrete variant.
type Item interface {
	Kind() Kind
	Label() string
	Tags() []string
	Attr() Attr
}

// FeedItem is a feed row in the feeds menu.
type FeedItem struct {
	Feed     Feed
	Episodes int
	Unplayed int
}

func (i FeedItem) Kind() Kind    { return KindFeed }
func (i FeedItem) Label() string { return i.Feed.String() }

func (i FeedItem) Tags() []string {
	return []string{fmt.Sprintf("%d/%d", i.Unplayed, i.Episodes)}
}

func (i FeedItem) Attr() Attr {
	if i.Unplayed > 0 {
		return AttrBold
	}
	return AttrNormal
}

// EpisodeItem is an episode row in a feed's episode menu.
type EpisodeItem struct {
	Episode    Episode
	Downloaded bool
}

func (i EpisodeItem) Kind() Kind    { return KindEpisode }
func (i EpisodeItem) Label() string { return i.Episode.String() }

func (i EpisodeItem) Tags() []string {
	var tags []string
	if i.Downloaded {
		tags = append(tags, "D")
	}
	return tags
}

func (i EpisodeItem) Attr() Attr {
	if !i.Episode.Played {
		return AttrBold
	}
	return AttrNormal
}

// QueueItem is a positional row of the queue menu.
type QueueItem struct {
	Position int
	Episode  Episode
}

func (i QueueItem) Kind() Kind     { return KindQueue }
func (i QueueItem) Label() string  { return i.Episode.String() }
func (i QueueItem) Tags() []string { return []string{fmt.Sprintf("#%d", i.Position+1)} }
func (i QueueItem) Attr() Attr     { return AttrNormal }

// DownloadedItem is an on-disk episode row.
type DownloadedItem struct {
	Episode Episode
	Path    string
}

func (i DownloadedItem) Kind() Kind     { return KindDownloaded }
func (i DownloadedItem) Label() string  { return i.Episode.String() }
func (i DownloadedItem) Tags() []string { return []string{"D"} }
func (i DownloadedItem) Attr() Attr     { return AttrNormal }

// ChronoItem is an episode row in the cross-feed chronological menu.
type ChronoItem struct {
	Episode   Episode
	FeedTitle string
}

func (i ChronoItem) Kind() Kind     { return KindChrono }
func (i ChronoItem) Label() string  { return i.Episode.String() }
func (i ChronoItem) Tags() []string { return []string{i.FeedTitle} }

func (i ChronoItem) Attr() Attr {
	if !i.Episode.Played {
		return AttrBold
	}
	return AttrNormal
}

// SelectFunc handles the selection of a single menu item.
type SelectFunc func(Item) error

// Dispatch routes selection actions by item kind.
type Dispatch map[Kind]SelectFunc

// Select invokes the handler registered for the item's kind. Items
// with no registered handler are ignored.
func (d Dispatch) Select(it Item) error {
	if fn, ok := d[it.Kind()]; ok {
		return fn(it)
	}
	return nil
}
