package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEpisode_String(t *testing.T) {
	tests := []struct {
		name    string
		episode Episode
		want    string
	}{
		{
			name:    "title present",
			episode: Episode{Title: "Episode 1", Description: "ignored"},
			want:    "Episode 1",
		},
		{
			name:    "multiline title keeps first line",
			episode: Episode{Title: "X\nY"},
			want:    "X",
		},
		{
			name:    "no title falls back to first line of description",
			episode: Episode{Description: "line one\nline two"},
			want:    "line one",
		},
		{
			name:    "empty everything",
			episode: Episode{},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.episode.String())
		})
	}
}

func TestEpisode_Sentinels(t *testing.T) {
	e := Episode{}
	assert.Equal(t, NoTitle, e.TitleText())
	assert.Equal(t, NoDescription, e.DescriptionText())
	assert.Equal(t, NoLink, e.LinkText())
	assert.Equal(t, NoPubdate, e.PubdateText())
	assert.Equal(t, NoCopyright, e.CopyrightText())
	assert.Equal(t, NoEnclosure, e.EnclosureText())

	e = Episode{Title: "t", Enclosure: "http://x/a.mp3"}
	assert.Equal(t, "t", e.TitleText())
	assert.Equal(t, "http://x/a.mp3", e.EnclosureText())
}

func TestEpisode_PubTime(t *testing.T) {
	e := Episode{Pubdate: "Mon, 02 Jan 2006 15:04:05 -0700"}
	assert.False(t, e.PubTime().IsZero())
	assert.Equal(t, 2006, e.PubTime().Year())

	assert.True(t, (&Episode{}).PubTime().IsZero())
	assert.True(t, (&Episode{Pubdate: "not a date"}).PubTime().IsZero())
}

func TestFeed_IsURL(t *testing.T) {
	assert.True(t, (&Feed{Key: "https://example.com/rss"}).IsURL())
	assert.True(t, (&Feed{Key: "http://example.com/rss"}).IsURL())
	assert.False(t, (&Feed{Key: "/home/user/feed.xml"}).IsURL())
}

func TestItems_Dispatch(t *testing.T) {
	var selected Item
	d := Dispatch{
		KindFeed: func(it Item) error {
			selected = it
			return nil
		},
	}

	feed := FeedItem{Feed: Feed{Key: "k", Title: "T"}, Episodes: 3, Unplayed: 1}
	assert.NoError(t, d.Select(feed))
	assert.Equal(t, feed, selected)

	// No handler registered for episodes; silently ignored.
	assert.NoError(t, d.Select(EpisodeItem{Episode: Episode{Title: "e"}}))
	assert.Equal(t, feed, selected)
}

func TestItems_Rendering(t *testing.T) {
	f := FeedItem{Feed: Feed{Title: "T"}, Episodes: 5, Unplayed: 2}
	assert.Equal(t, "T", f.Label())
	assert.Equal(t, []string{"2/5"}, f.Tags())
	assert.Equal(t, AttrBold, f.Attr())

	played := EpisodeItem{Episode: Episode{Title: "done", Played: true}}
	assert.Equal(t, AttrNormal, played.Attr())
	unplayed := EpisodeItem{Episode: Episode{Title: "new"}, Downloaded: true}
	assert.Equal(t, AttrBold, unplayed.Attr())
	assert.Equal(t, []string{"D"}, unplayed.Tags())

	q := QueueItem{Position: 0, Episode: Episode{Title: "q"}}
	assert.Equal(t, []string{"#1"}, q.Tags())
}
