package feeds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/castero/pkg/errors"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Feed Title</title>
    <link>https://example.com</link>
    <description>Feed description</description>
    <lastBuildDate>Mon, 02 Jan 2006 15:04:05 -0700</lastBuildDate>
    <copyright>someone</copyright>
    <item>
      <title>Episode 1</title>
      <description>first</description>
      <link>https://example.com/1</link>
      <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
      <enclosure url="https://example.com/1.mp3" type="audio/mpeg" length="1024"/>
    </item>
    <item>
      <description>no title here</description>
    </item>
  </channel>
</rss>`

func TestParse_ValidDocument(t *testing.T) {
	parsed, err := Parse(strings.NewReader(sampleRSS), "https://example.com/rss")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/rss", parsed.Feed.Key)
	assert.Equal(t, "Feed Title", parsed.Feed.Title)
	assert.Equal(t, "Feed description", parsed.Feed.Description)
	assert.Equal(t, "https://example.com", parsed.Feed.Link)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 -0700", parsed.Feed.LastBuildDate)
	assert.Equal(t, "someone", parsed.Feed.Copyright)

	require.Len(t, parsed.Episodes, 2)
	first := parsed.Episodes[0]
	assert.Equal(t, "Episode 1", first.Title)
	assert.Equal(t, "first", first.Description)
	assert.Equal(t, "https://example.com/1.mp3", first.Enclosure)
	assert.Equal(t, "https://example.com/rss", first.FeedKey)

	// Missing fields are stored empty; sentinels appear at read time.
	second := parsed.Episodes[1]
	assert.Empty(t, second.Title)
	assert.Equal(t, "no title here", second.String())
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code errors.ErrorCode
	}{
		{
			name: "not xml",
			doc:  "this is not xml <",
			code: errors.ErrCodeFeedParse,
		},
		{
			name: "root not rss",
			doc:  `<feed version="2.0"><channel><title>t</title><link>l</link><description>d</description></channel></feed>`,
			code: errors.ErrCodeFeedStructure,
		},
		{
			name: "wrong version",
			doc:  `<rss version="1.0"><channel><title>t</title><link>l</link><description>d</description></channel></rss>`,
			code: errors.ErrCodeFeedStructure,
		},
		{
			name: "missing version",
			doc:  `<rss><channel><title>t</title><link>l</link><description>d</description></channel></rss>`,
			code: errors.ErrCodeFeedStructure,
		},
		{
			name: "no channel",
			doc:  `<rss version="2.0"></rss>`,
			code: errors.ErrCodeFeedStructure,
		},
		{
			name: "two channels",
			doc: `<rss version="2.0">
				<channel><title>t</title><link>l</link><description>d</description></channel>
				<channel><title>t</title><link>l</link><description>d</description></channel>
			</rss>`,
			code: errors.ErrCodeFeedStructure,
		},
		{
			name: "channel missing description",
			doc:  `<rss version="2.0"><channel><title>t</title><link>l</link></channel></rss>`,
			code: errors.ErrCodeFeedStructure,
		},
		{
			name: "channel with duplicate title",
			doc:  `<rss version="2.0"><channel><title>t</title><title>t2</title><link>l</link><description>d</description></channel></rss>`,
			code: errors.ErrCodeFeedStructure,
		},
		{
			name: "item with neither title nor description",
			doc: `<rss version="2.0"><channel><title>t</title><link>l</link><description>d</description>
				<item><link>only a link</link></item>
			</channel></rss>`,
			code: errors.ErrCodeFeedStructure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc), "key")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRSS), 0644))

	parsed, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, parsed.Feed.Key)
	assert.Len(t, parsed.Episodes, 2)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.xml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeFeedLoad))
}
