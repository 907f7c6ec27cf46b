package opml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/pkg/errors"
)

func TestImport(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<opml version="1.0">
  <head><title>feeds</title></head>
  <body>
    <outline text="feeds">
      <outline type="rss" text="A" xmlUrl="http://a"/>
      <outline type="rss" text="B" xmlUrl="http://b"/>
    </outline>
  </body>
</opml>`

	keys, err := Import(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, keys)
}

func TestImport_Failures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code errors.ErrorCode
	}{
		{
			name: "not xml",
			doc:  "garbage <",
			code: errors.ErrCodeSubscriptionsParse,
		},
		{
			name: "wrong root element",
			doc:  `<rss version="2.0"><body><outline text="feeds"/></body></rss>`,
			code: errors.ErrCodeSubscriptionsStructure,
		},
		{
			name: "empty body",
			doc:  `<opml version="1.0"><body></body></opml>`,
			code: errors.ErrCodeSubscriptionsStructure,
		},
		{
			name: "child without xmlUrl",
			doc: `<opml version="1.0"><body><outline text="feeds">
				<outline type="rss" text="A"/>
			</outline></body></opml>`,
			code: errors.ErrCodeSubscriptionsStructure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestImportFile_Missing(t *testing.T) {
	_, err := ImportFile("/nonexistent/subscriptions.opml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSubscriptionsLoad))
}

func TestExport_RoundTrip(t *testing.T) {
	feeds := []models.Feed{
		{Key: "http://a", Title: "Feed A"},
		{Key: "http://b", Title: "Feed B"},
		{Key: "/local/feed.xml", Title: "Local"},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, feeds))

	out := buf.String()
	assert.Contains(t, out, `<opml version="1.0">`)
	assert.Contains(t, out, `text="feeds"`)
	assert.Contains(t, out, `type="rss"`)

	keys, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b", "/local/feed.xml"}, keys)
}
