package feeds

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/pkg/errors"
)

// ParsedFeed is the outcome of parsing one RSS document: the feed
// metadata keyed by its source, plus the episode list in document
// order. Nothing here has been persisted yet.
type ParsedFeed struct {
	Feed     models.Feed
	Episodes []*models.Episode
}

// node is a generic XML element. The parser inspects the raw tree so
// structural violations surface exactly, rather than being papered
// over by a lenient feed library.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *node) children(name string) []*node {
	var out []*node
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			out = append(out, &n.Children[i])
		}
	}
	return out
}

func (n *node) childText(name string) string {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			return strings.TrimSpace(n.Children[i].Text)
		}
	}
	return ""
}

// Parse reads an RSS 2.0 document and validates its structure. The
// key becomes the parsed feed's identity.
func Parse(r io.Reader, key string) (*ParsedFeed, error) {
	var root node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeFeedParse, "feed %s is not parseable XML", key)
	}

	if root.XMLName.Local != "rss" {
		return nil, errors.Newf(errors.ErrCodeFeedStructure, "feed %s: root element is %q, expected rss", key, root.XMLName.Local)
	}
	if version, ok := root.attr("version"); !ok || version != "2.0" {
		return nil, errors.Newf(errors.ErrCodeFeedStructure, "feed %s: rss version %q is not supported", key, version)
	}

	channels := root.children("channel")
	if len(channels) != 1 {
		return nil, errors.Newf(errors.ErrCodeFeedStructure, "feed %s: expected exactly one channel, found %d", key, len(channels))
	}
	channel := channels[0]

	for _, required := range []string{"title", "link", "description"} {
		switch n := len(channel.children(required)); {
		case n == 0:
			return nil, errors.Newf(errors.ErrCodeFeedStructure, "feed %s: channel is missing %s", key, required)
		case n > 1:
			return nil, errors.Newf(errors.ErrCodeFeedStructure, "feed %s: channel has %d %s elements", key, n, required)
		}
	}

	items := channel.children("item")
	for i, item := range items {
		if len(item.children("title")) == 0 && len(item.children("description")) == 0 {
			return nil, errors.Newf(errors.ErrCodeFeedStructure, "feed %s: item %d has neither title nor description", key, i+1)
		}
	}

	parsed := &ParsedFeed{
		Feed: models.Feed{
			Key:           key,
			Title:         channel.childText("title"),
			Description:   channel.childText("description"),
			Link:          channel.childText("link"),
			LastBuildDate: channel.childText("lastBuildDate"),
			Copyright:     channel.childText("copyright"),
		},
	}

	for _, item := range items {
		episode := &models.Episode{
			Title:       item.childText("title"),
			FeedKey:     key,
			Description: item.childText("description"),
			Link:        item.childText("link"),
			Pubdate:     item.childText("pubDate"),
			Copyright:   item.childText("copyright"),
		}
		if enclosures := item.children("enclosure"); len(enclosures) > 0 {
			if url, ok := enclosures[0].attr("url"); ok {
				episode.Enclosure = url
			}
		}
		parsed.Episodes = append(parsed.Episodes, episode)
	}

	return parsed, nil
}

// ParseFile parses a feed backed by a local file path.
func ParseFile(path string) (*ParsedFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeFeedLoad, "could not load feed file %s", path)
	}
	defer f.Close()
	return Parse(f, path)
}
