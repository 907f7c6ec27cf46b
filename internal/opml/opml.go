// Package opml handles importing and exporting subscription lists as
// OPML 1.0.
package opml

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/pkg/errors"
)

// Document is the root of an OPML document.
type Document struct {
	XMLName xml.Name
	Version string `xml:"version,attr"`
	Head    Head   `xml:"head"`
	Body    Body   `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title string `xml:"title,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline is a single outline element, either the container or one
// feed entry.
type Outline struct {
	Text     string    `xml:"text,attr"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// Import parses an OPML document and returns the feed keys in
// document order. The document must have a body with one container
// outline whose children each carry an xmlUrl.
func Import(r io.Reader) ([]string, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSubscriptionsParse, "subscriptions file is not parseable XML")
	}

	if doc.XMLName.Local != "opml" {
		return nil, errors.Newf(errors.ErrCodeSubscriptionsStructure, "root element is %q, not opml", doc.XMLName.Local)
	}
	if len(doc.Body.Outlines) == 0 {
		return nil, errors.New(errors.ErrCodeSubscriptionsStructure, "subscriptions file has no container outline")
	}
	container := doc.Body.Outlines[0]

	keys := make([]string, 0, len(container.Outlines))
	for _, outline := range container.Outlines {
		if outline.XMLURL == "" {
			return nil, errors.Newf(errors.ErrCodeSubscriptionsStructure, "outline %q has no xmlUrl", outline.Text)
		}
		keys = append(keys, outline.XMLURL)
	}
	return keys, nil
}

// ImportFile imports from a file on disk.
func ImportFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeSubscriptionsLoad, "could not load subscriptions file %s", path)
	}
	defer f.Close()
	return Import(f)
}

// Export writes the feeds as an OPML 1.0 document: a single container
// outline with one rss outline per feed, in the given order.
func Export(w io.Writer, feeds []models.Feed) error {
	container := Outline{Text: "feeds"}
	for _, feed := range feeds {
		container.Outlines = append(container.Outlines, Outline{
			Type:   "rss",
			Text:   feed.Title,
			XMLURL: feed.Key,
		})
	}

	doc := Document{
		XMLName: xml.Name{Local: "opml"},
		Version: "1.0",
		Head:    Head{Title: "castero feeds"},
		Body:    Body{Outlines: []Outline{container}},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ExportFile exports to a file on disk.
func ExportFile(path string, feeds []models.Feed) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Export(f, feeds)
}
