package downloads

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/internal/store"
	"github.com/killallgit/castero/pkg/errors"
)

// StatusFunc receives human-readable download status lines.
type StatusFunc func(msg string)

// Manager downloads episode enclosures into the media directory. At
// most one download runs at a time; additional requests queue in FIFO
// order and start automatically as their predecessors finish.
type Manager struct {
	root      string
	client    *http.Client
	userAgent string
	status    StatusFunc

	mu      sync.Mutex
	pending []job
	active  bool
	wg      sync.WaitGroup
}

type job struct {
	feed    *models.Feed
	episode *models.Episode
}

// NewManager creates a download manager rooted at dir.
func NewManager(dir, userAgent string, status StatusFunc) *Manager {
	if status == nil {
		status = func(string) {}
	}
	return &Manager{
		root:      dir,
		userAgent: userAgent,
		status:    status,
		client: &http.Client{
			Timeout: 30 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Root returns the media directory downloads are written under.
func (m *Manager) Root() string { return m.root }

// Enqueue schedules an episode for download. An episode without an
// enclosure fails immediately.
func (m *Manager) Enqueue(feed *models.Feed, episode *models.Episode) error {
	if episode.Enclosure == "" {
		return errors.Newf(errors.ErrCodeDownload,
			"episode %q has no enclosure to download", episode.String())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, job{feed: feed, episode: episode})
	if !m.active {
		m.active = true
		m.wg.Add(1)
		go m.run()
	}
	return nil
}

// Wait blocks until every queued download has finished.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) run() {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.active = false
			m.mu.Unlock()
			return
		}
		next := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		if err := m.download(next); err != nil {
			log.Printf("Download of %q failed: %v", next.episode.String(), err)
			m.status(fmt.Sprintf("Error downloading %s", next.episode.String()))
		} else {
			m.status(fmt.Sprintf("Finished downloading %s", next.episode.String()))
		}
	}
}

func (m *Manager) download(j job) error {
	dst := m.Path(j.feed, j.episode)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeDownload, "creating download directory")
	}

	m.status(fmt.Sprintf("Downloading %s", j.episode.String()))

	req, err := http.NewRequest(http.MethodGet, j.episode.Enclosure, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeDownload,
			"building request for %s", j.episode.Enclosure)
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "audio/*,*/*")

	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeDownload,
			"fetching %s", j.episode.Enclosure)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return errors.Newf(errors.ErrCodeDownload,
			"server returned status %d for %s", resp.StatusCode, j.episode.Enclosure)
	}

	// Write to a sibling temp file and rename so a partial download
	// never looks like a finished one.
	tmp := dst + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDownload, "creating download file")
	}

	reader := io.Reader(resp.Body)
	if resp.ContentLength > 0 {
		reader = &progressReader{
			reader: resp.Body,
			total:  resp.ContentLength,
			report: func(pct int) {
				m.status(fmt.Sprintf("Downloading %s (%d%%)", j.episode.String(), pct))
			},
		}
	}

	_, copyErr := io.Copy(file, reader)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp)
		if copyErr == nil {
			copyErr = closeErr
		}
		return errors.Wrapf(copyErr, errors.ErrCodeDownload,
			"writing %s", dst)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrCodeDownload, "finalizing download")
	}
	return nil
}

// Path returns where an episode's media lives, whether or not it has
// been downloaded yet.
func (m *Manager) Path(feed *models.Feed, episode *models.Episode) string {
	name := fmt.Sprintf("%d-%s.%s",
		episode.ID, Sanitize(episode.String()), enclosureExt(episode.Enclosure))
	return filepath.Join(m.root, Sanitize(feed.String()), name)
}

// IsDownloaded reports whether the episode's media file exists, and
// returns its path.
func (m *Manager) IsDownloaded(feed *models.Feed, episode *models.Episode) (string, bool) {
	p := m.Path(feed, episode)
	info, err := os.Stat(p)
	return p, err == nil && !info.IsDir()
}

// Delete removes a downloaded file. The feed directory is removed too
// once it is empty.
func (m *Manager) Delete(feed *models.Feed, episode *models.Episode) error {
	p, ok := m.IsDownloaded(feed, episode)
	if !ok {
		return nil
	}
	if err := os.Remove(p); err != nil {
		return errors.Wrapf(err, errors.ErrCodeDownload, "deleting %s", p)
	}
	// Ignores the error when other episodes remain in the directory.
	_ = os.Remove(filepath.Dir(p))
	return nil
}

// Downloaded returns every stored episode whose media file exists,
// grouped by the store's feed ordering.
func (m *Manager) Downloaded(ctx context.Context, s store.Store) ([]*models.Episode, error) {
	feeds, err := s.Feeds(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.Episode
	for i := range feeds {
		feed := &feeds[i]
		episodes, err := s.Episodes(ctx, feed)
		if err != nil {
			return nil, err
		}
		for j := range episodes {
			if _, ok := m.IsDownloaded(feed, &episodes[j]); ok {
				out = append(out, &episodes[j])
			}
		}
	}
	return out, nil
}

// Sanitize maps every character outside [a-zA-Z0-9-] to an
// underscore, preserving length.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// enclosureExt extracts the file extension from an enclosure URL,
// ignoring any query string. Defaults to mp3.
func enclosureExt(enclosure string) string {
	u, err := url.Parse(enclosure)
	if err != nil {
		return "mp3"
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return "mp3"
	}
	return ext
}

type progressReader struct {
	reader  io.Reader
	total   int64
	read    int64
	lastPct int
	report  func(pct int)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pct := int(pr.read * 100 / pr.total)
		// Report in 10% steps to keep the status line quiet.
		if pct/10 > pr.lastPct/10 {
			pr.lastPct = pct
			pr.report(pct)
		}
	}
	return n, err
}
