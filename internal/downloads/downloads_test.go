package downloads

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/pkg/errors"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"passthrough", "Episode-42", "Episode-42"},
		{"spaces and punctuation", "My Feed: Part 1!", "My_Feed__Part_1_"},
		{"hyphen kept", "a!b-c", "a_b-c"},
		{"slash", "a/b", "a_b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
			assert.Len(t, Sanitize(tt.in), len(tt.in))
		})
	}
}

func TestEnclosureExt(t *testing.T) {
	assert.Equal(t, "mp3", enclosureExt("https://host/ep1.mp3"))
	assert.Equal(t, "ogg", enclosureExt("https://host/ep1.ogg?session=abc"))
	assert.Equal(t, "mp3", enclosureExt("https://host/noext"))
}

func TestPathLayout(t *testing.T) {
	m := NewManager("/media", "castero", nil)
	feed := &models.Feed{Key: "https://feed", Title: "My Feed"}
	ep := &models.Episode{ID: 12, Title: "Ep: One", Enclosure: "https://host/a.ogg?x=1"}

	got := m.Path(feed, ep)
	assert.Equal(t, filepath.Join("/media", "My_Feed", "12-Ep__One.ogg"), got)
}

func TestEnqueueRejectsMissingEnclosure(t *testing.T) {
	m := NewManager(t.TempDir(), "castero", nil)
	err := m.Enqueue(&models.Feed{Title: "f"}, &models.Episode{ID: 1, Title: "e"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDownload))
}

func TestDownloadWritesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "castero")
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	root := t.TempDir()
	var mu sync.Mutex
	var lines []string
	m := NewManager(root, "castero 1.0", func(msg string) {
		mu.Lock()
		lines = append(lines, msg)
		mu.Unlock()
	})

	feed := &models.Feed{Key: "https://feed", Title: "Feed"}
	ep := &models.Episode{ID: 3, Title: "Ep", Enclosure: server.URL + "/ep.mp3"}

	require.NoError(t, m.Enqueue(feed, ep))
	m.Wait()

	p, ok := m.IsDownloaded(feed, ep)
	require.True(t, ok)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, lines, "Finished downloading Ep")
}

func TestDownloadsRunSerially(t *testing.T) {
	var mu sync.Mutex
	inflight, maxInflight := 0, 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inflight++
		if inflight > maxInflight {
			maxInflight = inflight
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte("x"))
		mu.Lock()
		inflight--
		mu.Unlock()
	}))
	defer server.Close()

	m := NewManager(t.TempDir(), "castero", nil)
	feed := &models.Feed{Key: "https://feed", Title: "Feed"}
	for i := 1; i <= 4; i++ {
		ep := &models.Episode{
			ID:        int64(i),
			Title:     fmt.Sprintf("ep%d", i),
			Enclosure: fmt.Sprintf("%s/ep%d.mp3", server.URL, i),
		}
		require.NoError(t, m.Enqueue(feed, ep))
	}
	m.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxInflight)
}

func TestDownloadFailureLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	root := t.TempDir()
	m := NewManager(root, "castero", nil)
	feed := &models.Feed{Key: "https://feed", Title: "Feed"}
	ep := &models.Episode{ID: 1, Title: "ep", Enclosure: server.URL + "/gone.mp3"}

	require.NoError(t, m.Enqueue(feed, ep))
	m.Wait()

	_, ok := m.IsDownloaded(feed, ep)
	assert.False(t, ok)
	_, err := os.Stat(m.Path(feed, ep) + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteRemovesEmptyFeedDir(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, "castero", nil)
	feed := &models.Feed{Key: "https://feed", Title: "Feed"}
	ep := &models.Episode{ID: 1, Title: "ep", Enclosure: "https://host/ep.mp3"}

	p := m.Path(feed, ep)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	require.NoError(t, m.Delete(feed, ep))
	_, err := os.Stat(filepath.Dir(p))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	require.NoError(t, m.Delete(feed, ep))
}

func TestDeleteKeepsDirWithOtherEpisodes(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, "castero", nil)
	feed := &models.Feed{Key: "https://feed", Title: "Feed"}
	ep1 := &models.Episode{ID: 1, Title: "a", Enclosure: "https://host/a.mp3"}
	ep2 := &models.Episode{ID: 2, Title: "b", Enclosure: "https://host/b.mp3"}

	for _, ep := range []*models.Episode{ep1, ep2} {
		p := m.Path(feed, ep)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	require.NoError(t, m.Delete(feed, ep1))
	_, ok := m.IsDownloaded(feed, ep2)
	assert.True(t, ok)
}
