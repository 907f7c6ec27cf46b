package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeedDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>A feed for tests</description>
    <item>
      <title>Episode One</title>
      <enclosure url="https://example.com/1.mp3" type="audio/mpeg"/>
    </item>
    <item>
      <title>Episode Two</title>
      <enclosure url="https://example.com/2.mp3" type="audio/mpeg"/>
    </item>
  </channel>
</rss>`

// execute runs the CLI against a temp config and database.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	full := append([]string{
		"--config", filepath.Join(dir, "castero.conf"),
		"--database", filepath.Join(dir, "castero.db"),
	}, args...)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "castero")

	out, err = execute(t, t.TempDir(), "version", "--short")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestMigrateStatus(t *testing.T) {
	out, err := execute(t, t.TempDir(), "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version:")
	assert.Contains(t, out, "Latest version:")
	assert.NotContains(t, out, "Pending migrations")
}

func TestFeedLifecycle(t *testing.T) {
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "feed.xml")
	require.NoError(t, os.WriteFile(feedPath, []byte(testFeedDoc), 0o644))

	out, err := execute(t, dir, "feeds", "add", feedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Added feed Test Feed with 2 episodes")

	out, err = execute(t, dir, "feeds", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Feed [2/2]")

	out, err = execute(t, dir, "feeds", "episodes", feedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Episode One")
	assert.Contains(t, out, "Episode Two")

	out, err = execute(t, dir, "export", filepath.Join(dir, "subs.opml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 feeds")

	out, err = execute(t, dir, "feeds", "remove", feedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed feed Test Feed")

	out, err = execute(t, dir, "feeds", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Test Feed")
}

func TestQueueLifecycle(t *testing.T) {
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "feed.xml")
	require.NoError(t, os.WriteFile(feedPath, []byte(testFeedDoc), 0o644))

	_, err := execute(t, dir, "feeds", "add", feedPath)
	require.NoError(t, err)

	out, err := execute(t, dir, "queue", "add-feed", feedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Queued 2 episodes from Test Feed")

	out, err = execute(t, dir, "queue", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 Episode One")
	assert.Contains(t, out, "#2 Episode Two")

	out, err = execute(t, dir, "queue", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared the queue")

	out, err = execute(t, dir, "queue", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Episode One")
}

func TestFeedsAddRejectsBrokenDocument(t *testing.T) {
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "broken.xml")
	require.NoError(t, os.WriteFile(feedPath, []byte("<rss version=\"2.0\"></rss>"), 0o644))

	_, err := execute(t, dir, "feeds", "add", feedPath)
	require.Error(t, err)
}
