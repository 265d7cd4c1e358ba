package preprocess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactPath_Unique(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "upload.png")

	seen := make(map[string]bool)
	for range 100 {
		p, err := ArtifactPath(dir, src, "sharpen")
		require.NoError(t, err)
		assert.False(t, seen[p], "collision: %s", p)
		seen[p] = true
	}
}

func TestArtifactPath_EmbedsLabelAndExtension(t *testing.T) {
	p, err := ArtifactPath("/work", "/uploads/photo.jpg", "deskew")
	require.NoError(t, err)
	assert.Equal(t, "/work", filepath.Dir(p))
	assert.Contains(t, filepath.Base(p), "photo-deskew-")
	assert.Equal(t, ".jpg", filepath.Ext(p))
}

func TestArtifactPath_DefaultsNextToSource(t *testing.T) {
	p, err := ArtifactPath("", "/uploads/photo.png", "blur")
	require.NoError(t, err)
	assert.Equal(t, "/uploads", filepath.Dir(p))
}

func TestArtifactPath_MissingExtension(t *testing.T) {
	p, err := ArtifactPath("", "/uploads/photo", "blur")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(p))
}

func TestCleanupSet_RemovesTrackedFiles(t *testing.T) {
	dir := t.TempDir()
	set := NewCleanupSet()

	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		set.Add(p)
		paths = append(paths, p)
	}
	assert.Equal(t, 3, set.Len())

	set.RemoveAll()
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "artifact not removed: %s", p)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanupSet_ToleratesMissingFiles(t *testing.T) {
	set := NewCleanupSet()
	set.Add(filepath.Join(t.TempDir(), "never-created.png"))
	set.RemoveAll() // must not panic or log fatally
	assert.Equal(t, 0, set.Len())
}

func TestCleanupSet_RemoveAllIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	set := NewCleanupSet()
	set.Add(p)
	set.RemoveAll()
	set.RemoveAll()
	assert.Equal(t, 0, set.Len())
}

func TestCleanupSet_IgnoresEmptyPaths(t *testing.T) {
	set := NewCleanupSet()
	set.Add("")
	assert.Equal(t, 0, set.Len())
}

func TestShortToken_Length(t *testing.T) {
	p1, err := ArtifactPath("", "/x/a.png", "s")
	require.NoError(t, err)
	base := strings.TrimSuffix(filepath.Base(p1), ".png")
	parts := strings.Split(base, "-")
	assert.Len(t, parts[len(parts)-1], 12)
}
