package preprocess

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
)

// ArtifactPath builds a collision-free output path for a transform of
// srcPath, placed in dir (or next to the source when dir is empty). The name
// embeds the strategy label and a random token so concurrent requests and
// repeated strategies never collide.
func ArtifactPath(dir, srcPath, label string) (string, error) {
	token, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("artifact token: %w", err)
	}
	if dir == "" {
		dir = filepath.Dir(srcPath)
	}

	ext := filepath.Ext(srcPath)
	if ext == "" {
		ext = ".png"
	}
	base := strings.TrimSuffix(filepath.Base(srcPath), ext)
	name := fmt.Sprintf("%s-%s-%s%s", base, label, shortToken(token), ext)
	return filepath.Join(dir, name), nil
}

func shortToken(u uuid.UUID) string {
	return strings.ReplaceAll(u.String(), "-", "")[:12]
}

// CleanupSet tracks intermediate artifacts for one orchestration run.
// A run is single-goroutine, so no locking.
type CleanupSet struct {
	paths []string
}

// NewCleanupSet returns an empty tracking set.
func NewCleanupSet() *CleanupSet { return &CleanupSet{} }

// Add registers a path for removal. Paths are registered before the producing
// transform runs, so failed transforms still get their partial output removed.
func (c *CleanupSet) Add(path string) {
	if path != "" {
		c.paths = append(c.paths, path)
	}
}

// Len reports the number of tracked artifacts.
func (c *CleanupSet) Len() int { return len(c.paths) }

// RemoveAll deletes every tracked artifact and empties the set, so each
// artifact is deleted exactly once even if called again.
func (c *CleanupSet) RemoveAll() {
	for _, p := range c.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to remove artifact", "path", p, "error", err)
		}
	}
	c.paths = nil
}
