// Package audiocache provides persistent audio blob stores keyed by cache
// key: a flat-directory filesystem store and a NATS object-store variant for
// deployments that share one cache across gateway instances.
package audiocache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/book-expert/tts-gateway/internal/core"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// AudioFileExtension is the fixed suffix of every cache entry file.
const AudioFileExtension = ".mp3"

const tmpFileSuffix = ".tmp"

// ErrCacheDirEmpty indicates that no cache directory was configured.
var ErrCacheDirEmpty = errors.New("cache directory cannot be empty")

// FSStore implements core.AudioStore over a single flat directory. Each entry
// is one file named <key>.mp3 containing exactly the audio bytes.
type FSStore struct {
	dir string
}

// NewFSStore creates the backing directory if absent and returns a store
// rooted at it. This is the only setup the store requires.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, ErrCacheDirEmpty
	}

	err := os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	return &FSStore{dir: dir}, nil
}

// Exists reports whether an entry for key is present.
func (s *FSStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.entryPath(key))
	if err == nil {
		return true, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("failed to stat cache entry %s: %w", key, err)
}

// Read returns the audio bytes stored for key, or core.ErrNotFound if the
// entry does not exist.
func (s *FSStore) Read(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
		}

		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	return data, nil
}

// Write stores data under key. The bytes are written to a temporary sibling
// file and renamed into place, so an interrupted write never leaves a
// truncated entry and concurrent writers of identical content settle on
// last-writer-wins.
func (s *FSStore) Write(_ context.Context, key string, data []byte) error {
	entryPath := s.entryPath(key)
	tmpPath := entryPath + tmpFileSuffix

	err := os.WriteFile(tmpPath, data, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write temporary cache file for %s: %w", key, err)
	}

	err = os.Rename(tmpPath, entryPath)
	if err != nil {
		removeErr := os.Remove(tmpPath)
		if removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			return fmt.Errorf(
				"failed to move cache entry %s into place: %w (temp cleanup also failed: %s)",
				key, err, removeErr,
			)
		}

		return fmt.Errorf("failed to move cache entry %s into place: %w", key, err)
	}

	return nil
}

func (s *FSStore) entryPath(key string) string {
	return filepath.Join(s.dir, key+AudioFileExtension)
}
