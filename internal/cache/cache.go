package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Key addresses one chunk transcription: the source media's base name plus
// the padded time range that was cut for it.
type Key struct {
	SourceBase string
	StartMS    int64
	EndMS      int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d_%d", k.SourceBase, k.StartMS, k.EndMS)
}

// Store is a durable content-addressed cache of raw transcription
// responses, one text file per chunk. At most one value exists per key;
// Put overwrites. It is not safe for concurrent use: the pipeline is the
// only caller and runs strictly sequentially.
type Store struct {
	dir string
}

// NewStore returns a cache rooted at dir. The directory tree is created
// lazily on the first Put.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// path lays entries out as <dir>/<sourceBase>/<start>_<end>.txt.
func (s *Store) path(key Key) string {
	return filepath.Join(s.dir, key.SourceBase, fmt.Sprintf("%d_%d.txt", key.StartMS, key.EndMS))
}

// Get returns the cached raw text and true, or ("", false) when the key
// is absent. Read failures other than absence are reported as errors.
func (s *Store) Get(key Key) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	return string(data), true, nil
}

// Put stores raw under key, overwriting any previous value.
func (s *Store) Put(key Key, raw string) error {
	entry := s.path(key)
	if err := os.MkdirAll(filepath.Dir(entry), 0755); err != nil {
		return fmt.Errorf("create cache directory for %s: %w", key, err)
	}
	if err := os.WriteFile(entry, []byte(raw), 0644); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

// Invalidate removes the entry for key. Removing an absent entry is not
// an error.
func (s *Store) Invalidate(key Key) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("invalidate cache entry %s: %w", key, err)
	}
	return nil
}
