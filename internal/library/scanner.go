package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"jimakugen/pkg/file"
	"jimakugen/pkg/log"
)

// Media container extensions worth probing for an embedded subtitle track.
var mediaExts = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
	".ts":   true,
	".m2ts": true,
}

// OutputSuffix is the sibling suffix marking a file as already handled.
const OutputSuffix = ".ja.srt"

// Candidate is a media file awaiting transcription.
type Candidate struct {
	MediaPath  string    `json:"media_path"`
	OutputPath string    `json:"output_path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModTime    time.Time `json:"mod_time"`
}

type scanCache struct {
	scanned    time.Time
	candidates []Candidate
}

type scannerOptions struct {
	cacheTTL     time.Duration
	settleWindow time.Duration
}

type Option func(*scannerOptions)

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *scannerOptions) {
		o.cacheTTL = ttl
	}
}

// WithSettleWindow skips files modified more recently than window, so a
// copy in progress is not picked up half-written.
func WithSettleWindow(window time.Duration) Option {
	return func(o *scannerOptions) {
		o.settleWindow = window
	}
}

// Scanner walks the configured library directories for media files that
// do not yet have a Japanese subtitle sibling. Results are cached briefly
// so bursts of watcher events do not rescan large libraries.
type Scanner struct {
	dirs         []string
	settleWindow time.Duration

	mu       sync.RWMutex
	cacheTTL time.Duration
	cache    *scanCache
}

func NewScanner(dirs []string, opts ...Option) *Scanner {
	options := scannerOptions{cacheTTL: 5 * time.Second}
	for _, opt := range opts {
		opt(&options)
	}
	return &Scanner{
		dirs:         dirs,
		settleWindow: options.settleWindow,
		cacheTTL:     options.cacheTTL,
	}
}

// Invalidate drops the cached scan so the next Scan walks the disk.
func (s *Scanner) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

// Scan returns the current candidates, sorted by path for stable job
// ordering across runs.
func (s *Scanner) Scan(ctx context.Context) ([]Candidate, error) {
	s.mu.RLock()
	if s.cache != nil && time.Since(s.cache.scanned) < s.cacheTTL {
		cached := s.cache.candidates
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	candidates := make([]Candidate, 0)
	for _, dir := range s.dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := s.scanDir(dir)
		if err != nil {
			log.Warn("Failed to scan library directory %s: %v", dir, err)
			continue
		}
		candidates = append(candidates, found...)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].MediaPath < candidates[j].MediaPath
	})

	s.mu.Lock()
	s.cache = &scanCache{scanned: time.Now(), candidates: candidates}
	s.mu.Unlock()

	log.Debug("Library scan found %d candidates across %d directories", len(candidates), len(s.dirs))
	return candidates, nil
}

func (s *Scanner) scanDir(dir string) ([]Candidate, error) {
	var found []Candidate
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// An unreadable subdirectory should not sink the whole scan.
			log.Debug("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return fs.SkipDir
			}
			return nil
		}

		if !mediaExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		outPath := file.SiblingWithSuffix(path, OutputSuffix)
		if _, err := os.Stat(outPath); err == nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !file.IsStable(info, s.settleWindow, time.Now()) {
			log.Debug("Skipping %s, still being written", path)
			return nil
		}
		found = append(found, Candidate{
			MediaPath:  path,
			OutputPath: outPath,
			SizeBytes:  info.Size(),
			ModTime:    info.ModTime(),
		})
		return nil
	})
	return found, err
}
