package file

import (
	"io/fs"
	"time"
)

// IsStable reports whether the file was last modified at least window ago.
// A file still being copied into the library keeps a fresh mtime, so the
// scanner waits for it to settle before treating it as a candidate.
func IsStable(info fs.FileInfo, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return true
	}
	return now.Sub(info.ModTime()) >= window
}
