package file

import (
	"path/filepath"
	"strings"
)

// ReplaceExt swaps the extension of path for ext, adding a leading dot
// to ext when missing. Hidden files without an extension are left alone.
func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")

	if lastDot <= 0 {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		return filepath.Join(dir, filename+ext)
	}

	nameWithoutExt := filename[:lastDot]

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return filepath.Join(dir, nameWithoutExt+ext)
}

// StripExt returns path without its final extension.
func StripExt(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext)
}

// SiblingWithSuffix builds a path next to src whose name is the source
// base name plus suffix, e.g. SiblingWithSuffix("/v/ep01.mkv", ".ja.srt")
// returns "/v/ep01.ja.srt".
func SiblingWithSuffix(src, suffix string) string {
	return StripExt(src) + suffix
}
