package file

import (
	"path/filepath"
	"strings"
)

func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filepath.Join(dir, filename+ext)
	}

	return filepath.Join(dir, filename[:lastDot]+ext)
}

// WithSuffix inserts suffix between the base name and the extension,
// e.g. movie.srt + ".en" -> movie.en.srt.
func WithSuffix(path, suffix string) string {
	if path == "" || suffix == "" {
		return path
	}
	ext := filepath.Ext(path)
	if ext == filepath.Base(path) {
		ext = ""
	}
	return strings.TrimSuffix(path, ext) + suffix + ext
}
