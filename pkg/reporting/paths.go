package reporting

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultOutputDir returns results/<run>_<yyyymmdd_hhmmss>
func DefaultOutputDir(run string, now time.Time) string {
	r := strings.ToLower(strings.TrimSpace(run))
	if r == "" {
		r = "challenge"
	}
	r = strings.ReplaceAll(r, " ", "_")
	return filepath.Join("results", r+"_"+now.Format("20060102_150405"))
}

// EnsureDirectoryExists creates the parent directory of path
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
