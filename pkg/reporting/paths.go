package reporting

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultResultsDir = "results"

// DefaultPathManager implements path management functionality
type DefaultPathManager struct {
	baseDir string
}

// NewDefaultPathManager creates a path manager rooted at baseDir, or "results" when empty
func NewDefaultPathManager(baseDir string) *DefaultPathManager {
	if strings.TrimSpace(baseDir) == "" {
		baseDir = defaultResultsDir
	}
	return &DefaultPathManager{baseDir: baseDir}
}

// GetDefaultOutputDir returns the output directory of a run
func (p *DefaultPathManager) GetDefaultOutputDir(runName string) string {
	name := strings.ToLower(strings.TrimSpace(runName))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" {
		name = "unnamed"
	}
	return filepath.Join(p.baseDir, name)
}

// EnsureDirectoryExists creates the parent directory of path if it doesn't exist
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	return ensureParentDir(path)
}

func ensureParentDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
