package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Name is the file name of the bundled generator.
const Name = "github-contribution-art.py"

var ErrScriptNotFound = errors.New("script not found")

// Locator returns the first existing regular file among Candidates.
type Locator struct {
	Candidates []string
}

// DefaultCandidates lists, in order, the copy bundled next to the binary
// and the source tree layouts relative to the working directory.
func DefaultCandidates(bundleDir, cwd string) []string {
	return []string{
		filepath.Join(bundleDir, "python", Name),
		filepath.Join(cwd, "src", "python", Name),
		filepath.Join(cwd, "python", Name),
	}
}

// NewLocator prepends explicit (when non-empty) to the default candidates.
func NewLocator(explicit, bundleDir, cwd string) Locator {
	var candidates []string
	if explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, DefaultCandidates(bundleDir, cwd)...)
	return Locator{Candidates: candidates}
}

// Locate returns an absolute path of the first candidate which exists and is
// a regular file. It does not look past the first match.
func (l Locator) Locate() (string, error) {
	for _, candidate := range l.Candidates {
		if candidate == "" || !isRegular(candidate) {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", candidate, err)
		}
		return abs, nil
	}
	return "", fmt.Errorf("%w: unable to locate %s, tried %s", ErrScriptNotFound, Name, strings.Join(l.Candidates, ", "))
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
