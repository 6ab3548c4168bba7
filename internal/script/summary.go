package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/CZERTAINLY/contribart/internal/model"
)

var (
	ErrNotJSON   = errors.New("summary is not valid JSON")
	ErrNotObject = errors.New("summary is not a JSON object")
)

var newline = regexp.MustCompile(`\r?\n`)

// LastLine returns the last non-empty line of stdout or "" if there is none.
func LastLine(stdout string) string {
	lines := newline.Split(stdout, -1)
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] != "" {
			return lines[i]
		}
	}
	return ""
}

// ParseSummary decodes the last non-empty line of stdout as a JSON object.
// It returns the line it looked at. No line means no summary and no error.
func ParseSummary(stdout string) (model.Summary, string, error) {
	last := LastLine(stdout)
	if last == "" {
		return nil, "", nil
	}

	var v any
	if err := json.Unmarshal([]byte(last), &v); err != nil {
		return nil, last, fmt.Errorf("%w: %w", ErrNotJSON, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, last, ErrNotObject
	}
	return model.Summary(obj), last, nil
}
