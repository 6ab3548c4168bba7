package model

import (
	"fmt"
	"regexp"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

var (
	reIncomplete = regexp.MustCompile(`(?i)incomplete value`)
	reNotAllowed = regexp.MustCompile(`(?i)not allowed|unknown field`)
	reConflict   = regexp.MustCompile(`(?i)conflicting values|cannot unify|incompatible|mismatched types`)
	reInvalid    = regexp.MustCompile(`(?i)invalid value|out of bound|does not match`)
)

// CueErrDetails flattens a CUE validation error into one human readable
// line per distinct position.
func CueErrDetails(err error) []string {
	if err == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		raw := fmt.Sprintf(format, args...)
		path := normalizePath(e.Path())

		line := classify(raw, path)
		if pos := position(e); pos != "" {
			line += " (" + pos + ")"
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

func position(err cueerrors.Error) string {
	for _, p := range cueerrors.Positions(err) {
		if p.Filename() == "" {
			continue
		}
		return fmt.Sprintf("%s:%d:%d", p.Filename(), p.Line(), p.Column())
	}
	return ""
}

func normalizePath(p []string) string {
	if len(p) == 0 {
		return ""
	}
	// Remove leading definition (#Config)
	if strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func classify(raw, path string) string {
	switch {
	case reNotAllowed.MatchString(raw):
		return fmt.Sprintf("%s: field is not allowed", path)
	case reIncomplete.MatchString(raw):
		return fmt.Sprintf("%s: field is required", path)
	case reConflict.MatchString(raw):
		return fmt.Sprintf("%s: wrong type or value: %s", path, raw)
	case reInvalid.MatchString(raw):
		return fmt.Sprintf("%s: invalid value: %s", path, raw)
	default:
		return fmt.Sprintf("%s: %s", path, raw)
	}
}
