package config

import (
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandPaths expands glob patterns (including ** for recursive matching)
// into a sorted, de-duplicated list of scenario files. A pattern without glob
// syntax is kept as is so that LoadFile can report a missing file.
func ExpandPaths(patterns ...string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			paths = append(paths, pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: no files match %s", ErrFileNotFound, pattern)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

func hasMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
