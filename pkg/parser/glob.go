package parser

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ExpandGlobs expands export paths and glob patterns into a sorted,
// deduplicated list. A pattern that matches nothing is kept verbatim so the
// later read reports a proper file-not-found error for it.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var exports []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			exports = append(exports, p)
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			add(pattern)
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}

	sort.Strings(exports)
	return exports, nil
}
