package source

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ExpandGlobs expands log paths and glob patterns, relative to root when it is
// set, into a sorted, deduplicated list. A pattern matching nothing is kept as a
// literal path so the open that follows reports a precise error.
func ExpandGlobs(root string, patterns []string) ([]string, error) {
	opener := FileOpener{Root: root}
	seen := make(map[string]bool)
	var result []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	for _, pattern := range patterns {
		resolved, err := opener.Resolve(pattern)
		if err != nil {
			return nil, err
		}

		matches, err := filepath.Glob(resolved)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(resolved)
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}

	sort.Strings(result)
	return result, nil
}
