package suite

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover lists the suite files under root whose names end with ext,
// descending at most depth directory levels below root. Paths are returned
// joined with root, ordered by their path relative to root.
func Discover(root, ext string, depth int) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading suites dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("suites dir %s is not a directory", root)
	}

	var rels []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && levels(rel) > depth {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking suites dir: %w", err)
	}

	sort.Strings(rels)
	suites := make([]string, len(rels))
	for i, rel := range rels {
		suites[i] = filepath.Join(root, rel)
	}
	return suites, nil
}

// Name is the display name of a suite, its file name.
func Name(path string) string {
	return filepath.Base(path)
}

// RelPath is the slash-separated path of a suite below root. Paths outside
// root, or an empty root, fall back to the file name.
func RelPath(root, path string) string {
	if root == "" {
		return Name(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return Name(path)
	}
	return filepath.ToSlash(rel)
}

func levels(rel string) int {
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
