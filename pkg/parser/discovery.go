package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the file extensions collected from directories.
var DefaultExtensions = []string{".log"}

// ErrNoInputFiles is returned when discovery finds nothing to analyze.
var ErrNoInputFiles = errors.New("no .log files found in provided inputs")

// ExpandInputs turns a list of files, directories and glob patterns into a
// deduplicated, sorted list of file paths.
//
// Files named explicitly are kept whatever their extension. Directories are
// walked recursively and only files whose extension is in extensions are
// collected. A literal path that does not exist is kept as-is so that
// opening it later fails with a path-qualified error.
func ExpandInputs(inputs []string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	seen := make(map[string]bool)
	var result []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	for _, input := range inputs {
		if input == "" {
			continue
		}

		candidates := []string{input}
		if hasGlobMeta(input) {
			matches, err := filepath.Glob(input)
			if err != nil {
				return nil, fmt.Errorf("invalid glob pattern %q: %w", input, err)
			}
			// Unmatched globs contribute nothing
			candidates = matches
		}

		for _, path := range candidates {
			info, err := os.Stat(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && !hasGlobMeta(input) {
					add(path)
					continue
				}
				return nil, &FileAccessError{Path: path, Op: "reading", Err: err}
			}

			if !info.IsDir() {
				add(path)
				continue
			}

			files, err := walkDir(path, extensions)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		}
	}

	if len(result) == 0 {
		return nil, ErrNoInputFiles
	}

	// Sort for deterministic ordering
	sort.Strings(result)

	return result, nil
}

// WatchRoots returns the directories that must be watched to observe
// changes to the given inputs.
func WatchRoots(inputs []string) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, input := range inputs {
		dir := input
		if hasGlobMeta(input) {
			dir = filepath.Dir(input)
		} else if info, err := os.Stat(input); err != nil || !info.IsDir() {
			dir = filepath.Dir(input)
		}
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			roots = append(roots, dir)
		}
	}
	sort.Strings(roots)
	return roots
}

// HasExtension reports whether path ends in one of extensions
// (case-insensitive).
func HasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

func walkDir(root string, extensions []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &FileAccessError{Path: path, Op: "reading", Err: err}
		}
		if d.Type().IsRegular() && HasExtension(path, extensions) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, `*?[`)
}
