// Package fsutil holds small filesystem helpers shared by the CLI and the
// scenario tooling.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension walks the given paths and returns every file with the
// extension, deduplicated, in walk order. Paths that do not exist are
// skipped; a file path is included directly when its extension matches.
func FindFilesByExtension(ext string, paths ...string) ([]string, error) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, dup := seen[p]; !dup {
			files = append(files, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ext {
				add(path)
			}
			continue
		}

		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ext {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
