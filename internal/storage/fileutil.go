package storage

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ListFiles returns the sorted names (not full paths) of the regular files
// in dir whose name ends in ext. Hidden files are skipped. A missing
// directory yields no names.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list files %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
