package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DirListing is the single enumeration of one directory.
type DirListing struct {
	Media    []string
	Sidecars []string
}

// ListDirectory returns the files directly inside dir, split into media and
// JSON sidecar candidates, in name order. Hidden files and the names in
// ignore (export-level JSON documents) are skipped.
func ListDirectory(fs afero.Fs, dir string, ignore []string) (DirListing, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return DirListing{}, fmt.Errorf("error listing %s: %w", dir, err)
	}

	var l DirListing
	for _, e := range entries {
		if e.IsDir() || !e.Mode().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			if !isIgnoredSidecar(e.Name(), ignore) {
				l.Sidecars = append(l.Sidecars, path)
			}
			continue
		}
		l.Media = append(l.Media, path)
	}
	return l, nil
}

func isIgnoredSidecar(name string, ignore []string) bool {
	name = strings.ToLower(name)
	for _, n := range ignore {
		if name == n {
			return true
		}
	}
	return false
}

// ScanDirectories returns root and every directory below it, skipping
// hidden ones, together with the number of media files found. A directory
// below root that cannot be read is reported to skipped, when non-nil, and
// left out; only a failure on root itself is returned.
func ScanDirectories(fs afero.Fs, root string, skipped func(path string, err error)) ([]string, int, error) {
	var dirs []string
	media := 0
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if n := len(dirs); n > 0 && dirs[n-1] == path {
				dirs = dirs[:n-1]
			}
			if skipped != nil {
				skipped(path, err)
			}
			return filepath.SkipDir
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
			return nil
		}
		if info.Mode().IsRegular() && !strings.HasPrefix(info.Name(), ".") &&
			!strings.EqualFold(filepath.Ext(info.Name()), ".json") {
			media++
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning directories: %w", err)
	}
	return dirs, media, nil
}
