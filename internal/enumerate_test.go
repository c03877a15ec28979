package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestListDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/takeout/Album"
	for _, name := range []string{"b.jpg", "a.jpg", "a.jpg.json", "metadata.json", "clip.MP4", ".DS_Store", "Sub/x.jpg"} {
		afero.WriteFile(fs, filepath.Join(dir, name), nil, 0644)
	}

	l, err := ListDirectory(fs, dir, []string{"metadata.json"})
	if err != nil {
		t.Fatal(err)
	}

	wantMedia := []string{"a.jpg", "b.jpg", "clip.MP4"}
	if len(l.Media) != len(wantMedia) {
		t.Fatalf("Expected media %v, got %v", wantMedia, l.Media)
	}
	for i, name := range wantMedia {
		if l.Media[i] != filepath.Join(dir, name) {
			t.Errorf("media[%d] = %s, want %s", i, l.Media[i], name)
		}
	}
	if len(l.Sidecars) != 1 || l.Sidecars[0] != filepath.Join(dir, "a.jpg.json") {
		t.Errorf("unexpected sidecars %v", l.Sidecars)
	}
}

func TestScanDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/takeout"
	for _, name := range []string{"a.jpg", "a.jpg.json", "Album/b.jpg", "Album/Deep/c.png", ".takeoutmerge/runs/x.jpg"} {
		afero.WriteFile(fs, filepath.Join(root, name), nil, 0644)
	}

	dirs, media, err := ScanDirectories(fs, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if media != 3 {
		t.Errorf("Expected 3 media files, got %d", media)
	}
	if len(dirs) != 3 {
		t.Errorf("Expected 3 directories, got %v", dirs)
	}
	if dirs[0] != root {
		t.Errorf("Expected root first, got %s", dirs[0])
	}
}

type unreadableDirFs struct {
	afero.Fs
	dir string
}

func (u unreadableDirFs) Open(name string) (afero.File, error) {
	if name == u.dir {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return u.Fs.Open(name)
}

func TestScanDirectories_SkipsUnreadable(t *testing.T) {
	mem := afero.NewMemMapFs()
	root := "/takeout"
	for _, name := range []string{"a.jpg", "Locked/b.jpg", "Locked/Deep/c.jpg", "Open/d.jpg"} {
		afero.WriteFile(mem, filepath.Join(root, name), nil, 0644)
	}
	fs := unreadableDirFs{Fs: mem, dir: filepath.Join(root, "Locked")}

	var skipped []string
	dirs, media, err := ScanDirectories(fs, root, func(path string, err error) {
		if !errors.Is(err, os.ErrPermission) {
			t.Errorf("unexpected error %v", err)
		}
		skipped = append(skipped, path)
	})
	if err != nil {
		t.Fatalf("ScanDirectories failed: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != filepath.Join(root, "Locked") {
		t.Errorf("unexpected skipped folders %v", skipped)
	}
	if len(dirs) != 2 || dirs[0] != root || dirs[1] != filepath.Join(root, "Open") {
		t.Errorf("unexpected folders %v", dirs)
	}
	if media != 2 {
		t.Errorf("Expected 2 media files, got %d", media)
	}

	fs.dir = root
	if _, _, err := ScanDirectories(fs, root, nil); err == nil {
		t.Error("an unreadable root must fail the scan")
	}
}
