package internal

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

func TestAllocateOutputPath_Sequence(t *testing.T) {
	fs := afero.NewMemMapFs()
	desired := filepath.Join("/out", "photo.jpg")

	first, err := AllocateOutputPath(fs, desired)
	if err != nil {
		t.Fatal(err)
	}
	if first != desired {
		t.Errorf("Expected %s, got %s", desired, first)
	}
	if err := afero.WriteFile(fs, first, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	second, err := AllocateOutputPath(fs, desired)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/out", "photo_1.jpg"); second != want {
		t.Errorf("Expected %s, got %s", want, second)
	}
}

func TestAllocateOutputPath_SkipsTakenSuffixes(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"a.png", "a_1.png", "a_2.png"} {
		afero.WriteFile(fs, filepath.Join("/out", name), nil, 0644)
	}
	got, err := AllocateOutputPath(fs, "/out/a.png")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/out", "a_3.png") {
		t.Errorf("Expected a_3.png, got %s", got)
	}
}

func TestAllocateOutputPath_NoExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/out/README", nil, 0644)
	got, _ := AllocateOutputPath(fs, "/out/README")
	if got != filepath.Join("/out", "README_1") {
		t.Errorf("Expected README_1, got %s", got)
	}
}

func TestCreateUnique_Concurrent(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	desired := filepath.Join(dir, "same.jpg")

	const n = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		seen  = map[string]bool{}
		fails []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, path, err := CreateUnique(fs, desired)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fails = append(fails, err)
				return
			}
			f.Close()
			seen[path] = true
		}()
	}
	wg.Wait()

	if len(fails) > 0 {
		t.Fatalf("CreateUnique failed: %v", errors.Join(fails...))
	}
	if len(seen) != n {
		t.Errorf("Expected %d distinct paths, got %d", n, len(seen))
	}
}
