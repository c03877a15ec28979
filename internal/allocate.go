package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const maxAllocateAttempts = 100000

// AllocateOutputPath returns desired if nothing exists there, else the first
// free "<stem>_<n><ext>" for n = 1, 2, ...
// The result is only free at call time; use CreateUnique to claim it.
func AllocateOutputPath(fs afero.Fs, desired string) (string, error) {
	path, _, err := allocateFrom(fs, desired, 0)
	return path, err
}

func allocateFrom(fs afero.Fs, desired string, start int) (string, int, error) {
	ext := filepath.Ext(desired)
	base := strings.TrimSuffix(desired, ext)
	for n := start; n < maxAllocateAttempts; n++ {
		try := desired
		if n > 0 {
			try = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		exists, err := afero.Exists(fs, try)
		if err != nil {
			return "", n, err
		}
		if !exists {
			return try, n, nil
		}
	}
	return "", maxAllocateAttempts, fmt.Errorf("%w: %s", ErrAllocationExhausted, desired)
}

// CreateUnique allocates a path and claims it with an exclusive create. If
// another task wins the race the suffix is bumped and the claim retried.
// The returned file is empty and open for writing.
func CreateUnique(fs afero.Fs, desired string) (afero.File, string, error) {
	n := 0
	for n < maxAllocateAttempts {
		path, got, err := allocateFrom(fs, desired, n)
		if err != nil {
			return nil, "", err
		}
		f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
		n = got + 1
	}
	return nil, "", fmt.Errorf("%w: %s", ErrAllocationExhausted, desired)
}

// ReservePath claims a unique path and leaves an empty placeholder there for
// writers that replace it by rename.
func ReservePath(fs afero.Fs, desired string) (string, error) {
	f, path, err := CreateUnique(fs, desired)
	if err != nil {
		return "", err
	}
	return path, f.Close()
}
