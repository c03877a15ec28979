package internal

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// fileHash computes SHA256 hash of a file content
func fileHash(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// CopyToUnique copies src to the first free name derived from desired and
// returns the path written. The destination is claimed before any bytes are
// written, and removed again if the copy fails.
func CopyToUnique(fs afero.Fs, src, desired string) (string, int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	out, dest, err := CreateUnique(fs, desired)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fs.Remove(dest)
		return "", 0, fmt.Errorf("copy %s: %w", src, err)
	}
	return dest, n, nil
}
