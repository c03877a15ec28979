package internal

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
)

// Converter turns formats without a tag writer into TIFF.
type Converter interface {
	ConvertToTIFF(src, workDir string) (string, error)
}

// PNGConverter re-encodes images as uncompressed TIFF.
type PNGConverter struct{}

// ConvertToTIFF writes "<name>.tiff" for src into workDir and returns its path.
func (PNGConverter) ConvertToTIFF(src, workDir string) (string, error) {
	img, err := imaging.Open(src)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".tiff"
	dst := filepath.Join(workDir, name)
	err = writeFileAtomic(dst, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if err := tiff.Encode(bw, imaging.Clone(img), &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
			return err
		}
		return bw.Flush()
	})
	if err != nil {
		return "", fmt.Errorf("encode tiff: %w", err)
	}
	return dst, nil
}
