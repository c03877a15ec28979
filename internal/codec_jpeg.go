package internal

import (
	"encoding/binary"
	"fmt"
	"io"

	exif "github.com/dsoprea/go-exif/v3"
	jis "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// jpegCodec rewrites only the APP1 EXIF segment; the scan data is copied as is.
type jpegCodec struct{}

func (jpegCodec) LoadTags(path string) (*TagSet, error) {
	return loadTagsFromFile(path)
}

func (jpegCodec) SaveWithTags(src string, tags *TagSet, dst string) error {
	mc, err := jis.NewJpegMediaParser().ParseFile(src)
	if err != nil {
		return fmt.Errorf("parse jpeg: %w", err)
	}
	sl, ok := mc.(*jis.SegmentList)
	if !ok {
		return fmt.Errorf("parse jpeg: unexpected media context %T", mc)
	}

	root, order, err := jpegExifBuilder(sl)
	if err != nil {
		return err
	}
	// The seeded builder only holds entries go-exif's index accepts, so every
	// loaded tag is written back, not just the changed ones.
	props := tags.All()
	for _, p := range props {
		if err := setTag(root, tags.IfdOf(p.ID), p, order); err != nil {
			return err
		}
	}
	if err := sortIfdTags(root, propertyIDs(props)); err != nil {
		return fmt.Errorf("order exif tags: %w", err)
	}
	if err := sl.SetExif(root); err != nil {
		return fmt.Errorf("set jpeg exif: %w", err)
	}
	return writeFileAtomic(dst, func(w io.Writer) error {
		return sl.Write(w)
	})
}

// jpegExifBuilder returns a builder seeded from the file's EXIF, or a fresh
// one when the existing EXIF cannot be rebuilt.
func jpegExifBuilder(sl *jis.SegmentList) (*exif.IfdBuilder, binary.ByteOrder, error) {
	if _, raw, err := sl.Exif(); err == nil {
		if eh, err := exif.ParseExifHeader(raw); err == nil {
			if root, err := sl.ConstructExifBuilder(); err == nil {
				return root, eh.ByteOrder, nil
			}
		}
	}
	root, err := newRootBuilder(binary.LittleEndian)
	if err != nil {
		return nil, nil, err
	}
	return root, binary.LittleEndian, nil
}
