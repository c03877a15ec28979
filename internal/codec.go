package internal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// ImageCodec reads and writes the tag set of one image format.
type ImageCodec interface {
	// LoadTags reads the tags of path. A file without EXIF yields an empty set.
	LoadTags(path string) (*TagSet, error)
	// SaveWithTags writes the image at src with tags applied to dst.
	SaveWithTags(src string, tags *TagSet, dst string) error
}

// CodecFor returns the codec for path's extension.
func CodecFor(path string) (ImageCodec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpegCodec{}, nil
	case ".tif", ".tiff":
		return tiffCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrEncoderUnsupported, filepath.Ext(path))
}

var (
	exifMappingOnce sync.Once
	exifMapping     *exifcommon.IfdMapping
	exifTagIndex    *exif.TagIndex
	exifMappingErr  error
)

func exifEnv() (*exifcommon.IfdMapping, *exif.TagIndex, error) {
	exifMappingOnce.Do(func() {
		im := exifcommon.NewIfdMapping()
		if err := exifcommon.LoadStandardIfds(im); err != nil {
			exifMappingErr = fmt.Errorf("load exif ifd mapping: %w", err)
			return
		}
		ti := exif.NewTagIndex()
		if err := exif.LoadStandardTags(ti); err != nil {
			exifMappingErr = fmt.Errorf("load exif tag index: %w", err)
			return
		}
		// Accept any stored type: older writers store UserComment and
		// GPSProcessingMethod as ASCII.
		ti.SetUniversalSearch(true)
		err := ti.Add(&exif.IndexedTag{
			Id:             TagThumbnailDateTime,
			Name:           "ThumbnailDateTime",
			IfdPath:        ifdRoot,
			SupportedTypes: []exifcommon.TagTypePrimitive{exifcommon.TypeAscii},
		})
		if err != nil {
			exifMappingErr = fmt.Errorf("register exif tag: %w", err)
			return
		}
		exifMapping = im
		exifTagIndex = ti
	})
	return exifMapping, exifTagIndex, exifMappingErr
}

// readRawExif returns the TIFF-structured EXIF blob embedded in path, or nil.
func readRawExif(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := exif.SearchAndExtractExifWithReader(f)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) || errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("search exif: %w", err)
	}
	return raw, nil
}

// tagsFromExif flattens IFD0, the Exif sub-IFD and the GPS IFD of raw into a
// TagSet. Values are converted to little-endian. Entries whose value cannot be
// read are skipped.
func tagsFromExif(raw []byte) (*TagSet, binary.ByteOrder, error) {
	tags := NewTagSet()
	if len(raw) == 0 {
		return tags, binary.LittleEndian, nil
	}
	im, ti, err := exifEnv()
	if err != nil {
		return nil, nil, err
	}

	visitor := func(ite *exif.IfdTagEntry) error {
		if ite.ChildIfdPath() != "" {
			return nil
		}
		ifd := ite.IfdPath()
		switch ifd {
		case ifdRoot, ifdExif, ifdGPS:
		default:
			return nil
		}
		value, err := ite.GetRawBytes()
		if err != nil {
			return nil
		}
		tags.load(ifd, TagProperty{ID: ite.TagId(), Type: TypeCode(ite.TagType()), Value: value})
		return nil
	}
	eh, _, err := exif.Visit(exifcommon.IfdStandardIfdIdentity, im, ti, raw, visitor, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("read exif tags: %w", err)
	}
	if eh.ByteOrder != binary.LittleEndian {
		for id, p := range tags.props {
			p.Value = reorder(p.Value, p.Type, eh.ByteOrder, binary.LittleEndian)
			tags.props[id] = p
		}
	}
	return tags, eh.ByteOrder, nil
}

func loadTagsFromFile(path string) (*TagSet, error) {
	raw, err := readRawExif(path)
	if err != nil {
		return nil, err
	}
	tags, _, err := tagsFromExif(raw)
	return tags, err
}

// setTag writes p into the IFD it belongs to under root, creating the IFD
// if needed.
func setTag(root *exif.IfdBuilder, ifdPath string, p TagProperty, order binary.ByteOrder) error {
	ib := root
	if ifdPath != ifdRoot {
		var err error
		ib, err = exif.GetOrCreateIbFromRootIb(root, ifdPath)
		if err != nil {
			return fmt.Errorf("exif ifd %s: %w", ifdPath, err)
		}
	}
	value := exif.NewIfdBuilderTagValueFromBytes(reorder(p.Value, p.Type, binary.LittleEndian, order))
	bt := exif.NewBuilderTag(ifdPath, p.ID, exifcommon.TagTypePrimitive(p.Type), value, order)
	if err := ib.Set(bt); err != nil {
		return fmt.Errorf("set exif tag 0x%04x: %w", p.ID, err)
	}
	return nil
}

// sortIfdTags orders the entries of ib and of its child IFDs by tag id, as
// TIFF readers require. ids names the value entries the builders are expected
// to hold; any other entry is located by a full id scan.
func sortIfdTags(ib *exif.IfdBuilder, ids []uint16) error {
	entries := ib.Tags()
	keys := make(map[*exif.BuilderTag]uint16, len(entries))
	for _, bt := range entries {
		if v := bt.Value(); v != nil && v.IsIb() {
			keys[bt] = v.Ib().IfdIdentity().TagId()
		}
	}
	locate := func(id uint16) error {
		found, err := ib.FindN(id, len(entries))
		if err != nil {
			return err
		}
		for _, i := range found {
			if _, ok := keys[entries[i]]; !ok {
				keys[entries[i]] = id
			}
		}
		return nil
	}
	for _, id := range ids {
		if err := locate(id); err != nil {
			return err
		}
	}
	for id := 0; len(keys) < len(entries) && id <= 0xFFFF; id++ {
		if err := locate(uint16(id)); err != nil {
			return err
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return keys[entries[i]] < keys[entries[j]] })

	for _, bt := range entries {
		if v := bt.Value(); v != nil && v.IsIb() {
			if err := sortIfdTags(v.Ib(), ids); err != nil {
				return err
			}
		}
	}
	return nil
}

func propertyIDs(props []TagProperty) []uint16 {
	ids := make([]uint16, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	return ids
}

func newRootBuilder(order binary.ByteOrder) (*exif.IfdBuilder, error) {
	im, ti, err := exifEnv()
	if err != nil {
		return nil, err
	}
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, order), nil
}

// reorder converts multi-byte units of v between byte orders.
func reorder(v []byte, t TypeCode, from, to binary.ByteOrder) []byte {
	out := append([]byte(nil), v...)
	size := t.unitSize()
	if from == to || size == 1 {
		return out
	}
	for i := 0; i+size <= len(out); i += size {
		unit := out[i : i+size]
		for l, r := 0, size-1; l < r; l, r = l+1, r-1 {
			unit[l], unit[r] = unit[r], unit[l]
		}
	}
	return out
}

// writeFileAtomic writes through a temp file in dst's directory and renames it
// over dst.
func writeFileAtomic(dst string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
