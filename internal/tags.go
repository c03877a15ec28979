package internal

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// TypeCode is the TIFF field type of a tag value.
type TypeCode uint16

const (
	TypeByte      TypeCode = 1
	TypeASCII     TypeCode = 2
	TypeShort     TypeCode = 3
	TypeLong      TypeCode = 4
	TypeRational  TypeCode = 5
	TypeUndefined TypeCode = 7
	TypeSLong     TypeCode = 9
	TypeSRational TypeCode = 10
)

func (t TypeCode) String() string {
	switch t {
	case TypeByte:
		return "BYTE"
	case TypeASCII:
		return "ASCII"
	case TypeShort:
		return "SHORT"
	case TypeLong:
		return "LONG"
	case TypeRational:
		return "RATIONAL"
	case TypeUndefined:
		return "UNDEFINED"
	case TypeSLong:
		return "SLONG"
	case TypeSRational:
		return "SRATIONAL"
	}
	return fmt.Sprintf("TYPE(%d)", uint16(t))
}

// Carried through from loaded files, never written by the merger.
const (
	typeSShort TypeCode = 8
	typeFloat  TypeCode = 11
	typeDouble TypeCode = 12
)

// unitSize is the byte width that must be swapped when changing byte order.
func (t TypeCode) unitSize() int {
	switch t {
	case TypeShort, typeSShort:
		return 2
	case TypeLong, TypeSLong, TypeRational, TypeSRational, typeFloat:
		return 4
	case typeDouble:
		return 8
	}
	return 1
}

// Tag ids written by the merger.
const (
	TagGPSVersionID        uint16 = 0x0000
	TagGPSLatitudeRef      uint16 = 0x0001
	TagGPSLatitude         uint16 = 0x0002
	TagGPSLongitudeRef     uint16 = 0x0003
	TagGPSLongitude        uint16 = 0x0004
	TagGPSAltitudeRef      uint16 = 0x0005
	TagGPSAltitude         uint16 = 0x0006
	TagGPSTimeStamp        uint16 = 0x0007
	TagGPSProcessingMethod uint16 = 0x001B
	TagGPSDateStamp        uint16 = 0x001D

	TagImageDescription    uint16 = 0x010E
	TagDateTime            uint16 = 0x0132
	TagArtist              uint16 = 0x013B
	TagThumbnailDateTime   uint16 = 0x5033
	TagDateTimeOriginal    uint16 = 0x9003
	TagDateTimeDigitized   uint16 = 0x9004
	TagUserComment         uint16 = 0x9286
	TagSubSecTime          uint16 = 0x9290
	TagSubSecTimeOriginal  uint16 = 0x9291
	TagSubSecTimeDigitized uint16 = 0x9292
	TagPreviewDateTime     uint16 = 0xC71B
)

// exifCharsetLen is the charset prefix of UNDEFINED text tags.
const exifCharsetLen = 8

const (
	ifdRoot = "IFD"
	ifdExif = "IFD/Exif"
	ifdGPS  = "IFD/GPSInfo"
)

// defaultIfd places a tag id that was not present at load time.
func defaultIfd(id uint16) string {
	switch {
	case id <= 0x001F:
		return ifdGPS
	case id >= 0x9000 && id < 0xA500,
		id == 0x829A, id == 0x829D, id == 0x8822, id == 0x8824, id == 0x8827, id == 0x8830:
		return ifdExif
	}
	return ifdRoot
}

// TagProperty is one (id, type, bytes) entry of an image's metadata. Value is
// always little-endian regardless of the byte order of the file it came from.
type TagProperty struct {
	ID    uint16
	Type  TypeCode
	Value []byte
}

// TagSet is the mutable tag state of one loaded image.
type TagSet struct {
	props map[uint16]TagProperty
	ifds  map[uint16]string
	dirty map[uint16]struct{}
}

func NewTagSet() *TagSet {
	return &TagSet{
		props: make(map[uint16]TagProperty),
		ifds:  make(map[uint16]string),
		dirty: make(map[uint16]struct{}),
	}
}

// load records a tag read from a file without marking it changed.
func (s *TagSet) load(ifd string, p TagProperty) {
	if _, seen := s.props[p.ID]; seen {
		return
	}
	s.props[p.ID] = p
	s.ifds[p.ID] = ifd
}

// Set replaces (or adds) the tag with p.ID.
func (s *TagSet) Set(p TagProperty) {
	s.props[p.ID] = TagProperty{ID: p.ID, Type: p.Type, Value: append([]byte(nil), p.Value...)}
	if _, ok := s.ifds[p.ID]; !ok {
		s.ifds[p.ID] = defaultIfd(p.ID)
	}
	s.dirty[p.ID] = struct{}{}
}

func (s *TagSet) Get(id uint16) (TagProperty, bool) {
	p, ok := s.props[id]
	return p, ok
}

func (s *TagSet) Has(id uint16) bool {
	_, ok := s.props[id]
	return ok
}

func (s *TagSet) Len() int {
	return len(s.props)
}

// String returns the ASCII value of a tag with trailing NULs and blanks removed.
// An UNDEFINED value is read as EXIF text: an 8-byte charset code followed by
// the characters.
func (s *TagSet) String(id uint16) string {
	p, ok := s.props[id]
	if !ok {
		return ""
	}
	v := p.Value
	if p.Type == TypeUndefined {
		if len(v) <= exifCharsetLen {
			return ""
		}
		return strings.TrimSpace(strings.ReplaceAll(string(v[exifCharsetLen:]), "\x00", ""))
	}
	if i := bytes.IndexByte(v, 0); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(string(v))
}

// IsZero reports whether the tag is absent or holds only zero bytes.
func (s *TagSet) IsZero(id uint16) bool {
	p, ok := s.props[id]
	if !ok {
		return true
	}
	for _, b := range p.Value {
		if b != 0 {
			return false
		}
	}
	return true
}

func (s *TagSet) IfdOf(id uint16) string {
	if ifd, ok := s.ifds[id]; ok {
		return ifd
	}
	return defaultIfd(id)
}

// All returns every tag ordered by id.
func (s *TagSet) All() []TagProperty {
	out := make([]TagProperty, 0, len(s.props))
	for _, p := range s.props {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dirty returns the tags set since load, ordered by id.
func (s *TagSet) Dirty() []TagProperty {
	out := make([]TagProperty, 0, len(s.dirty))
	for id := range s.dirty {
		out = append(out, s.props[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *TagSet) IsDirty(id uint16) bool {
	_, ok := s.dirty[id]
	return ok
}

func asciiProperty(id uint16, v string) TagProperty {
	return TagProperty{ID: id, Type: TypeASCII, Value: AsciiZ(v)}
}
