package internal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"os"

	exif "github.com/dsoprea/go-exif/v3"
	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
)

// tiffCodec rewrites the whole file as an uncompressed little-endian RGBA
// strip image. Existing tags are carried over except the ones describing the
// old pixel layout.
type tiffCodec struct{}

// Tags that describe pixel storage. They are regenerated on save.
var tiffLayoutTags = map[uint16]struct{}{
	254: {}, 255: {}, // NewSubfileType, SubfileType
	256: {}, 257: {}, 258: {}, 259: {}, 262: {}, 266: {},
	273: {}, 277: {}, 278: {}, 279: {}, 284: {},
	317: {}, 320: {}, 322: {}, 323: {}, 324: {}, 325: {},
	330: {}, 338: {}, 339: {}, 340: {}, 341: {},
	513: {}, 514: {}, // JPEGInterchangeFormat(Length)
}

const (
	tiffTagStripOffsets = 273
)

func (tiffCodec) LoadTags(path string) (*TagSet, error) {
	return loadTagsFromFile(path)
}

func (tiffCodec) SaveWithTags(src string, tags *TagSet, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	img, err := tiff.Decode(bufio.NewReader(f))
	f.Close()
	if err != nil {
		return fmt.Errorf("decode tiff: %w", err)
	}
	return writeTaggedTIFF(dst, img, tags)
}

func writeTaggedTIFF(dst string, img image.Image, tags *TagSet) error {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()
	pixelBytes := uint32(len(nrgba.Pix))

	layout := []TagProperty{
		longProperty(256, uint32(w)),
		longProperty(257, uint32(h)),
		{ID: 258, Type: TypeShort, Value: shorts(8, 8, 8, 8)},
		{ID: 259, Type: TypeShort, Value: shorts(1)}, // no compression
		{ID: 262, Type: TypeShort, Value: shorts(2)}, // RGB
		longProperty(tiffTagStripOffsets, 0),
		{ID: 277, Type: TypeShort, Value: shorts(4)},
		longProperty(278, uint32(h)),
		longProperty(279, pixelBytes),
		{ID: 284, Type: TypeShort, Value: shorts(1)},
		{ID: 338, Type: TypeShort, Value: shorts(2)}, // unassociated alpha
	}

	encode := func() ([]byte, error) {
		root, err := newRootBuilder(binary.LittleEndian)
		if err != nil {
			return nil, err
		}
		props := append([]TagProperty(nil), layout...)
		for _, p := range tags.All() {
			if _, skip := tiffLayoutTags[p.ID]; skip && tags.IfdOf(p.ID) == ifdRoot {
				continue
			}
			props = append(props, p)
		}
		for _, p := range props {
			ifd := tags.IfdOf(p.ID)
			if _, isLayout := tiffLayoutTags[p.ID]; isLayout {
				ifd = ifdRoot
			}
			if err := setTag(root, ifd, p, binary.LittleEndian); err != nil {
				return nil, err
			}
		}
		if err := sortIfdTags(root, propertyIDs(props)); err != nil {
			return nil, err
		}
		return exif.NewIfdByteEncoder().EncodeToExif(root)
	}

	// The header size is only known after encoding once; the offset field is
	// fixed-width so the second pass has the same length.
	head, err := encode()
	if err != nil {
		return fmt.Errorf("encode tiff header: %w", err)
	}
	layout[5] = longProperty(tiffTagStripOffsets, uint32(len(head)))
	head, err = encode()
	if err != nil {
		return fmt.Errorf("encode tiff header: %w", err)
	}

	return writeFileAtomic(dst, func(out io.Writer) error {
		bw := bufio.NewWriter(out)
		if _, err := bw.Write(head); err != nil {
			return err
		}
		if _, err := bw.Write(nrgba.Pix); err != nil {
			return err
		}
		return bw.Flush()
	})
}

func longProperty(id uint16, v uint32) TagProperty {
	return TagProperty{ID: id, Type: TypeLong, Value: binary.LittleEndian.AppendUint32(nil, v)}
}

func shorts(vs ...uint16) []byte {
	out := make([]byte, 0, 2*len(vs))
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}
