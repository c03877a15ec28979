package internal

import (
	"fmt"
	"sync"

	"github.com/barasher/go-exiftool"
)

// VideoTagger writes sidecar dates (and position) into container formats the
// built-in codecs cannot edit.
type VideoTagger interface {
	TagVideo(path string, md *MediaMetadata, in Instants) error
	Close() error
}

// ExifToolTagger drives one long-running exiftool process. Calls are
// serialized because the process handles one request at a time.
type ExifToolTagger struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

func NewExifToolTagger() (*ExifToolTagger, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &ExifToolTagger{et: et}, nil
}

func (t *ExifToolTagger) TagVideo(path string, md *MediaMetadata, in Instants) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	fms := t.et.ExtractMetadata(path)
	if len(fms) == 0 {
		return fmt.Errorf("exiftool returned no metadata for %s", path)
	}
	if fms[0].Err != nil {
		fms[0] = exiftool.EmptyFileMetadata()
		fms[0].File = path
	}

	taken := FormatDateTime(in.Taken)
	fms[0].SetString("CreateDate", FormatDateTime(in.Creation))
	fms[0].SetString("ModifyDate", taken)
	fms[0].SetString("DateTimeOriginal", taken)
	fms[0].SetString("TrackCreateDate", taken)
	fms[0].SetString("MediaCreateDate", taken)
	if p, ok := md.Position(); ok {
		fms[0].SetFloat("GPSLatitude", *p.Latitude)
		fms[0].SetFloat("GPSLongitude", *p.Longitude)
		fms[0].SetFloat("GPSAltitude", p.AltitudeOrZero())
	}

	t.et.WriteMetadata(fms[:1])
	if fms[0].Err != nil {
		return fmt.Errorf("exiftool write %s: %w", path, fms[0].Err)
	}
	return nil
}

func (t *ExifToolTagger) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.et.Close()
}
