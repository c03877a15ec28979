package internal

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ImageSummary is what a merged file carries, as read by an independent
// EXIF decoder.
type ImageSummary struct {
	DateTimeOriginal time.Time
	HasGPS           bool
	Latitude         float64
	Longitude        float64
	Artist           string
	Description      string
	Comment          string
}

// InspectImage reads the merged tags of a JPEG or TIFF file.
func InspectImage(path string) (*ImageSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, err
	}

	var s ImageSummary
	if t, err := exifDateOriginal(x); err == nil {
		s.DateTimeOriginal = t
	}
	if lat, lon, err := x.LatLong(); err == nil {
		s.HasGPS = true
		s.Latitude, s.Longitude = lat, lon
	}
	s.Artist = exifString(x, exif.Artist)
	s.Description = exifString(x, exif.ImageDescription)
	s.Comment = exifString(x, exif.UserComment)
	return &s, nil
}

// exifDateOriginal parses DateTimeOriginal as UTC.
func exifDateOriginal(x *exif.Exif) (time.Time, error) {
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return time.Time{}, err
	}
	dateStr, err := tag.StringVal()
	if err != nil {
		return time.Time{}, err
	}
	if dateStr == "" {
		return time.Time{}, errors.New("empty DateTimeOriginal")
	}
	return time.Parse(exifDateTimeLayout, dateStr)
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimRight(s, "\x00 ")
}
