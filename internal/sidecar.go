package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// MediaMetadata is the subset of a Google Photos sidecar the merger uses.
// Every field is optional.
type MediaMetadata struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	CreationTime   *TimeValue `json:"creationTime"`
	PhotoTakenTime *TimeValue `json:"photoTakenTime"`
	GeoData        *GeoPoint  `json:"geoData"`
	GeoDataExif    *GeoPoint  `json:"geoDataExif"`
}

type TimeValue struct {
	Formatted string    `json:"formatted"`
	Timestamp flexString `json:"timestamp"`
}

type GeoPoint struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Altitude  *float64 `json:"altitude"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// DecodeSidecar parses a sidecar document. Unknown fields are ignored.
func DecodeSidecar(r io.Reader) (*MediaMetadata, error) {
	var md MediaMetadata
	dec := json.NewDecoder(r)
	if err := dec.Decode(&md); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("sidecar is empty")
		}
		return nil, err
	}
	return &md, nil
}

// LoadSidecar reads and decodes the sidecar at path. Failures are *DecodeError.
func LoadSidecar(fs afero.Fs, path string) (*MediaMetadata, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()
	md, err := DecodeSidecar(f)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return md, nil
}

// Valid reports whether the point carries a usable position.
func (p *GeoPoint) Valid() bool {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return false
	}
	lat, lon := *p.Latitude, *p.Longitude
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return math.Abs(lat) > 1e-6 || math.Abs(lon) > 1e-6
}

func (p *GeoPoint) AltitudeOrZero() float64 {
	if p == nil || p.Altitude == nil {
		return 0
	}
	return *p.Altitude
}

// Position picks geoDataExif over geoData when valid.
func (m *MediaMetadata) Position() (*GeoPoint, bool) {
	if m.GeoDataExif.Valid() {
		return m.GeoDataExif, true
	}
	if m.GeoData.Valid() {
		return m.GeoData, true
	}
	return nil, false
}

var errTimeAbsent = errors.New("time value absent")

// Layouts tried for "formatted" strings and non-numeric timestamps. Google
// exports are locale dependent; the English forms are the common ones.
var sidecarTimeLayouts = []string{
	"Jan 2, 2006, 3:04:05 PM",
	"Jan 2, 2006 3:04:05 PM",
	"2 Jan 2006, 15:04:05",
	"2 Jan 2006 15:04:05",
	"January 2, 2006, 3:04:05 PM",
	"2 January 2006, 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	exifDateTimeLayout,
	"2006-01-02",
	"01/02/2006 15:04:05",
	"02.01.2006, 15:04:05",
}

var spaceReplacer = strings.NewReplacer("\u202f", " ", "\u00a0", " ", "\u2009", " ")

// parseSidecarTime parses a formatted date string. A "UTC" marker is removed
// and the result is taken as UTC.
func parseSidecarTime(s string) (time.Time, error) {
	s = spaceReplacer.Replace(s)
	s = strings.TrimSpace(strings.ReplaceAll(s, "UTC", ""))
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, errTimeAbsent
	}
	for _, layout := range sidecarTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
}

// parseTimestamp accepts a date string or decimal Unix seconds.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errTimeAbsent
	}
	if t, err := parseSidecarTime(s); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidTimeFormat, s)
}

// timeProducer yields one candidate instant. errTimeAbsent means "nothing here".
type timeProducer func() (time.Time, error)

func formattedOf(v *TimeValue) timeProducer {
	return func() (time.Time, error) {
		if v == nil {
			return time.Time{}, errTimeAbsent
		}
		return parseSidecarTime(v.Formatted)
	}
}

func timestampOf(v *TimeValue) timeProducer {
	return func() (time.Time, error) {
		if v == nil {
			return time.Time{}, errTimeAbsent
		}
		return parseTimestamp(string(v.Timestamp))
	}
}

// resolveTime returns the first instant any producer yields. When none does,
// the parse failures are returned joined, or errTimeAbsent if every producer
// was empty.
func resolveTime(producers ...timeProducer) (time.Time, error) {
	var errs []error
	for _, p := range producers {
		t, err := p()
		if err == nil && !t.IsZero() {
			return t, nil
		}
		if err != nil && !errors.Is(err, errTimeAbsent) {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return time.Time{}, errTimeAbsent
	}
	return time.Time{}, errors.Join(errs...)
}

// Instants is the resolved pair of times applied to a file.
type Instants struct {
	Creation time.Time
	Taken    time.Time
}

// ResolveInstants derives the creation and taken instants. Each prefers its own
// sidecar field, then the other field, then the supplied file time.
func ResolveInstants(md *MediaMetadata, observedCreation, observedWrite timeProducer) (Instants, error) {
	if md == nil {
		md = &MediaMetadata{}
	}
	creation, err := resolveTime(
		formattedOf(md.CreationTime), timestampOf(md.CreationTime),
		formattedOf(md.PhotoTakenTime), timestampOf(md.PhotoTakenTime),
		observedCreation,
	)
	if err != nil {
		return Instants{}, fmt.Errorf("creation time: %w", err)
	}
	taken, err := resolveTime(
		formattedOf(md.PhotoTakenTime), timestampOf(md.PhotoTakenTime),
		formattedOf(md.CreationTime), timestampOf(md.CreationTime),
		observedWrite,
	)
	if err != nil {
		return Instants{}, fmt.Errorf("taken time: %w", err)
	}
	return Instants{Creation: creation, Taken: taken}, nil
}
