package internal

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	exifDateTimeLayout = "2006:01:02 15:04:05"
	exifDateLayout     = "2006:01:02"
)

// DegreesToRationalTriplet encodes a decimal degree value as three
// little-endian (int32 numerator, int32 denominator) pairs: degrees/1,
// minutes/1 and hundredths of a second/100.
//
// Degrees and minutes are floored, so negative input yields a degrees value
// one below the integer part (-10.75 encodes as -11° 15' 0"). Callers that
// write hemisphere references pass the absolute value.
func DegreesToRationalTriplet(value float64) []byte {
	degrees := math.Floor(value)
	remainder := (value - degrees) * 60
	minutes := math.Floor(remainder)
	seconds := math.RoundToEven((remainder - minutes) * 60 * 100)

	out := make([]byte, 0, 24)
	out = appendRational(out, int32(degrees), 1)
	out = appendRational(out, int32(minutes), 1)
	out = appendRational(out, int32(seconds), 100)
	return out
}

// RationalTripletToDegrees decodes the layout written by DegreesToRationalTriplet.
func RationalTripletToDegrees(b []byte) (float64, error) {
	if len(b) != 24 {
		return 0, fmt.Errorf("rational triplet must be 24 bytes, got %d", len(b))
	}
	var parts [3]float64
	for i := range parts {
		num := int32(binary.LittleEndian.Uint32(b[i*8:]))
		den := int32(binary.LittleEndian.Uint32(b[i*8+4:]))
		if den == 0 {
			return 0, fmt.Errorf("rational %d has zero denominator", i)
		}
		parts[i] = float64(num) / float64(den)
	}
	return parts[0] + parts[1]/60 + parts[2]/3600, nil
}

// GeoTags holds the encoded GPS position values.
type GeoTags struct {
	Lat    []byte
	LatRef string
	Lon    []byte
	LonRef string
	Alt    []byte
	AltRef byte
}

func EncodeGeoTags(lat, lon, alt float64) GeoTags {
	g := GeoTags{
		Lat:    DegreesToRationalTriplet(math.Abs(lat)),
		LatRef: "N",
		Lon:    DegreesToRationalTriplet(math.Abs(lon)),
		LonRef: "E",
		Alt:    appendRational(nil, int32(math.RoundToEven(math.Abs(alt)*100)), 100),
	}
	if lat < 0 {
		g.LatRef = "S"
	}
	if lon < 0 {
		g.LonRef = "W"
	}
	if alt < 0 {
		g.AltRef = 1
	}
	return g
}

// Properties returns the six GPS position tags.
func (g GeoTags) Properties() []TagProperty {
	return []TagProperty{
		asciiProperty(TagGPSLatitudeRef, g.LatRef),
		{ID: TagGPSLatitude, Type: TypeRational, Value: g.Lat},
		asciiProperty(TagGPSLongitudeRef, g.LonRef),
		{ID: TagGPSLongitude, Type: TypeRational, Value: g.Lon},
		{ID: TagGPSAltitudeRef, Type: TypeByte, Value: []byte{g.AltRef}},
		{ID: TagGPSAltitude, Type: TypeRational, Value: g.Alt},
	}
}

// GPSTimestamp encodes a time of day as (hour,1) (minute,1) (centiseconds,100).
func GPSTimestamp(hour, minute, second, millisecond int) []byte {
	out := make([]byte, 0, 24)
	out = appendRational(out, int32(hour), 1)
	out = appendRational(out, int32(minute), 1)
	out = appendRational(out, int32(second*100+millisecond/10), 100)
	return out
}

// AsciiZ encodes s as NUL-terminated ASCII. Empty input is a single NUL.
func AsciiZ(s string) []byte {
	out := make([]byte, 0, len(s)+1)
	for _, r := range s {
		if r > 0x7E || (r < 0x20 && r != '\n' && r != '\t') {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return append(out, 0)
}

// FormatDateTime renders t in UTC as "yyyy:MM:dd HH:mm:ss". The zero time is "".
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(exifDateTimeLayout)
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(exifDateLayout)
}

func formatSubSec(t time.Time) string {
	return fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
}

func appendRational(b []byte, num, den int32) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(num))
	return binary.LittleEndian.AppendUint32(b, uint32(den))
}
