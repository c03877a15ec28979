package internal

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

const sampleSidecar = `{
  "title": "IMG_20230315.jpg",
  "description": "Beach day",
  "imageViews": "12",
  "creationTime": {"timestamp": "1678900000", "formatted": "Mar 15, 2023, 5:06:40 PM UTC"},
  "photoTakenTime": {"timestamp": 1678838400, "formatted": "Mar 15, 2023, 12:00:00\u202fAM UTC"},
  "geoData": {"latitude": 0.0, "longitude": 0.0, "altitude": 0.0},
  "geoDataExif": {"latitude": 41.3851, "longitude": 2.1734, "altitude": 12.0},
  "people": [{"name": "someone"}],
  "googlePhotosOrigin": {"mobileUpload": {"deviceType": "ANDROID_PHONE"}}
}`

func TestDecodeSidecar(t *testing.T) {
	md, err := DecodeSidecar(strings.NewReader(sampleSidecar))
	if err != nil {
		t.Fatalf("DecodeSidecar failed: %v", err)
	}
	if md.Title != "IMG_20230315.jpg" || md.Description != "Beach day" {
		t.Errorf("unexpected text fields %q %q", md.Title, md.Description)
	}
	if md.PhotoTakenTime == nil || md.PhotoTakenTime.Timestamp != "1678838400" {
		t.Errorf("numeric timestamp not kept as string: %+v", md.PhotoTakenTime)
	}

	p, ok := md.Position()
	if !ok {
		t.Fatal("expected a position")
	}
	if *p.Latitude != 41.3851 {
		t.Errorf("geoDataExif should win over an empty geoData, got %v", *p.Latitude)
	}
}

func TestDecodeSidecar_Errors(t *testing.T) {
	if _, err := DecodeSidecar(strings.NewReader("")); err == nil {
		t.Error("expected error for empty sidecar")
	}
	if _, err := DecodeSidecar(strings.NewReader(`{"title": `)); err == nil {
		t.Error("expected error for truncated sidecar")
	}
}

func TestLoadSidecar_DecodeError(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/a/bad.json", []byte("not json"), 0644)

	_, err := LoadSidecar(fs, "/a/bad.json")
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Expected *DecodeError, got %T: %v", err, err)
	}
	if decErr.Path != "/a/bad.json" {
		t.Errorf("Expected path /a/bad.json, got %s", decErr.Path)
	}

	_, err = LoadSidecar(fs, filepath.Join("/a", "missing.json"))
	if !errors.As(err, &decErr) {
		t.Errorf("missing sidecar should also be a DecodeError, got %T", err)
	}
}

func TestGeoPointValid(t *testing.T) {
	tests := []struct {
		name string
		p    *GeoPoint
		want bool
	}{
		{"nil", nil, false},
		{"zero", &GeoPoint{Latitude: f64(0), Longitude: f64(0)}, false},
		{"missing longitude", &GeoPoint{Latitude: f64(10)}, false},
		{"out of range", &GeoPoint{Latitude: f64(91), Longitude: f64(0)}, false},
		{"valid", &GeoPoint{Latitude: f64(-33.9), Longitude: f64(18.4)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSidecarTime(t *testing.T) {
	want := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []string{
		"Mar 15, 2023, 12:00:00 AM UTC",
		"Mar 15, 2023, 12:00:00\u202fAM UTC",
		"15 Mar 2023, 00:00:00 UTC",
		"2023-03-15T00:00:00Z",
		"2023:03:15 00:00:00",
	}
	for _, s := range tests {
		got, err := parseSidecarTime(s)
		if err != nil {
			t.Errorf("%q: %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("%q: got %v, want %v", s, got, want)
		}
	}

	if _, err := parseSidecarTime("sometime last week"); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Errorf("Expected ErrInvalidTimeFormat, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1678838400", time.Unix(1678838400, 0).UTC()},
		{"1678838400.5", time.Unix(1678838400, 5e8).UTC()},
		{"2023-03-15 00:00:00", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseTimestamp(tt.in)
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseTimestamp(""); !errors.Is(err, errTimeAbsent) {
		t.Errorf("empty timestamp should be absent, got %v", err)
	}
}

func TestResolveInstants(t *testing.T) {
	fileTime := time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
	taken := time.Unix(1678838400, 0).UTC()
	created := time.Unix(1678900000, 0).UTC()

	tests := []struct {
		name         string
		md           *MediaMetadata
		wantCreation time.Time
		wantTaken    time.Time
	}{
		{
			name:         "both fields",
			md:           &MediaMetadata{CreationTime: &TimeValue{Timestamp: "1678900000"}, PhotoTakenTime: &TimeValue{Timestamp: "1678838400"}},
			wantCreation: created,
			wantTaken:    taken,
		},
		{
			name:         "creation falls back to taken",
			md:           &MediaMetadata{PhotoTakenTime: &TimeValue{Timestamp: "1678838400"}},
			wantCreation: taken,
			wantTaken:    taken,
		},
		{
			name:         "taken falls back to creation",
			md:           &MediaMetadata{CreationTime: &TimeValue{Formatted: "Mar 15, 2023, 5:06:40 PM UTC"}},
			wantCreation: created,
			wantTaken:    created,
		},
		{
			name:         "file times last",
			md:           &MediaMetadata{},
			wantCreation: fileTime,
			wantTaken:    fileTime,
		},
		{
			name:         "unparseable formatted uses timestamp",
			md:           &MediaMetadata{PhotoTakenTime: &TimeValue{Formatted: "garbage", Timestamp: "1678838400"}},
			wantCreation: taken,
			wantTaken:    taken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ResolveInstants(tt.md, fixedTime(fileTime), fixedTime(fileTime))
			if err != nil {
				t.Fatal(err)
			}
			if !in.Creation.Equal(tt.wantCreation) {
				t.Errorf("creation = %v, want %v", in.Creation, tt.wantCreation)
			}
			if !in.Taken.Equal(tt.wantTaken) {
				t.Errorf("taken = %v, want %v", in.Taken, tt.wantTaken)
			}
		})
	}
}

func TestResolveInstants_InvalidFormat(t *testing.T) {
	md := &MediaMetadata{PhotoTakenTime: &TimeValue{Formatted: "yesterday", Timestamp: "soon"}}
	_, err := ResolveInstants(md, absentTime, absentTime)
	if !errors.Is(err, ErrInvalidTimeFormat) {
		t.Errorf("Expected ErrInvalidTimeFormat, got %v", err)
	}
}
