package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestFileTimestampApplier_Apply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	writeFile(t, path, "x")

	a := NewFileTimestampApplier(zaptest.NewLogger(t))
	md := &MediaMetadata{
		CreationTime:   &TimeValue{Timestamp: "1678900000"},
		PhotoTakenTime: &TimeValue{Timestamp: "1678838400"},
	}
	in, err := a.Apply(path, md)
	if err != nil {
		t.Fatal(err)
	}
	if !in.Creation.Equal(time.Unix(1678900000, 0)) {
		t.Errorf("unexpected creation %v", in.Creation)
	}

	info, _ := os.Stat(path)
	if !info.ModTime().Equal(time.Unix(1678838400, 0)) {
		t.Errorf("Expected mtime from photoTakenTime, got %v", info.ModTime().UTC())
	}
}

func TestFileTimestampApplier_FallsBackToOwnTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	writeFile(t, path, "x")
	own := time.Date(2018, 7, 4, 9, 30, 0, 0, time.UTC)
	if err := os.Chtimes(path, own, own); err != nil {
		t.Fatal(err)
	}

	in, err := NewFileTimestampApplier(zaptest.NewLogger(t)).Apply(path, &MediaMetadata{Title: "clip.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if !in.Taken.Equal(own) {
		t.Errorf("Expected taken from the file's own mtime, got %v", in.Taken)
	}
	info, _ := os.Stat(path)
	if !info.ModTime().Equal(own) {
		t.Errorf("mtime changed to %v", info.ModTime().UTC())
	}
}
