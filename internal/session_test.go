package internal

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readManifest(t *testing.T, path string) []ManifestEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open manifest: %v", err)
	}
	defer f.Close()

	var events []ManifestEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev ManifestEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("Invalid manifest line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestNewRunSession(t *testing.T) {
	tempDir := t.TempDir()

	session, err := NewRunSession(tempDir, "/input/test")
	if err != nil {
		t.Fatalf("NewRunSession failed: %v", err)
	}
	defer session.Close()

	if !strings.HasPrefix(session.SessionDir, filepath.Join(tempDir, SessionDirName, "runs")) {
		t.Errorf("Unexpected session directory: %s", session.SessionDir)
	}
	if _, err := os.Stat(session.ManifestPath()); os.IsNotExist(err) {
		t.Errorf("Manifest file not created: %s", session.ManifestPath())
	}
	if session.InputDir != "/input/test" {
		t.Errorf("Expected inputDir '/input/test', got '%s'", session.InputDir)
	}
}

func TestRunSession_Events(t *testing.T) {
	session, err := NewRunSession(t.TempDir(), "/input")
	if err != nil {
		t.Fatalf("NewRunSession failed: %v", err)
	}

	taken := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	session.LogSessionStart(3)
	session.LogFile(OutcomeMerged, "/input/a.jpg", Match{Path: "/input/a.jpg.json", Tier: TierPrefix}, "/out/a.jpg", "abc", 42, taken)
	session.LogFile(OutcomeUnmatched, "/input/b.mp4", Match{}, "/out/b.mp4", "", 7, time.Time{})
	session.LogDetailedError("/input/c.jpg", CategorizeError("/input/c.jpg", &DecodeError{Path: "/input/c.jpg.json", Err: errors.New("bad")}))
	session.LogSessionEnd(Summary{Folders: 1, Files: 3, Merged: 1, Unmatched: 1}, 1)
	session.Close()

	events := readManifest(t, session.ManifestPath())
	if len(events) != 5 {
		t.Fatalf("Expected 5 events, got %d", len(events))
	}
	if events[0].Event != "session_start" || events[0].TotalFiles != 3 {
		t.Errorf("unexpected start event %+v", events[0])
	}

	merged := events[1]
	if merged.Event != "merged" || merged.Tier != "prefix" || merged.Taken != "2023-03-15T00:00:00Z" || merged.Size != 42 {
		t.Errorf("unexpected file event %+v", merged)
	}
	if events[2].Tier != "" || events[2].Taken != "" {
		t.Errorf("unmatched file should carry no tier or time: %+v", events[2])
	}
	if events[3].ErrorCategory != string(ErrorCategoryDecode) || events[3].Sidecar != "/input/c.jpg.json" {
		t.Errorf("unexpected error event %+v", events[3])
	}
	if events[4].Event != "session_end" || events[4].Merged != 1 || events[4].ErrorCount != 1 {
		t.Errorf("unexpected end event %+v", events[4])
	}
}

func TestRunSession_WriteAfterClose(t *testing.T) {
	session, err := NewRunSession(t.TempDir(), "/input")
	if err != nil {
		t.Fatal(err)
	}
	session.Close()
	if err := session.LogSessionStart(1); err == nil {
		t.Error("Expected error writing to a closed manifest")
	}
}
