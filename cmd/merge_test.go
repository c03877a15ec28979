package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"takeoutmerge/internal"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestMerge_MissingInput(t *testing.T) {
	tempDir := t.TempDir()
	_, err := executeCommand(t, "merge", filepath.Join(tempDir, "nope"), filepath.Join(tempDir, "out"))
	if !errors.Is(err, internal.ErrSetup) {
		t.Errorf("Expected ErrSetup, got %v", err)
	}
}

func TestMerge_CopiesAndReports(t *testing.T) {
	tempDir := t.TempDir()
	inputDir := filepath.Join(tempDir, "takeout")
	outputDir := filepath.Join(tempDir, "merged")
	os.MkdirAll(filepath.Join(inputDir, "Album"), 0755)
	os.WriteFile(filepath.Join(inputDir, "Album", "clip.mp4"), []byte("video"), 0644)

	out, err := executeCommand(t, "merge", inputDir, outputDir,
		"--log-file", filepath.Join(tempDir, "run.log"), "--log-level", "error")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !strings.Contains(out, "unmatched: 1") {
		t.Errorf("summary missing from output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "Album", "clip.mp4")); err != nil {
		t.Errorf("file not copied: %v", err)
	}

	runs, err := os.ReadDir(filepath.Join(outputDir, internal.SessionDirName, "runs"))
	if err != nil || len(runs) != 1 {
		t.Errorf("Expected one run manifest, got %d (%v)", len(runs), err)
	}
}

func TestStandardize_DryRun(t *testing.T) {
	tempDir := t.TempDir()
	sidecar := filepath.Join(tempDir, "a.jpg.supplemental-metadata.json")
	os.WriteFile(sidecar, []byte("{}"), 0644)

	out, err := executeCommand(t, "standardize", tempDir, "--dry-run",
		"--log-file", filepath.Join(tempDir, "run.log"), "--log-level", "error")
	if err != nil {
		t.Fatalf("standardize failed: %v", err)
	}
	if !strings.Contains(out, "Renamed 1 sidecars") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(sidecar); err != nil {
		t.Error("dry run renamed the sidecar")
	}
}

func TestInspect_ReportsUnreadableFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	os.WriteFile(path, []byte("hello"), 0644)

	out, err := executeCommand(t, "inspect", path)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.HasPrefix(out, path+":") {
		t.Errorf("Expected an error line for %s, got %q", path, out)
	}
}
