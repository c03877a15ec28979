package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionDirName is the directory under the output root holding run manifests.
const SessionDirName = ".takeoutmerge"

// RunSession records every per-file outcome of one merge run as JSON lines.
type RunSession struct {
	ID           string
	SessionDir   string
	InputDir     string
	OutputDir    string
	mu           sync.Mutex
	manifestFile *os.File
}

// ManifestEvent represents a single event in the manifest log
type ManifestEvent struct {
	Event   string `json:"event"`
	Ts      string `json:"ts"`
	Src     string `json:"src,omitempty"`
	Sidecar string `json:"sidecar,omitempty"`
	Tier    string `json:"tier,omitempty"`
	Dest    string `json:"dest,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Taken   string `json:"taken,omitempty"`
	Error   string `json:"error,omitempty"`

	ErrorCategory   string `json:"error_category,omitempty"`
	ErrorSeverity   string `json:"error_severity,omitempty"`
	ErrorSuggestion string `json:"error_suggestion,omitempty"`

	// Session start/end fields
	RunID      string `json:"run_id,omitempty"`
	InputDir   string `json:"input_dir,omitempty"`
	OutputDir  string `json:"output_dir,omitempty"`
	TotalFiles int    `json:"total_files,omitempty"`
	Folders    int64  `json:"folders,omitempty"`
	Files      int64  `json:"files,omitempty"`
	Merged     int64  `json:"merged,omitempty"`
	Converted  int64  `json:"converted,omitempty"`
	Copied     int64  `json:"copied,omitempty"`
	Unmatched  int64  `json:"unmatched,omitempty"`
	ErrorCount int    `json:"errors,omitempty"`
}

// NewRunSession creates <outputDir>/.takeoutmerge/runs/<id>/manifest.jsonl.
func NewRunSession(outputDir, inputDir string) (*RunSession, error) {
	id := time.Now().Format("2006-01-02-150405") + "-" + uuid.NewString()[:8]
	sessionDir := filepath.Join(outputDir, SessionDirName, "runs", id)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	manifestPath := filepath.Join(sessionDir, "manifest.jsonl")
	f, err := os.OpenFile(manifestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest file: %w", err)
	}

	return &RunSession{
		ID:           id,
		SessionDir:   sessionDir,
		InputDir:     inputDir,
		OutputDir:    outputDir,
		manifestFile: f,
	}, nil
}

func (s *RunSession) ManifestPath() string {
	return filepath.Join(s.SessionDir, "manifest.jsonl")
}

func (s *RunSession) LogSessionStart(totalFiles int) error {
	return s.writeEvent(ManifestEvent{
		Event:      "session_start",
		RunID:      s.ID,
		InputDir:   s.InputDir,
		OutputDir:  s.OutputDir,
		TotalFiles: totalFiles,
	})
}

// LogFile records the outcome of one media file.
func (s *RunSession) LogFile(outcome Outcome, src string, m Match, dest, hash string, size int64, taken time.Time) error {
	ev := ManifestEvent{
		Event:   string(outcome),
		Src:     src,
		Sidecar: m.Path,
		Dest:    dest,
		Hash:    hash,
		Size:    size,
	}
	if m.Tier != TierNone {
		ev.Tier = m.Tier.String()
	}
	if !taken.IsZero() {
		ev.Taken = taken.UTC().Format(time.RFC3339)
	}
	return s.writeEvent(ev)
}

// LogDetailedError logs a categorized error with full details
func (s *RunSession) LogDetailedError(src string, procErr *ProcessError) error {
	ev := ManifestEvent{
		Event:           "error",
		Src:             src,
		Error:           procErr.OriginalErr.Error(),
		ErrorCategory:   string(procErr.Category),
		ErrorSeverity:   string(procErr.Severity),
		ErrorSuggestion: procErr.Suggestion,
	}
	if dest, ok := procErr.Context["dest"]; ok {
		ev.Dest = dest
	}
	if sidecar, ok := procErr.Context["sidecar"]; ok {
		ev.Sidecar = sidecar
	}
	return s.writeEvent(ev)
}

func (s *RunSession) LogSessionEnd(sum Summary, errCount int) error {
	return s.writeEvent(ManifestEvent{
		Event:      "session_end",
		RunID:      s.ID,
		Folders:    sum.Folders,
		Files:      sum.Files,
		Merged:     sum.Merged,
		Converted:  sum.Converted,
		Copied:     sum.Copied,
		Unmatched:  sum.Unmatched,
		ErrorCount: errCount,
	})
}

func (s *RunSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifestFile == nil {
		return nil
	}
	err := s.manifestFile.Close()
	s.manifestFile = nil
	return err
}

// writeEvent appends one JSON line and syncs it to disk.
func (s *RunSession) writeEvent(event ManifestEvent) error {
	event.Ts = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifestFile == nil {
		return fmt.Errorf("manifest closed")
	}
	if _, err := s.manifestFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to manifest: %w", err)
	}
	return s.manifestFile.Sync()
}
