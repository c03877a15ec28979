package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	// ErrSetup is returned before any processing when the run cannot start.
	ErrSetup = errors.New("setup failed")
	// ErrInvalidTimeFormat marks a time string no known layout accepts.
	ErrInvalidTimeFormat = errors.New("invalid time format")
	// ErrEncoderUnsupported is returned for files no codec can write.
	ErrEncoderUnsupported = errors.New("unsupported image format")
	// ErrAllocationExhausted means no free output name was found.
	ErrAllocationExhausted = errors.New("no free output name")
)

// DecodeError wraps a sidecar that is missing, empty or not valid JSON.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode sidecar %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorCategory represents the type of error encountered
type ErrorCategory string

const (
	ErrorCategoryIO          ErrorCategory = "io_error"           // File system, permissions, disk space
	ErrorCategoryDecode      ErrorCategory = "decode_error"       // Sidecar JSON unreadable
	ErrorCategoryTime        ErrorCategory = "time_format"        // No parseable time and no fallback
	ErrorCategoryMetadata    ErrorCategory = "metadata_error"     // EXIF could not be read or written
	ErrorCategoryUnsupported ErrorCategory = "unsupported_format" // No codec for the file
	ErrorCategoryUnknown     ErrorCategory = "unknown_error"
)

// ErrorSeverity indicates how critical the error is
type ErrorSeverity string

const (
	ErrorSeverityCritical ErrorSeverity = "critical" // System-level issues (disk full, permissions)
	ErrorSeverityError    ErrorSeverity = "error"    // File-level issues (corruption, unreadable)
	ErrorSeverityWarning  ErrorSeverity = "warning"  // File still reaches the output
)

// ProcessError represents a categorized error during file processing
type ProcessError struct {
	FilePath    string
	Category    ErrorCategory
	Severity    ErrorSeverity
	OriginalErr error
	Context     map[string]string
	Suggestion  string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("[%s/%s] %s: %v", e.Severity, e.Category, e.FilePath, e.OriginalErr)
}

func (e *ProcessError) Unwrap() error { return e.OriginalErr }

// CategorizeError analyzes an error and returns a ProcessError with category and severity
func CategorizeError(filePath string, err error) *ProcessError {
	if err == nil {
		return nil
	}

	procErr := &ProcessError{
		FilePath:    filePath,
		OriginalErr: err,
		Context:     make(map[string]string),
	}

	var decErr *DecodeError
	switch {
	case errors.As(err, &decErr):
		procErr.Category = ErrorCategoryDecode
		procErr.Severity = ErrorSeverityWarning
		procErr.Context["sidecar"] = decErr.Path
		procErr.Suggestion = "Sidecar could not be read - the media file is copied without metadata"
		return procErr

	case errors.Is(err, ErrInvalidTimeFormat):
		procErr.Category = ErrorCategoryTime
		procErr.Severity = ErrorSeverityError
		procErr.Suggestion = "Sidecar time uses an unknown layout - run with --log-level debug to see the value"
		return procErr

	case errors.Is(err, ErrEncoderUnsupported):
		procErr.Category = ErrorCategoryUnsupported
		procErr.Severity = ErrorSeverityWarning
		procErr.Suggestion = "File format has no tag writer - remove it from tag_extensions to copy it instead"
		return procErr

	case errors.Is(err, ErrAllocationExhausted):
		procErr.Category = ErrorCategoryIO
		procErr.Severity = ErrorSeverityError
		procErr.Suggestion = "Too many files share this name in the output directory"
		return procErr
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no space left"):
		procErr.Category = ErrorCategoryIO
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "Free up disk space on the output drive and rerun"

	case errors.Is(err, fs.ErrPermission) || strings.Contains(errStr, "permission denied"):
		procErr.Category = ErrorCategoryIO
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "Check file permissions on both input and output directories"

	case strings.Contains(errStr, "read-only file system"):
		procErr.Category = ErrorCategoryIO
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "Output filesystem is read-only - check mount options"

	case strings.Contains(errStr, "too many open files"):
		procErr.Category = ErrorCategoryIO
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "System file descriptor limit reached - lower workers or raise ulimit"

	case strings.Contains(errStr, "input/output error"):
		procErr.Category = ErrorCategoryIO
		procErr.Severity = ErrorSeverityError
		procErr.Suggestion = "I/O error - check disk health with SMART tools"

	case errors.Is(err, fs.ErrNotExist) || strings.Contains(errStr, "no such file"):
		procErr.Category = ErrorCategoryIO
		procErr.Severity = ErrorSeverityError
		procErr.Suggestion = "File disappeared during the run - check if an external drive disconnected"

	case strings.Contains(errStr, "exif") || strings.Contains(errStr, "jpeg") || strings.Contains(errStr, "tiff"):
		procErr.Category = ErrorCategoryMetadata
		procErr.Severity = ErrorSeverityError
		procErr.Suggestion = "Image metadata could not be rewritten - try use_exiftool or copy the file manually"

	default:
		procErr.Category = ErrorCategoryUnknown
		procErr.Severity = ErrorSeverityError
		procErr.Suggestion = "Unexpected error - check logs for details"
	}

	return procErr
}

// ErrorStats aggregates errors from all directory tasks.
type ErrorStats struct {
	mu         sync.Mutex
	Total      int
	Critical   int
	Errors     int
	Warnings   int
	ByCategory map[ErrorCategory]int
	LastErrors []*ProcessError // Last 5 errors for quick diagnosis
}

func NewErrorStats() *ErrorStats {
	return &ErrorStats{
		ByCategory: make(map[ErrorCategory]int),
		LastErrors: make([]*ProcessError, 0, 5),
	}
}

func (s *ErrorStats) Add(err *ProcessError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Total++
	s.ByCategory[err.Category]++

	switch err.Severity {
	case ErrorSeverityCritical:
		s.Critical++
	case ErrorSeverityError:
		s.Errors++
	case ErrorSeverityWarning:
		s.Warnings++
	}

	if len(s.LastErrors) >= 5 {
		s.LastErrors = s.LastErrors[1:]
	}
	s.LastErrors = append(s.LastErrors, err)
}

func (s *ErrorStats) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Total
}

// GenerateReport creates a human-readable error report
func (s *ErrorStats) GenerateReport() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report strings.Builder
	if s.Total == 0 {
		return ""
	}

	red := color.New(color.FgRed, color.Bold).SprintFunc()
	orange := color.New(color.FgYellow, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(&report, "\nMerge encountered %d problems:\n\n", s.Total)
	if s.Critical > 0 {
		fmt.Fprintf(&report, "  %s %d (system-level issues)\n", red("Critical:"), s.Critical)
	}
	if s.Errors > 0 {
		fmt.Fprintf(&report, "  %s   %d (file-level issues)\n", orange("Errors:"), s.Errors)
	}
	if s.Warnings > 0 {
		fmt.Fprintf(&report, "  %s %d (file copied without metadata)\n", yellow("Warnings:"), s.Warnings)
	}

	report.WriteString("\nError categories:\n")
	cats := make([]string, 0, len(s.ByCategory))
	for cat := range s.ByCategory {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	for _, cat := range cats {
		fmt.Fprintf(&report, "  - %s: %d\n", cat, s.ByCategory[ErrorCategory(cat)])
	}

	report.WriteString("\nRecent errors:\n")
	for i, err := range s.LastErrors {
		fmt.Fprintf(&report, "\n%d. %s\n", i+1, err.FilePath)
		fmt.Fprintf(&report, "   Category: %s | Severity: %s\n", err.Category, err.Severity)
		fmt.Fprintf(&report, "   Error: %v\n", err.OriginalErr)
		if err.Suggestion != "" {
			fmt.Fprintf(&report, "   Suggestion: %s\n", err.Suggestion)
		}
	}

	report.WriteString("\n")
	report.WriteString(s.generateSuggestions())
	return report.String()
}

func (s *ErrorStats) generateSuggestions() string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggested next steps:\n")

	if s.ByCategory[ErrorCategoryIO] > 0 {
		suggestions.WriteString("  - Check disk space and permissions\n")
	}
	if s.ByCategory[ErrorCategoryDecode] > 0 {
		suggestions.WriteString("  - Run 'takeoutmerge standardize' on the export to fix truncated sidecar names\n")
	}
	if s.ByCategory[ErrorCategoryMetadata] > s.Total/2 {
		suggestions.WriteString("  - Many metadata errors - consider enabling use_exiftool\n")
	}
	suggestions.WriteString("  - Check the run manifest for the full error log\n")

	return suggestions.String()
}
