package internal

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/atomic"
)

// Outcome is what happened to one media file.
type Outcome string

const (
	OutcomeMerged    Outcome = "merged"
	OutcomeConverted Outcome = "converted"
	OutcomeCopied    Outcome = "copied"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeFailed    Outcome = "failed"
	OutcomePlanned   Outcome = "planned"
)

// Progress receives completion events from directory tasks. Implementations
// must be safe for concurrent use.
type Progress interface {
	FileDone(path string, outcome Outcome)
	FolderDone(dir string)
}

// Counters is the run's Progress sink. It optionally drives a terminal bar.
type Counters struct {
	Folders   atomic.Int64
	Files     atomic.Int64
	Merged    atomic.Int64
	Converted atomic.Int64
	Copied    atomic.Int64
	Unmatched atomic.Int64
	Failed    atomic.Int64
	Bytes     atomic.Int64

	bar *progressbar.ProgressBar
}

// NewCounters returns counters with a progress bar on w when w is a terminal.
func NewCounters(total int, w io.Writer) *Counters {
	c := &Counters{}
	if f, ok := w.(*os.File); ok && total > 0 && isatty.IsTerminal(f.Fd()) {
		c.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("merging"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	return c
}

func (c *Counters) FileDone(_ string, outcome Outcome) {
	c.Files.Inc()
	switch outcome {
	case OutcomeMerged:
		c.Merged.Inc()
	case OutcomeConverted:
		c.Converted.Inc()
	case OutcomeCopied:
		c.Copied.Inc()
	case OutcomeUnmatched:
		c.Unmatched.Inc()
	case OutcomeFailed:
		c.Failed.Inc()
	}
	if c.bar != nil {
		_ = c.bar.Add(1)
	}
}

func (c *Counters) FolderDone(string) {
	c.Folders.Inc()
}

func (c *Counters) AddBytes(n int64) {
	c.Bytes.Add(n)
}

// Finish clears the progress bar.
func (c *Counters) Finish() {
	if c.bar != nil {
		_ = c.bar.Finish()
	}
}

// Summary is a point-in-time copy of the counters.
type Summary struct {
	Folders   int64
	Files     int64
	Merged    int64
	Converted int64
	Copied    int64
	Unmatched int64
	Failed    int64
	Bytes     int64
}

func (c *Counters) Summary() Summary {
	return Summary{
		Folders:   c.Folders.Load(),
		Files:     c.Files.Load(),
		Merged:    c.Merged.Load(),
		Converted: c.Converted.Load(),
		Copied:    c.Copied.Load(),
		Unmatched: c.Unmatched.Load(),
		Failed:    c.Failed.Load(),
		Bytes:     c.Bytes.Load(),
	}
}
