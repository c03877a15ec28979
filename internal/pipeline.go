package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Merger merges sidecar metadata into the media files of an export.
type Merger struct {
	cfg         *Config
	fs          afero.Fs
	log         *zap.Logger
	writer      *TagWriter
	times       *FileTimestampApplier
	conv        Converter
	videos      VideoTagger
	session     *RunSession
	stats       *ErrorStats
	progressOut io.Writer
}

type MergerOption func(*Merger)

// WithSession records every file outcome in s.
func WithSession(s *RunSession) MergerOption {
	return func(m *Merger) { m.session = s }
}

// WithVideoTagger enables date tagging of files with a video extension.
func WithVideoTagger(t VideoTagger) MergerOption {
	return func(m *Merger) { m.videos = t }
}

// WithProgressOutput sets where the progress bar is drawn. Nil disables it.
func WithProgressOutput(w io.Writer) MergerOption {
	return func(m *Merger) { m.progressOut = w }
}

func WithConverter(c Converter) MergerOption {
	return func(m *Merger) { m.conv = c }
}

func NewMerger(cfg *Config, log *zap.Logger, opts ...MergerOption) *Merger {
	m := &Merger{
		cfg:         cfg,
		fs:          afero.NewOsFs(),
		log:         log,
		writer:      NewTagWriter(log, cfg.Author),
		times:       NewFileTimestampApplier(log),
		conv:        PNGConverter{},
		stats:       NewErrorStats(),
		progressOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cfg.Workers < 1 {
		m.cfg.Workers = 1
	}
	return m
}

func (m *Merger) Stats() *ErrorStats {
	return m.stats
}

// RunSummary is the result of a whole run.
type RunSummary struct {
	Summary
	Errors   int
	Duration time.Duration
}

// Run processes inputDir and every directory below it. Each directory is one
// task; tasks run concurrently up to cfg.Workers and the files inside a task
// run in order. Only setup problems are returned as errors.
func (m *Merger) Run(ctx context.Context, inputDir, outputDir string) (RunSummary, error) {
	start := time.Now()

	inAbs, outAbs, err := m.prepare(inputDir, outputDir)
	if err != nil {
		return RunSummary{}, err
	}

	dirs, total, err := ScanDirectories(m.fs, inAbs, func(path string, err error) {
		m.fail(path, err, map[string]string{"stage": "scan"})
	})
	if err != nil {
		return RunSummary{}, fmt.Errorf("%w: %v", ErrSetup, err)
	}
	dirs = excludeSubtree(dirs, outAbs)

	m.log.Info("starting merge",
		zap.String("input", inAbs),
		zap.String("output", outAbs),
		zap.Int("folders", len(dirs)),
		zap.Int("files", total),
		zap.Bool("dry_run", m.cfg.DryRun))

	if m.session != nil {
		if err := m.session.LogSessionStart(total); err != nil {
			m.log.Warn("manifest write failed", zap.Error(err))
		}
	}

	counters := NewCounters(total, m.progressOut)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for _, dir := range dirs {
		if gctx.Err() != nil {
			break
		}
		outDir := m.outputDirFor(inAbs, outAbs, dir)
		g.Go(func() error {
			if err := m.ProcessFolder(gctx, dir, outDir, counters); err != nil && !errors.Is(err, context.Canceled) {
				m.log.Error("folder failed", zap.String("dir", dir), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	counters.Finish()

	sum := RunSummary{
		Summary:  counters.Summary(),
		Errors:   m.stats.Count(),
		Duration: time.Since(start),
	}
	if m.session != nil {
		if err := m.session.LogSessionEnd(sum.Summary, sum.Errors); err != nil {
			m.log.Warn("manifest write failed", zap.Error(err))
		}
	}
	m.log.Info("merge finished",
		zap.Int64("folders", sum.Folders),
		zap.Int64("files", sum.Files),
		zap.Int64("merged", sum.Merged),
		zap.Int64("converted", sum.Converted),
		zap.Int64("copied", sum.Copied),
		zap.Int64("unmatched", sum.Unmatched),
		zap.Int64("failed", sum.Failed),
		zap.Int("errors", sum.Errors),
		zap.Duration("took", sum.Duration))
	return sum, ctx.Err()
}

func (m *Merger) prepare(inputDir, outputDir string) (string, string, error) {
	inAbs, err := filepath.Abs(inputDir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrSetup, err)
	}
	outAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrSetup, err)
	}
	info, err := m.fs.Stat(inAbs)
	if err != nil || !info.IsDir() {
		return "", "", fmt.Errorf("%w: input folder does not exist or is not a directory: %s", ErrSetup, inputDir)
	}
	if inAbs == outAbs {
		return "", "", fmt.Errorf("%w: output folder must differ from input folder", ErrSetup)
	}
	if !m.cfg.DryRun {
		if err := m.fs.MkdirAll(outAbs, 0755); err != nil {
			return "", "", fmt.Errorf("%w: create output folder: %v", ErrSetup, err)
		}
	}
	return inAbs, outAbs, nil
}

func (m *Merger) outputDirFor(inRoot, outRoot, dir string) string {
	if m.cfg.Flatten {
		return outRoot
	}
	rel, err := filepath.Rel(inRoot, dir)
	if err != nil {
		return outRoot
	}
	return filepath.Join(outRoot, rel)
}

func excludeSubtree(dirs []string, root string) []string {
	out := dirs[:0]
	for _, d := range dirs {
		rel, err := filepath.Rel(root, d)
		if err == nil && (rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ProcessFolder merges the files directly inside dir into outDir. Per-file
// failures are recorded and skipped; the returned error is for the folder
// listing or cancellation only.
func (m *Merger) ProcessFolder(ctx context.Context, dir, outDir string, progress Progress) error {
	defer progress.FolderDone(dir)

	listing, err := ListDirectory(m.fs, dir, m.cfg.IgnoreSidecars)
	if err != nil {
		m.fail(dir, err, nil)
		return err
	}
	if len(listing.Media) == 0 {
		return nil
	}
	if !m.cfg.DryRun {
		if err := m.fs.MkdirAll(outDir, 0755); err != nil {
			m.fail(dir, err, map[string]string{"dest": outDir})
			return err
		}
	}

	matcher := NewSidecarMatcher(listing.Sidecars)
	for _, media := range listing.Media {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, written := m.processFile(media, outDir, matcher)
		progress.FileDone(media, outcome)
		if bc, ok := progress.(byteCounter); ok && written > 0 {
			bc.AddBytes(written)
		}
	}
	m.log.Debug("folder done", zap.String("dir", dir), zap.Int("files", len(listing.Media)))
	return nil
}

type byteCounter interface {
	AddBytes(n int64)
}

type route int

const (
	routeCopy route = iota
	routeTag
	routeConvert
)

func (r route) String() string {
	switch r {
	case routeTag:
		return "tag"
	case routeConvert:
		return "convert"
	}
	return "copy"
}

func (m *Merger) routeFor(path string) route {
	switch {
	case hasExt(m.cfg.ConvertExt, path):
		return routeConvert
	case hasExt(m.cfg.TagExt, path):
		return routeTag
	}
	return routeCopy
}

type fileResult struct {
	dest  string
	size  int64
	taken time.Time
}

func (m *Merger) processFile(src, outDir string, matcher *SidecarMatcher) (Outcome, int64) {
	log := m.log.With(zap.String("file", src))

	match, matched := matcher.Match(src)
	var md *MediaMetadata
	if matched {
		var err error
		md, err = LoadSidecar(m.fs, match.Path)
		if err != nil {
			m.fail(src, err, nil)
			md = nil
		} else {
			log.Debug("matched sidecar", zap.String("sidecar", match.Path), zap.Stringer("tier", match.Tier))
		}
	}

	r := m.routeFor(src)
	if m.cfg.DryRun {
		m.plan(log, src, outDir, match, md, r)
		return OutcomePlanned, 0
	}

	if md == nil {
		if !m.cfg.CopyUnmatched {
			log.Info("no sidecar, skipping")
			return OutcomeUnmatched, 0
		}
		res, err := m.copyFile(src, outDir, nil)
		if err != nil {
			m.fail(src, err, nil)
			return OutcomeFailed, 0
		}
		m.record(OutcomeUnmatched, src, Match{}, res)
		return OutcomeUnmatched, res.size
	}

	var (
		res     fileResult
		err     error
		outcome Outcome
	)
	switch r {
	case routeConvert:
		res, err = m.convertFile(src, outDir, md)
		outcome = OutcomeConverted
	case routeTag:
		res, err = m.tagFile(src, outDir, md)
		outcome = OutcomeMerged
	default:
		res, err = m.copyFile(src, outDir, md)
		outcome = OutcomeCopied
	}
	if err != nil && r != routeCopy {
		// Keep the file in the output even when its tags could not be written.
		m.fail(src, err, nil)
		res, err = m.copyFile(src, outDir, md)
		outcome = OutcomeCopied
	}
	if err != nil {
		m.fail(src, err, nil)
		return OutcomeFailed, 0
	}
	m.record(outcome, src, match, res)
	return outcome, res.size
}

func (m *Merger) plan(log *zap.Logger, src, outDir string, match Match, md *MediaMetadata, r route) {
	name := filepath.Base(src)
	if r == routeConvert {
		name = trimExt(name) + ".tiff"
	}
	if md == nil {
		r = routeCopy
	}
	dest, err := AllocateOutputPath(m.fs, filepath.Join(outDir, name))
	if err != nil {
		m.fail(src, err, nil)
		return
	}
	log.Info("[dry-run] planned",
		zap.Stringer("route", r),
		zap.String("sidecar", match.Path),
		zap.Stringer("tier", match.Tier),
		zap.String("dest", dest))
}

// tagFile writes src with merged tags to a fresh path in outDir.
func (m *Merger) tagFile(src, outDir string, md *MediaMetadata) (fileResult, error) {
	codec, err := CodecFor(src)
	if err != nil {
		return fileResult{}, err
	}
	return m.writeTagged(codec, src, src, filepath.Join(outDir, filepath.Base(src)), md)
}

// convertFile converts src to TIFF in a scratch folder, then writes the
// tagged TIFF as "<stem>.tiff" in outDir.
func (m *Merger) convertFile(src, outDir string, md *MediaMetadata) (fileResult, error) {
	work, err := os.MkdirTemp(outDir, ".convert-*")
	if err != nil {
		return fileResult{}, err
	}
	defer os.RemoveAll(work)

	converted, err := m.conv.ConvertToTIFF(src, work)
	if err != nil {
		return fileResult{}, err
	}
	return m.writeTagged(tiffCodec{}, converted, src, filepath.Join(outDir, trimExt(filepath.Base(src))+".tiff"), md)
}

// writeTagged loads tags from img, applies md using the original file's
// times as the fallback, and saves to a unique path derived from desired.
func (m *Merger) writeTagged(codec ImageCodec, img, original, desired string, md *MediaMetadata) (fileResult, error) {
	tags, err := codec.LoadTags(img)
	if err != nil {
		return fileResult{}, err
	}
	if _, err := m.writer.Apply(tags, md, observedCreation(original), observedWrite(original)); err != nil {
		return fileResult{}, err
	}
	m.log.Debug("tags applied",
		zap.String("file", original),
		zap.Int("changed", len(tags.Dirty())),
		zap.Int("total", tags.Len()))

	dest, err := ReservePath(m.fs, desired)
	if err != nil {
		return fileResult{}, err
	}
	if err := codec.SaveWithTags(img, tags, dest); err != nil {
		m.fs.Remove(dest)
		return fileResult{}, err
	}
	res := fileResult{dest: dest}
	// The tagged file exists from here on; later problems are recorded
	// without falling back to a second copy.
	in, err := m.times.Apply(dest, md)
	if err != nil {
		m.fail(original, err, map[string]string{"dest": dest})
	}
	res.taken = in.Taken
	if info, err := m.fs.Stat(dest); err == nil {
		res.size = info.Size()
	}
	return res, nil
}

// copyFile copies src unchanged. With a record the sidecar times are applied
// (and video tags when enabled); without one the source's own times are kept.
func (m *Merger) copyFile(src, outDir string, md *MediaMetadata) (fileResult, error) {
	dest, n, err := CopyToUnique(m.fs, src, filepath.Join(outDir, filepath.Base(src)))
	if err != nil {
		return fileResult{}, err
	}
	res := fileResult{dest: dest, size: n}

	var in Instants
	if md == nil {
		in, err = ResolveInstants(nil, observedCreation(src), observedWrite(src))
	} else {
		in, err = ResolveInstants(md, observedCreation(dest), observedWrite(dest))
	}
	if err != nil {
		m.fail(src, err, map[string]string{"dest": dest})
		return res, nil
	}
	if md != nil {
		res.taken = in.Taken
		if m.videos != nil && hasExt(m.cfg.VideoExt, src) {
			if err := m.videos.TagVideo(dest, md, in); err != nil {
				m.fail(src, err, map[string]string{"dest": dest})
			}
		}
	}
	if err := m.times.Set(dest, in); err != nil {
		m.fail(src, err, map[string]string{"dest": dest})
	}
	return res, nil
}

func (m *Merger) record(outcome Outcome, src string, match Match, res fileResult) {
	if m.session == nil {
		return
	}
	var hash string
	if m.cfg.HashOutputs {
		h, err := fileHash(m.fs, res.dest)
		if err != nil {
			m.log.Warn("hash failed", zap.String("dest", res.dest), zap.Error(err))
		}
		hash = h
	}
	if err := m.session.LogFile(outcome, src, match, res.dest, hash, res.size, res.taken); err != nil {
		m.log.Warn("manifest write failed", zap.Error(err))
	}
}

func (m *Merger) fail(path string, err error, ctx map[string]string) {
	procErr := CategorizeError(path, err)
	for k, v := range ctx {
		procErr.Context[k] = v
	}
	m.stats.Add(procErr)

	fields := []zap.Field{
		zap.String("file", path),
		zap.String("category", string(procErr.Category)),
		zap.Error(err),
	}
	if procErr.Severity == ErrorSeverityWarning {
		m.log.Warn("file problem", fields...)
	} else {
		m.log.Error("file failed", fields...)
	}

	if m.session != nil {
		if werr := m.session.LogDetailedError(path, procErr); werr != nil {
			m.log.Warn("manifest write failed", zap.Error(werr))
		}
	}
}
