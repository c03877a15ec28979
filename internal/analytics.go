package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// AnalyticsOptions contains configuration for export analysis
type AnalyticsOptions struct {
	FindDuplicates bool
	Format         string
}

// ExportReport describes what a merge of an export would do.
type ExportReport struct {
	FolderPath  string `json:"folder_path"`
	Folders     int    `json:"folders"`
	MediaFiles  int    `json:"media_files"`
	Sidecars    int    `json:"sidecars"`
	IgnoredJSON int    `json:"ignored_json"`
	TotalSize   int64  `json:"total_size_bytes"`

	Routes     map[string]int `json:"routes"`
	Extensions map[string]int `json:"extensions"`
	Tiers      map[string]int `json:"match_tiers"`

	// Unmatched lists media files without any sidecar candidate, up to 10.
	Unmatched      []string `json:"unmatched,omitempty"`
	UnmatchedCount int      `json:"unmatched_count"`
	// OrphanSidecars are sidecars no media file in their folder picked.
	OrphanSidecars     int `json:"orphan_sidecars"`
	PendingStandardize int `json:"pending_standardize"`
	// Unreadable lists folders the scan could not open.
	Unreadable []string `json:"unreadable,omitempty"`

	Duplicates   []DuplicateSet  `json:"duplicates,omitempty"`
	LargestFiles []LargeFileInfo `json:"largest_files"`

	ScanDuration time.Duration `json:"scan_duration"`
}

type DuplicateSet struct {
	Hash  string   `json:"hash"`
	Files []string `json:"files"`
	Size  int64    `json:"size_bytes"`
}

type LargeFileInfo struct {
	Path string `json:"path"`
	Size int64  `json:"size_bytes"`
}

const maxListedUnmatched = 10

// AnalyzeExport runs the directory listing and sidecar matching of a merge
// over root without writing anything.
func AnalyzeExport(fs afero.Fs, root string, cfg *Config, options *AnalyticsOptions) (*ExportReport, error) {
	start := time.Now()
	report := &ExportReport{
		FolderPath: root,
		Routes:     make(map[string]int),
		Extensions: make(map[string]int),
		Tiers:      make(map[string]int),
	}

	dirs, _, err := ScanDirectories(fs, root, func(path string, err error) {
		report.Unreadable = append(report.Unreadable, path)
	})
	if err != nil {
		return nil, err
	}

	m := &Merger{cfg: cfg}
	hashes := make(map[string][]string)
	for _, dir := range dirs {
		report.Folders++
		if err := analyzeFolder(fs, dir, m, report, options, hashes); err != nil {
			return nil, err
		}
	}

	if options.FindDuplicates {
		report.Duplicates = findDuplicateSets(fs, hashes)
	}
	sort.Slice(report.LargestFiles, func(i, j int) bool {
		return report.LargestFiles[i].Size > report.LargestFiles[j].Size
	})
	if len(report.LargestFiles) > 5 {
		report.LargestFiles = report.LargestFiles[:5]
	}
	report.ScanDuration = time.Since(start)
	return report, nil
}

func analyzeFolder(fs afero.Fs, dir string, m *Merger, report *ExportReport, options *AnalyticsOptions, hashes map[string][]string) error {
	all, err := ListDirectory(fs, dir, nil)
	if err != nil {
		return err
	}
	listing, err := ListDirectory(fs, dir, m.cfg.IgnoreSidecars)
	if err != nil {
		return err
	}
	report.IgnoredJSON += len(all.Sidecars) - len(listing.Sidecars)
	report.Sidecars += len(listing.Sidecars)
	for _, sc := range listing.Sidecars {
		if _, ok := StandardizedSidecarName(filepath.Base(sc)); ok {
			report.PendingStandardize++
		}
	}

	matcher := NewSidecarMatcher(listing.Sidecars)
	picked := make(map[string]struct{})
	for _, media := range listing.Media {
		report.MediaFiles++
		report.Routes[m.routeFor(media).String()]++
		report.Extensions[strings.ToLower(filepath.Ext(media))]++

		if info, err := fs.Stat(media); err == nil {
			report.TotalSize += info.Size()
			report.LargestFiles = append(report.LargestFiles, LargeFileInfo{Path: media, Size: info.Size()})
		}

		match, ok := matcher.Match(media)
		if !ok {
			report.UnmatchedCount++
			if len(report.Unmatched) < maxListedUnmatched {
				report.Unmatched = append(report.Unmatched, media)
			}
		} else {
			report.Tiers[match.Tier.String()]++
			picked[match.Path] = struct{}{}
		}

		if options.FindDuplicates {
			if h, err := fileHash(fs, media); err == nil {
				hashes[h] = append(hashes[h], media)
			}
		}
	}
	report.OrphanSidecars += len(listing.Sidecars) - len(picked)
	return nil
}

func findDuplicateSets(fs afero.Fs, hashes map[string][]string) []DuplicateSet {
	var duplicates []DuplicateSet
	for hash, files := range hashes {
		if len(files) < 2 {
			continue
		}
		size := int64(0)
		if info, err := fs.Stat(files[0]); err == nil {
			size = info.Size()
		}
		duplicates = append(duplicates, DuplicateSet{Hash: hash, Files: files, Size: size})
	}
	sort.Slice(duplicates, func(i, j int) bool { return duplicates[i].Size > duplicates[j].Size })
	return duplicates
}

// DisplayAnalytics writes the report as a table or as JSON.
func DisplayAnalytics(w io.Writer, report *ExportReport, options *AnalyticsOptions) error {
	if options.Format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}
	displayTable(w, report, options)
	return nil
}

func displayTable(w io.Writer, r *ExportReport, options *AnalyticsOptions) {
	fmt.Fprintf(w, "=== Export analysis: %s ===\n\n", r.FolderPath)

	fmt.Fprintf(w, "Overview:\n")
	fmt.Fprintf(w, "  - %d media files (%s) in %d folders\n", r.MediaFiles, humanize.Bytes(uint64(r.TotalSize)), r.Folders)
	fmt.Fprintf(w, "  - %d sidecars", r.Sidecars)
	if r.IgnoredJSON > 0 {
		fmt.Fprintf(w, " (%d export-level JSON files ignored)", r.IgnoredJSON)
	}
	fmt.Fprintf(w, "\n  - Scan completed in %v\n\n", r.ScanDuration.Round(time.Millisecond))

	fmt.Fprintf(w, "Planned handling:\n")
	for _, route := range []string{"tag", "convert", "copy"} {
		if n := r.Routes[route]; n > 0 {
			fmt.Fprintf(w, "  - %s: %d (%d%%)\n", route, n, percentage(n, r.MediaFiles))
		}
	}
	displayCounts(w, "Extensions", r.Extensions)

	fmt.Fprintf(w, "\nSidecar matching:\n")
	for _, tier := range []MatchTier{TierPrefix, TierExactStem, TierNearest} {
		if n := r.Tiers[tier.String()]; n > 0 {
			fmt.Fprintf(w, "  - %s: %d\n", tier, n)
		}
	}
	if r.UnmatchedCount > 0 {
		fmt.Fprintf(w, "  - no sidecar: %d\n", r.UnmatchedCount)
		for _, p := range r.Unmatched {
			fmt.Fprintf(w, "      %s\n", p)
		}
		if r.UnmatchedCount > len(r.Unmatched) {
			fmt.Fprintf(w, "      ... and %d more\n", r.UnmatchedCount-len(r.Unmatched))
		}
	}

	if len(r.LargestFiles) > 0 {
		fmt.Fprintf(w, "\nLargest files:\n")
		for i, f := range r.LargestFiles {
			fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, filepath.Base(f.Path), humanize.Bytes(uint64(f.Size)))
		}
	}

	if options.FindDuplicates && len(r.Duplicates) > 0 {
		fmt.Fprintf(w, "\nDuplicates found (%d sets):\n", len(r.Duplicates))
		var waste int64
		for i, dup := range r.Duplicates {
			if i < 5 {
				fmt.Fprintf(w, "  - Set %d: %d files (%s each)\n", i+1, len(dup.Files), humanize.Bytes(uint64(dup.Size)))
			}
			waste += dup.Size * int64(len(dup.Files)-1)
		}
		if len(r.Duplicates) > 5 {
			fmt.Fprintf(w, "  - ... and %d more sets\n", len(r.Duplicates)-5)
		}
		fmt.Fprintf(w, "  Album copies take %s extra\n", humanize.Bytes(uint64(waste)))
	}

	if len(r.Unreadable) > 0 {
		fmt.Fprintf(w, "\nUnreadable folders (%d):\n", len(r.Unreadable))
		for _, p := range r.Unreadable {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}

	fmt.Fprintf(w, "\nRecommendations:\n")
	if r.PendingStandardize > 0 {
		fmt.Fprintf(w, "  - %d sidecars use the supplemental-metadata naming\n", r.PendingStandardize)
		fmt.Fprintf(w, "    Run: takeoutmerge standardize %s\n", r.FolderPath)
	}
	if r.OrphanSidecars > 0 {
		fmt.Fprintf(w, "  - %d sidecars are not picked by any file in their folder\n", r.OrphanSidecars)
	}
	if r.MediaFiles > 0 {
		fmt.Fprintf(w, "  - Ready to merge: %d media files\n", r.MediaFiles)
		fmt.Fprintf(w, "    Run: takeoutmerge merge %s <output>\n", r.FolderPath)
	}
}

func displayCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(w, "  - %s: %d\n", name, counts[k])
	}
}

func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return (part * 100) / total
}
