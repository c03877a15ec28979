package internal

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Newer exports name sidecars "<media>.supplemental-metadata.json" and
// truncate the suffix to fit path limits (".supp.json", ".supplemen.json").
// A duplicate counter "(N)" may follow.
var supplementalSuffix = regexp.MustCompile(`(?i)\.sup(?:p(?:l(?:e(?:m(?:e(?:n(?:t(?:a(?:l(?:-(?:m(?:e(?:t(?:a(?:d(?:a(?:t(?:a)?)?)?)?)?)?)?)?)?)?)?)?)?)?)?)?)?)?(\(\d+\))?\.json$`)

// StandardizedSidecarName returns the "<media>.json" form of name and whether
// it differs from name.
func StandardizedSidecarName(name string) (string, bool) {
	loc := supplementalSuffix.FindStringSubmatchIndex(name)
	if loc == nil {
		return name, false
	}
	counter := ""
	if loc[2] >= 0 {
		counter = name[loc[2]:loc[3]]
	}
	return name[:loc[0]] + counter + ".json", true
}

// StandardizeResult counts what StandardizeSidecars did.
type StandardizeResult struct {
	Renamed int
	Skipped int
}

// StandardizeSidecars renames supplemental-metadata sidecars under root to
// "<media>.json". Existing targets are never overwritten.
func StandardizeSidecars(fs afero.Fs, root string, dryRun bool, log *zap.Logger) (StandardizeResult, error) {
	var res StandardizeResult
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		target, ok := StandardizedSidecarName(info.Name())
		if !ok {
			return nil
		}
		dest := filepath.Join(filepath.Dir(path), target)
		exists, err := afero.Exists(fs, dest)
		if err != nil {
			return err
		}
		if exists {
			log.Debug("standard sidecar already present", zap.String("file", path), zap.String("target", dest))
			res.Skipped++
			return nil
		}
		if dryRun {
			log.Info("[dry-run] would rename", zap.String("file", path), zap.String("target", dest))
			res.Renamed++
			return nil
		}
		if err := fs.Rename(path, dest); err != nil {
			return err
		}
		log.Debug("renamed sidecar", zap.String("file", path), zap.String("target", dest))
		res.Renamed++
		return nil
	})
	return res, err
}
