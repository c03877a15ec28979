package internal

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

var errBirthTimeUnsupported = errors.New("creation time cannot be set on this platform")

// observedWrite returns the file's last-write time.
func observedWrite(path string) timeProducer {
	return func() (time.Time, error) {
		fi, err := os.Stat(path)
		if err != nil {
			return time.Time{}, err
		}
		return fi.ModTime(), nil
	}
}

// observedCreation returns the file's creation time where the platform
// exposes one, else its last-write time.
func observedCreation(path string) timeProducer {
	return func() (time.Time, error) {
		if t, ok := birthTime(path); ok {
			return t, nil
		}
		return observedWrite(path)()
	}
}

// FileTimestampApplier sets creation, last-write and last-access times on
// merged output files.
type FileTimestampApplier struct {
	log *zap.Logger
}

func NewFileTimestampApplier(log *zap.Logger) *FileTimestampApplier {
	return &FileTimestampApplier{log: log}
}

// Apply resolves the instants for md against dest's own times and writes them.
func (a *FileTimestampApplier) Apply(dest string, md *MediaMetadata) (Instants, error) {
	in, err := ResolveInstants(md, observedCreation(dest), observedWrite(dest))
	if err != nil {
		return Instants{}, err
	}
	return in, a.Set(dest, in)
}

// Set writes creation from in.Creation and write/access from in.Taken.
func (a *FileTimestampApplier) Set(dest string, in Instants) error {
	if err := setBirthTime(dest, in.Creation); err != nil {
		if !errors.Is(err, errBirthTimeUnsupported) {
			return fmt.Errorf("set creation time: %w", err)
		}
		a.log.Debug("creation time not settable", zap.String("path", dest))
	}
	if err := os.Chtimes(dest, in.Taken, in.Taken); err != nil {
		return fmt.Errorf("set file times: %w", err)
	}
	return nil
}
