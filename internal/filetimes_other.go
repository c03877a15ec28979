//go:build !linux && !darwin && !windows

package internal

import "time"

func birthTime(string) (time.Time, bool) {
	return time.Time{}, false
}

func setBirthTime(string, time.Time) error {
	return errBirthTimeUnsupported
}
