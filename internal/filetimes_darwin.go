//go:build darwin

package internal

import (
	"time"

	"golang.org/x/sys/unix"
)

func birthTime(path string) (time.Time, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, false
	}
	sec, nsec := st.Birthtimespec.Unix()
	if sec == 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, nsec), true
}

func setBirthTime(string, time.Time) error {
	return errBirthTimeUnsupported
}
