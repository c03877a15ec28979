package internal

import (
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
)

// MatchTier names the heuristic that paired a media file with its sidecar.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierPrefix
	TierExactStem
	TierNearest
)

func (t MatchTier) String() string {
	switch t {
	case TierPrefix:
		return "prefix"
	case TierExactStem:
		return "exact-stem"
	case TierNearest:
		return "nearest"
	}
	return "none"
}

type Match struct {
	Path string
	Tier MatchTier
}

// SidecarMatcher pairs media files of one directory with the JSON files found
// in it. Media files must be matched in enumeration order; sidecars claimed by
// the exact-stem or nearest tiers are not offered to later exact-stem lookups.
type SidecarMatcher struct {
	candidates []string
	used       map[string]struct{}
}

func NewSidecarMatcher(candidates []string) *SidecarMatcher {
	return &SidecarMatcher{
		candidates: candidates,
		used:       make(map[string]struct{}),
	}
}

// Match returns the best sidecar for mediaPath.
//
// Prefix matches do not claim the sidecar, so "IMG_1.jpg.json" can also serve
// "IMG_1.jpg" once per album copy. This mirrors exports in the wild; whether a
// prefix hit should be exclusive is still open.
func (m *SidecarMatcher) Match(mediaPath string) (Match, bool) {
	if len(m.candidates) == 0 {
		return Match{}, false
	}

	for _, c := range m.candidates {
		if hasPrefixFold(c, mediaPath) {
			return Match{Path: c, Tier: TierPrefix}, true
		}
	}

	mediaName := filepath.Base(mediaPath)
	mediaStem := trimExt(mediaName)
	for _, c := range m.candidates {
		if _, taken := m.used[c]; taken {
			continue
		}
		name := filepath.Base(c)
		if strings.EqualFold(trimExt(name), mediaStem) || strings.EqualFold(name, mediaName) {
			m.used[c] = struct{}{}
			return Match{Path: c, Tier: TierExactStem}, true
		}
	}

	best, bestDist := "", -1
	for _, c := range m.candidates {
		d := levenshtein.ComputeDistance(mediaPath, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	m.used[best] = struct{}{}
	return Match{Path: best, Tier: TierNearest}, true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
