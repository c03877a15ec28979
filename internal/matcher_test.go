package internal

import (
	"path/filepath"
	"testing"
)

func paths(dir string, names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}

func TestSidecarMatcher_Tiers(t *testing.T) {
	dir := filepath.Join("takeout", "Photos from 2023")

	tests := []struct {
		name       string
		media      string
		candidates []string
		want       string
		tier       MatchTier
	}{
		{"prefix beats exact stem", "IMG_1.jpg", []string{"IMG_1.json", "IMG_1.jpg.json"}, "IMG_1.jpg.json", TierPrefix},
		{"prefix is case-insensitive", "img_2.JPG", []string{"IMG_2.jpg.json"}, "IMG_2.jpg.json", TierPrefix},
		{"exact stem", "IMG_3.jpg", []string{"other.json", "IMG_3.json"}, "IMG_3.json", TierExactStem},
		{"nearest", "a.png", []string{"b.json"}, "b.json", TierNearest},
		{"nearest picks first minimum", "IMG_4.jpg", []string{"IMG_5.jpg.jso", "IMG_6.jpg.jso"}, "IMG_5.jpg.jso", TierNearest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSidecarMatcher(paths(dir, tt.candidates...))
			got, ok := m.Match(filepath.Join(dir, tt.media))
			if !ok {
				t.Fatal("expected a match")
			}
			if got.Path != filepath.Join(dir, tt.want) {
				t.Errorf("Expected %s, got %s", tt.want, got.Path)
			}
			if got.Tier != tt.tier {
				t.Errorf("Expected tier %s, got %s", tt.tier, got.Tier)
			}
		})
	}
}

func TestSidecarMatcher_NoCandidates(t *testing.T) {
	m := NewSidecarMatcher(nil)
	if _, ok := m.Match("photo.jpg"); ok {
		t.Error("expected no match without candidates")
	}
}

func TestSidecarMatcher_ExactStemIsExclusive(t *testing.T) {
	dir := "album"
	m := NewSidecarMatcher(paths(dir, "a.json", "zzzzzzzz.json"))

	first, _ := m.Match(filepath.Join(dir, "a.jpg"))
	if first.Tier != TierExactStem || first.Path != filepath.Join(dir, "a.json") {
		t.Fatalf("unexpected first match %+v", first)
	}

	// a.png has the same stem, but a.json is already claimed.
	second, _ := m.Match(filepath.Join(dir, "a.png"))
	if second.Tier == TierExactStem {
		t.Errorf("a.json was handed out twice by the exact-stem tier")
	}
}

func TestSidecarMatcher_NearestMayBeReused(t *testing.T) {
	dir := "album"
	m := NewSidecarMatcher(paths(dir, "weird.json"))

	for _, media := range []string{"a.jpg", "a2.jpg"} {
		got, ok := m.Match(filepath.Join(dir, media))
		if !ok || got.Tier != TierNearest || got.Path != filepath.Join(dir, "weird.json") {
			t.Errorf("%s: unexpected match %+v", media, got)
		}
	}
}

func TestSidecarMatcher_PrefixDoesNotClaim(t *testing.T) {
	dir := "album"
	m := NewSidecarMatcher(paths(dir, "IMG_7.jpg.json"))

	if got, _ := m.Match(filepath.Join(dir, "IMG_7.jpg")); got.Tier != TierPrefix {
		t.Fatalf("expected prefix match, got %s", got.Tier)
	}
	if got, _ := m.Match(filepath.Join(dir, "IMG_7.jpg")); got.Tier != TierPrefix {
		t.Errorf("prefix match should stay available, got %s", got.Tier)
	}
}
