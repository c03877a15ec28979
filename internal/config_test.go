package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "takeoutmerge.toml")
	content := `workers = 3
flatten = true
tag_extensions = ["JPG", ".Tif"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	t.Setenv("TAKEOUTMERGE_AUTHOR", "Ada")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Workers != 3 || !cfg.Flatten {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Author != "Ada" {
		t.Errorf("Expected author from env, got %q", cfg.Author)
	}
	if len(cfg.TagExt) != 2 || cfg.TagExt[0] != ".jpg" || cfg.TagExt[1] != ".tif" {
		t.Errorf("extensions not normalized: %v", cfg.TagExt)
	}
	if !cfg.CopyUnmatched || !cfg.Manifest {
		t.Error("defaults lost")
	}
}

func TestHasExt(t *testing.T) {
	exts := normalizeExts([]string{"png", " .JPEG "})
	tests := []struct {
		path string
		want bool
	}{
		{"a.png", true},
		{"b.PNG", true},
		{"c.jpeg", true},
		{"d.jpg", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := hasExt(exts, tt.path); got != tt.want {
			t.Errorf("hasExt(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
