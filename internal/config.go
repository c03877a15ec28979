package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Workers        int      `mapstructure:"workers"`
	LogFile        string   `mapstructure:"log_file"`
	LogLevel       string   `mapstructure:"log_level"`
	Author         string   `mapstructure:"author"`
	Flatten        bool     `mapstructure:"flatten"`
	CopyUnmatched  bool     `mapstructure:"copy_unmatched"`
	DryRun         bool     `mapstructure:"dry_run"`
	UseExifTool    bool     `mapstructure:"use_exiftool"`
	Manifest       bool     `mapstructure:"manifest"`
	HashOutputs    bool     `mapstructure:"hash_outputs"`
	ConvertExt     []string `mapstructure:"convert_extensions"`
	TagExt         []string `mapstructure:"tag_extensions"`
	VideoExt       []string `mapstructure:"video_extensions"`
	IgnoreSidecars []string `mapstructure:"ignore_sidecars"`
}

// DefaultConfig is the configuration used when no file, env or flag overrides it.
func DefaultConfig() *Config {
	return &Config{
		Workers:       runtime.NumCPU(),
		LogFile:       "takeoutmerge.log",
		LogLevel:      "info",
		CopyUnmatched: true,
		Manifest:      true,
		ConvertExt:    []string{".png"},
		TagExt:        []string{".jpg", ".jpeg", ".tif", ".tiff"},
		VideoExt:      []string{".mp4", ".mov", ".m4v", ".3gp", ".avi", ".mkv"},
		IgnoreSidecars: []string{
			"metadata.json",
			"print-subscriptions.json",
			"shared_album_comments.json",
			"user-generated-memory-titles.json",
		},
	}
}

// LoadConfig reads takeoutmerge.toml from the user config dir (or the file
// set with SetConfigFile), TAKEOUTMERGE_* env vars and any bound flags.
func LoadConfig() (*Config, error) {
	if viper.ConfigFileUsed() == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to find user config dir: %w", err)
		}
		viper.SetConfigName("takeoutmerge")
		viper.SetConfigType("toml")
		viper.AddConfigPath(filepath.Join(configDir, "takeoutmerge"))
	}

	viper.SetEnvPrefix("takeoutmerge")
	viper.AutomaticEnv()

	def := DefaultConfig()
	viper.SetDefault("workers", def.Workers)
	viper.SetDefault("log_file", def.LogFile)
	viper.SetDefault("log_level", def.LogLevel)
	viper.SetDefault("author", def.Author)
	viper.SetDefault("flatten", def.Flatten)
	viper.SetDefault("copy_unmatched", def.CopyUnmatched)
	viper.SetDefault("dry_run", def.DryRun)
	viper.SetDefault("use_exiftool", def.UseExifTool)
	viper.SetDefault("manifest", def.Manifest)
	viper.SetDefault("hash_outputs", def.HashOutputs)
	viper.SetDefault("convert_extensions", def.ConvertExt)
	viper.SetDefault("tag_extensions", def.TagExt)
	viper.SetDefault("video_extensions", def.VideoExt)
	viper.SetDefault("ignore_sidecars", def.IgnoreSidecars)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.Workers < 1 {
		c.Workers = 1
	}
	c.ConvertExt = normalizeExts(c.ConvertExt)
	c.TagExt = normalizeExts(c.TagExt)
	c.VideoExt = normalizeExts(c.VideoExt)
	for i, name := range c.IgnoreSidecars {
		c.IgnoreSidecars[i] = strings.ToLower(strings.TrimSpace(name))
	}
}

func normalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func hasExt(exts []string, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
