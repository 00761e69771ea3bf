// Package config loads dupefind's CLI configuration from layered sources:
// built-in defaults, an optional project config file, and environment
// variables, in that order of increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dupefind/dupefind/pkg/dupe"
)

// FileName is the project config file dupefind reads, relative to the
// project root.
const FileName = ".dupefind.json"

// EnvPrefix is the prefix environment variables must carry to override
// config values, e.g. DUPEFIND_MINMATCH=50.
const EnvPrefix = "DUPEFIND_"

// Config is the resolved set of CLI-tunable settings.
type Config struct {
	MinMatch     int    `koanf:"minmatch"`
	Normalize    bool   `koanf:"normalize"`
	GrammarURL   string `koanf:"grammarurl"`
	AutoDownload bool   `koanf:"autodownload"`
	WatchDelay   int    `koanf:"watchdelaysec"`
}

func defaults() map[string]any {
	return map[string]any{
		"minmatch":      dupe.DefaultMinMatch,
		"normalize":     false,
		"grammarurl":    "",
		"autodownload":  true,
		"watchdelaysec": 30,
	}
}

// Load resolves configuration for projectRoot: defaults, then
// <projectRoot>/.dupefind.json if present, then DUPEFIND_* environment
// variables.
func Load(projectRoot string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, err
	}

	path := filepath.Join(projectRoot, FileName)
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return Config{}, err
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			if b, err := strconv.ParseBool(value); err == nil {
				return key, b
			}
			if n, err := strconv.Atoi(value); err == nil {
				return key, n
			}
			return key, value
		},
	}), nil); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
