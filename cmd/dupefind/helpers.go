package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dupefind/dupefind/internal/version"
	"github.com/dupefind/dupefind/pkg/config"
	"github.com/dupefind/dupefind/pkg/grammar"
)

// fatal prints an error message and exits with code 1.
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// truncate shortens a string to n characters (runes) with ellipsis.
func truncate(s string, n int) string {
	if n < 4 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// parseFlag extracts a flag value from args (e.g., "--key=value").
func parseFlag(args []string, prefix string) string {
	for _, arg := range args {
		if strings.HasPrefix(arg, prefix) {
			return strings.TrimPrefix(arg, prefix)
		}
	}
	return ""
}

// hasFlag checks if a flag is present in args.
func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

// positionalArgs returns every arg that doesn't start with "--".
func positionalArgs(args []string) []string {
	var out []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			out = append(out, arg)
		}
	}
	return out
}

// grammarDir returns the grammar storage directory for the project.
func grammarDir(root string) string {
	return filepath.Join(root, configDirName, "grammars")
}

// grammarVersion returns the version tag to use when downloading grammar
// assets. Release builds use their tag; dev builds use "snapshot".
func grammarVersion() string {
	if version.IsRelease() {
		return "v" + version.Version
	}
	return "snapshot"
}

// newGrammarLoader builds a CompositeLoader from the project's resolved
// config. If logger is non-nil it is wired into the loader for grammar
// download/staleness logging.
func newGrammarLoader(root string, cfg config.Config, logger *log.Logger) *grammar.CompositeLoader {
	opts := []grammar.CompositeLoaderOption{
		grammar.WithGrammarDir(grammarDir(root)),
		grammar.WithVersion(grammarVersion()),
		grammar.WithAutoDownload(cfg.AutoDownload),
	}
	if logger != nil {
		opts = append(opts, grammar.WithLogger(logger))
	}
	if cfg.GrammarURL != "" {
		opts = append(opts, grammar.WithBaseURL(cfg.GrammarURL))
	}
	return grammar.NewCompositeLoader(opts...)
}

// newGrammarLoaderNoAuto is newGrammarLoader with auto-download forced
// off, for CLI subcommands that manage grammars explicitly.
func newGrammarLoaderNoAuto(root string, cfg config.Config, logger *log.Logger) *grammar.CompositeLoader {
	cfg.AutoDownload = false
	return newGrammarLoader(root, cfg, logger)
}
