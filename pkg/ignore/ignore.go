// Package ignore provides gitignore-compatible file matching for dupefind.
//
// It loads patterns from a project's .dupefindignore file (if present),
// merges them with built-in defaults for generated code, build artifacts,
// and common non-source directories, and exposes a single ShouldIgnore
// method used by the file walker, the watcher, and the detector's own
// traversal helpers.
//
// Pattern syntax mirrors .gitignore:
//
//	# comment
//	*.pb.go          — match files by extension
//	vendor/          — match directories by name (trailing slash)
//	**/test/         — match at any depth
//	!important.go    — negate a previous pattern
//	build/           — directory name anywhere in tree
//	/rootonly        — anchored to project root (leading slash)
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher tests whether a path should be ignored.
type Matcher struct {
	rules []rule
}

type rule struct {
	pattern  string
	negation bool
	dirOnly  bool
	anchored bool // pattern contains '/' (other than trailing) — anchored to root
}

// BuiltinDefaults are patterns applied even when no .dupefindignore file
// exists. They cover build artefacts and vendor trees across the languages
// the tokenizer understands, so a fresh checkout produces sane results
// without any configuration.
var BuiltinDefaults = []string{
	// ── Version control ──────────────────────────────────────────────
	".git/",
	".svn/",
	".hg/",

	// ── dupefind internal ────────────────────────────────────────────
	".dupefind/",

	// ── Node / JavaScript / TypeScript ───────────────────────────────
	"node_modules/",
	"dist/",
	".next/",
	".nuxt/",
	"coverage/",
	".cache/",

	// ── Python ───────────────────────────────────────────────────────
	"__pycache__/",
	".venv/",
	"venv/",
	".tox/",
	".mypy_cache/",
	".pytest_cache/",
	"*.egg-info/",
	"site-packages/",

	// ── Go ───────────────────────────────────────────────────────────
	"vendor/",

	// ── Rust ─────────────────────────────────────────────────────────
	"target/",

	// ── Java / Kotlin / Gradle ───────────────────────────────────────
	"build/",
	".gradle/",
	"out/",

	// ── IDE / Editor ─────────────────────────────────────────────────
	".idea/",
	".vscode/",

	// ── OS artefacts ─────────────────────────────────────────────────
	".DS_Store",

	// ── Generated code ────────────────────────────────────────────────
	"*.pb.go",
	"*_generated.go",
	"*.gen.go",
	"*.pb.ts",
	"*.pb.js",

	// ── Test fixtures (kept out of clone comparisons by default) ─────
	"**/testdata/",
	"**/fixtures/",

	// ── Lock / binary / archive (not useful for analysis) ────────────
	"*.lock",
}

// New creates a Matcher from built-in defaults plus an optional
// .dupefindignore file located at <projectRoot>/.dupefindignore. If the
// file does not exist the Matcher still works using only built-in
// defaults.
func New(projectRoot string) (*Matcher, error) {
	m := &Matcher{}

	for _, p := range BuiltinDefaults {
		m.rules = append(m.rules, parsePattern(p))
	}

	ignoreFile := filepath.Join(projectRoot, ".dupefindignore")
	if err := m.loadFile(ignoreFile); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return m, nil
}

// NewFromDefaults creates a Matcher using only built-in defaults (no file).
func NewFromDefaults() *Matcher {
	m := &Matcher{}
	for _, p := range BuiltinDefaults {
		m.rules = append(m.rules, parsePattern(p))
	}
	return m
}

// NewEmpty creates a Matcher with no rules at all — nothing is ignored.
// Useful for tests that need to scan testdata directories directly.
func NewEmpty() *Matcher {
	return &Matcher{}
}

// ShouldIgnore reports whether the given path (relative to the project
// root) should be ignored. isDir must be true when path refers to a
// directory.
//
// The path should use forward slashes and be relative to the project root.
// Both "foo/bar" and "foo/bar/" are accepted for directories (the trailing
// slash is stripped internally; use the isDir flag instead).
func (m *Matcher) ShouldIgnore(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	path = strings.TrimSuffix(path, "/")

	if path == "" || path == "." {
		return false
	}

	// Evaluate rules in order — last matching rule wins.
	ignored := false
	matched := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.match(path) {
			ignored = !r.negation
			matched = true
		}
	}

	if ignored {
		return true
	}

	// A negation rule that explicitly un-ignores this path overrides the
	// parent-directory check below — "!testdata/important.go" must survive
	// even though "**/testdata/" is a default.
	if matched {
		return false
	}

	// A file path may still be ignored because one of its parent
	// directories matches a dir-only rule, even when the file itself was
	// never evaluated against that rule directly (e.g. the watcher hands
	// us "vendor/github.com/foo/bar.go" instead of walking "vendor/" first).
	if !isDir {
		parts := strings.Split(path, "/")
		for i := 1; i <= len(parts)-1; i++ {
			parent := strings.Join(parts[:i], "/")
			if m.ShouldIgnore(parent, true) {
				return true
			}
		}
	}

	return false
}

// ShouldIgnoreDir is a convenience for ShouldIgnore(path, true).
func (m *Matcher) ShouldIgnoreDir(path string) bool {
	return m.ShouldIgnore(path, true)
}

// ShouldIgnoreFile is a convenience for ShouldIgnore(path, false).
func (m *Matcher) ShouldIgnoreFile(path string) bool {
	return m.ShouldIgnore(path, false)
}

// WalkFunc returns a filepath.WalkFunc skip-check for use inside
// filepath.Walk callbacks. It converts absolute paths to relative paths
// using projectRoot.
//
// Usage:
//
//	shouldSkip := matcher.WalkFunc(projectRoot)
//	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
//	    if skip, skipDir := shouldSkip(path, info); skip {
//	        if skipDir { return filepath.SkipDir }
//	        return nil
//	    }
//	    // ... process file ...
//	})
func (m *Matcher) WalkFunc(projectRoot string) func(path string, info os.FileInfo) (skip bool, skipDir bool) {
	return func(path string, info os.FileInfo) (bool, bool) {
		rel, err := filepath.Rel(projectRoot, path)
		if err != nil {
			rel = path
		}

		isDir := info != nil && info.IsDir()
		if m.ShouldIgnore(rel, isDir) {
			if isDir {
				return true, true
			}
			return true, false
		}
		return false, false
	}
}

// loadFile reads patterns from a .dupefindignore file.
func (m *Matcher) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.rules = append(m.rules, parsePattern(line))
	}
	return scanner.Err()
}

// parsePattern converts a gitignore-style pattern string into a rule.
func parsePattern(pattern string) rule {
	r := rule{}

	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}

	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}

	if !r.anchored && strings.Contains(pattern, "/") {
		r.anchored = true
	}

	r.pattern = pattern
	return r
}

// match tests whether a rule matches the given path using doublestar glob
// semantics, which natively understand "**" at any position — no need for
// the segment-sliding tricks a plain filepath.Match would require.
//
// path is relative to the project root, forward-slash separated, no
// trailing slash.
func (r *rule) match(path string) bool {
	pattern := r.pattern

	if r.anchored {
		ok, _ := doublestar.Match(pattern, path)
		return ok
	}

	// Unanchored: the pattern matches the basename, or anywhere in the
	// path when it already contains its own wildcard depth ("**/foo").
	if ok, _ := doublestar.Match(pattern, basename(path)); ok {
		return true
	}
	if ok, _ := doublestar.Match("**/"+pattern, path); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, path)
	return ok
}

// basename returns the last path component.
func basename(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
