package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dupefind/dupefind/pkg/config"
	"github.com/dupefind/dupefind/pkg/dupe"
	"github.com/dupefind/dupefind/pkg/ignore"
	"github.com/dupefind/dupefind/pkg/lang"
)

// cmdScan runs duplicate detection over one or more paths and prints a
// report. With --annotate, matched runs are also marked in place with
// BEGIN/END comments.
func cmdScan(root string, cfg config.Config, args []string) error {
	paths := positionalArgs(args)
	if len(paths) == 0 {
		paths = []string{root}
	}

	if v := parseFlag(args, "--minmatch="); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid --minmatch: %w", err)
		}
		cfg.MinMatch = n
	}
	if hasFlag(args, "--normalize") {
		cfg.Normalize = true
	}
	annotate := hasFlag(args, "--annotate")

	matcher, err := ignore.New(root)
	if err != nil {
		matcher = ignore.NewFromDefaults()
	}

	files, err := collectFiles(paths, matcher)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No recognised source files found.")
		return nil
	}

	loader := newGrammarLoader(root, cfg, nil)
	src := dupe.NewTreeSitterSource(loader)
	src.Normalize = cfg.Normalize

	detector := dupe.NewDetector(dupe.Config{
		Files:    files,
		MinMatch: cfg.MinMatch,
		Source:   src,
	})

	result, err := detector.Run(context.Background())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	matches := result.Store.Matches()
	fmt.Printf("Scanned %d files (%d tokens). Found %d duplicate cluster(s).\n\n",
		result.FilesScanned, result.TokensSeen, len(matches))

	if err := dupe.Report(os.Stdout, result.Store); err != nil {
		return err
	}

	if annotate && len(matches) > 0 {
		a := dupe.NewAnnotator()
		if err := a.Annotate(matches); err != nil {
			return fmt.Errorf("annotate failed: %w", err)
		}
		fmt.Printf("\nAnnotated %d file(s).\n", len(annotatedFiles(matches)))
	}

	return nil
}

func annotatedFiles(sets []*dupe.MatchSet) map[string]bool {
	out := make(map[string]bool)
	for _, s := range sets {
		for _, m := range s.Members() {
			out[m.FileID] = true
		}
	}
	return out
}

// collectFiles walks paths, applying matcher and skipping files whose
// language can't be determined or whose size exceeds dupe.MaxFileSize.
func collectFiles(paths []string, matcher *ignore.Matcher) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if lang.Supported(p) && info.Size() <= dupe.MaxFileSize {
				files = append(files, p)
			}
			continue
		}

		shouldSkip := matcher.WalkFunc(p)
		err = filepath.Walk(p, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if fi.IsDir() {
				skip, skipDir := shouldSkip(path, fi)
				if skip || skipDir {
					return filepath.SkipDir
				}
				return nil
			}
			if !fi.Mode().IsRegular() {
				return nil
			}
			if skip, _ := shouldSkip(path, fi); skip {
				return nil
			}
			if fi.Size() > dupe.MaxFileSize {
				return nil
			}
			if lang.Supported(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
