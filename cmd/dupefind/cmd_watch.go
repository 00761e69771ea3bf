package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dupefind/dupefind/pkg/config"
	"github.com/dupefind/dupefind/pkg/dupe"
	"github.com/dupefind/dupefind/pkg/ignore"
	"github.com/dupefind/dupefind/pkg/watcher"
)

// cmdWatch re-runs a scan whenever files under root change, debounced the
// same way the rest of the toolchain debounces file system noise.
func cmdWatch(root string, cfg config.Config, args []string) error {
	paths := positionalArgs(args)
	if len(paths) == 0 {
		paths = []string{root}
	}

	matcher, err := ignore.New(root)
	if err != nil {
		matcher = ignore.NewFromDefaults()
	}

	loader := newGrammarLoader(root, cfg, nil)

	run := func() {
		files, err := collectFiles(paths, matcher)
		if err != nil {
			fmt.Fprintf(os.Stderr, "watch: collecting files: %v\n", err)
			return
		}
		if len(files) == 0 {
			return
		}
		src := dupe.NewTreeSitterSource(loader)
		src.Normalize = cfg.Normalize
		detector := dupe.NewDetector(dupe.Config{Files: files, MinMatch: cfg.MinMatch, Source: src})
		result, err := detector.Run(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "watch: scan failed: %v\n", err)
			return
		}
		fmt.Printf("rescan: %d files, %d duplicate cluster(s)\n", result.FilesScanned, len(result.Store.Matches()))
	}

	run()

	handler := watcher.FileChangeHandlerFunc(func(files map[string]fsnotify.Op) {
		run()
	})

	debounce := DefaultWatchDebounce
	if cfg.WatchDelay > 0 {
		debounce = time.Duration(cfg.WatchDelay) * time.Second
	}
	w, err := watcher.New(watcher.Config{
		Paths:         paths,
		DebounceDelay: debounce,
	}, handler)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	return nil
}
