package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dupefind/dupefind/pkg/config"
	"github.com/dupefind/dupefind/pkg/grammar"
	"github.com/dupefind/dupefind/pkg/ignore"
	"github.com/dupefind/dupefind/pkg/lang"
)

// cmdGrammarDispatcher routes grammar subcommands.
func cmdGrammarDispatcher(root string, cfg config.Config, args []string) error {
	if len(args) < 1 {
		printGrammarUsage()
		return nil
	}

	subcmd := args[0]
	subargs := args[1:]

	switch subcmd {
	case "list", "ls":
		return cmdGrammarList(root, cfg, subargs)
	case "install":
		return cmdGrammarInstall(root, cfg, subargs)
	case "remove", "rm":
		return cmdGrammarRemove(root, cfg, subargs)
	case "scan":
		return cmdGrammarScan(root, cfg, subargs)
	case "help", "-h", "--help":
		printGrammarUsage()
		return nil
	default:
		return fmt.Errorf("unknown grammar subcommand: %s", subcmd)
	}
}

func printGrammarUsage() {
	fmt.Println(`dupefind grammar - Manage tree-sitter language grammars

Usage:
  dupefind grammar <subcommand> [arguments]

Subcommands:
  list       List available, installed, and built-in grammars
  install    Download and install a dynamic grammar
  remove     Remove a downloaded grammar from the local cache
  scan       Scan the project to detect languages and suggest grammars to install

Options:
  list:
    --installed      Show only installed grammars (builtin + dynamic)
    --available      Show only grammars available for download
    --json           Output as JSON

  install [language...]:
    --all            Install all available dynamic grammars
    --no-lock        Skip updating the lock file after install
    Downloads grammar shared libraries to .dupefind/grammars/
    When invoked with no arguments and no --all, installs from the lock file
    (` + grammar.LockFileName + `) if one exists.

  remove <language> [language...]:
    --all            Remove all downloaded dynamic grammars
    --no-lock        Skip updating the lock file after removal

  scan [path]:
    --json           Output as JSON
    Scans the project (or given path) for source files, detects languages,
    and reports which grammars are needed but not yet installed.

Lock file:
  Install and remove commands automatically maintain a lock file
  (` + grammar.LockFileName + `) at the project root. This file records
  the exact version and checksum of each installed dynamic grammar.
  Commit it to version control so team members can reproduce the same
  grammar set with 'dupefind grammar install' (no arguments).

Examples:
  dupefind grammar list                    # Show all grammars
  dupefind grammar list --installed        # Show only installed
  dupefind grammar scan                    # Scan project for needed grammars
  dupefind grammar scan ./src              # Scan specific directory
  dupefind grammar install rust java       # Install specific grammars
  dupefind grammar install --all           # Install all available
  dupefind grammar install                 # Install from lock file
  dupefind grammar install --no-lock       # Install without updating lock file
  dupefind grammar remove rust             # Remove a grammar
  dupefind grammar remove --all            # Remove all dynamic grammars`)
}

// cmdGrammarList shows grammar status.
func cmdGrammarList(root string, cfg config.Config, args []string) error {
	loader := newGrammarLoaderNoAuto(root, cfg, nil)
	jsonOutput := hasFlag(args, "--json")
	onlyInstalled := hasFlag(args, "--installed")
	onlyAvailable := hasFlag(args, "--available")

	installed := loader.Installed()
	available := loader.Available()

	if jsonOutput {
		return grammarListJSON(installed, available, onlyInstalled, onlyAvailable)
	}

	type entry struct {
		name    string
		status  string
		version string
	}

	seen := make(map[string]bool)
	var entries []entry

	for _, info := range installed {
		seen[info.Name] = true
		if onlyAvailable {
			continue
		}
		status := "builtin"
		if !info.BuiltIn {
			status = "installed"
		}
		entries = append(entries, entry{
			name:    info.Name,
			status:  status,
			version: info.Version,
		})
	}

	if !onlyInstalled {
		sort.Strings(available)
		for _, name := range available {
			if seen[name] {
				continue
			}
			entries = append(entries, entry{name: name, status: "available"})
		}
	}

	if len(entries) == 0 {
		fmt.Println("No grammars found.")
		return nil
	}

	statusOrder := map[string]int{"builtin": 0, "installed": 1, "available": 2}
	sort.Slice(entries, func(i, j int) bool {
		oi, oj := statusOrder[entries[i].status], statusOrder[entries[j].status]
		if oi != oj {
			return oi < oj
		}
		return entries[i].name < entries[j].name
	})

	maxName := 0
	for _, e := range entries {
		if len(e.name) > maxName {
			maxName = len(e.name)
		}
	}

	fmt.Printf("%-*s  %-10s  %s\n", maxName, "GRAMMAR", "STATUS", "VERSION")
	for _, e := range entries {
		ver := e.version
		if ver == "" {
			ver = "-"
		}
		fmt.Printf("%-*s  %-10s  %s\n", maxName, e.name, e.status, ver)
	}

	return nil
}

func grammarListJSON(installed []grammar.GrammarInfo, available []string, onlyInstalled, onlyAvailable bool) error {
	fmt.Print("[")
	first := true

	printEntry := func(name, status, version string) {
		if !first {
			fmt.Print(",")
		}
		first = false
		fmt.Printf(`{"name":%q,"status":%q,"version":%q}`, name, status, version)
	}

	seen := make(map[string]bool)
	for _, info := range installed {
		seen[info.Name] = true
	}

	if !onlyAvailable {
		for _, info := range installed {
			status := "builtin"
			if !info.BuiltIn {
				status = "installed"
			}
			printEntry(info.Name, status, info.Version)
		}
	}

	if !onlyInstalled {
		sort.Strings(available)
		for _, name := range available {
			if seen[name] {
				continue
			}
			printEntry(name, "available", "")
		}
	}

	fmt.Println("]")
	return nil
}

// cmdGrammarInstall downloads grammar shared libraries.
func cmdGrammarInstall(root string, cfg config.Config, args []string) error {
	loader := newGrammarLoaderNoAuto(root, cfg, nil)
	ctx := context.Background()

	installAll := hasFlag(args, "--all")
	noLock := hasFlag(args, "--no-lock")

	var names []string
	if installAll {
		names = loader.Available()
		var dynamic []string
		installed := make(map[string]bool)
		for _, info := range loader.Installed() {
			if info.BuiltIn {
				installed[info.Name] = true
			}
		}
		for _, name := range names {
			if !installed[name] {
				dynamic = append(dynamic, name)
			}
		}
		names = dynamic
	} else {
		for _, arg := range positionalArgs(args) {
			names = append(names, grammar.NormaliseLang(arg))
		}
	}

	if len(names) == 0 && !installAll {
		lf, err := grammar.ReadLockFile(root)
		if err != nil {
			return fmt.Errorf("reading lock file: %w", err)
		}
		if lf != nil && len(lf.Grammars) > 0 {
			fmt.Printf("Installing grammars from %s...\n", grammar.LockFileName)
			installed, err := loader.InstallFromLock(ctx, lf)
			for _, name := range installed {
				fmt.Printf("  %s... done\n", name)
			}
			if err != nil {
				return err
			}
			if len(installed) == 0 {
				fmt.Println("All locked grammars already installed.")
			}
			return nil
		}
		fmt.Println("No grammars to install. Specify language names, use --all, or create a lock file.")
		return nil
	}

	sort.Strings(names)
	var errs []string
	for _, name := range names {
		fmt.Printf("Installing %s... ", name)
		if err := loader.Install(ctx, name); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			errs = append(errs, name)
		} else {
			fmt.Println("done")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to install: %s", strings.Join(errs, ", "))
	}

	if !noLock {
		lf := loader.GenerateLockFile()
		if len(lf.Grammars) > 0 {
			if err := grammar.WriteLockFile(root, lf); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to update %s: %v\n", grammar.LockFileName, err)
			}
		}
	}

	return nil
}

// cmdGrammarRemove deletes downloaded grammar shared libraries.
func cmdGrammarRemove(root string, cfg config.Config, args []string) error {
	loader := newGrammarLoaderNoAuto(root, cfg, nil)

	removeAll := hasFlag(args, "--all")
	noLock := hasFlag(args, "--no-lock")

	var names []string
	if removeAll {
		for _, info := range loader.Installed() {
			if !info.BuiltIn {
				names = append(names, info.Name)
			}
		}
	} else {
		for _, arg := range positionalArgs(args) {
			names = append(names, grammar.NormaliseLang(arg))
		}
	}

	if len(names) == 0 {
		fmt.Println("No grammars to remove. Specify language names or use --all.")
		return nil
	}

	sort.Strings(names)
	var errs []string
	for _, name := range names {
		fmt.Printf("Removing %s... ", name)
		if err := loader.Remove(name); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			errs = append(errs, name)
		} else {
			fmt.Println("done")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to remove: %s", strings.Join(errs, ", "))
	}

	if !noLock {
		lf := loader.GenerateLockFile()
		if len(lf.Grammars) > 0 {
			if err := grammar.WriteLockFile(root, lf); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to update %s: %v\n", grammar.LockFileName, err)
			}
		} else {
			lockPath := filepath.Join(root, grammar.LockFileName)
			if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "warning: failed to remove %s: %v\n", grammar.LockFileName, err)
			}
		}
	}

	return nil
}

// cmdGrammarScan scans the project for languages and reports grammar status.
func cmdGrammarScan(root string, cfg config.Config, args []string) error {
	jsonOutput := hasFlag(args, "--json")
	scanRoot := root
	if pos := positionalArgs(args); len(pos) > 0 {
		scanRoot = pos[0]
	}

	scanLog := log.New(os.Stderr, "[dupefind:grammar] ", 0)
	loader := newGrammarLoaderNoAuto(root, cfg, scanLog)

	matcher, err := ignore.New(scanRoot)
	if err != nil {
		matcher = ignore.NewFromDefaults()
	}

	statuses, err := grammar.ScanDetail(scanRoot, loader, lang.Detect, matcher)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(statuses) == 0 {
		fmt.Println("No recognised source files found.")
		return nil
	}

	if jsonOutput {
		return grammarScanJSON(statuses)
	}

	maxName := 0
	for _, s := range statuses {
		if len(s.Name) > maxName {
			maxName = len(s.Name)
		}
	}

	fmt.Printf("%-*s  %6s  %-10s  %s\n", maxName, "LANGUAGE", "FILES", "STATUS", "ACTION")
	for _, s := range statuses {
		action := "-"
		switch s.Status {
		case "available":
			action = "dupefind grammar install " + s.Name
		case "unavailable":
			action = "(no grammar available)"
		}
		fmt.Printf("%-*s  %6d  %-10s  %s\n", maxName, s.Name, s.Files, s.Status, action)
	}

	var needCount int
	for _, s := range statuses {
		if s.CanInstall {
			needCount++
		}
	}
	if needCount > 0 {
		fmt.Printf("\n%d language(s) can be installed. Run: dupefind grammar install --all\n", needCount)
	}

	return nil
}

func grammarScanJSON(statuses []grammar.LanguageStatus) error {
	fmt.Print("[")
	for i, s := range statuses {
		if i > 0 {
			fmt.Print(",")
		}
		fmt.Printf(`{"name":%q,"files":%d,"status":%q,"can_install":%t}`,
			s.Name, s.Files, s.Status, s.CanInstall)
	}
	fmt.Println("]")
	return nil
}
