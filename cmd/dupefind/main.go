// Package main provides the dupefind CLI: a near-duplicate code fragment
// detector built on a rolling-hash token matcher.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dupefind/dupefind/internal/version"
	"github.com/dupefind/dupefind/pkg/config"
	"github.com/dupefind/dupefind/pkg/dupe"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	root := findProjectRoot()
	cfg, err := config.Load(root)
	if err != nil {
		fatal("loading config: %v", err)
	}

	if err := runCommand(cmd, root, cfg, args); err != nil {
		fatal("%v", err)
	}
}

func runCommand(cmd, root string, cfg config.Config, args []string) error {
	switch cmd {
	case "scan":
		return cmdScan(root, cfg, args)
	case "watch":
		return cmdWatch(root, cfg, args)
	case "grammar":
		return cmdGrammarDispatcher(root, cfg, args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	case "version", "-v", "--version":
		return cmdVersion(args)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func cmdVersion(args []string) error {
	if hasFlag(args, "--json") {
		fmt.Println(version.JSON())
		return nil
	}
	fmt.Println(version.String())
	return nil
}

func printUsage() {
	fmt.Printf(`dupefind %s - near-duplicate code fragment detector

Usage:
  dupefind <command> [arguments]

Commands:
  scan       Scan paths for duplicated token runs and print a report
  watch      Rescan on file changes (debounced)
  grammar    Manage tree-sitter language grammars
  version    Show version information

Options:
  scan [paths...]:
    --minmatch=N     Minimum duplicated run length in tokens (default %d)
    --normalize      Fold identifiers to "id" and literals to "lit" so
                      renamed-but-structurally-identical code still matches
    --annotate       Mark duplicated runs in place with BEGIN/END comments

  watch [paths...]:
    Same defaults as scan, configured via %s or environment variables.

Configuration:
  %s in the project root, or DUPEFIND_* environment variables
  (e.g. DUPEFIND_MINMATCH=50), override built-in defaults.

Examples:
  dupefind scan .
  dupefind scan --minmatch=50 --normalize src/
  dupefind scan --annotate .
  dupefind watch src/
  dupefind grammar scan
  dupefind grammar install rust java
`, version.Short(), dupe.DefaultMinMatch, config.FileName, config.FileName)
}

// findProjectRoot finds the git root directory, or falls back to cwd.
func findProjectRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err == nil {
		return strings.TrimSpace(string(output))
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}
