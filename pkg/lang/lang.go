// Package lang identifies the programming language of a source file so the
// tokenizer can select the right tree-sitter grammar.
package lang

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
)

// Language constants understood by the grammar loader and tokenizer.
const (
	Go         = "go"
	TypeScript = "typescript"
	JavaScript = "javascript"
	Python     = "python"
	Rust       = "rust"
	Java       = "java"
	C          = "c"
	CPP        = "cpp"
	CSharp     = "csharp"
	Zig        = "zig"
)

// Extensions maps file extensions to languages.
var Extensions = map[string]string{
	".go":    Go,
	".ts":    TypeScript,
	".tsx":   TypeScript,
	".js":    JavaScript,
	".jsx":   JavaScript,
	".mjs":   JavaScript,
	".cjs":   JavaScript,
	".py":    Python,
	".pyw":   Python,
	".pyi":   Python,
	".rs":    Rust,
	".java":  Java,
	".c":     C,
	".h":     C,
	".cpp":   CPP,
	".cc":    CPP,
	".cxx":   CPP,
	".hpp":   CPP,
	".hh":    CPP,
	".hxx":   CPP,
	".cs":    CSharp,
	".zig":   Zig,
}

// Filenames maps known filenames (without relying on an extension) to
// languages.
var Filenames = map[string]string{}

// ShebangInterpreters maps shebang interpreter names to languages.
var ShebangInterpreters = map[string]string{
	"python":  Python,
	"python2": Python,
	"python3": Python,
	"node":    JavaScript,
	"deno":    TypeScript,
	"bun":     TypeScript,
}

// Detect determines the language of a file using, in order: file
// extension, known filename, and (if content is supplied) a shebang line.
// Returns "" when no language could be determined.
func Detect(filePath string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if l, ok := Extensions[ext]; ok {
		return l
	}

	base := filepath.Base(filePath)
	if l, ok := Filenames[base]; ok {
		return l
	}

	if len(content) > 0 {
		return detectShebang(content)
	}

	return ""
}

func detectShebang(content []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	if !scanner.Scan() {
		return ""
	}
	line := scanner.Text()
	if !strings.HasPrefix(line, "#!") {
		return ""
	}

	shebang := strings.TrimSpace(strings.TrimPrefix(line, "#!"))
	parts := strings.Fields(shebang)
	if len(parts) == 0 {
		return ""
	}

	interpreter := filepath.Base(parts[0])
	if interpreter == "env" && len(parts) > 1 {
		interpreter = filepath.Base(parts[1])
	}

	if l, ok := ShebangInterpreters[interpreter]; ok {
		return l
	}
	stripped := strings.TrimRight(interpreter, "0123456789.")
	if l, ok := ShebangInterpreters[stripped]; ok {
		return l
	}

	return ""
}

// Supported reports whether a file's language can be determined from its
// extension or filename alone (no content read required).
func Supported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	if _, ok := Extensions[ext]; ok {
		return true
	}
	_, ok := Filenames[filepath.Base(filePath)]
	return ok
}
