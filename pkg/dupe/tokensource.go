package dupe

import (
	"context"
	"fmt"
	"iter"
	"os"
	"sort"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dupefind/dupefind/pkg/grammar"
	"github.com/dupefind/dupefind/pkg/lang"
)

// identifierTypes are tree-sitter node kinds that name a variable, field,
// or type. Structural mode folds all of these down to a single "id"
// token so renamed copies still compare equal.
var identifierTypes = map[string]bool{
	"identifier":                     true,
	"type_identifier":                true,
	"field_identifier":               true,
	"package_identifier":             true,
	"property_identifier":            true,
	"shorthand_property_identifier":  true,
	"shorthand_property_identifier_pattern": true,
}

// literalTypes are tree-sitter node kinds for literal values, folded down
// to "lit" in structural mode.
var literalTypes = map[string]bool{
	"interpreted_string_literal": true,
	"raw_string_literal":         true,
	"string":                     true,
	"template_string":            true,
	"string_literal":             true,
	"number":                     true,
	"integer":                    true,
	"float":                      true,
	"int_literal":                true,
	"float_literal":              true,
	"true":                       true,
	"false":                      true,
	"nil":                        true,
	"null":                       true,
	"none":                       true,
	"undefined":                  true,
}

// TreeSitterSource is a Source backed by tree-sitter grammars. It tokenizes
// a file once, on first access, and serves both Tokens and TokensFrom from
// the cached result.
//
// By default tokens carry their literal source text, matching the plain
// token-equality model of the detection algorithm. Setting Normalize folds
// identifiers to "id" and literals to "lit" the way a structural-clone
// tool does, so two functions that differ only in variable names still
// produce matching token runs.
type TreeSitterSource struct {
	Loader    grammar.Loader
	Read      func(fileID string) ([]byte, error)
	Normalize bool

	mu    sync.Mutex
	cache map[string][]TokenRecord
}

// NewTreeSitterSource returns a TreeSitterSource that reads files from
// disk.
func NewTreeSitterSource(loader grammar.Loader) *TreeSitterSource {
	return &TreeSitterSource{
		Loader: loader,
		Read:   os.ReadFile,
		cache:  make(map[string][]TokenRecord),
	}
}

func (s *TreeSitterSource) Tokens(fileID string) (iter.Seq[TokenRecord], error) {
	toks, err := s.tokenize(fileID)
	if err != nil {
		return nil, err
	}
	return sliceSeq(toks), nil
}

func (s *TreeSitterSource) TokensFrom(fileID string, byteOffset int) (iter.Seq[TokenRecord], error) {
	toks, err := s.tokenize(fileID)
	if err != nil {
		return nil, err
	}
	start := sort.Search(len(toks), func(i int) bool { return toks[i].ByteOffset >= byteOffset })
	return sliceSeq(toks[start:]), nil
}

func sliceSeq(toks []TokenRecord) iter.Seq[TokenRecord] {
	return func(yield func(TokenRecord) bool) {
		for _, t := range toks {
			if !yield(t) {
				return
			}
		}
	}
}

func (s *TreeSitterSource) tokenize(fileID string) ([]TokenRecord, error) {
	s.mu.Lock()
	if toks, ok := s.cache[fileID]; ok {
		s.mu.Unlock()
		return toks, nil
	}
	s.mu.Unlock()

	content, err := s.Read(fileID)
	if err != nil {
		return nil, fmt.Errorf("dupe: read %s: %w", fileID, err)
	}
	if len(content) > MaxFileSize {
		return nil, fmt.Errorf("dupe: %s exceeds max file size", fileID)
	}

	language := lang.Detect(fileID, content)
	if language == "" {
		return nil, fmt.Errorf("dupe: %s: unrecognized language", fileID)
	}

	sitterLang, err := s.Loader.Load(context.Background(), language)
	if err != nil {
		return nil, fmt.Errorf("dupe: grammar for %s: %w", language, err)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(sitterLang); err != nil {
		return nil, fmt.Errorf("dupe: set language %s: %w", language, err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("dupe: parse %s failed", fileID)
	}
	defer tree.Close()

	var toks []TokenRecord
	s.walkLeaves(tree.RootNode(), content, fileID, &toks)

	s.mu.Lock()
	s.cache[fileID] = toks
	s.mu.Unlock()
	return toks, nil
}

func (s *TreeSitterSource) walkLeaves(node *tree_sitter.Node, content []byte, fileID string, out *[]TokenRecord) {
	if node.ChildCount() == 0 {
		if value := s.tokenValue(node, content); value != "" {
			*out = append(*out, TokenRecord{
				FileID:     fileID,
				Value:      value,
				Line:       int(node.StartPosition().Row) + 1,
				ByteOffset: int(node.StartByte()),
			})
		}
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			s.walkLeaves(child, content, fileID, out)
		}
	}
}

func (s *TreeSitterSource) tokenValue(node *tree_sitter.Node, content []byte) string {
	kind := node.Kind()
	if strings.HasSuffix(kind, "comment") {
		return ""
	}

	text := string(content[node.StartByte():node.EndByte()])
	if strings.TrimSpace(text) == "" {
		return ""
	}

	if !s.Normalize {
		return text
	}

	if identifierTypes[kind] {
		return "id"
	}
	if literalTypes[kind] {
		return "lit"
	}
	if len(text) <= 3 {
		return text
	}
	return kind
}
