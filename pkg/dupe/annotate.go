package dupe

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Annotator rewrites source files in place, wrapping each duplicated run
// in BEGIN/END marker comments that name the other files the run was
// also found in.
type Annotator struct {
	CommentPrefix string // defaults to "//"
}

// NewAnnotator returns an Annotator using "//" line comments.
func NewAnnotator() *Annotator {
	return &Annotator{CommentPrefix: "//"}
}

// Annotate rewrites every file referenced by a match in sets, inserting a
// BEGIN marker before and an END marker after each duplicated run. Each file
// is rewritten in a single pass over its original line numbers, so no
// insertion shifts the line another insertion needs. A file that cannot be
// read or written is left unchanged and the remaining files are still
// annotated; every such failure is returned, joined into one error.
func (a *Annotator) Annotate(sets []*MatchSet) error {
	ordered := append([]*MatchSet(nil), sets...)
	sortByLineCountDesc(ordered)

	byFile := make(map[string][]annotation)
	beginNo := 0

	for _, set := range ordered {
		members := set.Members()
		for _, m := range members {
			var others []string
			for _, other := range members {
				if other.FileID == m.FileID && other.StartLine == m.StartLine {
					continue
				}
				others = append(others, fmt.Sprintf("%s:%d+%d", other.FileID, other.StartLine, other.LineCount))
			}
			sort.Strings(others)
			byFile[m.FileID] = append(byFile[m.FileID], annotation{
				clusterID: beginNo,
				startLine: m.StartLine,
				endLine:   m.EndLine - 1,
				info:      strings.Join(others, " "),
			})
			beginNo++
		}
	}

	var errs []error
	for fileID, marks := range byFile {
		sort.Slice(marks, func(i, j int) bool { return marks[i].startLine > marks[j].startLine })
		if err := a.annotateFile(fileID, marks); err != nil {
			errs = append(errs, fmt.Errorf("dupe: annotate %s: %w", fileID, err))
		}
	}
	return errors.Join(errs...)
}

type annotation struct {
	clusterID int
	startLine int
	endLine   int
	info      string
}

func (a *Annotator) annotateFile(path string, marks []annotation) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(src), "\n")

	byStart := make(map[int][]annotation)
	for _, m := range marks {
		byStart[m.startLine] = append(byStart[m.startLine], m)
	}

	prefix := a.CommentPrefix
	if prefix == "" {
		prefix = "//"
	}

	var out []string
	inserted := make(map[int]bool)
	for i, line := range lines {
		lineNo := i + 1
		if ms, ok := byStart[lineNo]; ok && !inserted[lineNo] {
			for _, m := range ms {
				out = append(out, fmt.Sprintf("%s!DUPLICATE BEGIN %d -- %s", prefix, m.clusterID, m.info))
			}
			inserted[lineNo] = true
		}
		out = append(out, line)
		for _, m := range marks {
			if m.endLine == lineNo {
				out = append(out, fmt.Sprintf("%s!DUPLICATE END %d", prefix, m.clusterID))
			}
		}
	}

	return writeFileAtomic(path, []byte(strings.Join(out, "\n")))
}

// writeFileAtomic writes data to a temp file in the same directory as path
// and renames it into place, so a crash mid-write never leaves path
// truncated or half-written.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "dupefind-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	info, err := os.Stat(path)
	if err == nil {
		os.Chmod(tmpName, info.Mode())
	}
	return os.Rename(tmpName, path)
}
