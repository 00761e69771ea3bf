package dupe

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func writeLines(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString("line\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAnnotator_InsertsBeginEndMarkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	content := "package a\nfunc F() {\n\tx := 1\n\ty := 2\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "other.go")
	writeLines(t, other, 5)

	store := NewMatchStore()
	var sum ContentHash
	sum[0] = 7
	store.AddExactMatch(sum, 4,
		tr(path, "x", 3, 0), tr(path, "x", 4, 10),
		tr(other, "x", 1, 0), tr(other, "x", 2, 10))

	a := NewAnnotator()
	if err := a.Annotate(store.Matches()); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	wantInfo := other + ":1+1"
	if !strings.Contains(text, "//!DUPLICATE BEGIN") || !strings.Contains(text, "-- "+wantInfo) {
		t.Errorf("missing BEGIN marker referencing %q, got:\n%s", wantInfo, text)
	}
	if !strings.Contains(text, "//!DUPLICATE END") {
		t.Errorf("missing END marker, got:\n%s", text)
	}
	if !strings.Contains(text, "x := 1") || !strings.Contains(text, "y := 2") {
		t.Errorf("original content lines were lost during annotation, got:\n%s", text)
	}

	// line_count = end.line - start.line = 1, so END lands right after the
	// start line is copied, not after the full two-line physical span.
	beginIdx := strings.Index(text, "//!DUPLICATE BEGIN")
	endIdx := strings.Index(text, "//!DUPLICATE END")
	xIdx := strings.Index(text, "x := 1")
	yIdx := strings.Index(text, "y := 2")
	if !(beginIdx < xIdx && xIdx < endIdx && endIdx < yIdx) {
		t.Errorf("expected order BEGIN, \"x := 1\", END, \"y := 2\", got:\n%s", text)
	}
}

func TestAnnotator_ReportsReadFailure(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "other.go")
	writeLines(t, other, 5)

	store := NewMatchStore()
	var sum ContentHash
	sum[0] = 9
	missing := filepath.Join(dir, "nonexistent.go")
	store.AddExactMatch(sum, 4,
		tr(missing, "x", 1, 0), tr(missing, "x", 2, 10),
		tr(other, "x", 1, 0), tr(other, "x", 2, 10))

	a := NewAnnotator()
	if err := a.Annotate(store.Matches()); err == nil {
		t.Fatal("expected an error annotating a file that cannot be read")
	}
}

func TestAnnotator_MultipleInsertionsGetDistinctIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	writeLines(t, path, 20)
	b := filepath.Join(dir, "b.go")
	writeLines(t, b, 5)
	c := filepath.Join(dir, "c.go")
	writeLines(t, c, 5)

	store := NewMatchStore()
	var sum1, sum2 ContentHash
	sum1[0], sum2[0] = 1, 2
	store.AddExactMatch(sum1, 4,
		tr(path, "x", 2, 10), tr(path, "x", 3, 20),
		tr(b, "x", 1, 0), tr(b, "x", 2, 10))
	store.AddExactMatch(sum2, 4,
		tr(path, "x", 10, 90), tr(path, "x", 11, 100),
		tr(c, "x", 1, 0), tr(c, "x", 2, 10))

	a := NewAnnotator()
	if err := a.Annotate(store.Matches()); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	ids := regexp.MustCompile(`//!DUPLICATE BEGIN (\d+)`).FindAllStringSubmatch(text, -1)
	if len(ids) != 2 {
		t.Fatalf("expected 2 BEGIN markers in a.go (one per cluster it belongs to), got %d:\n%s", len(ids), text)
	}
	if ids[0][1] == ids[1][1] {
		t.Errorf("the two insertions must get distinct IDs, both got %q", ids[0][1])
	}
}
