package dupe

import (
	"strings"
	"testing"
)

func TestReport_FormatsMatchesDescendingByLineCount(t *testing.T) {
	store := NewMatchStore()

	var shortSum, longSum ContentHash
	shortSum[0], longSum[0] = 1, 2

	// Short cluster: 2-line span.
	store.AddExactMatch(shortSum, 4,
		tr("a.go", "x", 1, 0), tr("a.go", "x", 3, 20),
		tr("b.go", "x", 1, 0), tr("b.go", "x", 3, 20))

	// Long cluster: 10-line span.
	store.AddExactMatch(longSum, 20,
		tr("c.go", "y", 1, 0), tr("c.go", "y", 11, 100),
		tr("d.go", "y", 1, 0), tr("d.go", "y", 11, 100))

	var buf strings.Builder
	if err := Report(&buf, store); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()

	longIdx := strings.Index(out, "c.go")
	shortIdx := strings.Index(out, "a.go")
	if longIdx == -1 || shortIdx == -1 {
		t.Fatalf("report missing expected file references:\n%s", out)
	}
	if longIdx > shortIdx {
		t.Errorf("expected the longer-span cluster to be reported first:\n%s", out)
	}
	if !strings.Contains(out, "Found an approx. 10 line duplication in 2 files.") {
		t.Errorf("report does not contain the expected line-duplication summary:\n%s", out)
	}
	if !strings.Contains(out, "==================================================") {
		t.Errorf("report missing the separator line:\n%s", out)
	}
}

func TestReport_EmptyStoreProducesNoOutput(t *testing.T) {
	var buf strings.Builder
	if err := Report(&buf, NewMatchStore()); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for an empty store, got %q", buf.String())
	}
}
