package dupe

import (
	"context"
	"sort"
	"testing"
)

func runDetect(t *testing.T, src *memSource, files []string, minMatch int) *Result {
	t.Helper()
	d := NewDetector(Config{Files: files, MinMatch: minMatch, Source: src})
	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

// Scenario 1 from spec §8: two files with the identical token sequence
// produce one cluster of two members spanning the whole run.
func TestDetect_IdenticalFiles(t *testing.T) {
	src := newMemSource()
	src.add("a.go", "a", "b", "c", "d", "e", "f")
	src.add("b.go", "a", "b", "c", "d", "e", "f")

	result := runDetect(t, src, []string{"a.go", "b.go"}, 4)

	clusters := result.Store.Matches()
	if len(clusters) != 1 {
		t.Fatalf("clusters: got %d, want 1", len(clusters))
	}
	members := clusters[0].Members()
	if len(members) != 2 {
		t.Fatalf("members: got %d, want 2", len(members))
	}
	if clusters[0].MinTokenCount() != 6 {
		t.Errorf("token count: got %d, want 6", clusters[0].MinTokenCount())
	}
}

// Scenario 2: a shared prefix of length K is reported; the trailing
// divergent token is not part of the match.
func TestDetect_SharedPrefixOnly(t *testing.T) {
	src := newMemSource()
	src.add("a.go", "a", "b", "c", "d", "e")
	src.add("b.go", "a", "b", "c", "d", "z")

	result := runDetect(t, src, []string{"a.go", "b.go"}, 4)

	clusters := result.Store.Matches()
	if len(clusters) != 1 {
		t.Fatalf("clusters: got %d, want 1", len(clusters))
	}
	if got := clusters[0].MinTokenCount(); got != 4 {
		t.Errorf("token count: got %d, want 4", got)
	}
}

// Scenario 3: no shared run at all yields zero clusters.
func TestDetect_NoDuplicate(t *testing.T) {
	src := newMemSource()
	src.add("a.go", "a", "b", "c", "d")
	src.add("b.go", "w", "x", "y", "z")

	result := runDetect(t, src, []string{"a.go", "b.go"}, 4)

	if clusters := result.Store.Matches(); len(clusters) != 0 {
		t.Fatalf("clusters: got %d, want 0", len(clusters))
	}
}

// Scenario 4: a repeated run inside one file is reported once, with the
// two members separated by more than K tokens. A trailing sentinel token
// is required after the second occurrence so its window is evicted and
// probed at all — per §4.8, the last windowSize tokens of a stream are
// never flushed into the index, so a repeat landing exactly at
// end-of-stream would otherwise go undetected.
func TestDetect_SelfMatchInsideOneFile(t *testing.T) {
	src := newMemSource()
	src.add("a.go", "a", "b", "c", "d", "a", "b", "c", "d", "x")

	result := runDetect(t, src, []string{"a.go"}, 4)

	clusters := result.Store.Matches()
	if len(clusters) != 1 {
		t.Fatalf("clusters: got %d, want 1", len(clusters))
	}
	members := clusters[0].Members()
	if len(members) != 2 {
		t.Fatalf("members: got %d, want 2", len(members))
	}
	if members[0].FileID != "a.go" || members[1].FileID != "a.go" {
		t.Fatalf("expected both members in a.go, got %+v", members)
	}
	diff := members[0].StartToken - members[1].StartToken
	if diff < 0 {
		diff = -diff
	}
	if diff <= 4 {
		t.Errorf("self-match byte offsets too close: diff=%d, want > 4", diff)
	}
}

// Scenario 5: three files sharing one run collapse into a single cluster
// of three members. Only the cluster and member counts are checked here.
func TestDetect_TriplicateAcrossThreeFiles(t *testing.T) {
	src := newMemSource()
	src.add("a.go", "p", "q", "r", "s", "t")
	src.add("b.go", "p", "q", "r", "s", "t")
	src.add("c.go", "p", "q", "r", "s", "t")

	result := runDetect(t, src, []string{"a.go", "b.go", "c.go"}, 4)

	clusters := result.Store.Matches()
	if len(clusters) != 1 {
		t.Fatalf("clusters: got %d, want 1", len(clusters))
	}
	members := clusters[0].Members()
	if len(members) != 3 {
		t.Fatalf("members: got %d, want 3", len(members))
	}
	if clusters[0].MinTokenCount() != 5 {
		t.Errorf("token count: got %d, want 5", clusters[0].MinTokenCount())
	}
}

// Scenario 6: an 8-token duplicated run generates several overlapping
// candidate windows as the hasher slides across it; the skip mechanism
// must collapse them into exactly one reported match of the full length.
func TestDetect_OverlappingRunCollapse(t *testing.T) {
	src := newMemSource()
	src.add("a.go", "a", "b", "c", "d", "e", "f", "g", "h")
	src.add("b.go", "a", "b", "c", "d", "e", "f", "g", "h")

	result := runDetect(t, src, []string{"a.go", "b.go"}, 4)

	clusters := result.Store.Matches()
	if len(clusters) != 1 {
		t.Fatalf("clusters: got %d, want 1", len(clusters))
	}
	if got := clusters[0].MinTokenCount(); got != 8 {
		t.Errorf("token count: got %d, want 8 (expected the skip mechanism to collapse overlapping windows)", got)
	}
}

// P5: reshuffling the input file list yields the same clusters.
func TestDetect_OrderIndependence(t *testing.T) {
	src := newMemSource()
	src.add("a.go", "p", "q", "r", "s", "t")
	src.add("b.go", "p", "q", "r", "s", "t")
	src.add("c.go", "p", "q", "r", "s", "t")

	forward := runDetect(t, src, []string{"a.go", "b.go", "c.go"}, 4)
	reversed := runDetect(t, src, []string{"c.go", "b.go", "a.go"}, 4)

	summarize := func(r *Result) []string {
		var out []string
		for _, c := range r.Store.Matches() {
			out = append(out, sortedFileIDs(c))
		}
		sort.Strings(out)
		return out
	}

	fwd, rev := summarize(forward), summarize(reversed)
	if len(fwd) != len(rev) {
		t.Fatalf("cluster count differs: forward=%d reversed=%d", len(fwd), len(rev))
	}
	for i := range fwd {
		if fwd[i] != rev[i] {
			t.Errorf("cluster %d differs: forward=%q reversed=%q", i, fwd[i], rev[i])
		}
	}
}

func sortedFileIDs(s *MatchSet) string {
	var ids []string
	for _, m := range s.Members() {
		ids = append(ids, m.FileID)
	}
	sort.Strings(ids)
	out := ids[0]
	for _, id := range ids[1:] {
		out += "," + id
	}
	return out
}

// P4: no cluster of size 2 consists of two overlapping same-file regions.
func TestDetect_NoSelfOverlap(t *testing.T) {
	src := newMemSource()
	src.add("a.go", "a", "b", "c", "d", "a", "b", "c", "d", "x")

	result := runDetect(t, src, []string{"a.go"}, 4)

	for _, c := range result.Store.Matches() {
		members := c.Members()
		if len(members) != 2 {
			continue
		}
		if members[0].FileID == members[1].FileID {
			diff := members[0].StartToken - members[1].StartToken
			if diff < 0 {
				diff = -diff
			}
			if diff <= 4 {
				t.Errorf("overlapping same-file match: %+v / %+v", members[0], members[1])
			}
		}
	}
}
