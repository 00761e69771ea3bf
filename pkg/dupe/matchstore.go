package dupe

import (
	"fmt"
	"sort"
)

// ContentHash is the SHA-1 digest of a matched token run's concatenated
// values. Every occurrence of the same canonical sequence — no matter
// which pair of files first discovered it — lands under the same
// ContentHash, which is what lets a three-way duplicate collapse into one
// MatchSet instead of three separate pairwise reports.
type ContentHash [20]byte

// MatchData describes one occurrence of a duplicated run in a single
// file. StartToken and EndToken are inclusive.
type MatchData struct {
	FileID     string
	StartLine  int
	EndLine    int
	StartToken int // ByteOffset of the first matched token
	EndToken   int // ByteOffset of the last matched token
	TokenCount int
	LineCount  int // EndLine - StartLine; physical span, not token count
}

// newMatchData validates and constructs a MatchData. A violation here
// means the detector's bookkeeping is inconsistent with itself — not a
// condition callers can recover from — so it panics rather than
// propagating a wrapped error through every caller.
func newMatchData(start, end TokenRecord, tokenCount int) MatchData {
	if start.FileID != end.FileID {
		panic(fmt.Sprintf("dupe: match spans two files %q and %q", start.FileID, end.FileID))
	}
	if end.ByteOffset < start.ByteOffset {
		panic(fmt.Sprintf("dupe: match end offset %d precedes start offset %d", end.ByteOffset, start.ByteOffset))
	}
	if tokenCount <= 0 {
		panic(fmt.Sprintf("dupe: match token count %d must be positive", tokenCount))
	}
	return MatchData{
		FileID:     start.FileID,
		StartLine:  start.Line,
		EndLine:    end.Line,
		StartToken: start.ByteOffset,
		EndToken:   end.ByteOffset,
		TokenCount: tokenCount,
		LineCount:  end.Line - start.Line,
	}
}

// key identifies a MatchData for dedup purposes within a MatchSet: the
// same file and start line can only appear once, since re-discovering the
// same occurrence from a different candidate pair must not double-count
// it.
func (m MatchData) key() string {
	return fmt.Sprintf("%s:%d", m.FileID, m.StartLine)
}

// MatchSet is the set of distinct occurrences that share one ContentHash.
// A set with fewer than two members is not a duplicate — it is dropped by
// MatchStore.Matches rather than reported.
type MatchSet struct {
	members   map[string]MatchData
	minLen    int
	minLines  int
	linesSeen bool
}

func newMatchSet() *MatchSet {
	return &MatchSet{members: make(map[string]MatchData)}
}

// add inserts a MatchData, deduplicating by file and start line and
// tracking the shortest token count seen across members so a cluster is
// always reported at the length every member actually matched.
func (s *MatchSet) add(m MatchData) {
	if _, exists := s.members[m.key()]; exists {
		return
	}
	s.members[m.key()] = m
	if s.minLen == 0 || m.TokenCount < s.minLen {
		s.minLen = m.TokenCount
	}
	if !s.linesSeen || m.LineCount < s.minLines {
		s.minLines = m.LineCount
		s.linesSeen = true
	}
}

// Members returns the occurrences in this set, in no particular order.
func (s *MatchSet) Members() []MatchData {
	out := make([]MatchData, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out
}

// MinTokenCount is the shortest matched run length across every member of
// the set.
func (s *MatchSet) MinTokenCount() int {
	return s.minLen
}

// ReportedLineCount is the minimum LineCount across every member: the same
// token run can straddle a different number of blank lines on each side, so
// this conservatively under-reports rather than overstates the duplication.
func (s *MatchSet) ReportedLineCount() int {
	return s.minLines
}

// MatchStore owns every MatchSet discovered during a run, indexed by
// ContentHash so repeated discoveries of the same duplicated sequence
// accumulate into one cluster.
type MatchStore struct {
	sets map[ContentHash]*MatchSet
}

// NewMatchStore returns an empty MatchStore.
func NewMatchStore() *MatchStore {
	return &MatchStore{sets: make(map[ContentHash]*MatchSet)}
}

// AddExactMatch records a verified match between token a's run and token
// b's run, both ending at endA/endB respectively, under sum.
func (s *MatchStore) AddExactMatch(sum ContentHash, tokenCount int, a, endA, b, endB TokenRecord) {
	set, ok := s.sets[sum]
	if !ok {
		set = newMatchSet()
		s.sets[sum] = set
	}
	set.add(newMatchData(a, endA, tokenCount))
	set.add(newMatchData(b, endB, tokenCount))
}

// Matches returns every MatchSet with at least two distinct occurrences —
// singleton sets are an artifact of verification and are not duplicates.
func (s *MatchStore) Matches() []*MatchSet {
	out := make([]*MatchSet, 0, len(s.sets))
	for _, set := range s.sets {
		if len(set.members) >= 2 {
			out = append(out, set)
		}
	}
	return out
}

// firstMember returns the lexicographically smallest (file_id, start.line)
// member of a set, used to break ties between equally-sized clusters.
func firstMember(s *MatchSet) MatchData {
	members := s.Members()
	first := members[0]
	for _, m := range members[1:] {
		if m.FileID < first.FileID || (m.FileID == first.FileID && m.StartLine < first.StartLine) {
			first = m
		}
	}
	return first
}

// sortByLineCountDesc orders clusters by ReportedLineCount descending,
// breaking ties by the lexicographic order of each cluster's first member —
// Matches returns clusters in unspecified order, so callers that need
// deterministic output must sort before printing or annotating.
func sortByLineCountDesc(sets []*MatchSet) {
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].ReportedLineCount() != sets[j].ReportedLineCount() {
			return sets[i].ReportedLineCount() > sets[j].ReportedLineCount()
		}
		a, b := firstMember(sets[i]), firstMember(sets[j])
		if a.FileID != b.FileID {
			return a.FileID < b.FileID
		}
		return a.StartLine < b.StartLine
	})
}

// FingerprintIndex maps a WindowHash to every token it was evicted
// alongside, so a later occurrence of the same window can find its
// earlier candidates.
type FingerprintIndex struct {
	buckets map[WindowHash][]TokenRecord
}

// NewFingerprintIndex returns an empty FingerprintIndex.
func NewFingerprintIndex() *FingerprintIndex {
	return &FingerprintIndex{buckets: make(map[WindowHash][]TokenRecord)}
}

// Insert records that tok was the token evicted while the window hash was
// h.
func (idx *FingerprintIndex) Insert(h WindowHash, tok TokenRecord) {
	idx.buckets[h] = append(idx.buckets[h], tok)
}

// Lookup returns every token previously evicted under window hash h.
func (idx *FingerprintIndex) Lookup(h WindowHash) []TokenRecord {
	return idx.buckets[h]
}
