package dupe

import (
	"fmt"
	"iter"
	"sort"
)

// memSource is an in-memory Source for tests: each file is a fixed list of
// token values turned into TokenRecords with synthetic but
// strictly increasing byte offsets and line numbers, wide enough apart that
// offset-distance comparisons behave the same way they would for real text.
type memSource struct {
	files map[string][]TokenRecord
}

func newMemSource() *memSource {
	return &memSource{files: make(map[string][]TokenRecord)}
}

// add registers fileID's token stream from a sequence of values, one token
// per line, ten bytes apart.
func (s *memSource) add(fileID string, values ...string) {
	toks := make([]TokenRecord, len(values))
	for i, v := range values {
		toks[i] = TokenRecord{
			FileID:     fileID,
			Value:      v,
			Line:       i + 1,
			ByteOffset: i * 10,
		}
	}
	s.files[fileID] = toks
}

func (s *memSource) Tokens(fileID string) (iter.Seq[TokenRecord], error) {
	toks, ok := s.files[fileID]
	if !ok {
		return nil, fmt.Errorf("memSource: unknown file %q", fileID)
	}
	return sliceSeq(toks), nil
}

func (s *memSource) TokensFrom(fileID string, byteOffset int) (iter.Seq[TokenRecord], error) {
	toks, ok := s.files[fileID]
	if !ok {
		return nil, fmt.Errorf("memSource: unknown file %q", fileID)
	}
	idx := sort.Search(len(toks), func(i int) bool { return toks[i].ByteOffset >= byteOffset })
	return sliceSeq(toks[idx:]), nil
}

// fileIDs returns every file name registered with s, sorted by name.
func (s *memSource) fileIDs() []string {
	out := make([]string, 0, len(s.files))
	seen := make(map[string]bool)
	for id := range s.files {
		if !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	sort.Strings(out)
	return out
}
