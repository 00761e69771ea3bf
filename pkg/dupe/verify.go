package dupe

import (
	"crypto/sha1"
	"iter"
)

// verifyMatch walks the token streams starting at a and b in lockstep,
// comparing token values and accumulating a content hash over the shared
// run. It stops at the first mismatch or the end of either stream and
// reports how many tokens matched, along with the last token on each side
// that was part of the run.
//
// A matching WindowHash does not imply matching content — this is the verification step that rules out false
// positives before anything is recorded in the MatchStore.
func verifyMatch(src Source, a, b TokenRecord, minLen int) (matchLen int, sum ContentHash, endA, endB TokenRecord, err error) {
	seqA, err := src.TokensFrom(a.FileID, a.ByteOffset)
	if err != nil {
		return 0, sum, endA, endB, err
	}
	seqB, err := src.TokensFrom(b.FileID, b.ByteOffset)
	if err != nil {
		return 0, sum, endA, endB, err
	}

	nextA, stopA := iter.Pull(seqA)
	defer stopA()
	nextB, stopB := iter.Pull(seqB)
	defer stopB()

	h := sha1.New()
	count := 0
	for {
		tokA, okA := nextA()
		tokB, okB := nextB()
		if !okA || !okB {
			break
		}
		if tokA.Value != tokB.Value {
			break
		}
		h.Write([]byte(tokA.Value))
		endA, endB = tokA, tokB
		count++
	}

	copy(sum[:], h.Sum(nil))
	return count, sum, endA, endB, nil
}
