package dupe

// WindowHash is the rolling polynomial hash of the last MinMatch token
// hashes. Two windows with the same WindowHash are candidates for a match;
// they still must be verified token-by-token before being trusted.
type WindowHash uint64

// hasherState names the three phases a RollingHasher moves through as it
// consumes a token stream.
type hasherState int

const (
	// filling accumulates tokens until the window reaches MinMatch in
	// size; no probing happens yet.
	filling hasherState = iota
	// scanning probes the FingerprintIndex on every evicted token.
	scanning
	// skipping is scanning's sibling while a verified match is being
	// skipped over, so the same run isn't re-reported token-by-token.
	skipping
)

// RollingHasher slides a fixed-size window of token hashes across one
// file's token stream, maintaining WindowHash incrementally and driving
// FingerprintIndex probes and MatchStore insertions as it goes.
type RollingHasher struct {
	windowSize int
	basePow    uint64 // hashBase^(windowSize-1) mod hashMod

	window  []windowEntry // FIFO, len() in [0, windowSize]
	current WindowHash

	state    hasherState
	skipLeft int

	index *FingerprintIndex
	store *MatchStore
	src   Source
}

type windowEntry struct {
	hash  uint8
	token TokenRecord
}

// NewRollingHasher constructs a hasher for one file's token stream. index
// and store are shared across every file processed by a Detector.
func NewRollingHasher(windowSize int, index *FingerprintIndex, store *MatchStore, src Source) *RollingHasher {
	basePow := uint64(1)
	for i := 0; i < windowSize-1; i++ {
		basePow = (basePow * hashBase) % hashMod
	}
	return &RollingHasher{
		windowSize: windowSize,
		basePow:    basePow,
		window:     make([]windowEntry, 0, windowSize),
		state:      filling,
		index:      index,
		store:      store,
		src:        src,
	}
}

// Add feeds one token into the hasher. When the window is full, the token
// being evicted is probed against the FingerprintIndex and, if it survives
// a verified match, the run length determines how many subsequent tokens
// are skipped before probing resumes.
func (h *RollingHasher) Add(tok TokenRecord) error {
	th := TokenHash(tok.Value)

	if len(h.window) == h.windowSize {
		evicted := h.window[0]
		h.window = h.window[1:]

		switch h.state {
		case scanning, filling:
			matchLen, err := h.probe(evicted.token)
			if err != nil {
				return err
			}
			if matchLen >= h.windowSize {
				h.skipLeft = matchLen - 1
				h.state = skipping
			} else {
				h.state = scanning
			}
		case skipping:
			h.skipLeft--
			if h.skipLeft <= 0 {
				h.state = scanning
			}
		}

		h.index.Insert(WindowHash(h.current), evicted.token)
		h.current = h.subtractOldest(h.current, evicted.hash)
	}

	h.window = append(h.window, windowEntry{hash: th, token: tok})
	h.current = h.appendNewest(h.current, th)
	return nil
}

// Finish marks the end of the token stream. The tokens still in the window
// (the last windowSize tokens of the stream) are dropped without being
// indexed or probed, so the stream's final full window is never matched.
func (h *RollingHasher) Finish() {
	h.window = nil
}

func (h *RollingHasher) subtractOldest(cur WindowHash, oldest uint8) WindowHash {
	term := (uint64(oldest) * h.basePow) % hashMod
	v := (uint64(cur) + hashMod - term) % hashMod
	return WindowHash(v)
}

func (h *RollingHasher) appendNewest(cur WindowHash, newest uint8) WindowHash {
	v := (uint64(cur)*hashBase + uint64(newest)) % hashMod
	return WindowHash(v)
}

// probe looks up the current window hash in the index and verifies every
// candidate. It returns the longest verified match length found, which the
// caller uses to decide how many tokens to skip.
func (h *RollingHasher) probe(evicted TokenRecord) (int, error) {
	candidates := h.index.Lookup(WindowHash(h.current))
	maxLen := 0
	for _, cand := range candidates {
		if cand.Value != evicted.Value {
			continue
		}
		if !isEligiblePair(evicted, cand, h.windowSize) {
			continue
		}
		matchLen, sum, endA, endB, err := verifyMatch(h.src, evicted, cand, h.windowSize)
		if err != nil {
			return 0, err
		}
		if matchLen > maxLen {
			maxLen = matchLen
		}
		if matchLen >= h.windowSize {
			h.store.AddExactMatch(sum, matchLen,
				evicted, endA,
				cand, endB,
			)
		}
	}
	return maxLen, nil
}

// isEligiblePair applies the self-match suppression rule: a pair from the
// same file is only eligible when the two occurrences are more than
// windowSize bytes apart and the newly evicted token comes
// after the candidate in the file, so a match can't be reported against
// tokens it overlaps with itself.
func isEligiblePair(a, b TokenRecord, windowSize int) bool {
	if a.FileID != b.FileID {
		return true
	}
	diff := a.ByteOffset - b.ByteOffset
	if diff < 0 {
		diff = -diff
	}
	return diff > windowSize && a.Line > b.Line
}
