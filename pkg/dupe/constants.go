// Package dupe detects near-duplicate code fragments by comparing runs of
// lexical tokens across a corpus of source files.
//
// The algorithm:
//  1. Tokenize each file into a normalized token sequence (see Source).
//  2. Slide a window of MinMatch tokens across the stream, maintaining a
//     polynomial rolling hash (RollingHasher) over the window.
//  3. Probe a FingerprintIndex keyed by that rolling hash for candidate
//     collisions from earlier in the corpus.
//  4. Verify each candidate by walking both token streams forward and
//     accumulating a SHA-1 over the matched token values; runs at least
//     MinMatch tokens long are recorded in the MatchStore under that
//     content hash, so every occurrence of the same canonical sequence
//     lands in the same MatchSet regardless of discovery order.
//  5. Annotator rewrites source files in place, marking duplicated regions.
package dupe

// Default configuration values for the clone detection engine. Centralised
// here so the CLI help text, Config.defaults(), and tests all reference a
// single source of truth.
const (
	// DefaultMinMatch is the minimum number of tokens a duplicated run
	// must contain to be reported.
	DefaultMinMatch = 100

	// MaxFileSize is the largest file (in bytes) the tokenizer will read.
	// Files larger than this are skipped rather than tokenized.
	MaxFileSize = 512 * 1024

	// hashBase is the rolling hash polynomial base. It matches the 8-bit
	// range a folded token hash lives in.
	hashBase uint64 = 256

	// hashMod is the rolling hash modulus — a prime just above 2^24, so
	// WindowHash values are below 16777619 (slightly more than 24 bits).
	hashMod uint64 = 16777619
)
