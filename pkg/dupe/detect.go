package dupe

import (
	"context"
	"fmt"
	"iter"
	"log"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

var detectLog = log.New(os.Stderr, "[dupefind:detect] ", log.Ltime)

// Config controls a single detection run.
type Config struct {
	// Files is the ordered list of file IDs to scan. Order only affects
	// which side of a same-file self-match is reported, never which
	// clusters are found.
	Files []string

	// MinMatch is the minimum number of tokens a duplicated run must
	// contain to be reported. Zero selects DefaultMinMatch.
	MinMatch int

	// Source produces the token stream for each file. Required.
	Source Source

	// ProgressFn, if set, is called once per file after that file's tokens
	// have been hashed. Files without a token stream get no call.
	ProgressFn func(fileID string, done, total int)
}

func (c Config) defaults() Config {
	if c.MinMatch <= 0 {
		c.MinMatch = DefaultMinMatch
	}
	return c
}

// Result is the outcome of a detection run.
type Result struct {
	Store        *MatchStore
	FilesScanned int
	TokensSeen   int
}

// Detector drives the two-phase scan: tokenize every file in parallel,
// then feed each file's tokens through a single RollingHasher, one file
// at a time, in Config.Files order. The second phase is strictly
// sequential because the FingerprintIndex and MatchStore are shared
// mutable state — the whole point of the rolling hash is to build that
// state incrementally as it scans, so concurrent hashing would race on
// its own output.
type Detector struct {
	cfg   Config
	index *FingerprintIndex
	store *MatchStore
}

// NewDetector constructs a Detector for cfg. Config.Source must be set.
func NewDetector(cfg Config) *Detector {
	cfg = cfg.defaults()
	return &Detector{
		cfg:   cfg,
		index: NewFingerprintIndex(),
		store: NewMatchStore(),
	}
}

// Run executes the scan and returns the accumulated result.
func (d *Detector) Run(ctx context.Context) (*Result, error) {
	tokens, err := d.tokenizeAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Store: d.store}
	for i, fileID := range d.cfg.Files {
		seq, ok := tokens[fileID]
		if !ok {
			continue
		}
		hasher := NewRollingHasher(d.cfg.MinMatch, d.index, d.store, d.cfg.Source)
		count := 0
		for tok := range seq {
			if err := hasher.Add(tok); err != nil {
				return nil, fmt.Errorf("dupe: hashing %s: %w", fileID, err)
			}
			count++
		}
		hasher.Finish()

		result.FilesScanned++
		result.TokensSeen += count
		if d.cfg.ProgressFn != nil {
			d.cfg.ProgressFn(fileID, i+1, len(d.cfg.Files))
		}
	}

	return result, nil
}

// tokenizeAll runs Source.Tokens for every configured file concurrently,
// bounded by GOMAXPROCS, and materializes each result so the sequential
// hashing phase never calls Source.Tokens again. Verification during
// hashing still reads through Source.TokensFrom.
func (d *Detector) tokenizeAll(ctx context.Context) (map[string]iter.Seq[TokenRecord], error) {
	limit := runtime.GOMAXPROCS(0)
	if limit > 16 {
		limit = 16
	}
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([][]TokenRecord, len(d.cfg.Files))
	for i, fileID := range d.cfg.Files {
		i, fileID := i, fileID
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			seq, err := d.cfg.Source.Tokens(fileID)
			if err != nil {
				detectLog.Printf("skip %s: %v", fileID, err)
				return nil
			}
			var toks []TokenRecord
			for t := range seq {
				toks = append(toks, t)
			}
			results[i] = toks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]TokenRecord, len(d.cfg.Files))
	for i, fileID := range d.cfg.Files {
		if results[i] != nil {
			out[fileID] = results[i]
		}
	}
	return toSeqMap(out), nil
}

func toSeqMap(in map[string][]TokenRecord) map[string]iter.Seq[TokenRecord] {
	out := make(map[string]iter.Seq[TokenRecord], len(in))
	for k, v := range in {
		v := v
		out[k] = func(yield func(TokenRecord) bool) {
			for _, t := range v {
				if !yield(t) {
					return
				}
			}
		}
	}
	return out
}
