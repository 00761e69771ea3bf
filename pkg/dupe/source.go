package dupe

import "iter"

// Source produces the token stream the detector scans. Implementations are
// expected to tokenize a file once and serve both methods from that cached
// result — Tokens for a full top-to-bottom pass, TokensFrom to resume a
// verification walk mid-file without re-lexing.
type Source interface {
	// Tokens returns every token of fileID in file order.
	Tokens(fileID string) (iter.Seq[TokenRecord], error)

	// TokensFrom returns the tokens of fileID starting at the first one
	// whose ByteOffset is >= byteOffset.
	TokensFrom(fileID string, byteOffset int) (iter.Seq[TokenRecord], error)
}
