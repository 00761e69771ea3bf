package dupe

import (
	"fmt"
	"io"
	"sort"
)

// Report writes a plain-text summary of every duplicate cluster in store,
// ordered by reported line count (largest first, ties broken by each
// cluster's first member) to put the most significant duplication up front.
func Report(w io.Writer, store *MatchStore) error {
	sets := store.Matches()
	sortByLineCountDesc(sets)

	for i, set := range sets {
		if _, err := fmt.Fprintf(w, "%s\n", dashes); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Match %d:\n", i+1); err != nil {
			return err
		}

		members := set.Members()
		sort.Slice(members, func(i, j int) bool {
			if members[i].FileID != members[j].FileID {
				return members[i].FileID < members[j].FileID
			}
			return members[i].StartLine < members[j].StartLine
		})

		if _, err := fmt.Fprintf(w, "Found an approx. %d line duplication in %d files.\n",
			set.ReportedLineCount(), len(members)); err != nil {
			return err
		}
		for _, m := range members {
			if _, err := fmt.Fprintf(w, "Starting at line %d of %s\n", m.StartLine, m.FileID); err != nil {
				return err
			}
		}
	}
	return nil
}

const dashes = "=================================================="
