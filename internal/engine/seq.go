package engine

import "iter"

// SliceRows adapts an in-memory row slice to the BulkInsert row sequence.
func SliceRows(rows [][]any) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}
