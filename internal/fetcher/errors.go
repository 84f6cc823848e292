package fetcher

import (
	"sort"

	"github.com/mtlprog/walletnav/internal/domain"
)

// sortErrors orders errors by chain so output does not depend on goroutine scheduling.
func sortErrors(errs []domain.SourceError) []domain.SourceError {
	sort.SliceStable(errs, func(i, j int) bool {
		return chainOf(errs[i]) < chainOf(errs[j])
	})
	return errs
}

func chainOf(e domain.SourceError) int64 {
	if e.Chain == nil {
		return 0
	}
	return *e.Chain
}
