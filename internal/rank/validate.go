package rank

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidateAll groups items by partition and checks that every partition's
// ranks are exactly {1..N}. It returns nil or ValidationErrors sorted by key.
// Nothing is repaired.
func ValidateAll(scheme Scheme, items []Item) error {
	groups := make(map[PartitionKey][]int)
	for _, it := range items {
		key := scheme.KeyOf(it.Attributes)
		groups[key] = append(groups[key], it.Rank)
	}

	var errs ValidationErrors
	for key, ranks := range groups {
		if detail := checkRanks(ranks); detail != "" {
			errs = append(errs, ValidationError{Key: key, Ranks: ranks, Detail: detail})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Key < errs[j].Key })
	return errs
}

// AsValidationErrors extracts ValidationErrors from err, if present.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

// checkRanks returns a description of what is wrong with ranks, or "" when
// they form a permutation of 1..len(ranks).
func checkRanks(ranks []int) string {
	n := len(ranks)
	seen := make([]int, n+1)
	var outOfRange []int
	for _, r := range ranks {
		if r < 1 || r > n {
			outOfRange = append(outOfRange, r)
			continue
		}
		seen[r]++
	}

	var dups, missing []int
	for r := 1; r <= n; r++ {
		switch {
		case seen[r] == 0:
			missing = append(missing, r)
		case seen[r] > 1:
			dups = append(dups, r)
		}
	}

	var parts []string
	if len(dups) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate ranks %v", dups))
	}
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing ranks %v", missing))
	}
	if len(outOfRange) > 0 {
		parts = append(parts, fmt.Sprintf("ranks out of range 1..%d: %v", n, outOfRange))
	}
	return strings.Join(parts, "; ")
}
