package checks

import (
	"fmt"
	"strconv"
	"strings"

	"kvcheck/internal/datasource"
)

// ContractRule flags contract-type codes whose leading digit is Digit and
// that are in neither Accepted nor Exempt. Accepted is the rule's own
// allow-list; Exempt is the configurable accept-list shared by rule variants.
type ContractRule struct {
	Digit    int
	Accepted []int
	Exempt   []int
}

// Flags reports whether code violates the rule.
func (r ContractRule) Flags(code int) bool {
	s := strconv.Itoa(code)
	if s[0] != byte('0'+r.Digit) {
		return false
	}
	return !containsInt(r.Accepted, code) && !containsInt(r.Exempt, code)
}

// sql renders the rule as a predicate on ans.Overenskomst.
func (r ContractRule) sql() string {
	var b strings.Builder
	fmt.Fprintf(&b, "LEFT(CAST(ans.Overenskomst AS varchar(10)), 1) = '%d'", r.Digit)
	if len(r.Accepted) > 0 {
		fmt.Fprintf(&b, "\n\t\t\t\tand ans.Overenskomst not in %s", datasource.IntList(r.Accepted...))
	}
	if len(r.Exempt) > 0 {
		fmt.Fprintf(&b, "\n\t\t\t\tand ans.Overenskomst not in %s", datasource.IntList(r.Exempt...))
	}
	return b.String()
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
