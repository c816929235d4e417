package datasource

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Queries against the payroll store are plain text: IN-clauses over
// variable-length tuples are rendered here and nowhere else. Only integers and
// short alphanumeric codes are ever interpolated.

var codePattern = regexp.MustCompile(`^[0-9A-Za-z]{1,16}$`)

// IntList renders values as an SQL tuple, e.g. "(1, 2, 3)". An empty list
// renders "(NULL)" so that IN matches nothing and NOT IN is never true.
func IntList(values ...int) string {
	if len(values) == 0 {
		return "(NULL)"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// CodeList renders values as a quoted SQL tuple, e.g. "('1', '3')". Every
// value must match [0-9A-Za-z]{1,16}.
func CodeList(values ...string) (string, error) {
	if len(values) == 0 {
		return "(NULL)", nil
	}
	parts := make([]string, len(values))
	for i, v := range values {
		q, err := Code(v)
		if err != nil {
			return "", err
		}
		parts[i] = q
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

// Code renders a single quoted code literal.
func Code(value string) (string, error) {
	if !codePattern.MatchString(value) {
		return "", fmt.Errorf("refusing to interpolate %q into query", value)
	}
	return "'" + value + "'", nil
}

// SortedInts returns the keys of set in ascending order.
func SortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
