package department

import "sort"

// OrgUnit is a row of the organisational directory (LIS). LOSID is nil when
// the unit has no usable shared identifier.
type OrgUnit struct {
	LISID        int
	LOSID        *int
	Name         string
	Category     int
	CategoryText string
}

// PayrollUnit is a row of the payroll directory (SD organisation).
type PayrollUnit struct {
	Code  string // SDafdID, the payroll department code
	LOSID *int
}

// Department is the unified view of a payroll department.
type Department struct {
	Code         string
	LOSID        int
	Name         string
	Category     int
	CategoryText string
}

// Mapping is keyed by payroll department code.
type Mapping map[string]Department

// Lookup returns the department for a payroll code.
func (m Mapping) Lookup(code string) (Department, bool) {
	d, ok := m[code]
	return d, ok
}

// Codes returns the payroll codes of departments whose category is in
// categories, sorted.
func (m Mapping) Codes(categories ...int) []string {
	want := make(map[int]struct{}, len(categories))
	for _, c := range categories {
		want[c] = struct{}{}
	}

	var out []string
	for code, d := range m {
		if _, ok := want[d.Category]; ok {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
