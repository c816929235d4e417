package department

// Unify inner-joins the two directories on LOSID. Entries without a LOSID are
// dropped on both sides. Duplicates are resolved deterministically so the
// result does not depend on input order: an LOSID shared by several org units
// keeps the one with the lowest LISID (then name), and a payroll code listed
// under several LOSIDs keeps the lowest LOSID that has an org unit.
func Unify(orgUnits []OrgUnit, payrollUnits []PayrollUnit) Mapping {
	byLOSID := make(map[int]OrgUnit, len(orgUnits))
	for _, u := range orgUnits {
		if u.LOSID == nil {
			continue
		}
		cur, ok := byLOSID[*u.LOSID]
		if !ok || preferOrgUnit(u, cur) {
			byLOSID[*u.LOSID] = u
		}
	}

	out := make(Mapping, len(payrollUnits))
	for _, p := range payrollUnits {
		if p.LOSID == nil || p.Code == "" {
			continue
		}
		org, ok := byLOSID[*p.LOSID]
		if !ok {
			continue
		}
		if cur, exists := out[p.Code]; exists && cur.LOSID <= *p.LOSID {
			continue
		}
		out[p.Code] = Department{
			Code:         p.Code,
			LOSID:        *p.LOSID,
			Name:         org.Name,
			Category:     org.Category,
			CategoryText: org.CategoryText,
		}
	}
	return out
}

func preferOrgUnit(a, b OrgUnit) bool {
	if a.LISID != b.LISID {
		return a.LISID < b.LISID
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	return a.CategoryText < b.CategoryText
}
