package checks

import (
	"context"
	"fmt"

	"kvcheck/internal/datasource"
	"kvcheck/internal/department"
)

// Department categories of the organisational directory.
var (
	DaycareCategories = []int{2, 3, 4, 5, 11}
	SchoolCategories  = []int{13}
)

// WrongContractType (KV3 and KV3-DEV) flags active employments whose contract
// type does not fit the category of their department: daycare departments
// are checked with Daycare, schools with School.
type WrongContractType struct {
	Key     string
	Daycare ContractRule
	School  ContractRule
}

var wrongContractTypeColumns = []string{
	ColServiceNumber, ColDepartment, ColInstitution, ColContractType,
	ColDepartmentName, ColName, ColDepartmentType,
}

func (c WrongContractType) Name() string { return c.Key }

func (c WrongContractType) Description() string {
	return "Ansættelser med forkert SD overenskomst i forhold til afdelingstype"
}

func (c WrongContractType) Columns() []string { return wrongContractTypeColumns }

// ruleFor returns the rule that applies to a department category.
func (c WrongContractType) ruleFor(category int) (ContractRule, bool) {
	switch {
	case containsInt(DaycareCategories, category):
		return c.Daycare, true
	case containsInt(SchoolCategories, category):
		return c.School, true
	default:
		return ContractRule{}, false
	}
}

func (c WrongContractType) query(daycare, school []string) (string, error) {
	daycareList, err := datasource.CodeList(daycare...)
	if err != nil {
		return "", err
	}
	schoolList, err := datasource.CodeList(school...)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		SELECT
			ans.Tjenestenummer, ans.Overenskomst, ans.Afdeling, ans.Institutionskode, perstam.Navn, ans.Startdato, ans.Slutdato, ans.Statuskode
		FROM
			[Personale].[sd_magistrat].[Ansættelse_mbu] ans
			left join [Personale].[sd].[personStam] as perstam
			on ans.CPR = perstam.CPR
		WHERE
			((
				ans.Afdeling in %s
				and %s
			)
			or
			(
				ans.Afdeling in %s
				and %s
			))
			and %s`, daycareList, c.Daycare.sql(), schoolList, c.School.sql(), activeEmployment), nil
}

func (c WrongContractType) Run(ctx context.Context, env Env) ([]datasource.Record, error) {
	categories := append(append([]int{}, DaycareCategories...), SchoolCategories...)
	mapping, err := env.Departments.Mapping(ctx, categories...)
	if err != nil {
		return nil, err
	}

	daycare, skippedDaycare := safeCodes(mapping.Codes(DaycareCategories...))
	school, skippedSchool := safeCodes(mapping.Codes(SchoolCategories...))
	if skipped := append(skippedDaycare, skippedSchool...); len(skipped) > 0 {
		env.Logger.Warn("skipping department codes that cannot be queried", "check", c.Key, "codes", skipped)
	}
	if len(daycare) == 0 && len(school) == 0 {
		return nil, nil
	}

	query, err := c.query(daycare, school)
	if err != nil {
		return nil, err
	}
	rows, err := env.Exec.Query(ctx, datasource.TargetPayroll, query)
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	return project(c.classify(rows, mapping), c.Columns()), nil
}

// classify keeps rows whose department is known and whose contract type the
// department's rule flags, and adds the department name and type.
func (c WrongContractType) classify(rows []datasource.Record, mapping department.Mapping) []datasource.Record {
	var out []datasource.Record
	for _, r := range rows {
		d, ok := mapping.Lookup(departmentCode(r))
		if !ok {
			continue
		}
		rule, ok := c.ruleFor(d.Category)
		if !ok {
			continue
		}
		code, ok := r.Int(ColContractType)
		if !ok || !rule.Flags(code) {
			continue
		}
		r[ColDepartmentName] = d.Name
		r[ColDepartmentType] = d.CategoryText
		out = append(out, r)
	}
	return out
}
