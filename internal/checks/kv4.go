package checks

import (
	"context"
	"fmt"

	"kvcheck/internal/datasource"
)

// SeniorityNotLocked (KV4) flags active managers whose seniority date has not
// been locked to 9999-12-31.
type SeniorityNotLocked struct {
	ManagerContractTypes []int
}

var seniorityNotLockedColumns = []string{
	ColServiceNumber, ColContractType, ColDepartment, ColDepartmentName, ColName,
	ColInstitution, ColSeniorityDate, ColLOSID, ColAFEmail,
}

func (c SeniorityNotLocked) Name() string { return "KV4" }

func (c SeniorityNotLocked) Description() string {
	return "Ledere som mangler lås på anciennitetsdato"
}

func (c SeniorityNotLocked) Columns() []string { return seniorityNotLockedColumns }

func (c SeniorityNotLocked) query() string {
	return fmt.Sprintf(`
		SELECT
			ans.Tjenestenummer, ans.Overenskomst, ans.Afdeling, perstam.Navn, ans.Institutionskode,
			ans.Anciennitetsdato, org.LOSID
		FROM
			[Personale].[sd_magistrat].Ansættelse_mbu ans
			right join [Personale].[sd].[personStam] perstam
				on ans.CPR = perstam.CPR
			left join [Personale].[sd].[Organisation] org
				on ans.Afdeling = org.SDafdID
		WHERE
			ans.Overenskomst in %s
			and %s
			and cast(ans.Anciennitetsdato as date) != '9999-12-31'`,
		datasource.IntList(c.ManagerContractTypes...), activeEmployment)
}

func (c SeniorityNotLocked) Run(ctx context.Context, env Env) ([]datasource.Record, error) {
	rows, err := env.Exec.Query(ctx, datasource.TargetPayroll, c.query())
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	mapping, err := env.Departments.Mapping(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := env.Departments.Contacts(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		withDepartmentName(r, mapping)

		losID, ok := r.Int(ColLOSID)
		if !ok {
			if d, found := mapping.Lookup(departmentCode(r)); found {
				losID, ok = d.LOSID, true
			}
		}
		r[ColLOSID] = nil
		r[ColAFEmail] = nil
		if !ok {
			continue
		}
		r[ColLOSID] = losID
		if email, found := contacts[losID]; found {
			r[ColAFEmail] = email
		}
	}
	return project(rows, c.Columns()), nil
}
