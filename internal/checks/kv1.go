package checks

import (
	"context"
	"fmt"

	"kvcheck/internal/datasource"
	dErrors "kvcheck/pkg/domain-errors"
)

// WrongInstitution (KV1) flags active employments on ContractType whose
// institution code differs from ExcludedInstitution.
type WrongInstitution struct {
	ContractType        int
	ExcludedInstitution string
}

var wrongInstitutionColumns = []string{
	ColServiceNumber, ColContractType, ColDepartment, ColDepartmentName,
	ColInstitution, ColName, ColStartDate, ColEndDate, ColStatus,
}

func (c WrongInstitution) Name() string { return "KV1" }

func (c WrongInstitution) Description() string {
	return fmt.Sprintf("Ansættelser på overenskomst %d med forkert institutionskode", c.ContractType)
}

func (c WrongInstitution) Columns() []string { return wrongInstitutionColumns }

func (c WrongInstitution) query() (string, error) {
	inst, err := datasource.Code(c.ExcludedInstitution)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeConfiguration, "KV1 excluded institution")
	}
	return fmt.Sprintf(`
		SELECT
			ans.Tjenestenummer, ans.Overenskomst, ans.Afdeling, ans.Institutionskode, perstam.Navn, ans.Startdato, ans.Slutdato, ans.Statuskode
		FROM [Personale].[sd_magistrat].[Ansættelse_mbu] ans
			right join [Personale].[sd].[personStam] perstam
				on ans.CPR = perstam.CPR
		WHERE
			%s
			and ans.Overenskomst = %d
			and ans.Institutionskode != %s`, activeEmployment, c.ContractType, inst), nil
}

func (c WrongInstitution) Run(ctx context.Context, env Env) ([]datasource.Record, error) {
	query, err := c.query()
	if err != nil {
		return nil, err
	}

	rows, err := env.Exec.Query(ctx, datasource.TargetPayroll, query)
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	mapping, err := env.Departments.Mapping(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		withDepartmentName(r, mapping)
	}
	return project(rows, c.Columns()), nil
}
