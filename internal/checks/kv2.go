package checks

import (
	"context"
	"fmt"

	"kvcheck/internal/datasource"
)

// IncompletePair (KV2) flags active employments holding exactly one of the
// two allowance numbers of a configured pair.
type IncompletePair struct {
	Pairs PairTable
}

var incompletePairColumns = []string{
	ColServiceNumber, ColAllowanceNumber, ColAllowanceName, ColContractType,
	ColDepartment, ColDepartmentName, ColName, ColInstitution,
}

func (c IncompletePair) Name() string { return "KV2" }

func (c IncompletePair) Description() string {
	return "Ansættelser med kun ét af to parrede tillægsnumre"
}

func (c IncompletePair) Columns() []string { return incompletePairColumns }

func (c IncompletePair) query(p AllowancePair) string {
	pair := datasource.IntList(p.Numbers[0], p.Numbers[1])
	return fmt.Sprintf(`
		SELECT
			ans.AnsættelsesID, ans.Tjenestenummer, til.Tillægsnummer, til.Tillægsnavn, ans.Overenskomst, ans.Afdeling, perstam.Navn, ans.Institutionskode
		FROM
			[Personale].[sd_magistrat].Ansættelse_mbu ans
			right join [Personale].[sd_magistrat].[tillæg_mbu] til
				on ans.AnsættelsesID = til.AnsættelsesID
			right join [Personale].[sd].[personStam] perstam
				on ans.CPR = perstam.CPR
		WHERE
			til.Tillægsnummer in %[1]s
			and ans.Overenskomst = %[2]d
			and %[3]s
			and ans.AnsættelsesID in (
				SELECT
					ans.AnsættelsesID
				FROM
					[Personale].[sd_magistrat].Ansættelse_mbu ans
					right join [Personale].[sd_magistrat].[tillæg_mbu] til
						on ans.AnsættelsesID = til.AnsættelsesID
				WHERE
					til.Tillægsnummer in %[1]s
					and ans.Overenskomst = %[2]d
					and %[3]s
				GROUP BY
					ans.AnsættelsesID
				HAVING
					count(distinct til.Tillægsnummer) != 2
			)`, pair, p.ContractType, activeEmployment)
}

func (c IncompletePair) Run(ctx context.Context, env Env) ([]datasource.Record, error) {
	var rows []datasource.Record
	for _, p := range c.Pairs {
		pairRows, err := env.Exec.Query(ctx, datasource.TargetPayroll, c.query(p))
		if err != nil {
			return nil, err
		}
		rows = append(rows, exactlyOne(p, pairRows)...)
	}
	if len(rows) == 0 {
		return nil, nil
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

// exactlyOne keeps the rows of employments that hold exactly one distinct
// number of the pair. Rows carrying a number outside the pair are dropped.
// Rows without an employment id cannot be grouped and are kept as-is.
// Several rows for the same employment collapse to the first one.
func exactlyOne(p AllowancePair, rows []datasource.Record) []datasource.Record {
	held := make(map[string]map[int]struct{})
	for _, r := range rows {
		id, ok := r.String(colEmploymentID)
		if !ok {
			continue
		}
		n, ok := r.Int(ColAllowanceNumber)
		if !ok || !p.Contains(n) {
			continue
		}
		if held[id] == nil {
			held[id] = make(map[int]struct{}, 2)
		}
		held[id][n] = struct{}{}
	}

	var out []datasource.Record
	seen := make(map[string]struct{})
	for _, r := range rows {
		n, ok := r.Int(ColAllowanceNumber)
		if !ok || !p.Contains(n) {
			continue
		}
		id, ok := r.String(colEmploymentID)
		if ok {
			if len(held[id]) != 1 {
				continue
			}
			// one record per employment, even when the allowance has several periods
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		out = append(out, r)
	}
	return out
}
