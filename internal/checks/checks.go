// Package checks holds the quality-control checks run against the payroll
// store. Every check is a read-only function of its parameters and the data
// sources; none of them writes back.
package checks

import (
	"context"
	"log/slog"
	"strings"

	"kvcheck/internal/datasource"
	"kvcheck/internal/department"
)

// Column names shared by the discrepancy records. They double as the JSON
// keys of work item payloads, which the mail templates read back.
const (
	ColServiceNumber   = "Tjenestenummer"
	ColContractType    = "Overenskomst"
	ColDepartment      = "Afdeling"
	ColDepartmentName  = "Enhedsnavn"
	ColInstitution     = "Institutionskode"
	ColName            = "Navn"
	ColStartDate       = "Startdato"
	ColEndDate         = "Slutdato"
	ColStatus          = "Statuskode"
	ColAllowanceNumber = "Tillægsnummer"
	ColAllowanceName   = "Tillægsnavn"
	ColDepartmentType  = "afdtype_txt"
	ColSeniorityDate   = "Anciennitetsdato"
	ColLOSID           = "LOSID"
	ColAFEmail         = "AF_email"

	colEmploymentID = "AnsættelsesID"
)

// activeEmployment restricts the employment table (alias ans) to contracts
// that are active today.
const activeEmployment = `ans.Statuskode in ('1', '3', '5')
			and ans.Startdato <= GETDATE()
			and ans.Slutdato > GETDATE()`

// Env carries the data sources a check may read.
type Env struct {
	Exec        datasource.Executor
	Departments *department.Resolver
	Logger      *slog.Logger
}

// NewEnv builds an Env whose department resolver shares exec.
func NewEnv(exec datasource.Executor, logger *slog.Logger) Env {
	if logger == nil {
		logger = slog.Default()
	}
	return Env{
		Exec:        exec,
		Departments: department.NewResolver(exec, department.WithLogger(logger)),
		Logger:      logger,
	}
}

// Check is one named quality control.
type Check interface {
	// Name is the registry key, e.g. "KV1".
	Name() string
	// Description is a human-readable summary used as fallback mail subject.
	Description() string
	// Columns is the fixed output schema of the discrepancy records.
	Columns() []string
	// Run returns the discrepancy records; nil when nothing matched.
	Run(ctx context.Context, env Env) ([]datasource.Record, error)
}

// departmentCode returns the trimmed payroll department code of a record.
func departmentCode(rec datasource.Record) string {
	code, _ := rec.String(ColDepartment)
	return strings.TrimSpace(code)
}

// withDepartmentName sets Enhedsnavn from the mapping; unknown departments
// leave it nil.
func withDepartmentName(rec datasource.Record, m department.Mapping) datasource.Record {
	rec[ColDepartmentName] = nil
	if d, ok := m.Lookup(departmentCode(rec)); ok {
		rec[ColDepartmentName] = d.Name
	}
	return rec
}

// project applies the output schema to every record.
func project(rows []datasource.Record, cols []string) []datasource.Record {
	if len(rows) == 0 {
		return nil
	}
	out := make([]datasource.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Project(cols...)
	}
	return out
}

// safeCodes splits department codes into those that may be interpolated and
// those that may not.
func safeCodes(codes []string) (valid, skipped []string) {
	for _, c := range codes {
		if _, err := datasource.Code(c); err != nil {
			skipped = append(skipped, c)
			continue
		}
		valid = append(valid, c)
	}
	return valid, skipped
}
