package checks

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"kvcheck/internal/datasource"
	dErrors "kvcheck/pkg/domain-errors"
	pkgstrings "kvcheck/pkg/platform/strings"
)

// Accept-lists shared by KV3 and KV3-DEV.
var (
	exemptDaycare = []int{}
	exemptSchool  = []int{43011, 43017, 43031, 44001, 44101, 45001, 45002, 45081, 45082, 46901, 47591, 48888}
)

// Registry maps check names to checks. It is built once and never mutated.
type Registry struct {
	checks map[string]Check
}

// NewRegistry builds the production registry with the given pair table.
func NewRegistry(pairs PairTable) *Registry {
	return NewRegistryOf(
		WrongInstitution{ContractType: 47302, ExcludedInstitution: "XC"},
		IncompletePair{Pairs: pairs},
		WrongContractType{
			Key:     "KV3",
			Daycare: ContractRule{Digit: 7, Accepted: []int{76001, 76101, 77001}, Exempt: exemptDaycare},
			School:  ContractRule{Digit: 4, Accepted: []int{46001, 46101}, Exempt: exemptSchool},
		},
		// Looser validation variant of KV3.
		WrongContractType{
			Key:     "KV3-DEV",
			Daycare: ContractRule{Digit: 7, Accepted: []int{76001, 76101}, Exempt: exemptDaycare},
			School:  ContractRule{Digit: 4, Accepted: []int{46001, 46101}, Exempt: exemptSchool},
		},
		SeniorityNotLocked{ManagerContractTypes: []int{45082, 45081, 46901, 45101, 47201}},
	)
}

// NewRegistryOf builds a registry from arbitrary checks. Later checks with
// the same normalized name replace earlier ones.
func NewRegistryOf(checks ...Check) *Registry {
	r := &Registry{checks: make(map[string]Check, len(checks))}
	for _, c := range checks {
		r.checks[NormalizeName(c.Name())] = c
	}
	return r
}

// NormalizeName is the registry key form of a check name: NFC, trimmed,
// upper-cased.
func NormalizeName(name string) string {
	return pkgstrings.NormalizeKey(name)
}

// Lookup finds a check by name, ignoring case.
func (r *Registry) Lookup(name string) (Check, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "no process defined in process arguments")
	}
	c, ok := r.checks[key]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeConfiguration, "process procedure for %s not defined", key)
	}
	return c, nil
}

// Names lists the registered check names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.checks))
	for k := range r.checks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Execute runs c inside a trace span and reports its duration.
func Execute(ctx context.Context, c Check, env Env) ([]datasource.Record, time.Duration, error) {
	ctx, span := otel.Tracer("kvcheck/checks").Start(ctx, "check."+c.Name())
	defer span.End()

	start := time.Now()
	rows, err := c.Run(ctx, env)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("check.name", c.Name()),
		attribute.Int("check.results", len(rows)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rows, elapsed, err
}
