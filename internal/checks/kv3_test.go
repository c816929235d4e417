package checks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvcheck/internal/datasource"
)

func contractRow(serviceNo, department string, contract int) datasource.Record {
	return datasource.Record{
		"Tjenestenummer": serviceNo, "Overenskomst": int64(contract), "Afdeling": department,
		"Institutionskode": "XC", "Navn": "Navn " + serviceNo, "Statuskode": "1",
	}
}

func kv3Employments(string) []datasource.Record {
	return []datasource.Record{
		contractRow("001", "DAG1", 76001),
		contractRow("002", "DAG1", 77001),
		contractRow("003", "DAG1", 71000),
		contractRow("004", "DAG1", 46001),
		contractRow("005", "SKO1", 41000),
		contractRow("006", "SKO1", 43011),
		contractRow("007", "SKO1", 46101),
		contractRow("008", "ADM1", 71000),
		contractRow("009", "UKENDT", 71000),
	}
}

func serviceNumbers(rows []datasource.Record) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		s, _ := r.String(ColServiceNumber)
		out = append(out, s)
	}
	return out
}

func runRegistered(t *testing.T, name string) ([]datasource.Record, *fakeSources) {
	t.Helper()
	check, err := NewRegistry(DefaultPairTable()).Lookup(name)
	require.NoError(t, err)

	src := standardDirectories()
	src.employments = kv3Employments
	rows, err := check.Run(context.Background(), src.env())
	require.NoError(t, err)
	return rows, src
}

func TestWrongContractType(t *testing.T) {
	rows, src := runRegistered(t, "KV3")

	assert.Equal(t, []string{"003", "005"}, serviceNumbers(rows))
	assert.NotContains(t, serviceNumbers(rows), "004", "school contract in a daycare department has the wrong leading digit")

	require.Len(t, src.queries, 1)
	assert.Contains(t, src.queries[0], "ans.Afdeling in ('DAG1')")
	assert.Contains(t, src.queries[0], "ans.Afdeling in ('SKO1')")
	assert.Contains(t, src.queries[0], "= '7'")
	assert.Contains(t, src.queries[0], "not in (76001, 76101, 77001)")

	assert.Equal(t, "Børnehuset Mælkebøtten", rows[0][ColDepartmentName])
	assert.Equal(t, "Børnehave", rows[0][ColDepartmentType])
	assert.Equal(t, "Folkeskole", rows[1][ColDepartmentType])
}

func TestWrongContractType_DevVariantIsLooser(t *testing.T) {
	strict, _ := runRegistered(t, "KV3")
	loose, _ := runRegistered(t, "KV3-DEV")

	assert.Equal(t, []string{"002", "003", "005"}, serviceNumbers(loose))
	assert.Subset(t, serviceNumbers(loose), serviceNumbers(strict))
}

func TestWrongContractType_RulesNest(t *testing.T) {
	registry := NewRegistry(DefaultPairTable())
	strictCheck, _ := registry.Lookup("KV3")
	looseCheck, _ := registry.Lookup("KV3-DEV")
	strict := strictCheck.(WrongContractType)
	loose := looseCheck.(WrongContractType)

	for code := 10000; code < 100000; code++ {
		if strict.Daycare.Flags(code) {
			require.True(t, loose.Daycare.Flags(code), "daycare code %d", code)
		}
		if strict.School.Flags(code) {
			require.True(t, loose.School.Flags(code), "school code %d", code)
		}
	}
}

func TestWrongContractType_NoMatchingDepartments(t *testing.T) {
	src := standardDirectories()
	src.orgUnits = src.orgUnits[2:]
	src.employments = kv3Employments

	check, _ := NewRegistry(DefaultPairTable()).Lookup("KV3")
	rows, err := check.Run(context.Background(), src.env())
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.Empty(t, src.queries)
}

func TestContractRule_Flags(t *testing.T) {
	rule := ContractRule{Digit: 4, Accepted: []int{46001}, Exempt: []int{43011}}

	assert.True(t, rule.Flags(41000))
	assert.False(t, rule.Flags(46001), "accepted")
	assert.False(t, rule.Flags(43011), "exempt")
	assert.False(t, rule.Flags(71000), "other leading digit")
	assert.NotContains(t, ContractRule{Digit: 7}.sql(), "not in")
}
