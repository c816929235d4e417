package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPairTable(t *testing.T) {
	table := DefaultPairTable()
	require.NotEmpty(t, table)

	for _, p := range table {
		side, ok := AllowanceSide(p.Names[0])
		require.True(t, ok)
		assert.Equal(t, "A", side, p.Names[0])
		side, ok = AllowanceSide(p.Names[1])
		require.True(t, ok)
		assert.Equal(t, "B", side, p.Names[1])

		other, name, ok := table.FindPartner(p.ContractType, p.Numbers[0])
		require.True(t, ok)
		assert.Equal(t, p.Numbers[1], other)
		assert.Equal(t, p.Names[1], name)
	}
}

func TestParsePairTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "- ovk: [1"},
		{"missing contract type", `- pair: [1, 2]
  pair_names: ["a A-A", "b B-B"]`},
		{"same number twice", `- ovk: 1
  pair: [2, 2]
  pair_names: ["a A-A", "b B-B"]`},
		{"no side marker", `- ovk: 1
  pair: [2, 3]
  pair_names: ["a", "b B-B"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePairTable([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestAllowanceSide(t *testing.T) {
	tests := []struct {
		name string
		side string
		ok   bool
	}{
		{"Souschef tillæg A-A", "A", true},
		{"Souschef tillæg B-B", "B", true},
		{"Tillæg B-2024", "B", true},
		{"Tillæg C-A", "", false},
		{"Tillæg uden side", "", false},
	}
	for _, tt := range tests {
		side, ok := AllowanceSide(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.side, side, tt.name)
	}
}

func TestAllowancePair_Other(t *testing.T) {
	p := testPairs[0]
	other, name, ok := p.Other(2311)
	require.True(t, ok)
	assert.Equal(t, 2310, other)
	assert.Equal(t, "Funktionstillæg A-A", name)

	_, _, ok = p.Other(1)
	assert.False(t, ok)
}

func TestPairTable_FindPartnerByContractType(t *testing.T) {
	table := PairTable{
		{ContractType: 76001, Numbers: [2]int{1, 2}, Names: [2]string{"X A-A", "X B-B"}},
		{ContractType: 46001, Numbers: [2]int{1, 3}, Names: [2]string{"Y A-A", "Y B-B"}},
	}

	tests := []struct {
		name         string
		contractType int
		number       int
		wantPartner  int
		wantName     string
		wantOK       bool
	}{
		{"daycare pair", 76001, 1, 2, "X B-B", true},
		{"school pair", 46001, 1, 3, "Y B-B", true},
		{"reverse lookup", 46001, 3, 1, "Y A-A", true},
		{"number outside contract type", 76001, 3, 0, "", false},
		{"unknown contract type", 47302, 1, 0, "", false},
		{"no contract type and unique partner", 0, 2, 1, "X A-A", true},
		{"no contract type and ambiguous partner", 0, 1, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partner, name, ok := table.FindPartner(tt.contractType, tt.number)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPartner, partner)
			assert.Equal(t, tt.wantName, name)
		})
	}
}
