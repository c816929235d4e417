package department

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v int) *int { return &v }

func TestUnify(t *testing.T) {
	org := []OrgUnit{
		{LISID: 10, LOSID: ptr(100), Name: "Børnehuset Solsikken", Category: 3, CategoryText: "Børnehave"},
		{LISID: 11, LOSID: ptr(200), Name: "Vestergårdsskolen", Category: 13, CategoryText: "Skole"},
		{LISID: 12, LOSID: nil, Name: "Uden LOS", Category: 3},
	}
	payroll := []PayrollUnit{
		{Code: "4AB1", LOSID: ptr(100)},
		{Code: "4AB2", LOSID: ptr(100)},
		{Code: "7SK1", LOSID: ptr(200)},
		{Code: "9XX1", LOSID: ptr(999)},
		{Code: "9XX2", LOSID: nil},
	}

	m := Unify(org, payroll)

	t.Run("joins on shared identifier", func(t *testing.T) {
		assert.Len(t, m, 3)
		d, ok := m.Lookup("4AB2")
		assert.True(t, ok)
		assert.Equal(t, "Børnehuset Solsikken", d.Name)
		assert.Equal(t, 100, d.LOSID)
	})

	t.Run("drops entries without a match or identifier", func(t *testing.T) {
		_, ok := m.Lookup("9XX1")
		assert.False(t, ok)
		_, ok = m.Lookup("9XX2")
		assert.False(t, ok)
	})

	t.Run("filters codes by category", func(t *testing.T) {
		assert.Equal(t, []string{"4AB1", "4AB2"}, m.Codes(2, 3, 4, 5, 11))
		assert.Equal(t, []string{"7SK1"}, m.Codes(13))
		assert.Empty(t, m.Codes(99))
	})
}

func TestUnify_NeverIncludesEntriesWithoutIdentifier(t *testing.T) {
	org := []OrgUnit{{LISID: 1, LOSID: nil, Name: "A"}}
	payroll := []PayrollUnit{{Code: "X", LOSID: nil}}
	assert.Empty(t, Unify(org, payroll))
}

func TestUnify_SymmetricUnderReordering(t *testing.T) {
	org := []OrgUnit{
		{LISID: 5, LOSID: ptr(1), Name: "B-enhed", Category: 3},
		{LISID: 2, LOSID: ptr(1), Name: "A-enhed", Category: 4},
		{LISID: 7, LOSID: ptr(2), Name: "Skole", Category: 13},
		{LISID: 9, LOSID: nil, Name: "Ingen"},
	}
	payroll := []PayrollUnit{
		{Code: "AAA", LOSID: ptr(2)},
		{Code: "AAA", LOSID: ptr(1)},
		{Code: "BBB", LOSID: ptr(1)},
		{Code: "CCC", LOSID: ptr(3)},
	}
	want := Unify(org, payroll)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		o := append([]OrgUnit(nil), org...)
		p := append([]PayrollUnit(nil), payroll...)
		rng.Shuffle(len(o), func(i, j int) { o[i], o[j] = o[j], o[i] })
		rng.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
		assert.Equal(t, want, Unify(o, p))
	}

	assert.Equal(t, "A-enhed", want["AAA"].Name, "lowest LOSID and lowest LISID win")
	assert.Equal(t, 1, want["AAA"].LOSID)
}
