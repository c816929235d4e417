package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntList(t *testing.T) {
	assert.Equal(t, "(NULL)", IntList())
	assert.Equal(t, "(47302)", IntList(47302), "single value has no trailing comma")
	assert.Equal(t, "(76001, 76101, 77001)", IntList(76001, 76101, 77001))
}

func TestCodeList(t *testing.T) {
	t.Run("quotes plain codes", func(t *testing.T) {
		got, err := CodeList("1", "3", "5")
		require.NoError(t, err)
		assert.Equal(t, "('1', '3', '5')", got)
	})

	t.Run("empty renders NULL tuple", func(t *testing.T) {
		got, err := CodeList()
		require.NoError(t, err)
		assert.Equal(t, "(NULL)", got)
	})

	t.Run("rejects anything that could break out of the literal", func(t *testing.T) {
		for _, bad := range []string{"", "X'C", "1; DROP TABLE x", "a b", "ÆØÅ", "12345678901234567"} {
			_, err := CodeList("ok", bad)
			assert.Error(t, err, bad)
		}
	})
}

func TestSortedInts(t *testing.T) {
	set := map[int]struct{}{3: {}, 1: {}, 2: {}}
	assert.Equal(t, []int{1, 2, 3}, SortedInts(set))
}
