package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kvcheck/pkg/domain-errors"
)

func TestAsInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"int64", int64(1234), 1234, true},
		{"whole float", float64(55), 55, true},
		{"fractional float", 55.5, 0, false},
		{"numeric text", " 812 ", 812, true},
		{"decimal text", "812.00", 812, true},
		{"bytes", []byte("7"), 7, true},
		{"nil", nil, 0, false},
		{"text", "abc", 0, false},
		{"time", time.Now(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsInt(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_ProjectKeepsSchema(t *testing.T) {
	rec := Record{"Tjenestenummer": "00123", "Navn": "Jens", "CPR": "secret"}
	got := rec.Project("Tjenestenummer", "Navn", "Enhedsnavn")

	assert.Equal(t, Record{"Tjenestenummer": "00123", "Navn": "Jens", "Enhedsnavn": nil}, got)
	assert.NotContains(t, got, "CPR")
}

func TestRecord_String(t *testing.T) {
	rec := Record{"a": int64(47302), "b": 2.5, "c": nil, "d": time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}

	s, ok := rec.String("a")
	assert.True(t, ok)
	assert.Equal(t, "47302", s)

	s, _ = rec.String("b")
	assert.Equal(t, "2.5", s)

	_, ok = rec.String("c")
	assert.False(t, ok)

	s, _ = rec.String("d")
	assert.Equal(t, "2025-01-02", s)
}

func TestSQLExecutor_UnknownTarget(t *testing.T) {
	exec := NewSQLExecutor(nil, nil)
	_, err := exec.Query(context.Background(), TargetPayroll, "SELECT 1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}
