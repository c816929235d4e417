package department

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvcheck/internal/datasource"
)

type recordingExecutor struct {
	mu      sync.Mutex
	queries map[datasource.Target][]string
	rows    map[datasource.Target][]datasource.Record
	err     error
}

func (e *recordingExecutor) Query(_ context.Context, target datasource.Target, query string) ([]datasource.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queries == nil {
		e.queries = map[datasource.Target][]string{}
	}
	e.queries[target] = append(e.queries[target], query)
	if e.err != nil {
		return nil, e.err
	}
	return e.rows[target], nil
}

func TestResolver_MappingWithCategories(t *testing.T) {
	exec := &recordingExecutor{rows: map[datasource.Target][]datasource.Record{
		datasource.TargetMasterdata: {
			{"lisid": int64(1), "losid": "100.00", "enhnavn": "Dagtilbud Nord", "afdtype": int64(2), "afdtype_txt": "Dagtilbud"},
			{"lisid": int64(2), "losid": nil, "enhnavn": "Ukendt", "afdtype": int64(13), "afdtype_txt": "Skole"},
		},
		datasource.TargetPayroll: {
			{"SDafdID": "N001 ", "LOSID": int64(100)},
		},
	}}
	r := NewResolver(exec)

	m, err := r.Mapping(context.Background(), 2, 13)
	require.NoError(t, err)

	require.Contains(t, m, "N001")
	assert.Equal(t, "Dagtilbud Nord", m["N001"].Name)

	require.Len(t, exec.queries[datasource.TargetMasterdata], 1)
	assert.Contains(t, exec.queries[datasource.TargetMasterdata][0], "afdtype in (2, 13)")
	require.Len(t, exec.queries[datasource.TargetPayroll], 1)
	assert.Contains(t, exec.queries[datasource.TargetPayroll][0], "LOSID in (100)")
}

func TestResolver_MappingUnfilteredReadsBoth(t *testing.T) {
	exec := &recordingExecutor{rows: map[datasource.Target][]datasource.Record{
		datasource.TargetMasterdata: {{"lisid": int64(1), "losid": int64(5), "enhnavn": "Enhed", "afdtype": int64(3)}},
		datasource.TargetPayroll:    {{"SDafdID": "E5", "LOSID": int64(5)}},
	}}

	m, err := NewResolver(exec).Mapping(context.Background())
	require.NoError(t, err)
	assert.Len(t, m, 1)
	assert.False(t, strings.Contains(exec.queries[datasource.TargetPayroll][0], "WHERE"))
}

func TestResolver_MappingNoLOSIDsSkipsPayrollQuery(t *testing.T) {
	exec := &recordingExecutor{rows: map[datasource.Target][]datasource.Record{
		datasource.TargetMasterdata: {{"lisid": int64(1), "losid": nil, "enhnavn": "Enhed", "afdtype": int64(3)}},
	}}

	m, err := NewResolver(exec).Mapping(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, m)
	assert.Empty(t, exec.queries[datasource.TargetPayroll])
}

func TestResolver_PropagatesErrors(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("boom")}
	_, err := NewResolver(exec).Mapping(context.Background())
	assert.Error(t, err)
}

func TestResolver_Contacts(t *testing.T) {
	exec := &recordingExecutor{rows: map[datasource.Target][]datasource.Record{
		datasource.TargetMasterdata: {
			{"AF_email": "zeta@aarhus.dk", "LOSID": int64(10)},
			{"AF_email": "alfa@aarhus.dk", "LOSID": int64(10)},
			{"AF_email": nil, "LOSID": int64(11)},
			{"AF_email": "x@aarhus.dk", "LOSID": nil},
		},
	}}

	contacts, err := NewResolver(exec).Contacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]string{10: "alfa@aarhus.dk"}, contacts)
}
