package checks

import (
	"context"
	"strings"
	"sync"

	"kvcheck/internal/datasource"
	"kvcheck/internal/platform/logger"
)

// fakeSources answers directory queries from fixed rows and employment
// queries from a function of the query text.
type fakeSources struct {
	mu           sync.Mutex
	orgUnits     []datasource.Record
	payrollUnits []datasource.Record
	contacts     []datasource.Record
	employments  func(query string) []datasource.Record
	queries      []string
	err          error
}

func (f *fakeSources) Query(_ context.Context, target datasource.Target, query string) ([]datasource.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	switch {
	case target == datasource.TargetMasterdata && strings.Contains(query, "MD_ADM_FAELLESSKAB"):
		return clone(f.contacts), nil
	case target == datasource.TargetMasterdata:
		return clone(f.orgUnits), nil
	case strings.Contains(query, "SDafdID, LOSID"):
		return clone(f.payrollUnits), nil
	default:
		f.queries = append(f.queries, query)
		if f.employments == nil {
			return nil, nil
		}
		return clone(f.employments(query)), nil
	}
}

func (f *fakeSources) env() Env {
	return NewEnv(f, logger.Discard())
}

func clone(rows []datasource.Record) []datasource.Record {
	if rows == nil {
		return nil
	}
	out := make([]datasource.Record, len(rows))
	for i, r := range rows {
		c := make(datasource.Record, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

// standardDirectories has one daycare, one school and one other department.
func standardDirectories() *fakeSources {
	return &fakeSources{
		orgUnits: []datasource.Record{
			{"lisid": int64(1), "losid": int64(100), "enhnavn": "Børnehuset Mælkebøtten", "afdtype": int64(3), "afdtype_txt": "Børnehave"},
			{"lisid": int64(2), "losid": int64(200), "enhnavn": "Skovvangskolen", "afdtype": int64(13), "afdtype_txt": "Folkeskole"},
			{"lisid": int64(3), "losid": int64(300), "enhnavn": "Administration", "afdtype": int64(20), "afdtype_txt": "Administration"},
		},
		payrollUnits: []datasource.Record{
			{"SDafdID": "DAG1", "LOSID": int64(100)},
			{"SDafdID": "SKO1", "LOSID": int64(200)},
			{"SDafdID": "ADM1", "LOSID": int64(300)},
		},
		contacts: []datasource.Record{
			{"AF_email": "af-nord@aarhus.dk", "LOSID": int64(100)},
		},
	}
}
