package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/microsoft/go-mssqldb"

	dErrors "kvcheck/pkg/domain-errors"
)

// Target names a relational source. It is the only identifier that appears in
// errors and logs; connection strings never do.
type Target string

const (
	// TargetPayroll is the shared payroll database (employments, allowances,
	// person master data, SD organisation).
	TargetPayroll Target = "payroll"

	// TargetMasterdata is the organisational master data (LIS units, AF
	// communities).
	TargetMasterdata Target = "masterdata"
)

// Executor runs a read-only query and returns its rows. A query matching no
// rows returns a nil slice and no error.
type Executor interface {
	Query(ctx context.Context, target Target, query string) ([]Record, error)
}

// SQLExecutor runs queries through database/sql, one pool per target.
type SQLExecutor struct {
	dbs    map[Target]*sql.DB
	logger *slog.Logger
}

// Open creates an executor for the given driver and per-target DSNs. Opening
// does not connect; the first query does.
func Open(driver string, dsns map[Target]string, logger *slog.Logger) (*SQLExecutor, error) {
	dbs := make(map[Target]*sql.DB, len(dsns))
	for target, dsn := range dsns {
		db, err := sql.Open(driver, dsn)
		if err != nil {
			for _, opened := range dbs {
				_ = opened.Close()
			}
			return nil, dErrors.Wrap(err, dErrors.CodeDataSource, fmt.Sprintf("open target %s", target))
		}
		dbs[target] = db
	}
	return NewSQLExecutor(dbs, logger), nil
}

// NewSQLExecutor wraps already opened pools.
func NewSQLExecutor(dbs map[Target]*sql.DB, logger *slog.Logger) *SQLExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLExecutor{dbs: dbs, logger: logger}
}

// Query implements Executor.
func (e *SQLExecutor) Query(ctx context.Context, target Target, query string) ([]Record, error) {
	db, ok := e.dbs[target]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeConfiguration, "no connection configured for target %s", target)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		e.logger.Error("query failed", "target", target, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeDataSource, fmt.Sprintf("query target %s", target))
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDataSource, fmt.Sprintf("read rows from target %s", target))
	}
	e.logger.Debug("query done", "target", target, "rows", len(records))
	return records, nil
}

// Ping checks every configured target.
func (e *SQLExecutor) Ping(ctx context.Context) error {
	for target, db := range e.dbs {
		if err := db.PingContext(ctx); err != nil {
			return dErrors.Wrap(err, dErrors.CodeDataSource, fmt.Sprintf("ping target %s", target))
		}
	}
	return nil
}

// Close closes every pool.
func (e *SQLExecutor) Close() error {
	var first error
	for _, db := range e.dbs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}
