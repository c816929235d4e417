// Package postgres is the work queue on a PostgreSQL table. Items are claimed
// with FOR UPDATE SKIP LOCKED so several consumers can share a partition.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kvcheck/internal/queue"
	"kvcheck/pkg/platform/sentinel"
	txcontext "kvcheck/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Store implements queue.Queue on the work_items table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a Store on db. Call Migrate once before use.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open connects with the lib/pq driver.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping queue database: %w", err)
	}
	return db, nil
}

// Migrate creates the work_items table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate work_items: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// batchSize bounds the array parameters of one insert statement.
const batchSize = 500

// BulkCreate inserts the items in batches inside one transaction; existing
// references are skipped by the (partition, reference) constraint.
func (s *Store) BulkCreate(ctx context.Context, partition string, items []queue.NewItem, createdBy string) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	created := 0
	now := s.now()
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for start := 0; start < len(items); start += batchSize {
			end := min(start+batchSize, len(items))
			n, err := s.insertBatch(ctx, partition, items[start:end], createdBy, now)
			if err != nil {
				return err
			}
			created += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *Store) insertBatch(ctx context.Context, partition string, items []queue.NewItem, createdBy string, now time.Time) (int, error) {
	ids := make([]string, len(items))
	refs := make([]string, len(items))
	data := make([]string, len(items))
	for i, it := range items {
		ids[i] = uuid.NewString()
		refs[i] = it.Reference
		data[i] = string(it.Data)
	}

	query := `
		INSERT INTO work_items (id, partition, reference, data, created_by, status, created_at, updated_at)
		SELECT u.id::uuid, $1, u.reference, u.data::jsonb, $2, 'new', $3, $3
		FROM unnest($4::text[], $5::text[], $6::text[]) WITH ORDINALITY AS u(id, reference, data, ord)
		ORDER BY u.ord
		ON CONFLICT (partition, reference) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		partition,
		createdBy,
		now,
		pq.Array(ids),
		pq.Array(refs),
		pq.Array(data),
	)
	if err != nil {
		return 0, fmt.Errorf("insert work items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count inserted work items: %w", err)
	}
	return int(n), nil
}

// Next claims the oldest new item of partition.
func (s *Store) Next(ctx context.Context, partition string) (*queue.WorkItem, error) {
	query := `
		UPDATE work_items
		SET status = 'in_progress', updated_at = $2
		WHERE seq = (
			SELECT seq FROM work_items
			WHERE partition = $1 AND status = 'new'
			ORDER BY seq
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, partition, reference, data, created_by, status, message, created_at
	`
	var (
		item   queue.WorkItem
		data   []byte
		status string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, partition, s.now()).Scan(
		&item.ID,
		&item.Partition,
		&item.Reference,
		&data,
		&item.CreatedBy,
		&status,
		&item.Message,
		&item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("claim work item: %w", err)
	}
	item.Data = data
	item.Status = queue.Status(status)
	return &item, nil
}

func (s *Store) Complete(ctx context.Context, item *queue.WorkItem) error {
	return s.finish(ctx, item, queue.StatusDone, "")
}

func (s *Store) Fail(ctx context.Context, item *queue.WorkItem, reason string) error {
	return s.finish(ctx, item, queue.StatusFailed, reason)
}

func (s *Store) finish(ctx context.Context, item *queue.WorkItem, status queue.Status, message string) error {
	query := `
		UPDATE work_items
		SET status = $2, message = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, item.ID, string(status), message, s.now())
	if err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	item.Status = status
	item.Message = message
	return nil
}

// Count returns the number of items of partition in status.
func (s *Store) Count(ctx context.Context, partition string, status queue.Status) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM work_items WHERE partition = $1 AND status = $2`,
		partition, string(status),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count work items: %w", err)
	}
	return n, nil
}
