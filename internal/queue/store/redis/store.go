// Package redis is the work queue on Redis. Each partition is a list of item
// ids plus a set of known references; items are stored as JSON strings.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"kvcheck/internal/queue"
	"kvcheck/pkg/platform/sentinel"
)

const keyPrefix = "kvcheck:queue:"

// enqueueScript adds one item unless its reference is already known.
// KEYS: refs set, item key, pending list. ARGV: reference, item JSON, id.
var enqueueScript = redis.NewScript(`
if redis.call('SADD', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2])
redis.call('RPUSH', KEYS[3], ARGV[3])
return 1
`)

// Store implements queue.Queue on a go-redis client.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// New creates a Store. The client lifecycle is managed by the caller.
func New(client *redis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

func refsKey(partition string) string    { return keyPrefix + partition + ":refs" }
func pendingKey(partition string) string { return keyPrefix + partition + ":pending" }
func failedKey(partition string) string  { return keyPrefix + partition + ":failed" }
func itemKey(id uuid.UUID) string        { return keyPrefix + "item:" + id.String() }

func (s *Store) BulkCreate(ctx context.Context, partition string, items []queue.NewItem, createdBy string) (int, error) {
	created := 0
	for _, it := range items {
		item := queue.WorkItem{
			ID:        uuid.New(),
			Partition: partition,
			Reference: it.Reference,
			Data:      it.Data,
			CreatedBy: createdBy,
			Status:    queue.StatusNew,
			CreatedAt: s.now(),
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return created, fmt.Errorf("encode work item %s: %w", it.Reference, err)
		}
		n, err := enqueueScript.Run(ctx, s.client,
			[]string{refsKey(partition), itemKey(item.ID), pendingKey(partition)},
			it.Reference, payload, item.ID.String(),
		).Int()
		if err != nil {
			return created, fmt.Errorf("enqueue work item %s: %w", it.Reference, err)
		}
		created += n
	}
	return created, nil
}

func (s *Store) Next(ctx context.Context, partition string) (*queue.WorkItem, error) {
	raw, err := s.client.LPop(ctx, pendingKey(partition)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("pop work item: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse work item id %q: %w", raw, err)
	}

	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Status = queue.StatusInProgress
	if err := s.save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) Complete(ctx context.Context, item *queue.WorkItem) error {
	return s.finish(ctx, item, queue.StatusDone, "")
}

func (s *Store) Fail(ctx context.Context, item *queue.WorkItem, reason string) error {
	if err := s.finish(ctx, item, queue.StatusFailed, reason); err != nil {
		return err
	}
	return s.client.RPush(ctx, failedKey(item.Partition), item.ID.String()).Err()
}

func (s *Store) finish(ctx context.Context, item *queue.WorkItem, status queue.Status, message string) error {
	stored, err := s.load(ctx, item.ID)
	if err != nil {
		return err
	}
	stored.Status = status
	stored.Message = message
	if err := s.save(ctx, stored); err != nil {
		return err
	}
	item.Status = status
	item.Message = message
	return nil
}

func (s *Store) load(ctx context.Context, id uuid.UUID) (*queue.WorkItem, error) {
	raw, err := s.client.Get(ctx, itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load work item %s: %w", id, err)
	}
	var item queue.WorkItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode work item %s: %w", id, err)
	}
	return &item, nil
}

func (s *Store) save(ctx context.Context, item *queue.WorkItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode work item %s: %w", item.ID, err)
	}
	if err := s.client.Set(ctx, itemKey(item.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("store work item %s: %w", item.ID, err)
	}
	return nil
}

// Pending returns the number of items waiting in partition.
func (s *Store) Pending(ctx context.Context, partition string) (int64, error) {
	return s.client.LLen(ctx, pendingKey(partition)).Result()
}
