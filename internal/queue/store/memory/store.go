// Package memory is an in-process work queue for tests and single-shot runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"kvcheck/internal/queue"
	"kvcheck/pkg/platform/sentinel"
)

// Store keeps every partition in memory, in insertion order.
type Store struct {
	mu         sync.Mutex
	partitions map[string][]*queue.WorkItem
	refs       map[string]map[string]struct{}
	now        func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		partitions: make(map[string][]*queue.WorkItem),
		refs:       make(map[string]map[string]struct{}),
		now:        time.Now,
	}
}

func (s *Store) BulkCreate(_ context.Context, partition string, items []queue.NewItem, createdBy string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs[partition] == nil {
		s.refs[partition] = make(map[string]struct{})
	}
	created := 0
	for _, it := range items {
		if _, exists := s.refs[partition][it.Reference]; exists {
			continue
		}
		s.refs[partition][it.Reference] = struct{}{}
		s.partitions[partition] = append(s.partitions[partition], &queue.WorkItem{
			ID:        uuid.New(),
			Partition: partition,
			Reference: it.Reference,
			Data:      append([]byte(nil), it.Data...),
			CreatedBy: createdBy,
			Status:    queue.StatusNew,
			CreatedAt: s.now(),
		})
		created++
	}
	return created, nil
}

func (s *Store) Next(_ context.Context, partition string) (*queue.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.partitions[partition] {
		if it.Status == queue.StatusNew {
			it.Status = queue.StatusInProgress
			cp := *it
			return &cp, nil
		}
	}
	return nil, sentinel.ErrEmpty
}

func (s *Store) Complete(_ context.Context, item *queue.WorkItem) error {
	return s.finish(item, queue.StatusDone, "")
}

func (s *Store) Fail(_ context.Context, item *queue.WorkItem, reason string) error {
	return s.finish(item, queue.StatusFailed, reason)
}

func (s *Store) finish(item *queue.WorkItem, status queue.Status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.partitions[item.Partition] {
		if it.ID == item.ID {
			it.Status = status
			it.Message = message
			item.Status = status
			item.Message = message
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// Items returns a snapshot of a partition in insertion order.
func (s *Store) Items(partition string) []queue.WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]queue.WorkItem, 0, len(s.partitions[partition]))
	for _, it := range s.partitions[partition] {
		out = append(out, *it)
	}
	return out
}
