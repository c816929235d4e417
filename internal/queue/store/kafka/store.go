// Package kafka is the work queue on Kafka. Each partition is a topic; items
// are produced keyed by reference and consumed by a consumer group with
// manual commits, so an item is only acknowledged once it is completed or
// moved to the failed topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"kvcheck/internal/platform/config"
	platformkafka "kvcheck/internal/platform/kafka"
	"kvcheck/internal/queue"
	"kvcheck/pkg/platform/sentinel"
)

// FailedSuffix is appended to a partition to name its dead-letter topic.
const FailedSuffix = ".failed"

// Store implements queue.Queue on franz-go clients.
type Store struct {
	cfg      config.KafkaConfig
	producer *kgo.Client
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	consumers map[string]*kgo.Client
	inflight  map[uuid.UUID]*kgo.Record
	seen      map[string]map[string]struct{}
	topics    map[string]struct{}
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New connects the producer client. Consumers are created per partition on
// first use.
func New(ctx context.Context, cfg config.KafkaConfig, opts ...Option) (*Store, error) {
	producer, err := platformkafka.New(ctx, cfg, kgo.AllowAutoTopicCreation())
	if err != nil {
		return nil, err
	}
	s := &Store{
		cfg:       cfg,
		producer:  producer,
		logger:    slog.Default(),
		now:       time.Now,
		consumers: make(map[string]*kgo.Client),
		inflight:  make(map[uuid.UUID]*kgo.Record),
		seen:      make(map[string]map[string]struct{}),
		topics:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BulkCreate produces the items not yet produced by this store. References
// are only deduplicated within the lifetime of the store.
func (s *Store) BulkCreate(ctx context.Context, partition string, items []queue.NewItem, createdBy string) (int, error) {
	if err := s.ensureTopics(ctx, partition, partition+FailedSuffix); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.seen[partition] == nil {
		s.seen[partition] = make(map[string]struct{})
	}
	var records []*kgo.Record
	var refs []string
	for _, it := range items {
		if _, dup := s.seen[partition][it.Reference]; dup {
			continue
		}
		value, err := json.Marshal(queue.WorkItem{
			ID:        uuid.New(),
			Partition: partition,
			Reference: it.Reference,
			Data:      it.Data,
			CreatedBy: createdBy,
			Status:    queue.StatusNew,
			CreatedAt: s.now(),
		})
		if err != nil {
			s.mu.Unlock()
			return 0, fmt.Errorf("encode work item %s: %w", it.Reference, err)
		}
		records = append(records, &kgo.Record{Topic: partition, Key: []byte(it.Reference), Value: value})
		refs = append(refs, it.Reference)
	}
	s.mu.Unlock()

	if len(records) == 0 {
		return 0, nil
	}
	if err := s.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce work items: %w", err)
	}

	s.mu.Lock()
	for _, ref := range refs {
		s.seen[partition][ref] = struct{}{}
	}
	s.mu.Unlock()
	return len(records), nil
}

// Next polls one record from the partition topic. A poll that yields nothing
// within the configured poll timeout reports sentinel.ErrEmpty.
func (s *Store) Next(ctx context.Context, partition string) (*queue.WorkItem, error) {
	consumer, err := s.consumer(ctx, partition)
	if err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.pollTimeout())
	fetches := consumer.PollRecords(pollCtx, 1)
	cancel()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := fetches.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("poll %s: %w", partition, err)
	}
	records := fetches.Records()
	if len(records) == 0 {
		return nil, sentinel.ErrEmpty
	}

	rec := records[0]
	var item queue.WorkItem
	if err := json.Unmarshal(rec.Value, &item); err != nil {
		// undecodable records would block the partition forever
		if cerr := consumer.CommitRecords(ctx, rec); cerr != nil {
			return nil, fmt.Errorf("skip undecodable record: %w", cerr)
		}
		return nil, fmt.Errorf("decode work item at offset %d: %w", rec.Offset, err)
	}
	item.Status = queue.StatusInProgress

	s.mu.Lock()
	s.inflight[item.ID] = rec
	s.mu.Unlock()
	return &item, nil
}

func (s *Store) Complete(ctx context.Context, item *queue.WorkItem) error {
	if err := s.commit(ctx, item); err != nil {
		return err
	}
	item.Status = queue.StatusDone
	return nil
}

// Fail produces the item to the failed topic and then acknowledges it.
func (s *Store) Fail(ctx context.Context, item *queue.WorkItem, reason string) error {
	failed := *item
	failed.Status = queue.StatusFailed
	failed.Message = reason
	value, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("encode failed work item: %w", err)
	}
	rec := &kgo.Record{Topic: item.Partition + FailedSuffix, Key: []byte(item.Reference), Value: value}
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce failed work item: %w", err)
	}
	if err := s.commit(ctx, item); err != nil {
		return err
	}
	item.Status = queue.StatusFailed
	item.Message = reason
	return nil
}

func (s *Store) commit(ctx context.Context, item *queue.WorkItem) error {
	s.mu.Lock()
	rec, ok := s.inflight[item.ID]
	consumer := s.consumers[item.Partition]
	delete(s.inflight, item.ID)
	s.mu.Unlock()
	if !ok || consumer == nil {
		return sentinel.ErrNotFound
	}
	if err := consumer.CommitRecords(ctx, rec); err != nil {
		return fmt.Errorf("commit work item %s: %w", item.Reference, err)
	}
	return nil
}

func (s *Store) consumer(ctx context.Context, partition string) (*kgo.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.consumers[partition]; ok {
		return c, nil
	}
	c, err := platformkafka.New(ctx, s.cfg,
		kgo.ConsumerGroup(s.cfg.ConsumerGroup),
		kgo.ConsumeTopics(partition),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, err
	}
	s.consumers[partition] = c
	s.logger.Debug("kafka consumer started", "topic", partition, "group", s.cfg.ConsumerGroup)
	return c, nil
}

func (s *Store) ensureTopics(ctx context.Context, topics ...string) error {
	s.mu.Lock()
	var missing []string
	for _, t := range topics {
		if _, ok := s.topics[t]; !ok {
			missing = append(missing, t)
		}
	}
	s.mu.Unlock()
	if len(missing) == 0 {
		return nil
	}

	if err := platformkafka.EnsureTopics(ctx, s.producer, missing...); err != nil {
		return err
	}
	s.mu.Lock()
	for _, t := range missing {
		s.topics[t] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) pollTimeout() time.Duration {
	if s.cfg.PollTimeout <= 0 {
		return 5 * time.Second
	}
	return s.cfg.PollTimeout
}

// Close shuts down all consumers and the producer.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, c := range s.consumers {
		c.Close()
		delete(s.consumers, topic)
	}
	s.producer.Close()
}
