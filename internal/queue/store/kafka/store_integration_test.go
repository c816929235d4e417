//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kvcheck/internal/platform/logger"
	"kvcheck/internal/queue"
	"kvcheck/internal/queue/store/kafka"
	"kvcheck/pkg/platform/sentinel"
	"kvcheck/pkg/testutil/containers"
)

type KafkaQueueSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaQueueSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaQueueSuite))
}

func (s *KafkaQueueSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaQueueSuite) newStore() *kafka.Store {
	store, err := kafka.New(context.Background(), s.redpanda.Config("kvcheck-"+uuid.NewString()), kafka.WithLogger(logger.Discard()))
	s.Require().NoError(err)
	s.T().Cleanup(store.Close)
	return store
}

func (s *KafkaQueueSuite) TestRoundTrip() {
	ctx := context.Background()
	store := s.newStore()
	partition := "per.sdloen.KV2." + uuid.NewString()[:8]

	batch := []queue.NewItem{
		{Reference: "KV2_050324_1", Data: json.RawMessage(`{"Tillægsnummer":2310}`)},
		{Reference: "KV2_050324_2", Data: json.RawMessage(`{"Tillægsnummer":2311}`)},
	}
	n, err := store.BulkCreate(ctx, partition, batch, "SD-lon_robot")
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = store.BulkCreate(ctx, partition, batch, "SD-lon_robot")
	s.Require().NoError(err)
	s.Equal(0, n)

	first, err := store.Next(ctx, partition)
	s.Require().NoError(err)
	s.Equal("KV2_050324_1", first.Reference)
	s.Equal(queue.StatusInProgress, first.Status)
	s.Require().NoError(store.Complete(ctx, first))

	second, err := store.Next(ctx, partition)
	s.Require().NoError(err)
	s.Equal("KV2_050324_2", second.Reference)
	s.Require().NoError(store.Fail(ctx, second, "render failed"))

	_, err = store.Next(ctx, partition)
	s.ErrorIs(err, sentinel.ErrEmpty)
}

func (s *KafkaQueueSuite) TestCompleteUnknownItem() {
	store := s.newStore()
	err := store.Complete(context.Background(), &queue.WorkItem{ID: uuid.New(), Partition: "nowhere"})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
