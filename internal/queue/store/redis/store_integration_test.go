//go:build integration

package redis_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	platformredis "kvcheck/internal/platform/redis"
	"kvcheck/internal/queue"
	queueredis "kvcheck/internal/queue/store/redis"
	"kvcheck/pkg/platform/sentinel"
	"kvcheck/pkg/testutil/containers"
)

type RedisQueueSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *queueredis.Store
}

func TestRedisQueueSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisQueueSuite))
}

func (s *RedisQueueSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	client, err := platformredis.New(context.Background(), s.redis.Config())
	s.Require().NoError(err)
	s.Require().NoError(client.Health(context.Background()))
	s.store = queueredis.New(client.Client)
}

func (s *RedisQueueSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisQueueSuite) TestBulkCreateSkipsExistingReferences() {
	ctx := context.Background()
	batch := []queue.NewItem{
		{Reference: "KV4_050324_1", Data: json.RawMessage(`{"AF_email":"af@aarhus.dk"}`)},
		{Reference: "KV4_050324_2", Data: json.RawMessage(`{"AF_email":null}`)},
	}

	n, err := s.store.BulkCreate(ctx, "per.sdloen.KV4", batch, "SD-lon_robot")
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.store.BulkCreate(ctx, "per.sdloen.KV4", batch, "SD-lon_robot")
	s.Require().NoError(err)
	s.Equal(0, n)

	pending, err := s.store.Pending(ctx, "per.sdloen.KV4")
	s.Require().NoError(err)
	s.EqualValues(2, pending)
}

func (s *RedisQueueSuite) TestNextCompleteFail() {
	ctx := context.Background()
	_, err := s.store.BulkCreate(ctx, "p", []queue.NewItem{
		{Reference: "a", Data: json.RawMessage(`{"n":1}`)},
		{Reference: "b", Data: json.RawMessage(`{"n":2}`)},
	}, "tester")
	s.Require().NoError(err)

	a, err := s.store.Next(ctx, "p")
	s.Require().NoError(err)
	s.Equal("a", a.Reference)
	s.Equal("tester", a.CreatedBy)
	s.JSONEq(`{"n":1}`, string(a.Data))

	b, err := s.store.Next(ctx, "p")
	s.Require().NoError(err)

	_, err = s.store.Next(ctx, "p")
	s.ErrorIs(err, sentinel.ErrEmpty)

	s.Require().NoError(s.store.Complete(ctx, a))
	s.Equal(queue.StatusDone, a.Status)
	s.Require().NoError(s.store.Fail(ctx, b, "no recipient"))
	s.Equal(queue.StatusFailed, b.Status)
}
