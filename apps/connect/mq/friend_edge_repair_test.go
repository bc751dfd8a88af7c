package mq

import (
	"SocialSync/apps/connect/internal/repository"
	"SocialSync/model"
	"SocialSync/pkg/ctxmeta"
	"SocialSync/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var mqLoggerOnce sync.Once

func initMQTestLogger() {
	mqLoggerOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
	})
}

type fakePublisher struct {
	mu      sync.Mutex
	sendErr error
	keys    []string
	tasks   []FriendEdgeTask
}

func (p *fakePublisher) SendJSON(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	task, ok := v.(FriendEdgeTask)
	if !ok {
		return errors.New("unexpected payload")
	}
	p.keys = append(p.keys, key)
	p.tasks = append(p.tasks, task)
	return nil
}

func TestFriendEdgeRepairer_Enqueue(t *testing.T) {
	initMQTestLogger()
	pub := &fakePublisher{}
	r := NewFriendEdgeRepairer(pub, 5)
	ctx := ctxmeta.WithTraceID(context.Background(), "trace-1")

	require.NoError(t, r.RepairFriendEdge(ctx, "u2", "u1"))
	require.Len(t, pub.tasks, 1)
	task := pub.tasks[0]
	assert.Equal(t, "u2", pub.keys[0])
	assert.Equal(t, "u2", task.UserID)
	assert.Equal(t, "u1", task.FriendID)
	assert.Equal(t, "trace-1", task.TraceID)
	assert.Equal(t, 0, task.RetryCount)
	assert.Equal(t, 5, task.MaxRetries)

	pub.sendErr = errors.New("broker down")
	assert.Error(t, r.RepairFriendEdge(ctx, "u2", "u1"))
}

func TestFriendEdgeConsumer_AppliesEdge(t *testing.T) {
	initMQTestLogger()
	store := repository.NewMemoryStore()
	store.PutUser(model.User{ID: "u2"})
	pub := &fakePublisher{}
	c := NewFriendEdgeConsumer(store.Users(), pub, time.Millisecond)

	raw, err := json.Marshal(BuildFriendEdgeTask("u2", "u1"))
	require.NoError(t, err)
	require.NoError(t, c.Handle(context.Background(), kafkago.Message{Value: raw}))

	u2, _ := store.User("u2")
	assert.Equal(t, []string{"u1"}, u2.Friends)
	assert.Empty(t, pub.tasks)
}

func TestFriendEdgeConsumer_RetriesUntilExhausted(t *testing.T) {
	initMQTestLogger()
	store := repository.NewMemoryStore()
	store.PutUser(model.User{ID: "u2"})
	store.InjectFault(repository.OpAddFriend, func(string) error { return errors.New("primary stepped down") })
	pub := &fakePublisher{}
	c := NewFriendEdgeConsumer(store.Users(), pub, time.Millisecond)
	ctx := context.Background()

	task := BuildFriendEdgeTask("u2", "u1").WithMaxRetries(2)
	assert.Error(t, c.Apply(ctx, task))
	require.Len(t, pub.tasks, 1)
	assert.Equal(t, 1, pub.tasks[0].RetryCount)
	assert.Contains(t, pub.tasks[0].OriginalErr, "primary stepped down")

	assert.False(t, pub.tasks[0].NotBefore.Before(pub.tasks[0].Timestamp.Add(time.Millisecond)))

	assert.Error(t, c.Apply(ctx, pub.tasks[0]))
	require.Len(t, pub.tasks, 2)
	assert.Equal(t, 2, pub.tasks[1].RetryCount)
	assert.False(t, pub.tasks[1].NotBefore.Before(pub.tasks[1].Timestamp.Add(2*time.Millisecond)))

	// 已达上限，不再投递
	assert.Error(t, c.Apply(ctx, pub.tasks[1]))
	assert.Len(t, pub.tasks, 2)
}

func TestFriendEdgeConsumer_DropsUnrecoverable(t *testing.T) {
	initMQTestLogger()
	store := repository.NewMemoryStore()
	pub := &fakePublisher{}
	c := NewFriendEdgeConsumer(store.Users(), pub, time.Millisecond)
	ctx := context.Background()

	assert.NoError(t, c.Handle(ctx, kafkago.Message{Value: []byte("{broken")}))
	assert.NoError(t, c.Apply(ctx, FriendEdgeTask{UserID: "", FriendID: "u1"}))
	assert.NoError(t, c.Apply(ctx, BuildFriendEdgeTask("ghost", "u1")))
	assert.Empty(t, pub.tasks)
}

func TestRetryDelay(t *testing.T) {
	assert.Zero(t, retryDelay(0, 3))
	assert.Zero(t, retryDelay(time.Second, 0))
	assert.Equal(t, time.Second, retryDelay(time.Second, 1))
	assert.Equal(t, 2*time.Second, retryDelay(time.Second, 2))
	assert.Equal(t, 8*time.Second, retryDelay(time.Second, 4))
	assert.Equal(t, maxRetryDelay, retryDelay(time.Second, 20))
}

func TestFriendEdgeConsumer_WaitsUntilNotBefore(t *testing.T) {
	initMQTestLogger()
	store := repository.NewMemoryStore()
	store.PutUser(model.User{ID: "u2"})
	pub := &fakePublisher{}
	c := NewFriendEdgeConsumer(store.Users(), pub, time.Millisecond)

	task := BuildFriendEdgeTask("u2", "u1")
	task.NotBefore = time.Now().Add(30 * time.Millisecond)
	start := time.Now()
	require.NoError(t, c.Apply(context.Background(), task))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	u2, _ := store.User("u2")
	assert.Equal(t, []string{"u1"}, u2.Friends)
}

func TestFriendEdgeConsumer_RequeuesPendingTaskOnShutdown(t *testing.T) {
	initMQTestLogger()
	store := repository.NewMemoryStore()
	store.PutUser(model.User{ID: "u2"})
	pub := &fakePublisher{}
	c := NewFriendEdgeConsumer(store.Users(), pub, time.Second)

	task := BuildFriendEdgeTask("u2", "u1").NextAttempt(errors.New("timeout"), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Apply(ctx, task), context.Canceled)
	assert.Zero(t, store.Calls(repository.OpAddFriend))
	require.Len(t, pub.tasks, 1)
	assert.Equal(t, 1, pub.tasks[0].RetryCount)
	assert.True(t, pub.tasks[0].NotBefore.Equal(task.NotBefore))
}
