package manager

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestClient_BindIsWriteOnce(t *testing.T) {
	c := NewClient(nil, "c1", nil)
	assert.Equal(t, "", c.UserID())
	assert.Error(t, c.Bind(""))

	require.NoError(t, c.Bind("u1"))
	assert.ErrorIs(t, c.Bind("u2"), ErrAlreadyBound)
	assert.Equal(t, "u1", c.UserID())
}

func TestClient_BindConcurrent(t *testing.T) {
	c := NewClient(nil, "c1", nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Bind("u") == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestClient_EnqueueAfterCloseIsDropped(t *testing.T) {
	c := NewClient(nil, "c1", nil)
	assert.True(t, c.Enqueue([]byte("a")))
	assert.True(t, c.Enqueue(nil))

	c.Close()
	c.Close()
	assert.False(t, c.Enqueue([]byte("b")))
	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestClient_EnqueueFullQueue(t *testing.T) {
	c := NewClient(nil, "c1", nil)
	for i := 0; i < defaultSendQueueSize; i++ {
		require.True(t, c.Enqueue([]byte("x")))
	}
	assert.False(t, c.Enqueue([]byte("overflow")))
}

func TestClient_Allow(t *testing.T) {
	assert.True(t, NewClient(nil, "c1", nil).Allow())

	limited := NewClient(nil, "c2", rate.NewLimiter(rate.Limit(0.001), 2))
	assert.True(t, limited.Allow())
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow())
}

func TestConnectionManager_Lifecycle(t *testing.T) {
	m := NewConnectionManager()

	unbound := NewClient(nil, "c0", nil)
	assert.False(t, m.Register(unbound))

	a := NewClient(nil, "c1", nil)
	b := NewClient(nil, "c2", nil)
	require.NoError(t, a.Bind("u1"))
	require.NoError(t, b.Bind("u1"))
	assert.True(t, m.Register(a))
	assert.True(t, m.Register(b))
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, 2, m.UserConnections("u1"))

	m.Unregister(a)
	m.Unregister(a)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 1, m.UserConnections("u1"))

	assert.False(t, m.Closed())
	m.Shutdown()
	assert.True(t, m.Closed())
	assert.Zero(t, m.Count())
	assert.False(t, b.Enqueue([]byte("late")))

	c := NewClient(nil, "c3", nil)
	require.NoError(t, c.Bind("u2"))
	assert.False(t, m.Register(c))
}
