package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/relay/internal/domain"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func receive(t *testing.T, conn *Connection) []byte {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		require.True(t, ok, "send channel closed")
		return data
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestPublishReachesSessionSubscribers(t *testing.T) {
	h := startHub(t)

	a := h.NewConnection(nil, "s1")
	b := h.NewConnection(nil, "s1")
	other := h.NewConnection(nil, "s2")
	h.Register(a)
	h.Register(b)
	h.Register(other)

	assert.Eventually(t, func() bool { return h.ConnectionCount() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, h.SessionCount())
	assert.True(t, h.HasActiveConnections("s1"))

	h.Publish("s1", domain.SessionEvent{Type: domain.EventTypeTurnCompleted, SessionID: "s1", Ts: 42})

	for _, conn := range []*Connection{a, b} {
		var event domain.SessionEvent
		require.NoError(t, json.Unmarshal(receive(t, conn), &event))
		assert.Equal(t, domain.EventTypeTurnCompleted, event.Type)
		assert.Equal(t, "s1", event.SessionID)
		assert.EqualValues(t, 42, event.Ts)
	}

	select {
	case <-other.Send:
		t.Fatal("event leaked to another session")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := startHub(t)

	conn := h.NewConnection(nil, "s1")
	h.Register(conn)
	h.Unregister(conn)

	select {
	case _, ok := <-conn.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Eventually(t, func() bool { return h.SessionCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, h.HasActiveConnections("s1"))
}

func TestPublishWithoutSubscribersIsDropped(t *testing.T) {
	h := New()

	// No Run loop and no subscribers: Publish must return immediately.
	done := make(chan struct{})
	go func() {
		h.Publish("nobody", domain.SessionEvent{Type: domain.EventTypeSessionDeleted})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestPublishJSONReportsFullQueue(t *testing.T) {
	h := New()
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, h.PublishJSON("s", i))
	}
	assert.ErrorIs(t, h.PublishJSON("s", "overflow"), ErrBufferFull)
}

func TestRunStopsAndClosesConnections(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	conn := h.NewConnection(nil, "s1")
	h.Register(conn)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	_, ok := <-conn.Send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestRegisterAfterStop(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	conn := h.NewConnection(nil, "s1")
	h.Register(conn)
	_, ok := <-conn.Send
	assert.False(t, ok)
	h.Unregister(conn)
}
