package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func drain(t *testing.T, c *Client) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case raw := <-c.Send:
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func onlineUsers(t *testing.T, f frame) []string {
	t.Helper()
	require.Equal(t, domain.EventOnlineUsers, f.Event)
	var ids []string
	require.NoError(t, json.Unmarshal(f.Data, &ids))
	return ids
}

func TestHubEmitTargetsRegisteredMembers(t *testing.T) {
	h := NewHub()
	a, b := newTestClient("a"), newTestClient("b")
	h.Register("a", a)
	h.Register("b", b)

	n := h.Emit(domain.EventAlert, []string{"a", "ghost"}, "hello")
	assert.Equal(t, 1, n)

	frames := drain(t, a)
	require.Len(t, frames, 1)
	assert.Equal(t, domain.EventAlert, frames[0].Event)
	assert.JSONEq(t, `"hello"`, string(frames[0].Data))
	assert.Empty(t, drain(t, b))

	assert.Equal(t, 1, h.EmitExcept(domain.EventStartTyping, []string{"a", "b"}, domain.ChatRef{ChatID: "c"}, a))
	assert.Empty(t, drain(t, a))
	assert.Len(t, drain(t, b), 1)
}

func TestHubJoinLeaveBroadcastsSnapshot(t *testing.T) {
	h := NewHub()
	a, b := newTestClient("a"), newTestClient("b")
	h.Register("a", a)
	h.Register("b", b)

	h.Join("a", []string{"a", "b"})
	h.Join("b", []string{"a", "b"})
	h.Leave("a", []string{"b"})

	framesB := drain(t, b)
	require.Len(t, framesB, 3)
	assert.Equal(t, []string{"a"}, onlineUsers(t, framesB[0]))
	assert.Equal(t, []string{"a", "b"}, onlineUsers(t, framesB[1]))
	assert.Equal(t, []string{"b"}, onlineUsers(t, framesB[2]))

	assert.Len(t, drain(t, a), 2)
	assert.Equal(t, []string{"b"}, h.Online())
}

func TestHubDisconnect(t *testing.T) {
	h := NewHub()
	a, b, c := newTestClient("a"), newTestClient("b"), newTestClient("c")
	h.Register("a", a)
	h.Register("b", b)
	h.Register("c", c)
	h.Join("a", nil)
	h.Join("b", nil)

	require.True(t, h.Disconnect("a", a))

	_, ok := h.Lookup("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, h.Online())
	assert.Empty(t, drain(t, a))

	for _, other := range []*Client{b, c} {
		frames := drain(t, other)
		require.Len(t, frames, 1, "exactly one unscoped broadcast")
		assert.Equal(t, []string{"b"}, onlineUsers(t, frames[0]))
	}
}

func TestHubDisconnectOfSupersededConnection(t *testing.T) {
	h := NewHub()
	old, cur, b := newTestClient("old"), newTestClient("cur"), newTestClient("b")
	h.Register("a", old)
	h.Register("a", cur)
	h.Register("b", b)
	h.Join("a", nil)

	assert.False(t, h.Disconnect("a", old))

	got, ok := h.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, cur, got)
	assert.Equal(t, []string{"a"}, h.Online())
	assert.Empty(t, drain(t, b))
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	a := NewClient("a", nil, testConfig(1))
	h.Register("a", a)

	assert.Equal(t, 1, h.Emit(domain.EventAlert, []string{"a"}, "one"))
	assert.Equal(t, 0, h.Emit(domain.EventAlert, []string{"a"}, "two"))

	a.Close()
	drain(t, a)
	assert.Equal(t, 0, h.Emit(domain.EventAlert, []string{"a"}, "three"))
}

func TestHubConcurrentAccess(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("u%d", i)
			c := newTestClient(id)
			h.Register(id, c)
			h.Join(id, []string{"u0", "u1", id})
			h.Emit(domain.EventAlert, []string{"u0", id}, "x")
			h.Leave(id, []string{id})
			h.Disconnect(id, c)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, h.ConnectedCount())
	assert.Empty(t, h.Online())
}

func TestHubCloseAll(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.Register("a", a)
	h.CloseAll()

	select {
	case <-a.Done():
	default:
		t.Fatal("client not closed")
	}
}

func TestHubCloseAllClosesSupersededClients(t *testing.T) {
	h := NewHub()
	old, cur := newTestClient("old"), newTestClient("cur")
	h.Register("a", old)
	h.Register("a", cur)
	h.CloseAll()

	for _, c := range []*Client{old, cur} {
		select {
		case <-c.Done():
		default:
			t.Fatalf("client %s not closed", c.ID)
		}
	}
}

func TestHubDrainWaitsForEveryAttachedClient(t *testing.T) {
	h := NewHub()
	require.NoError(t, h.Drain(context.Background()))

	old, cur := newTestClient("old"), newTestClient("cur")
	h.Register("a", old)
	h.Register("a", cur)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Drain(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- h.Drain(context.Background()) }()

	assert.False(t, h.Disconnect("a", old))
	select {
	case <-done:
		t.Fatal("drained while the current client was still attached")
	case <-time.After(20 * time.Millisecond):
	}

	assert.True(t, h.Disconnect("a", cur))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("drain did not return after the last disconnect")
	}
}
