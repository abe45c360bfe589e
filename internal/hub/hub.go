package hub

import (
	"context"
	"sync"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// Hub owns the connection registry and the presence set. Every operation
// that reads and then changes them runs under one lock, and deliveries never
// block while it is held.
//
// The hub also tracks every attached connection, including ones superseded
// in the registry, until Disconnect is called for it, so shutdown can close
// and wait for all of them.
type Hub struct {
	mu       sync.Mutex
	registry *Registry
	presence *Presence
	resolver *Resolver
	attached map[*Client]struct{}
	drained  chan struct{}
}

func NewHub() *Hub {
	reg := NewRegistry()
	return &Hub{
		registry: reg,
		presence: NewPresence(),
		resolver: NewResolver(reg),
		attached: make(map[*Client]struct{}),
	}
}

// Register makes c the connection for userID. A previous connection for the
// same user stays open but is no longer addressed.
func (h *Hub) Register(userID string, c *Client) {
	h.mu.Lock()
	prev := h.registry.Register(userID, c)
	h.attached[c] = struct{}{}
	h.mu.Unlock()

	l := log.L()
	evt := l.Debug().Str(log.FieldUserID, userID).Str(log.FieldClientID, c.ID)
	if prev != nil {
		evt = evt.Str("superseded_client_id", prev.ID)
	}
	evt.Msg("client registered")
}

// Lookup returns the connection registered for userID.
func (h *Hub) Lookup(userID string) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Lookup(userID)
}

// Online returns the current presence snapshot.
func (h *Hub) Online() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presence.Snapshot()
}

// ConnectedCount returns the number of registered connections.
func (h *Hub) ConnectedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Len()
}

// Emit sends event to the live connections of members and returns how many
// received it.
func (h *Hub) Emit(event string, members []string, data interface{}) int {
	return h.EmitExcept(event, members, data, nil)
}

// EmitExcept is Emit without the except connection.
func (h *Hub) EmitExcept(event string, members []string, data interface{}, except *Client) int {
	frame, ok := encode(event, data)
	if !ok {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return deliver(event, h.resolver.Targets(members, except), frame)
}

// Join marks userID present and sends the new snapshot to members.
func (h *Hub) Join(userID string, members []string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.presence.MarkPresent(userID)
	return h.emitSnapshot(h.resolver.Targets(members, nil))
}

// Leave marks userID absent and sends the new snapshot to members.
func (h *Hub) Leave(userID string, members []string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.presence.MarkAbsent(userID)
	return h.emitSnapshot(h.resolver.Targets(members, nil))
}

// Disconnect removes c as userID's connection, marks the user absent and
// sends the new snapshot to every remaining connection. It does nothing and
// returns false when c was already superseded by a newer connection.
func (h *Hub) Disconnect(userID string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detach(c)
	if !h.registry.Release(userID, c) {
		return false
	}
	h.presence.MarkAbsent(userID)
	h.emitSnapshot(h.registry.All())
	return true
}

// CloseAll closes every attached connection, superseded ones included.
// Their read pumps exit and disconnect them in turn.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.attached))
	for c := range h.attached {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
		if c.Conn != nil {
			c.Conn.Close()
		}
	}
}

// Drain blocks until every attached connection has been disconnected, or
// ctx is done. Handlers finish before their connection disconnects, so a
// nil return means no message is still being persisted.
func (h *Hub) Drain(ctx context.Context) error {
	h.mu.Lock()
	if len(h.attached) == 0 {
		h.mu.Unlock()
		return nil
	}
	if h.drained == nil {
		h.drained = make(chan struct{})
	}
	drained := h.drained
	h.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// detach must be called with h.mu held.
func (h *Hub) detach(c *Client) {
	if _, ok := h.attached[c]; !ok {
		return
	}
	delete(h.attached, c)
	if len(h.attached) == 0 && h.drained != nil {
		close(h.drained)
		h.drained = nil
	}
}

// emitSnapshot must be called with h.mu held.
func (h *Hub) emitSnapshot(targets []*Client) int {
	frame, ok := encode(domain.EventOnlineUsers, h.presence.Snapshot())
	if !ok {
		return 0
	}
	return deliver(domain.EventOnlineUsers, targets, frame)
}

func encode(event string, data interface{}) ([]byte, bool) {
	frame, err := domain.EncodeEvent(event, data)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldEvent, event).Msg("failed to encode event")
		return nil, false
	}
	return frame, true
}

func deliver(event string, targets []*Client, frame []byte) int {
	sent := 0
	for _, c := range targets {
		if c.Deliver(frame) {
			sent++
			continue
		}
		l := log.L()
		l.Warn().
			Str(log.FieldEvent, event).
			Str(log.FieldClientID, c.ID).
			Str(log.FieldUserID, c.UserID()).
			Msg("dropping event for slow or closed client")
	}
	return sent
}
