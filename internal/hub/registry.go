package hub

// Registry maps each user to its live connection. One connection per user:
// registering again replaces the previous entry.
//
// Registry is not safe for concurrent use; Hub serializes access to it.
type Registry struct {
	conns map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Client)}
}

// Register maps userID to c and returns the handle it replaced, if any.
func (r *Registry) Register(userID string, c *Client) *Client {
	prev := r.conns[userID]
	r.conns[userID] = c
	if prev == c {
		return nil
	}
	return prev
}

// Unregister removes the entry for userID. Absent users are ignored.
func (r *Registry) Unregister(userID string) {
	delete(r.conns, userID)
}

// Release removes the entry for userID only if it still points at c.
func (r *Registry) Release(userID string, c *Client) bool {
	if cur, ok := r.conns[userID]; ok && cur == c {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Lookup returns the connection registered for userID.
func (r *Registry) Lookup(userID string) (*Client, bool) {
	c, ok := r.conns[userID]
	return c, ok
}

// Resolve returns the connections of the registered users in userIDs, in
// input order. Unregistered and repeated ids are skipped.
func (r *Registry) Resolve(userIDs []string) []*Client {
	out := make([]*Client, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if c, ok := r.conns[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// All returns every registered connection.
func (r *Registry) All() []*Client {
	out := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.conns)
}
