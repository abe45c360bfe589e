package hub

import "sort"

// Presence is the set of users currently viewing at least one chat. It is
// driven by explicit joined/left signals and disconnects only.
//
// Presence is not safe for concurrent use; Hub serializes access to it.
type Presence struct {
	online map[string]struct{}
}

func NewPresence() *Presence {
	return &Presence{online: make(map[string]struct{})}
}

func (p *Presence) MarkPresent(userID string) {
	p.online[userID] = struct{}{}
}

func (p *Presence) MarkAbsent(userID string) {
	delete(p.online, userID)
}

func (p *Presence) Contains(userID string) bool {
	_, ok := p.online[userID]
	return ok
}

// Snapshot returns the full set, sorted.
func (p *Presence) Snapshot() []string {
	out := make([]string, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
