package hub

// Resolver turns chat member ids into the connections a broadcast should
// reach. It reads the registry as it is at call time.
type Resolver struct {
	registry *Registry
}

func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Targets returns the live connections of members, leaving out exclude.
func (r *Resolver) Targets(members []string, exclude *Client) []*Client {
	targets := r.registry.Resolve(members)
	if exclude == nil {
		return targets
	}
	out := targets[:0]
	for _, c := range targets {
		if c != exclude {
			out = append(out, c)
		}
	}
	return out
}
