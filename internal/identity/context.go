package identity

import "context"

// contextKey is unexported so only this package can install a provider.
type contextKey struct{}

// NewContext returns a child context carrying the provider, making it
// reachable anywhere the context flows without explicit plumbing.
func NewContext(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the provider installed by NewContext.
// Calling it outside a provider scope is a wiring mistake, reported as
// ErrNoProvider rather than a nil provider.
func FromContext(ctx context.Context) (*Provider, error) {
	p, ok := ctx.Value(contextKey{}).(*Provider)
	if !ok || p == nil {
		return nil, ErrNoProvider
	}
	return p, nil
}

// NodeIDFromContext reads the current identifier through the context's
// provider. It never blocks; before resolution it reports PlaceholderID.
func NodeIDFromContext(ctx context.Context) (string, error) {
	p, err := FromContext(ctx)
	if err != nil {
		return PlaceholderID, err
	}
	return p.NodeID(), nil
}
