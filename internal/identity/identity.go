// Package identity resolves the local node identifier from the management
// API exactly once and republishes it, read-only, to everything downstream.
//
// A Provider owns the resolution state. Readers either hold the Provider
// directly or pull it from a context via FromContext. The provider is the
// sole writer; readers only ever see snapshot copies.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/danmuck/identd/internal/node"
)

var (
	ErrNoProvider     = errors.New("identity: accessor must be used within a node identity provider scope")
	ErrProviderClosed = errors.New("identity: provider closed")
	ErrNilFetch       = errors.New("identity: nil fetch func")
	ErrEmptyID        = errors.New("identity: management API returned empty node id")
)

// PlaceholderID is reported until a resolution succeeds.
const PlaceholderID = "unknown"

// FetchFunc retrieves the node identifier from the management API.
type FetchFunc func(ctx context.Context) (string, error)

// State is one read-only snapshot of the provider.
// NodeID is meaningful only when Resolved is true; before that it holds
// PlaceholderID. Err carries the most recent failed resolution, cleared
// only by a later success.
type State struct {
	Resolved bool
	NodeID   string
	Err      error
}

// flight is one in-progress fetch. Concurrent Resolve callers join the
// flight and observe its outcome instead of issuing duplicate requests.
type flight struct {
	done chan struct{}
	id   string
	err  error
}

// Provider owns the unresolved -> resolved transition for one node
// identifier. The transition is one-way: once resolved, the identifier is
// stable for the life of the provider.
type Provider struct {
	fetch FetchFunc
	log   zerolog.Logger

	mu       sync.Mutex
	state    State
	inflight *flight
	closed   bool

	done chan struct{}
}

var _ node.Identity = (*Provider)(nil)

// Option adjusts provider construction.
type Option func(*Provider)

// WithLogger attaches a logger for resolution events.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) { p.log = logger }
}

// New builds an unresolved provider around one fetch collaborator.
func New(fetch FetchFunc, opts ...Option) *Provider {
	p := &Provider{
		fetch: fetch,
		log:   zerolog.Nop(),
		state: State{NodeID: PlaceholderID},
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NodeID reports the resolved identifier, or PlaceholderID before the
// first successful resolution.
func (p *Provider) NodeID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.NodeID
}

// Snapshot returns a copy of the current state.
func (p *Provider) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed when the provider transitions to resolved. It never
// closes for a provider that is Closed before resolving.
func (p *Provider) Done() <-chan struct{} {
	return p.done
}

// Resolve returns the node identifier, fetching it on first use.
//
// The first caller owns the fetch; concurrent callers wait on the same
// flight and share its outcome, so duplicate calls cannot interleave into
// mixed state. Once resolved, Resolve returns the stored identifier
// without touching the network again. A failed flight records the error in
// the snapshot and leaves the provider unresolved; a later Resolve starts
// a fresh flight.
func (p *Provider) Resolve(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return PlaceholderID, ErrProviderClosed
	}
	if p.state.Resolved {
		id := p.state.NodeID
		p.mu.Unlock()
		return id, nil
	}
	if p.fetch == nil {
		p.mu.Unlock()
		return PlaceholderID, ErrNilFetch
	}
	if f := p.inflight; f != nil {
		p.mu.Unlock()
		select {
		case <-f.done:
			if f.err != nil {
				return PlaceholderID, f.err
			}
			return f.id, nil
		case <-ctx.Done():
			return PlaceholderID, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	p.inflight = f
	p.mu.Unlock()

	id, err := p.fetch(ctx)
	if err == nil && strings.TrimSpace(id) == "" {
		err = ErrEmptyID
	}
	if err != nil && !errors.Is(err, ErrEmptyID) {
		err = fmt.Errorf("identity: resolve node id: %w", err)
	}

	p.mu.Lock()
	p.inflight = nil
	if p.closed {
		// Released mid-flight; discard the outcome without touching state.
		f.err = ErrProviderClosed
		p.mu.Unlock()
		close(f.done)
		return PlaceholderID, ErrProviderClosed
	}
	if err != nil {
		p.state.Err = err
		f.err = err
		p.mu.Unlock()
		close(f.done)
		p.log.Warn().Err(err).Msg("node identity resolution failed")
		return PlaceholderID, err
	}
	p.state = State{Resolved: true, NodeID: id}
	f.id = id
	p.mu.Unlock()
	close(f.done)
	close(p.done)
	p.log.Info().Str("node_id", id).Msg("node identity resolved")
	return id, nil
}

// Close releases the provider's liveness token. A fetch still in flight
// completes without mutating state, and further Resolve calls fail with
// ErrProviderClosed. Close is idempotent. The resolved identifier, if
// any, remains readable.
func (p *Provider) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
