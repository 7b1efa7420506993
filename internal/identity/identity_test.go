package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func staticFetch(id string) FetchFunc {
	return func(context.Context) (string, error) { return id, nil }
}

func TestNodeIDPlaceholderBeforeResolve(t *testing.T) {
	p := New(staticFetch("node-42"))
	if got := p.NodeID(); got != PlaceholderID {
		t.Fatalf("expected placeholder before resolve, got %q", got)
	}
	snap := p.Snapshot()
	if snap.Resolved || snap.NodeID != PlaceholderID || snap.Err != nil {
		t.Fatalf("unexpected initial snapshot: %#v", snap)
	}
}

func TestResolveReturnsFetchedID(t *testing.T) {
	p := New(staticFetch("node-42"))
	id, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "node-42" {
		t.Fatalf("expected node-42, got %q", id)
	}
	if got := p.NodeID(); got != "node-42" {
		t.Fatalf("NodeID after resolve: %q", got)
	}
	select {
	case <-p.Done():
	default:
		t.Fatalf("Done not closed after successful resolve")
	}
}

func TestResolveIsOneShot(t *testing.T) {
	var calls atomic.Int64
	p := New(func(context.Context) (string, error) {
		calls.Add(1)
		return "abc123", nil
	})
	for i := 0; i < 5; i++ {
		id, err := p.Resolve(context.Background())
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if id != "abc123" {
			t.Fatalf("resolve %d: got %q", i, id)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one fetch, got %d", n)
	}
}

func TestResolvedStateNeverReverts(t *testing.T) {
	p := New(staticFetch("node-7"))
	if _, err := p.Resolve(context.Background()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for i := 0; i < 3; i++ {
		snap := p.Snapshot()
		if !snap.Resolved || snap.NodeID != "node-7" || snap.Err != nil {
			t.Fatalf("state reverted on read %d: %#v", i, snap)
		}
		if _, err := p.Resolve(context.Background()); err != nil {
			t.Fatalf("re-resolve %d: %v", i, err)
		}
	}
}

func TestConcurrentResolveSharesOneFlight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	p := New(func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "node-shared", nil
	})

	const workers = 8
	results := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Resolve(context.Background())
		}(i)
	}

	// Let all workers reach the flight before releasing the fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected a single shared fetch, got %d", n)
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i] != "node-shared" {
			t.Fatalf("worker %d: mixed result %q", i, results[i])
		}
	}
}

func TestResolveFailureStoresErrorAndAllowsRetry(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	var calls atomic.Int64
	p := New(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", boom
		}
		return "node-9", nil
	})

	id, err := p.Resolve(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if id != PlaceholderID {
		t.Fatalf("failed resolve returned %q", id)
	}
	snap := p.Snapshot()
	if snap.Resolved {
		t.Fatalf("failure must not resolve state")
	}
	if !errors.Is(snap.Err, boom) {
		t.Fatalf("snapshot missing stored error, got %v", snap.Err)
	}

	id, err = p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if id != "node-9" {
		t.Fatalf("retry got %q", id)
	}
	if snap := p.Snapshot(); snap.Err != nil {
		t.Fatalf("success must clear stored error, got %v", snap.Err)
	}
}

func TestResolveEmptyIDRejected(t *testing.T) {
	p := New(staticFetch("   "))
	if _, err := p.Resolve(context.Background()); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestResolveNilFetch(t *testing.T) {
	p := New(nil)
	if _, err := p.Resolve(context.Background()); !errors.Is(err, ErrNilFetch) {
		t.Fatalf("expected ErrNilFetch, got %v", err)
	}
}

func TestResolveAfterCloseFails(t *testing.T) {
	p := New(staticFetch("node-1"))
	p.Close()
	p.Close()
	if _, err := p.Resolve(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed, got %v", err)
	}
}

func TestLateFetchAfterCloseDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	p := New(func(ctx context.Context) (string, error) {
		close(entered)
		<-release
		return "node-late", nil
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Resolve(context.Background())
		errCh <- err
	}()

	<-entered
	p.Close()
	close(release)

	if err := <-errCh; !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed for mid-flight close, got %v", err)
	}
	snap := p.Snapshot()
	if snap.Resolved || snap.NodeID != PlaceholderID {
		t.Fatalf("closed provider mutated state: %#v", snap)
	}
}

func TestResolveJoinerHonorsContextCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p := New(func(ctx context.Context) (string, error) {
		<-release
		return "node-slow", nil
	})

	go p.Resolve(context.Background())
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Resolve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled for joiner, got %v", err)
	}
}

func TestFromContextWithoutProvider(t *testing.T) {
	for i := 0; i < 3; i++ {
		_, err := FromContext(context.Background())
		if !errors.Is(err, ErrNoProvider) {
			t.Fatalf("call %d: expected ErrNoProvider, got %v", i, err)
		}
		if !strings.Contains(err.Error(), "must be used within") {
			t.Fatalf("call %d: message %q missing usage hint", i, err)
		}
	}
}

func TestNodeIDFromContext(t *testing.T) {
	p := New(staticFetch("ctx-node"))
	ctx := NewContext(context.Background(), p)

	id, err := NodeIDFromContext(ctx)
	if err != nil {
		t.Fatalf("before resolve: %v", err)
	}
	if id != PlaceholderID {
		t.Fatalf("before resolve: got %q", id)
	}

	if _, err := p.Resolve(ctx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	id, err = NodeIDFromContext(ctx)
	if err != nil {
		t.Fatalf("after resolve: %v", err)
	}
	if id != "ctx-node" {
		t.Fatalf("after resolve: got %q", id)
	}

	if _, err := NodeIDFromContext(context.Background()); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("bare context: expected ErrNoProvider, got %v", err)
	}
}
