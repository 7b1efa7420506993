// Package mgmt is the HTTP client for the identd management API.
package mgmt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/identd/internal/observability"
)

const (
	defaultTimeout = 5 * time.Second
	nodeIDPath     = "/v1/node/id"
)

var (
	ErrAddrRequired = errors.New("mgmt: agent addr required")
	ErrEmptyNodeID  = errors.New("mgmt: agent returned empty node id")
)

// nodeIDResponse mirrors the agent's GET /v1/node/id envelope.
type nodeIDResponse struct {
	NodeID string `json:"node_id"`
	Kind   string `json:"kind,omitempty"`
}

// Client fetches the node identifier from one agent address.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// ClientOption adjusts client construction.
type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpc.Timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying transport, mainly for tests.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// NewClient binds a client to one agent management address.
// Accepts "host:port" or a full http(s) URL.
func NewClient(addr string, opts ...ClientOption) (*Client, error) {
	base, err := normalizeAgentAddr(addr)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Addr reports the normalized base URL the client targets.
func (c *Client) Addr() string {
	return c.baseURL
}

// NodeID performs GET /v1/node/id and returns the identifier.
// It satisfies identity.FetchFunc by method value.
func (c *Client) NodeID(ctx context.Context) (string, error) {
	start := time.Now()
	id, err := c.nodeID(ctx)
	observability.RecordIdentityFetch(c.baseURL, err == nil, time.Since(start))
	return id, err
}

func (c *Client) nodeID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+nodeIDPath, nil)
	if err != nil {
		return "", fmt.Errorf("mgmt: build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("mgmt: fetch node id from %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("mgmt: read node id response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mgmt: %s%s: unexpected status %d: %s",
			c.baseURL, nodeIDPath, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out nodeIDResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("mgmt: decode node id response: %w", err)
	}
	id := strings.TrimSpace(out.NodeID)
	if id == "" {
		return "", ErrEmptyNodeID
	}
	return id, nil
}

// normalizeAgentAddr turns "host:port" into a base URL and maps localhost
// to the loopback address so the client never depends on resolver state.
func normalizeAgentAddr(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", ErrAddrRequired
	}
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/"), nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("mgmt: invalid agent addr %q: %w", addr, err)
	}
	if strings.EqualFold(host, "localhost") || host == "" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}
