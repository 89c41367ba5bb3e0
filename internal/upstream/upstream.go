// Package upstream wraps the single real Ethereum JSON-RPC endpoint the
// proxy forwards to, with the connection-pooling and idle-timeout tuning
// a long-lived proxy process needs.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/aegisnetwork/aegis-rpc/internal/rpctypes"
)

const (
	// DefaultIdleConnTimeout bounds how long an idle upstream connection
	// stays pooled.
	DefaultIdleConnTimeout = 30 * time.Second
	// DefaultMaxConnections caps idle connections held open to upstream.
	DefaultMaxConnections = 120
	// DefaultHTTPTimeout bounds a single forwarded call.
	DefaultHTTPTimeout = 10 * time.Second
)

// Client forwards a single JSON-RPC call to the upstream Ethereum node.
// Forward takes and returns raw JSON-RPC so callers never need to know
// every upstream method's param/result shape.
type Client interface {
	// Forward sends req upstream unmodified (aside from id, which the
	// caller owns) and returns upstream's raw result or a structured
	// *rpctypes.Error on JSON-RPC-level failure.
	Forward(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *rpctypes.Error)
	Close()
}

// GethRPCClient forwards through go-ethereum's rpc.Client.
type GethRPCClient struct {
	inner *gethrpc.Client
}

// NewGethRPCClient dials endpoint with the package's connection-pool
// tuning.
func NewGethRPCClient(ctx context.Context, endpoint string) (*GethRPCClient, error) {
	defaultTransport := http.DefaultTransport.(*http.Transport).Clone()
	defaultTransport.IdleConnTimeout = DefaultIdleConnTimeout
	defaultTransport.MaxIdleConns = DefaultMaxConnections
	defaultTransport.MaxIdleConnsPerHost = DefaultMaxConnections

	httpClient := &http.Client{Timeout: DefaultHTTPTimeout, Transport: defaultTransport}

	client, err := gethrpc.DialOptions(ctx, endpoint, gethrpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to dial upstream node: %w", err)
	}
	return &GethRPCClient{inner: client}, nil
}

func (c *GethRPCClient) Forward(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *rpctypes.Error) {
	var args []interface{}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, rpctypes.WrapErr(rpctypes.CodeParseError, "malformed params", err)
		}
	}

	var result json.RawMessage
	if err := c.inner.CallContext(ctx, &result, method, args...); err != nil {
		return nil, rpctypes.WrapErr(rpctypes.CodeUpstreamError, "upstream call failed", err)
	}
	return result, nil
}

func (c *GethRPCClient) Close() {
	c.inner.Close()
}
