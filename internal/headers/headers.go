// Package headers propagates inbound HTTP request headers onto the
// context used for the upstream RPC call, so an operator-configured
// auth header (e.g. an upstream provider API key) reaches the forwarded
// call unchanged.
package headers

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
)

// ContextWithHeaders returns r's context enriched with r's HTTP headers,
// in the shape go-ethereum's rpc.Client looks for when forwarding.
func ContextWithHeaders(r *http.Request) context.Context {
	return rpc.NewContextWithHeaders(r.Context(), r.Header)
}
