// Package indexer is a thin REST client for the external vault indexer
// service (`GET /vaults/:owner`, `GET /health`). It is wired into
// cmd/aegis-proxy as an operator lookup subcommand, never consulted by
// the dispatcher.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// VaultInfo describes a single vault returned by the indexer.
type VaultInfo struct {
	VaultAddress     string `json:"vault_address"`
	ChainID          uint64 `json:"chain_id"`
	ChainName        string `json:"chain_name"`
	VelocityModule   string `json:"velocity_module"`
	WhitelistModule  string `json:"whitelist_module"`
	DrawdownModule   string `json:"drawdown_module"`
	DeployTxHash     string `json:"deploy_tx_hash"`
	BlockNumber      uint64 `json:"block_number"`
}

// VaultsResponse is the `GET /vaults/:owner` response envelope.
type VaultsResponse struct {
	Owner  string      `json:"owner"`
	Vaults []VaultInfo `json:"vaults"`
	Count  int         `json:"count"`
}

// HealthResponse is the `GET /health` response envelope.
type HealthResponse struct {
	Status        string `json:"status"`
	PendingEvents int    `json:"pending_events"`
}

// Client queries a deployed vault indexer over its REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client against baseURL ("" disables it — callers
// should check Enabled before use).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether an indexer base URL was configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// VaultsByOwner calls GET /vaults/:owner.
func (c *Client) VaultsByOwner(ctx context.Context, owner string) (*VaultsResponse, error) {
	var out VaultsResponse
	if err := c.getJSON(ctx, "/vaults/"+strings.ToLower(owner), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("indexer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
