package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabledFalseWhenBaseURLEmpty(t *testing.T) {
	c := NewClient("")
	assert.False(t, c.Enabled())
}

func TestEnabledTrueWhenBaseURLSet(t *testing.T) {
	c := NewClient("http://example.invalid")
	assert.True(t, c.Enabled())
}

func TestVaultsByOwnerDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vaults/0xowner", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"owner":"0xowner","vaults":[{"vault_address":"0xvault","chain_id":1,"chain_name":"mainnet"}],"count":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.VaultsByOwner(context.Background(), "0xOWNER")
	require.NoError(t, err)
	assert.Equal(t, "0xowner", resp.Owner)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "0xvault", resp.Vaults[0].VaultAddress)
}

func TestVaultsByOwnerPropagatesNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.VaultsByOwner(context.Background(), "0xowner")
	assert.Error(t, err)
}

func TestHealthDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","pending_events":3}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.PendingEvents)
}

func TestBaseURLTrailingSlashIsTrimmed(t *testing.T) {
	c := NewClient("http://example.invalid/")
	assert.Equal(t, "http://example.invalid", c.baseURL)
}
