package revocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheIsRevokedMonotone(t *testing.T) {
	c := NewCache()
	addr := "0xDeadBeef00000000000000000000000000000000"

	assert.False(t, c.IsRevoked(addr))
	c.Revoke(addr)
	assert.True(t, c.IsRevoked(addr))

	// Once revoked, always revoked for the life of the cache — revocation
	// is one-way.
	c.Revoke(addr)
	assert.True(t, c.IsRevoked(addr))
}

func TestCacheIsCaseInsensitive(t *testing.T) {
	c := NewCache()
	c.Revoke("0xABCDEF0000000000000000000000000000000000")
	assert.True(t, c.IsRevoked("0xabcdef0000000000000000000000000000000000"))
}

func TestCacheUnknownAddrNotRevoked(t *testing.T) {
	c := NewCache()
	assert.False(t, c.IsRevoked("0x0000000000000000000000000000000000dead"))
}
