// Package syntheticreceipt is the blocked-transaction synthetic receipt
// store. It mints a plausible-looking 32-byte transaction hash for every
// blocked SEND/SIGN request and remembers the denial reason so a later
// eth_getTransactionReceipt poll for that hash resolves to a synthetic
// reverted receipt instead of an error the agent might retry against.
package syntheticreceipt

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/sha3"

	"github.com/aegisnetwork/aegis-rpc/internal/rpctypes"
)

// DefaultCapacity bounds the store with an LRU cache so a long-running
// proxy process never grows this map without bound.
const DefaultCapacity = 100_000

// Store remembers why a synthetic transaction hash was minted, so a
// later receipt poll can resolve it.
type Store interface {
	// Remember inserts or overwrites the reason for hash (last writer
	// wins).
	Remember(hash, reason string)
	// Lookup returns the denial reason for hash, if any was recorded.
	Lookup(hash string) (reason string, ok bool)
	// SyntheticSendResponse mints a fresh synthetic hash for id, records
	// (hash, reason) via Remember, and returns the JSON-RPC response the
	// agent sees in place of a real send.
	SyntheticSendResponse(id json.RawMessage, reason string) (*rpctypes.Response, string)
	// SyntheticReceiptResponse builds the fabricated reverted receipt
	// for a previously blocked hash.
	SyntheticReceiptResponse(id json.RawMessage, hash, reason string) *rpctypes.Response
}

type store struct {
	cache    *lru.Cache
	counter  uint64
	startNs  int64
}

// New constructs a Store capped at capacity entries. capacity <= 0 means
// DefaultCapacity.
func New(capacity int) (Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &store{cache: c, startNs: time.Now().UnixNano()}, nil
}

func (s *store) Remember(hash, reason string) {
	s.cache.Add(hash, reason)
}

func (s *store) Lookup(hash string) (string, bool) {
	v, ok := s.cache.Get(hash)
	if !ok {
		return "", false
	}
	reason, _ := v.(string)
	return reason, true
}

// mintHash derives a collision-free, 0x-prefixed 64-hex-char hash from a
// per-process monotonic counter, a digest of the denial reason, and the
// process start time. The fixed nonzero prefix byte (0xAE, "AEgis") keeps
// it visually distinguishable from a real upstream hash without claiming
// to BE one.
func (s *store) mintHash(reason string) string {
	n := atomic.AddUint64(&s.counter, 1)

	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(reason))
	reasonDigest := h.Sum(nil)

	var buf [32]byte
	buf[0] = 0xAE
	binary.BigEndian.PutUint64(buf[1:9], uint64(s.startNs))
	binary.BigEndian.PutUint64(buf[9:17], n)
	copy(buf[17:], reasonDigest[:15])

	return "0x" + hex.EncodeToString(buf[:])
}

func (s *store) SyntheticSendResponse(id json.RawMessage, reason string) (*rpctypes.Response, string) {
	hash := s.mintHash(reason)
	s.Remember(hash, reason)

	result, _ := json.Marshal(hash)
	return rpctypes.NewResultResponse(id, result), hash
}

func (s *store) SyntheticReceiptResponse(id json.RawMessage, hash, reason string) *rpctypes.Response {
	receipt := struct {
		TransactionHash string        `json:"transactionHash"`
		Status          string        `json:"status"`
		BlockNumber     *string       `json:"blockNumber"`
		From            string        `json:"from"`
		To              string        `json:"to"`
		GasUsed         string        `json:"gasUsed"`
		Logs            []interface{} `json:"logs"`
		AegisBlocked    bool          `json:"aegisBlocked"`
		RevertReason    string        `json:"revertReason"`
	}{
		TransactionHash: hash,
		Status:          "0x0",
		BlockNumber:     nil,
		From:            "0x0",
		To:              "0x0",
		GasUsed:         "0x0",
		Logs:            []interface{}{},
		AegisBlocked:    true,
		RevertReason:    reason,
	}

	result, _ := json.Marshal(receipt)
	return rpctypes.NewResultResponse(id, result)
}
