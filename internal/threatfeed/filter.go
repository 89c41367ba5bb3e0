// Package threatfeed is a Bloom-filter pre-filter over known malicious
// (contract, selector) pairs, atomically hot-swappable so the refresher
// never blocks a reader.
package threatfeed

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// numHashFunctions is the count of independent hash probes per insert and
// lookup; 4 keeps false-positive rate low without excessive CPU at the
// bit widths this filter is sized for.
const numHashFunctions = 4

// Filter is a read-mostly, swap-on-update Bloom filter over lowercased
// (to-address, 4-byte-selector) pairs. The zero value is not usable; use
// New.
type Filter struct {
	bits *bitset.BitSet
	size uint64
}

// New constructs an empty Filter sized for approximately expectedItems
// entries at a reasonable false-positive rate. bits ~= 10x items is the
// common rule of thumb for k=4.
func New(expectedItems uint64) *Filter {
	if expectedItems == 0 {
		expectedItems = 1024
	}
	size := expectedItems * 10
	return &Filter{bits: bitset.New(uint(size)), size: size}
}

// indicatorKey normalizes (to, selector) into the canonical string probed
// against the feed: lowercased address plus lowercased 4-byte selector,
// matching the keying scheme the feed publisher uses.
func indicatorKey(to, selector string) string {
	return strings.ToLower(to) + ":" + strings.ToLower(selector)
}

func (f *Filter) positions(key string) []uint64 {
	h1 := xxhash.Sum64String(key)
	h2 := xxhash.Sum64String(key + "\x00aegis")
	positions := make([]uint64, numHashFunctions)
	for i := 0; i < numHashFunctions; i++ {
		positions[i] = (h1 + uint64(i)*h2) % f.size
	}
	return positions
}

// Add inserts (to, selector) as a known indicator.
func (f *Filter) Add(to, selector string) {
	key := indicatorKey(to, selector)
	for _, pos := range f.positions(key) {
		f.bits.Set(uint(pos))
	}
}

// Probe reports whether (to, selector) matches a known indicator. A
// Bloom filter never false-negatives, so a miss is conclusive; a hit may
// rarely be a false positive, which the caller accepts as the cost of a
// constant-time pre-filter.
func (f *Filter) Probe(to, selector string) (hit bool, reason string) {
	key := indicatorKey(to, selector)
	for _, pos := range f.positions(key) {
		if !f.bits.Test(uint(pos)) {
			return false, ""
		}
	}
	return true, fmt.Sprintf("THREAT FEED HIT: %s matches known malicious indicator %s", to, selector)
}

// Selector returns the first 4 bytes of calldata as a 0x-prefixed hex
// string, the unit the threat feed indexes by. Empty data has no
// selector.
func Selector(data string) string {
	raw := strings.TrimPrefix(data, "0x")
	if len(raw) < 8 {
		return "0x"
	}
	decoded, err := hex.DecodeString(raw[:8])
	if err != nil {
		return "0x"
	}
	return "0x" + hex.EncodeToString(decoded)
}

// Feed holds the live, atomically-swappable Filter that request handlers
// read from. Readers never block: Current simply loads a pointer.
type Feed struct {
	current atomic.Pointer[Filter]
}

// NewFeed constructs a Feed seeded with an empty filter so Current never
// returns nil.
func NewFeed() *Feed {
	f := &Feed{}
	f.current.Store(New(0))
	return f
}

// Current returns the Filter in effect right now.
func (f *Feed) Current() *Filter {
	return f.current.Load()
}

// Swap atomically replaces the live filter, used by the refresher after
// it finishes building a new generation from the upstream feed.
func (f *Feed) Swap(next *Filter) {
	f.current.Store(next)
}
