package threatfeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMissIsConclusive(t *testing.T) {
	f := New(100)
	hit, _ := f.Probe("0xdead", "0x12345678")
	assert.False(t, hit)
}

func TestFilterHitAfterAdd(t *testing.T) {
	f := New(100)
	f.Add("0xDEAD", "0x12345678")
	hit, reason := f.Probe("0xdead", "0x12345678")
	assert.True(t, hit)
	assert.Contains(t, reason, "THREAT FEED HIT")
}

func TestFilterIsCaseInsensitiveOnAddress(t *testing.T) {
	f := New(100)
	f.Add("0xAbCdEf", "0xaabbccdd")
	hit, _ := f.Probe("0xabcdef", "0xAABBCCDD")
	assert.True(t, hit)
}

func TestSelectorExtractsFirstFourBytes(t *testing.T) {
	assert.Equal(t, "0x095ea7b3", Selector("0x095ea7b3000000000000000000000000000000000000000000000000000000000000001"))
}

func TestSelectorEmptyDataHasNoSelector(t *testing.T) {
	assert.Equal(t, "0x", Selector(""))
	assert.Equal(t, "0x", Selector("0x"))
}

func TestFeedCurrentNeverNil(t *testing.T) {
	feed := NewFeed()
	assert.NotNil(t, feed.Current())
}

func TestFeedSwapReplacesFilter(t *testing.T) {
	feed := NewFeed()
	next := New(10)
	next.Add("0xdead", "0x12345678")
	feed.Swap(next)

	hit, _ := feed.Current().Probe("0xdead", "0x12345678")
	assert.True(t, hit)
}
