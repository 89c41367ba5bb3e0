package fee

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDecimalValue(t *testing.T) {
	got := Calculate("1000000", 50) // 0.5%
	assert.Equal(t, big.NewInt(5000), got)
}

func TestCalculateHexValue(t *testing.T) {
	got := Calculate("0xF4240", 50) // 1_000_000 in hex
	assert.Equal(t, big.NewInt(5000), got)
}

func TestCalculateZeroFeeBps(t *testing.T) {
	got := Calculate("1000000", 0)
	assert.Equal(t, big.NewInt(0), got)
}

func TestCalculateMalformedValueDefaultsToZero(t *testing.T) {
	got := Calculate("not-a-number", 100)
	assert.Equal(t, big.NewInt(0), got)
}

func TestCalculateNegativeValueDefaultsToZero(t *testing.T) {
	got := Calculate("-100", 100)
	assert.Equal(t, big.NewInt(0), got)
}

func TestCalculateZeroValueDefaultsToZero(t *testing.T) {
	got := Calculate("0", 100)
	assert.Equal(t, big.NewInt(0), got)
}

func TestCalculateRoundsDownOnIntegerDivision(t *testing.T) {
	got := Calculate("3", 1) // 3 * 1 / 10000 == 0
	assert.Equal(t, big.NewInt(0), got)
}
