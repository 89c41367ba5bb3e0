// Package fee computes informational fee accounting for a forwarded
// transaction. Nothing downstream consumes the result for gating; it
// exists for logging/billing purposes only and never affects validity.
package fee

import "math/big"

// bpsDenominator is the basis-point scale: 1 bps = 1/10000.
const bpsDenominator = 10_000

// Calculate returns the fee owed to collector for a transaction of
// valueWei at feeBps basis points. valueWei is a base-10 integer string
// or a 0x-prefixed hex string; a malformed or non-positive value yields a
// zero fee rather than an error,
// since fee accounting is informational and must never block a SEND.
func Calculate(valueWei string, feeBps uint16) *big.Int {
	value, ok := new(big.Int).SetString(valueWei, 0)
	if !ok || value.Sign() <= 0 {
		return big.NewInt(0)
	}

	fee := new(big.Int).Mul(value, big.NewInt(int64(feeBps)))
	fee.Div(fee, big.NewInt(bpsDenominator))
	return fee
}
