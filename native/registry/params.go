package registry

import "math/big"

var (
	// FeeBase is the denominator for all pair fee fractions.
	FeeBase = mustBigInt("1000000000000000000") // 1e18
	// RatioBase is the 18-decimal fixed-point representation of 100%.
	RatioBase = mustBigInt("1000000000000000000") // 1e18
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}
