package registry

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// TokenKind classifies how a token participates in solvency accounting.
type TokenKind uint8

const (
	// KindUndefined marks a token that is not registered with the exchange.
	KindUndefined TokenKind = iota
	// KindAsset marks a custodied reserve token counted toward reserves.
	KindAsset
	// KindStable marks a hub or satellite currency whose supply is a liability.
	KindStable
)

// String renders the kind for events and diagnostics.
func (k TokenKind) String() string {
	switch k {
	case KindAsset:
		return "asset"
	case KindStable:
		return "stable"
	default:
		return "undefined"
	}
}

// Valid reports whether the kind denotes a registered classification.
func (k TokenKind) Valid() bool {
	return k == KindAsset || k == KindStable
}

// TokenInfo captures a registered token's classification and the tolerance
// band applied to oracle prices, both bounds in 18-decimal fixed point.
type TokenInfo struct {
	Address  [20]byte
	Kind     TokenKind
	MinPrice *big.Int
	MaxPrice *big.Int
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (t *TokenInfo) Clone() *TokenInfo {
	if t == nil {
		return nil
	}
	clone := *t
	clone.MinPrice = cloneBigInt(t.MinPrice)
	clone.MaxPrice = cloneBigInt(t.MaxPrice)
	return &clone
}

// PairConfig holds the economic parameters for a hub pair. The buy side is
// the hub-to-quote direction, the sell side the reverse. Fees are numerators
// over FeeBase; thresholds are either zero (unconditional) or at least
// RatioBase.
type PairConfig struct {
	AnchorToken               [20]byte
	QuoteToken                [20]byte
	BuyFee                    *big.Int
	BuyReserveRatioThreshold  *big.Int
	SellFee                   *big.Int
	SellReserveRatioThreshold *big.Int
}

// Hash returns the canonical pair identifier for the config's two tokens.
func (p *PairConfig) Hash() [32]byte {
	return PairHash(p.AnchorToken, p.QuoteToken)
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (p *PairConfig) Clone() *PairConfig {
	if p == nil {
		return nil
	}
	clone := *p
	clone.BuyFee = cloneBigInt(p.BuyFee)
	clone.BuyReserveRatioThreshold = cloneBigInt(p.BuyReserveRatioThreshold)
	clone.SellFee = cloneBigInt(p.SellFee)
	clone.SellReserveRatioThreshold = cloneBigInt(p.SellReserveRatioThreshold)
	return &clone
}

// PairHash computes the order-independent pair identifier. The two addresses
// are sorted ascending before hashing so PairHash(x, y) == PairHash(y, x).
func PairHash(x, y [20]byte) [32]byte {
	low, high := SortTokens(x, y)
	return ethcrypto.Keccak256Hash(low[:], high[:])
}

// SortTokens returns the pair in canonical (low, high) order.
func SortTokens(x, y [20]byte) ([20]byte, [20]byte) {
	for i := 0; i < len(x); i++ {
		if x[i] < y[i] {
			return x, y
		}
		if x[i] > y[i] {
			return y, x
		}
	}
	return x, y
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
