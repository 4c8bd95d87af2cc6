package exchange

import (
	"fmt"
	"math/big"

	"hubfx/native/registry"
)

// RatioKind classifies a computed reserve ratio.
type RatioKind uint8

const (
	// RatioUndefined means both reserves+collaterals and liabilities are zero.
	RatioUndefined RatioKind = iota
	// RatioInfinite means liabilities are zero while backing exists.
	RatioInfinite
	// RatioFinite means the ratio is a proper fraction scaled by RatioBase.
	RatioFinite
)

func (k RatioKind) String() string {
	switch k {
	case RatioInfinite:
		return "infinite"
	case RatioFinite:
		return "finite"
	default:
		return "undefined"
	}
}

// ReserveRatio is the solvency figure gating issuance: (reserves +
// collaterals) / liabilities, scaled by registry.RatioBase and rounded down.
type ReserveRatio struct {
	Kind        RatioKind
	Value       *big.Int
	Reserves    *big.Int
	Collaterals *big.Int
	Liabilities *big.Int
}

// Exceeds reports whether the ratio clears the supplied threshold. A nil or
// zero threshold never gates.
func (r *ReserveRatio) Exceeds(threshold *big.Int) bool {
	if threshold == nil || threshold.Sign() == 0 {
		return true
	}
	if r == nil {
		return false
	}
	switch r.Kind {
	case RatioInfinite:
		return true
	case RatioFinite:
		return r.Value.Cmp(threshold) > 0
	default:
		return false
	}
}

// String renders the ratio for logs and diagnostics.
func (r *ReserveRatio) String() string {
	if r == nil {
		return "undefined"
	}
	switch r.Kind {
	case RatioInfinite:
		return "infinite"
	case RatioFinite:
		return r.Value.String()
	default:
		return "undefined"
	}
}

func classifyRatio(backing, liabilities *big.Int) *ReserveRatio {
	ratio := &ReserveRatio{
		Reserves:    big.NewInt(0),
		Collaterals: big.NewInt(0),
		Liabilities: cloneBigInt(liabilities),
	}
	if liabilities.Sign() == 0 {
		if backing.Sign() == 0 {
			ratio.Kind = RatioUndefined
			return ratio
		}
		ratio.Kind = RatioInfinite
		return ratio
	}
	scaled := new(big.Int).Mul(backing, registry.RatioBase)
	ratio.Kind = RatioFinite
	ratio.Value = scaled.Quo(scaled, liabilities)
	return ratio
}

// ReserveRatio recomputes the aggregate solvency figures on demand: reserves
// from the exchange's own custody, collaterals from the pool, liabilities
// from the total supply of every stable token including the hub itself.
func (e *Engine) ReserveRatio() (*ReserveRatio, error) {
	if e == nil || e.registry == nil || e.ledger == nil || e.prices == nil || e.tokens == nil {
		return nil, ErrNotConfigured
	}
	hub, ok := e.registry.HubToken()
	if !ok {
		return nil, registry.ErrHubTokenUnset
	}
	hubToken, ok := e.tokens.Token(hub)
	if !ok {
		return nil, ErrTokenBackendMissing
	}
	hubMeta := TokenMeta{Address: hub, Decimals: hubToken.Decimals()}
	priceDecimals := e.prices.Decimals()

	reserves := big.NewInt(0)
	collaterals := big.NewInt(0)
	for _, addr := range e.registry.AllTokensByKind(registry.KindAsset) {
		backend, ok := e.tokens.Token(addr)
		if !ok {
			return nil, ErrTokenBackendMissing
		}
		price, err := e.prices.LatestPrice(addr)
		if err != nil {
			return nil, fmt.Errorf("reserve ratio: price for asset: %w", err)
		}
		meta := TokenMeta{Address: addr, Decimals: backend.Decimals()}
		balance, err := e.ledger.Balance(addr)
		if err != nil {
			return nil, err
		}
		converted, err := Convert(meta, hubMeta, hub, addr, balance, price, priceDecimals, RoundDown)
		if err != nil {
			return nil, err
		}
		reserves.Add(reserves, converted)
		if e.pool != nil {
			pooled, err := e.pool.Collateral(addr)
			if err != nil {
				return nil, fmt.Errorf("reserve ratio: pool collateral: %w", err)
			}
			converted, err := Convert(meta, hubMeta, hub, addr, pooled, price, priceDecimals, RoundDown)
			if err != nil {
				return nil, err
			}
			collaterals.Add(collaterals, converted)
		}
	}

	liabilities := big.NewInt(0)
	for _, addr := range e.registry.AllTokensByKind(registry.KindStable) {
		backend, ok := e.tokens.Token(addr)
		if !ok {
			return nil, ErrTokenBackendMissing
		}
		supply := backend.TotalSupply()
		if supply == nil || supply.Sign() == 0 {
			continue
		}
		if addr == hub {
			liabilities.Add(liabilities, supply)
			continue
		}
		// Satellite supplies are owed in their own currency; express them
		// in hub units at the latest price before summing.
		price, err := e.prices.LatestPrice(addr)
		if err != nil {
			return nil, fmt.Errorf("reserve ratio: price for stable: %w", err)
		}
		meta := TokenMeta{Address: addr, Decimals: backend.Decimals()}
		converted, err := Convert(meta, hubMeta, hub, addr, supply, price, priceDecimals, RoundDown)
		if err != nil {
			return nil, err
		}
		liabilities.Add(liabilities, converted)
	}

	backing := new(big.Int).Add(reserves, collaterals)
	ratio := classifyRatio(backing, liabilities)
	ratio.Reserves = reserves
	ratio.Collaterals = collaterals
	return ratio, nil
}
