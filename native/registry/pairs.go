package registry

import (
	"math/big"

	"hubfx/core/events"
)

// AddPair stores the economic configuration for a new hub pair.
func (r *Registry) AddPair(caller [20]byte, cfg *PairConfig) error {
	if err := r.guard(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sanitized, err := r.validatePairLocked(cfg)
	if err != nil {
		return err
	}
	hash := sanitized.Hash()
	if _, exists := r.pairs[hash]; exists {
		return ErrPairExists
	}
	r.pairs[hash] = sanitized
	r.pairIndex.Add(hash)
	r.pairRefs[sanitized.AnchorToken]++
	r.pairRefs[sanitized.QuoteToken]++
	r.emit(pairChangedEvent(sanitized, hash, false))
	return nil
}

// UpdatePair replaces the configuration of an existing pair.
func (r *Registry) UpdatePair(caller [20]byte, cfg *PairConfig) error {
	if err := r.guard(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sanitized, err := r.validatePairLocked(cfg)
	if err != nil {
		return err
	}
	hash := sanitized.Hash()
	if _, exists := r.pairs[hash]; !exists {
		return ErrPairNotFound
	}
	r.pairs[hash] = sanitized
	r.emit(pairChangedEvent(sanitized, hash, true))
	return nil
}

// RemovePair retires the canonical pair formed by the two tokens.
func (r *Registry) RemovePair(caller, tokenX, tokenY [20]byte) error {
	if err := r.guard(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := PairHash(tokenX, tokenY)
	cfg, exists := r.pairs[hash]
	if !exists {
		return ErrPairNotFound
	}
	delete(r.pairs, hash)
	r.pairIndex.Remove(hash)
	r.pairRefs[cfg.AnchorToken]--
	r.pairRefs[cfg.QuoteToken]--
	r.emit(events.PairRemoved{Hash: hash, TokenX: tokenX, TokenY: tokenY})
	return nil
}

// Pair retrieves the configuration for the canonical pair of the two tokens.
func (r *Registry) Pair(tokenX, tokenY [20]byte) (*PairConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.pairs[PairHash(tokenX, tokenY)]
	if !ok {
		return nil, false
	}
	return cfg.Clone(), true
}

// PairCount returns the number of configured pairs.
func (r *Registry) PairCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pairIndex.Len()
}

// Pairs returns a pagination window over the configured pairs. The same
// window bounds as TokensByKind apply.
func (r *Registry) Pairs(offset, count uint64) ([]*PairConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := checkWindow(offset, count, r.pairIndex.Len()); err != nil {
		return nil, err
	}
	hashes := r.pairIndex.Window(offset, count)
	out := make([]*PairConfig, 0, len(hashes))
	for _, hash := range hashes {
		out = append(out, r.pairs[hash].Clone())
	}
	return out, nil
}

// validatePairLocked checks the full pair invariant set and returns a
// defensive copy ready for storage.
func (r *Registry) validatePairLocked(cfg *PairConfig) (*PairConfig, error) {
	if cfg == nil {
		return nil, ErrPairNotFound
	}
	if cfg.AnchorToken == cfg.QuoteToken {
		return nil, ErrPairSelfReferential
	}
	if _, ok := r.tokens[cfg.AnchorToken]; !ok {
		return nil, ErrTokenNotFound
	}
	if _, ok := r.tokens[cfg.QuoteToken]; !ok {
		return nil, ErrTokenNotFound
	}
	if !r.hubSet {
		return nil, ErrHubTokenUnset
	}
	anchorIsHub := cfg.AnchorToken == r.hub
	quoteIsHub := cfg.QuoteToken == r.hub
	if anchorIsHub == quoteIsHub {
		return nil, ErrPairMissingHub
	}
	if err := validateFee(cfg.BuyFee); err != nil {
		return nil, err
	}
	if err := validateFee(cfg.SellFee); err != nil {
		return nil, err
	}
	if err := validateThreshold(cfg.BuyReserveRatioThreshold); err != nil {
		return nil, err
	}
	if err := validateThreshold(cfg.SellReserveRatioThreshold); err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

func validateFee(fee *big.Int) error {
	if fee == nil {
		return nil
	}
	if fee.Sign() < 0 || fee.Cmp(FeeBase) >= 0 {
		return ErrInvalidFeeFraction
	}
	return nil
}

func validateThreshold(threshold *big.Int) error {
	if threshold == nil || threshold.Sign() == 0 {
		return nil
	}
	if threshold.Sign() < 0 || threshold.Cmp(RatioBase) < 0 {
		return ErrInvalidRatioThreshold
	}
	return nil
}

func pairChangedEvent(cfg *PairConfig, hash [32]byte, updated bool) events.PairChanged {
	return events.PairChanged{
		Updated:                   updated,
		Hash:                      hash,
		AnchorToken:               cfg.AnchorToken,
		QuoteToken:                cfg.QuoteToken,
		BuyFee:                    cloneBigInt(cfg.BuyFee),
		BuyReserveRatioThreshold:  cloneBigInt(cfg.BuyReserveRatioThreshold),
		SellFee:                   cloneBigInt(cfg.SellFee),
		SellReserveRatioThreshold: cloneBigInt(cfg.SellReserveRatioThreshold),
	}
}
