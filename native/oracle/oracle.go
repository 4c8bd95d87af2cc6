package oracle

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"hubfx/core/events"
	nativecommon "hubfx/native/common"
)

// RoleOracleFeeder gates price submissions.
const RoleOracleFeeder = "ROLE_ORACLE_FEEDER"

// priceDecimals is the fixed fractional precision of every stored price.
const priceDecimals = 18

var (
	ErrZeroAddress     = errors.New("oracle: zero address")
	ErrPriceInvalid    = errors.New("oracle: price must be positive")
	ErrStaleTimestamp  = errors.New("oracle: timestamp not newer than stored observation")
	ErrPriceNotFound   = errors.New("oracle: no observation for token")
	ErrFutureTimestamp = errors.New("oracle: timestamp too far in the future")
)

// PricePoint is one asset's latest and previous observation. The store
// maintains Timestamp > PrevTimestamp whenever Timestamp is nonzero.
type PricePoint struct {
	Timestamp     int64
	PrevTimestamp int64
	Price         *big.Int
	PrevPrice     *big.Int
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (p *PricePoint) Copy() *PricePoint {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Price = cloneBigInt(p.Price)
	clone.PrevPrice = cloneBigInt(p.PrevPrice)
	return &clone
}

// Store keeps per-token price points in memory. Updates must carry strictly
// increasing timestamps; the freshness comparison works on whole timestamp
// units only, which is a documented limitation rather than a defect.
type Store struct {
	mu      sync.RWMutex
	points  map[[20]byte]*PricePoint
	clock   func() time.Time
	skew    time.Duration
	roles   nativecommon.RoleView
	emitter events.Emitter
}

// NewStore constructs an empty price store.
func NewStore() *Store {
	return &Store{
		points:  make(map[[20]byte]*PricePoint),
		clock:   time.Now,
		skew:    5 * time.Minute,
		emitter: events.NoopEmitter{},
	}
}

// SetClock overrides the time source, primarily for deterministic testing.
func (s *Store) SetClock(clock func() time.Time) {
	if s == nil || clock == nil {
		return
	}
	s.clock = clock
}

// SetSkew bounds how far into the future a submitted timestamp may lie.
// Zero disables the check.
func (s *Store) SetSkew(skew time.Duration) {
	if s == nil || skew < 0 {
		return
	}
	s.skew = skew
}

// SetRoles configures the capability view gating PutPrice. A nil view leaves
// submissions open, which suits tests and single-operator deployments.
func (s *Store) SetRoles(roles nativecommon.RoleView) {
	if s == nil {
		return
	}
	s.roles = roles
}

// SetEmitter configures the event emitter. Passing nil resets it to no-op.
func (s *Store) SetEmitter(emitter events.Emitter) {
	if s == nil {
		return
	}
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// Decimals reports the fixed fractional precision of stored prices.
func (s *Store) Decimals() uint8 { return priceDecimals }

// PutPrice records a new observation for the token. The supplied timestamp
// must be strictly greater than the stored one; a successful update shifts
// the current observation into the previous slot exactly once.
func (s *Store) PutPrice(feeder, token [20]byte, price *big.Int, timestamp int64) error {
	if s == nil {
		return errors.New("oracle: store not initialised")
	}
	if s.roles != nil {
		if err := nativecommon.RequireRole(s.roles, RoleOracleFeeder, feeder); err != nil {
			return err
		}
	}
	if token == ([20]byte{}) {
		return ErrZeroAddress
	}
	if price == nil || price.Sign() <= 0 {
		return ErrPriceInvalid
	}
	if s.skew > 0 {
		limit := s.clock().Add(s.skew).Unix()
		if timestamp > limit {
			return ErrFutureTimestamp
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.points[token]
	if ok && timestamp <= current.Timestamp {
		return ErrStaleTimestamp
	}
	next := &PricePoint{Timestamp: timestamp, Price: cloneBigInt(price)}
	if ok {
		next.PrevTimestamp = current.Timestamp
		next.PrevPrice = cloneBigInt(current.Price)
	}
	s.points[token] = next
	s.emitter.Emit(events.PriceUpdated{
		Token:     token,
		Price:     cloneBigInt(price),
		PrevPrice: cloneBigInt(next.PrevPrice),
		Timestamp: timestamp,
	})
	return nil
}

// LatestPrice returns the most recent price for the token.
func (s *Store) LatestPrice(token [20]byte) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	point, ok := s.points[token]
	if !ok {
		return nil, ErrPriceNotFound
	}
	return cloneBigInt(point.Price), nil
}

// Price returns the full price point for the token.
func (s *Store) Price(token [20]byte) (*PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	point, ok := s.points[token]
	if !ok {
		return nil, ErrPriceNotFound
	}
	return point.Copy(), nil
}

// cloneBigInt preserves nil so a first observation keeps an absent previous
// price instead of reading back a fabricated zero.
func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
