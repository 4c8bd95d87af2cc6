package registry

import (
	"math/big"
	"sync"

	"hubfx/core/events"
	nativecommon "hubfx/native/common"
)

const (
	// RoleRegistryAdmin gates every mutating registry operation. In
	// production the role is granted to the delayed governance executor.
	RoleRegistryAdmin = "ROLE_REGISTRY_ADMIN"

	moduleName = "registry"
)

// CodeView answers whether an address hosts executable contract code. Token
// registration refuses plain accounts when a view is configured.
type CodeView interface {
	HasCode(addr [20]byte) bool
}

// Registry classifies tokens, stores price-tolerance bands and keeps the
// per-pair economic configuration keyed by the canonical pair hash.
type Registry struct {
	mu        sync.RWMutex
	tokens    map[[20]byte]*TokenInfo
	byKind    map[TokenKind]*orderedSet[[20]byte]
	pairs     map[[32]byte]*PairConfig
	pairIndex *orderedSet[[32]byte]
	pairRefs  map[[20]byte]int
	hub       [20]byte
	hubSet    bool

	emitter events.Emitter
	pauses  nativecommon.PauseView
	roles   nativecommon.RoleView
	code    CodeView
}

// New constructs an empty registry with a no-op event emitter.
func New() *Registry {
	return &Registry{
		tokens: make(map[[20]byte]*TokenInfo),
		byKind: map[TokenKind]*orderedSet[[20]byte]{
			KindAsset:  newOrderedSet[[20]byte](),
			KindStable: newOrderedSet[[20]byte](),
		},
		pairs:     make(map[[32]byte]*PairConfig),
		pairIndex: newOrderedSet[[32]byte](),
		pairRefs:  make(map[[20]byte]int),
		emitter:   events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPauses configures the module pause view.
func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// SetRoles configures the capability view used by mutating entry points.
func (r *Registry) SetRoles(roles nativecommon.RoleView) {
	if r == nil {
		return
	}
	r.roles = roles
}

// SetCodeView configures the contract code check applied during AddToken.
// Without a view the check is skipped, which suits test environments.
func (r *Registry) SetCodeView(code CodeView) {
	if r == nil {
		return
	}
	r.code = code
}

func (r *Registry) emit(event events.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}

func (r *Registry) guard(caller [20]byte) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	return nativecommon.RequireRole(r.roles, RoleRegistryAdmin, caller)
}

// AddToken registers a token with its classification and tolerance band.
func (r *Registry) AddToken(caller, token [20]byte, kind TokenKind, minPrice, maxPrice *big.Int) error {
	if err := r.guard(caller); err != nil {
		return err
	}
	if token == ([20]byte{}) {
		return ErrZeroAddress
	}
	if !kind.Valid() {
		return ErrInvalidTokenKind
	}
	if maxPrice == nil || maxPrice.Sign() == 0 {
		return ErrInvalidPriceRange
	}
	if minPrice == nil || minPrice.Sign() == 0 || minPrice.Cmp(maxPrice) > 0 {
		return ErrInvalidPriceRange
	}
	if r.code != nil && !r.code.HasCode(token) {
		return ErrNoContractCode
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tokens[token]; exists {
		return ErrTokenExists
	}
	info := &TokenInfo{
		Address:  token,
		Kind:     kind,
		MinPrice: cloneBigInt(minPrice),
		MaxPrice: cloneBigInt(maxPrice),
	}
	r.tokens[token] = info
	r.byKind[kind].Add(token)
	r.emit(events.TokenAdded{
		Token:    token,
		Kind:     kind.String(),
		MinPrice: cloneBigInt(minPrice),
		MaxPrice: cloneBigInt(maxPrice),
	})
	return nil
}

// RemoveToken clears a token's registration. It fails while any pair still
// references the token; removing the hub token also clears the hub pointer.
func (r *Registry) RemoveToken(caller, token [20]byte) error {
	if err := r.guard(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeTokenLocked(token)
}

func (r *Registry) removeTokenLocked(token [20]byte) error {
	info, ok := r.tokens[token]
	if !ok {
		return ErrTokenNotFound
	}
	if r.pairRefs[token] > 0 {
		return ErrTokenHasPairs
	}
	delete(r.tokens, token)
	r.byKind[info.Kind].Remove(token)
	if r.hubSet && r.hub == token {
		r.hub = [20]byte{}
		r.hubSet = false
	}
	r.emit(events.TokenRemoved{Token: token})
	return nil
}

// SetHubToken designates a new hub currency. The token must already be
// registered. A previously designated hub token is removed from the registry
// first, which requires all pairs referencing it to be gone.
func (r *Registry) SetHubToken(caller, token [20]byte) error {
	if err := r.guard(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token]; !ok {
		return ErrTokenNotFound
	}
	var previous [20]byte
	if r.hubSet && r.hub != token {
		previous = r.hub
		if err := r.removeTokenLocked(previous); err != nil {
			return err
		}
	}
	r.hub = token
	r.hubSet = true
	r.emit(events.HubTokenChanged{Previous: previous, Current: token})
	return nil
}

// HubToken returns the designated hub currency, if one is set.
func (r *Registry) HubToken() ([20]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hub, r.hubSet
}

// Token retrieves the registration record for the supplied address.
func (r *Registry) Token(addr [20]byte) (*TokenInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.tokens[addr]
	if !ok {
		return nil, false
	}
	return info.Clone(), true
}

// TokenKindOf reports the classification for the supplied address.
func (r *Registry) TokenKindOf(addr [20]byte) TokenKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.tokens[addr]
	if !ok {
		return KindUndefined
	}
	return info.Kind
}

// TokenCount returns the number of registered tokens of the given kind.
func (r *Registry) TokenCount(kind TokenKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.byKind[kind]
	if !ok {
		return 0
	}
	return set.Len()
}

// TokensByKind returns a pagination window over tokens of the given kind.
// The window must satisfy offset+count <= size, and a nonzero offset must be
// strictly below the collection size.
func (r *Registry) TokensByKind(kind TokenKind, offset, count uint64) ([][20]byte, error) {
	if !kind.Valid() {
		return nil, ErrInvalidTokenKind
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byKind[kind]
	if err := checkWindow(offset, count, set.Len()); err != nil {
		return nil, err
	}
	return set.Window(offset, count), nil
}

// AllTokensByKind returns every token of the given kind in set order.
func (r *Registry) AllTokensByKind(kind TokenKind) [][20]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.byKind[kind]
	if !ok {
		return nil
	}
	return set.Slice()
}

func checkWindow(offset, count uint64, size int) error {
	length := uint64(size)
	if offset+count < offset || offset+count > length {
		return ErrPaginationOutOfBounds
	}
	if offset != 0 && offset >= length {
		return ErrPaginationOutOfBounds
	}
	return nil
}
