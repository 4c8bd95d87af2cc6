package exchange

import (
	"fmt"
	"math/big"

	"hubfx/core/events"
)

// memStorage is an in-memory Storage for tests.
type memStorage struct {
	records map[string]storedBalanceRecord
}

func newMemStorage() *memStorage {
	return &memStorage{records: make(map[string]storedBalanceRecord)}
}

func (m *memStorage) KVGet(key []byte, out interface{}) (bool, error) {
	record, ok := m.records[string(key)]
	if !ok {
		return false, nil
	}
	target, isRecord := out.(*storedBalanceRecord)
	if !isRecord {
		return false, fmt.Errorf("unexpected target type %T", out)
	}
	*target = record
	return true, nil
}

func (m *memStorage) KVPut(key []byte, value interface{}) error {
	record, ok := value.(storedBalanceRecord)
	if !ok {
		return fmt.Errorf("unexpected value type %T", value)
	}
	m.records[string(key)] = record
	return nil
}

// mockToken is a minimal in-memory token. TransferFrom does not model
// allowances; failures are forced through the fail flags instead.
type mockToken struct {
	addr         [20]byte
	decimals     uint8
	supply       *big.Int
	balances     map[[20]byte]*big.Int
	failTransfer bool
	failMint     bool
}

func newMockToken(addr [20]byte, decimals uint8) *mockToken {
	return &mockToken{
		addr:     addr,
		decimals: decimals,
		supply:   big.NewInt(0),
		balances: make(map[[20]byte]*big.Int),
	}
}

func (t *mockToken) Address() [20]byte  { return t.addr }
func (t *mockToken) Decimals() uint8    { return t.decimals }
func (t *mockToken) TotalSupply() *big.Int {
	return new(big.Int).Set(t.supply)
}

func (t *mockToken) BalanceOf(owner [20]byte) *big.Int {
	if bal, ok := t.balances[owner]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (t *mockToken) Transfer(from, to [20]byte, amount *big.Int) error {
	if t.failTransfer {
		return fmt.Errorf("transfer disabled")
	}
	return t.move(from, to, amount)
}

func (t *mockToken) TransferFrom(owner, to [20]byte, amount *big.Int) error {
	if t.failTransfer {
		return fmt.Errorf("transfer disabled")
	}
	return t.move(owner, to, amount)
}

func (t *mockToken) Mint(to [20]byte, amount *big.Int) error {
	if t.failMint {
		return fmt.Errorf("mint disabled")
	}
	t.credit(to, amount)
	t.supply.Add(t.supply, amount)
	return nil
}

func (t *mockToken) Burn(owner [20]byte, amount *big.Int) error {
	bal, ok := t.balances[owner]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("burn exceeds balance")
	}
	bal.Sub(bal, amount)
	t.supply.Sub(t.supply, amount)
	return nil
}

func (t *mockToken) move(from, to [20]byte, amount *big.Int) error {
	bal, ok := t.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance")
	}
	bal.Sub(bal, amount)
	t.credit(to, amount)
	return nil
}

func (t *mockToken) credit(to [20]byte, amount *big.Int) {
	if bal, ok := t.balances[to]; ok {
		bal.Add(bal, amount)
		return
	}
	t.balances[to] = new(big.Int).Set(amount)
}

// mockTokenSource resolves mock tokens by address.
type mockTokenSource struct {
	tokens map[[20]byte]*mockToken
}

func newMockTokenSource(tokens ...*mockToken) *mockTokenSource {
	source := &mockTokenSource{tokens: make(map[[20]byte]*mockToken)}
	for _, tok := range tokens {
		source.tokens[tok.addr] = tok
	}
	return source
}

func (s *mockTokenSource) Token(addr [20]byte) (Token, bool) {
	tok, ok := s.tokens[addr]
	if !ok {
		return nil, false
	}
	return tok, true
}

// mockPool backs redemption shortfalls. Withdrawn collateral is credited to
// the custody account so the follow-up transfer can clear.
type mockPool struct {
	collateral map[[20]byte]*big.Int
	portfolio  map[[20]byte]*big.Int
	tokens     *mockTokenSource
	custody    [20]byte
}

func newMockPool(tokens *mockTokenSource, custody [20]byte) *mockPool {
	return &mockPool{
		collateral: make(map[[20]byte]*big.Int),
		portfolio:  make(map[[20]byte]*big.Int),
		tokens:     tokens,
		custody:    custody,
	}
}

func (p *mockPool) setCollateral(token [20]byte, amount *big.Int) {
	p.collateral[token] = new(big.Int).Set(amount)
}

func (p *mockPool) Collateral(token [20]byte) (*big.Int, error) {
	if amount, ok := p.collateral[token]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

func (p *mockPool) Portfolio(token [20]byte) (*big.Int, error) {
	if amount, ok := p.portfolio[token]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

func (p *mockPool) WithdrawCollateral(token [20]byte, amount *big.Int) error {
	held, ok := p.collateral[token]
	if !ok || held.Cmp(amount) < 0 {
		return fmt.Errorf("collateral exhausted")
	}
	held.Sub(held, amount)
	if backend, ok := p.tokens.Token(token); ok {
		return backend.Mint(p.custody, amount)
	}
	return nil
}

// stubPrices is a fixed-price oracle.
type stubPrices struct {
	prices   map[[20]byte]*big.Int
	decimals uint8
}

func newStubPrices() *stubPrices {
	return &stubPrices{prices: make(map[[20]byte]*big.Int), decimals: 18}
}

func (s *stubPrices) set(token [20]byte, price *big.Int) {
	s.prices[token] = new(big.Int).Set(price)
}

func (s *stubPrices) LatestPrice(token [20]byte) (*big.Int, error) {
	price, ok := s.prices[token]
	if !ok {
		return nil, fmt.Errorf("no price for token")
	}
	return new(big.Int).Set(price), nil
}

func (s *stubPrices) Decimals() uint8 { return s.decimals }

// capturingEmitter records every emitted event.
type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

// pausedModules is a PauseView backed by a set.
type pausedModules map[string]bool

func (p pausedModules) IsPaused(module string) bool { return p[module] }

// allowRoles grants every capability.
type allowRoles struct{}

func (allowRoles) HasRole(string, []byte) bool { return true }
