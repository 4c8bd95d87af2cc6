package token

import (
	"errors"
	"math/big"
	"sync"

	"hubfx/native/exchange"
)

var (
	ErrZeroAddress       = errors.New("token: zero address")
	ErrAmountInvalid     = errors.New("token: amount must be positive")
	ErrInsufficientFunds = errors.New("token: insufficient balance")
	ErrAllowanceExceeded = errors.New("token: allowance exceeded")
	ErrSupplyUnderflow   = errors.New("token: burn exceeds total supply")
)

// Token is an in-memory fungible currency. TransferFrom spends an explicit
// approval, so the holder of the token handle acts as the operator; in
// practice that is the exchange module.
type Token struct {
	mu          sync.RWMutex
	address     [20]byte
	symbol      string
	decimals    uint8
	totalSupply *big.Int
	balances    map[[20]byte]*big.Int
	allowances  map[[20]byte]*big.Int
}

// New constructs a token with no supply.
func New(address [20]byte, symbol string, decimals uint8) *Token {
	return &Token{
		address:     address,
		symbol:      symbol,
		decimals:    decimals,
		totalSupply: big.NewInt(0),
		balances:    make(map[[20]byte]*big.Int),
		allowances:  make(map[[20]byte]*big.Int),
	}
}

func (t *Token) Address() [20]byte { return t.address }

func (t *Token) Symbol() string { return t.symbol }

func (t *Token) Decimals() uint8 { return t.decimals }

func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.totalSupply)
}

func (t *Token) BalanceOf(owner [20]byte) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if bal, ok := t.balances[owner]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Approve grants permission to move up to amount of the owner's balance via
// TransferFrom. A fresh approval replaces the prior one.
func (t *Token) Approve(owner [20]byte, amount *big.Int) error {
	if owner == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrAmountInvalid
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowances[owner] = new(big.Int).Set(amount)
	return nil
}

// Allowance reports the remaining approved spend for the owner.
func (t *Token) Allowance(owner [20]byte) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if a, ok := t.allowances[owner]; ok {
		return new(big.Int).Set(a)
	}
	return big.NewInt(0)
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to [20]byte, amount *big.Int) error {
	if err := validateMove(from, to, amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.moveLocked(from, to, amount)
}

// TransferFrom spends the approval the owner granted.
func (t *Token) TransferFrom(owner, to [20]byte, amount *big.Int) error {
	if err := validateMove(owner, to, amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	allowance, ok := t.allowances[owner]
	if !ok || allowance.Cmp(amount) < 0 {
		return ErrAllowanceExceeded
	}
	if err := t.moveLocked(owner, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

// Mint credits fresh supply to the account.
func (t *Token) Mint(to [20]byte, amount *big.Int) error {
	if to == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountInvalid
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.creditLocked(to, amount)
	t.totalSupply.Add(t.totalSupply, amount)
	return nil
}

// Burn destroys amount of the owner's balance, shrinking total supply.
func (t *Token) Burn(owner [20]byte, amount *big.Int) error {
	if owner == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountInvalid
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	bal, ok := t.balances[owner]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if t.totalSupply.Cmp(amount) < 0 {
		return ErrSupplyUnderflow
	}
	bal.Sub(bal, amount)
	t.totalSupply.Sub(t.totalSupply, amount)
	return nil
}

func (t *Token) moveLocked(from, to [20]byte, amount *big.Int) error {
	bal, ok := t.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	bal.Sub(bal, amount)
	t.creditLocked(to, amount)
	return nil
}

func (t *Token) creditLocked(to [20]byte, amount *big.Int) {
	if bal, ok := t.balances[to]; ok {
		bal.Add(bal, amount)
		return
	}
	t.balances[to] = new(big.Int).Set(amount)
}

func validateMove(from, to [20]byte, amount *big.Int) error {
	if from == ([20]byte{}) || to == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountInvalid
	}
	return nil
}

// Directory is an in-memory token source keyed by address.
type Directory struct {
	mu     sync.RWMutex
	tokens map[[20]byte]*Token
}

// NewDirectory constructs an empty directory.
func NewDirectory() *Directory {
	return &Directory{tokens: make(map[[20]byte]*Token)}
}

// Register adds a token to the directory, replacing any prior entry at the
// same address.
func (d *Directory) Register(tok *Token) {
	if d == nil || tok == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens[tok.Address()] = tok
}

// Get returns the concrete token registered at the address.
func (d *Directory) Get(addr [20]byte) (*Token, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tok, ok := d.tokens[addr]
	return tok, ok
}

// Token resolves the address as an exchange token handle.
func (d *Directory) Token(addr [20]byte) (exchange.Token, bool) {
	tok, ok := d.Get(addr)
	if !ok {
		return nil, false
	}
	return tok, true
}
