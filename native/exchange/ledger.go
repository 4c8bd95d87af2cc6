package exchange

import (
	"fmt"
	"math/big"
	"strings"

	"hubfx/core/events"
)

// Storage abstracts the subset of state manager functionality required by the
// balance ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var balanceRecordPrefix = []byte("exchange/balance/")

// BalanceRecord captures the custodied funds for one token: the total
// balance and the portion currently delegated to the portfolio manager.
// The ledger maintains 0 <= Portfolio <= Balance across every operation.
type BalanceRecord struct {
	Token     [20]byte
	Balance   *big.Int
	Portfolio *big.Int
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (r *BalanceRecord) Copy() *BalanceRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Balance = cloneBigInt(r.Balance)
	clone.Portfolio = cloneBigInt(r.Portfolio)
	return &clone
}

type storedBalanceRecord struct {
	Balance   string
	Portfolio string
}

// Ledger keeps per-token custody bookkeeping in the underlying key-value
// store. Transfer side effects run through the token collaborator.
type Ledger struct {
	store   Storage
	tokens  TokenSource
	custody [20]byte
	emitter events.Emitter
}

// NewLedger constructs a ledger bound to the provided storage backend. The
// custody address identifies the exchange's own token account.
func NewLedger(store Storage, tokens TokenSource, custody [20]byte) *Ledger {
	return &Ledger{store: store, tokens: tokens, custody: custody, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if l == nil {
		return
	}
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// Custody returns the exchange's own token account address.
func (l *Ledger) Custody() [20]byte {
	if l == nil {
		return [20]byte{}
	}
	return l.custody
}

func (l *Ledger) emit(event events.Event) {
	if l == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(event)
}

// Record loads the balance record for a token. Unknown tokens yield a zeroed
// record rather than an error.
func (l *Ledger) Record(token [20]byte) (*BalanceRecord, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger not initialised")
	}
	var stored storedBalanceRecord
	ok, err := l.store.KVGet(balanceKey(token), &stored)
	if err != nil {
		return nil, err
	}
	record := &BalanceRecord{Token: token, Balance: big.NewInt(0), Portfolio: big.NewInt(0)}
	if !ok {
		return record, nil
	}
	if record.Balance, err = parseStoredAmount(stored.Balance); err != nil {
		return nil, fmt.Errorf("ledger: invalid balance for token: %w", err)
	}
	if record.Portfolio, err = parseStoredAmount(stored.Portfolio); err != nil {
		return nil, fmt.Errorf("ledger: invalid portfolio for token: %w", err)
	}
	return record, nil
}

// Balance returns the total custodied amount for a token.
func (l *Ledger) Balance(token [20]byte) (*big.Int, error) {
	record, err := l.Record(token)
	if err != nil {
		return nil, err
	}
	return record.Balance, nil
}

// Portfolio returns the delegated portion for a token.
func (l *Ledger) Portfolio(token [20]byte) (*big.Int, error) {
	record, err := l.Record(token)
	if err != nil {
		return nil, err
	}
	return record.Portfolio, nil
}

// SetBalance replaces the custodied balance for a token. The new balance may
// not undercut the delegated portfolio.
func (l *Ledger) SetBalance(token [20]byte, newBalance *big.Int) error {
	if l == nil {
		return fmt.Errorf("ledger not initialised")
	}
	if newBalance == nil || newBalance.Sign() < 0 {
		return ErrAmountNegative
	}
	record, err := l.Record(token)
	if err != nil {
		return err
	}
	if record.Portfolio.Cmp(newBalance) > 0 {
		return ErrPortfolioExceedsBalance
	}
	record.Balance = cloneBigInt(newBalance)
	if err := l.put(record); err != nil {
		return err
	}
	l.emit(events.BalanceUpdated{Token: token, Balance: cloneBigInt(newBalance)})
	return nil
}

// SetPortfolio replaces the delegated portfolio figure for a token. The
// figure may not exceed the custodied balance.
func (l *Ledger) SetPortfolio(token [20]byte, newPortfolio *big.Int) error {
	if l == nil {
		return fmt.Errorf("ledger not initialised")
	}
	if newPortfolio == nil || newPortfolio.Sign() < 0 {
		return ErrAmountNegative
	}
	record, err := l.Record(token)
	if err != nil {
		return err
	}
	if newPortfolio.Cmp(record.Balance) > 0 {
		return ErrPortfolioExceedsBalance
	}
	record.Portfolio = cloneBigInt(newPortfolio)
	if err := l.put(record); err != nil {
		return err
	}
	l.emit(events.PortfolioUpdated{Token: token, Portfolio: cloneBigInt(newPortfolio)})
	return nil
}

// ReceivePortfolio pulls previously delegated funds back into custody. The
// portfolio figure decreases while the total balance is unchanged, since
// delegated funds were never removed from it.
func (l *Ledger) ReceivePortfolio(token, sender [20]byte, amount *big.Int) error {
	if l == nil {
		return fmt.Errorf("ledger not initialised")
	}
	if token == ([20]byte{}) || sender == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := checkAmountPositive(amount); err != nil {
		return err
	}
	if sender == l.custody {
		return ErrSelfTransfer
	}
	record, err := l.Record(token)
	if err != nil {
		return err
	}
	if amount.Cmp(record.Portfolio) > 0 {
		return ErrPortfolioInsufficient
	}
	backend, ok := l.tokens.Token(token)
	if !ok {
		return ErrTokenBackendMissing
	}
	if err := backend.TransferFrom(sender, l.custody, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	record.Portfolio = new(big.Int).Sub(record.Portfolio, amount)
	if err := l.put(record); err != nil {
		return err
	}
	l.emit(events.PortfolioReceived{Token: token, Sender: sender, Amount: cloneBigInt(amount)})
	l.emit(events.PortfolioUpdated{Token: token, Portfolio: cloneBigInt(record.Portfolio)})
	return nil
}

// SendPortfolio pushes custodied funds out to the portfolio manager. The
// primitive fails hard when the available (non-delegated) balance cannot
// cover the amount; any clamping is a caller decision.
func (l *Ledger) SendPortfolio(token, receiver [20]byte, amount *big.Int) error {
	if l == nil {
		return fmt.Errorf("ledger not initialised")
	}
	if token == ([20]byte{}) || receiver == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := checkAmountPositive(amount); err != nil {
		return err
	}
	if receiver == l.custody {
		return ErrSelfTransfer
	}
	record, err := l.Record(token)
	if err != nil {
		return err
	}
	available := new(big.Int).Sub(record.Balance, record.Portfolio)
	if amount.Cmp(available) > 0 {
		return ErrAvailableInsufficient
	}
	backend, ok := l.tokens.Token(token)
	if !ok {
		return ErrTokenBackendMissing
	}
	if err := backend.Transfer(l.custody, receiver, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	record.Portfolio = new(big.Int).Add(record.Portfolio, amount)
	if err := l.put(record); err != nil {
		return err
	}
	l.emit(events.PortfolioSent{Token: token, Receiver: receiver, Amount: cloneBigInt(amount)})
	l.emit(events.PortfolioUpdated{Token: token, Portfolio: cloneBigInt(record.Portfolio)})
	return nil
}

func (l *Ledger) put(record *BalanceRecord) error {
	stored := storedBalanceRecord{
		Balance:   record.Balance.String(),
		Portfolio: record.Portfolio.String(),
	}
	return l.store.KVPut(balanceKey(record.Token), stored)
}

// checkAmountPositive is the entry guard applied to every user-supplied
// amount flowing into a ledger mutation.
func checkAmountPositive(amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return ErrZeroAmount
	}
	if amount.Sign() < 0 {
		return ErrAmountNegative
	}
	return nil
}

func balanceKey(token [20]byte) []byte {
	buf := make([]byte, len(balanceRecordPrefix)+len(token))
	copy(buf, balanceRecordPrefix)
	copy(buf[len(balanceRecordPrefix):], token[:])
	return buf
}

func parseStoredAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
