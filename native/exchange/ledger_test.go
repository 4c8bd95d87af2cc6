package exchange

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"hubfx/core/events"
)

var (
	custodyAddr = testAddr(20)
	manager     = testAddr(21)
)

func newTestLedger(t *testing.T) (*Ledger, *mockToken, *memStorage) {
	t.Helper()
	tok := newMockToken(quoteAddr, 6)
	source := newMockTokenSource(tok)
	store := newMemStorage()
	return NewLedger(store, source, custodyAddr), tok, store
}

func TestRecordUnknownTokenIsZeroed(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	record, err := ledger.Record(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, quoteAddr, record.Token)
	require.Equal(t, big.NewInt(0), record.Balance)
	require.Equal(t, big.NewInt(0), record.Portfolio)
}

func TestSetBalanceAndPortfolioInvariant(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	require.NoError(t, ledger.SetBalance(quoteAddr, big.NewInt(100)))
	require.NoError(t, ledger.SetPortfolio(quoteAddr, big.NewInt(60)))

	// Portfolio may never exceed balance from either side.
	require.ErrorIs(t, ledger.SetPortfolio(quoteAddr, big.NewInt(101)), ErrPortfolioExceedsBalance)
	require.ErrorIs(t, ledger.SetBalance(quoteAddr, big.NewInt(59)), ErrPortfolioExceedsBalance)

	require.NoError(t, ledger.SetBalance(quoteAddr, big.NewInt(60)))
	require.NoError(t, ledger.SetPortfolio(quoteAddr, big.NewInt(0)))
	require.NoError(t, ledger.SetBalance(quoteAddr, big.NewInt(0)))

	require.ErrorIs(t, ledger.SetBalance(quoteAddr, big.NewInt(-1)), ErrAmountNegative)
	require.ErrorIs(t, ledger.SetBalance(quoteAddr, nil), ErrAmountNegative)
}

func TestSendPortfolioMovesFunds(t *testing.T) {
	ledger, tok, _ := newTestLedger(t)
	require.NoError(t, tok.Mint(custodyAddr, big.NewInt(100)))
	require.NoError(t, ledger.SetBalance(quoteAddr, big.NewInt(100)))

	capture := &capturingEmitter{}
	ledger.SetEmitter(capture)

	require.NoError(t, ledger.SendPortfolio(quoteAddr, manager, big.NewInt(40)))

	portfolio, err := ledger.Portfolio(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(40), portfolio)
	require.Equal(t, big.NewInt(40), tok.BalanceOf(manager))
	require.Equal(t, big.NewInt(60), tok.BalanceOf(custodyAddr))

	// Only the non-delegated remainder can be sent out.
	require.ErrorIs(t, ledger.SendPortfolio(quoteAddr, manager, big.NewInt(61)), ErrAvailableInsufficient)

	require.Len(t, capture.events, 2)
	sent, ok := capture.events[0].(events.PortfolioSent)
	require.True(t, ok)
	require.Equal(t, big.NewInt(40), sent.Amount)
}

func TestReceivePortfolioReturnsFunds(t *testing.T) {
	ledger, tok, _ := newTestLedger(t)
	require.NoError(t, tok.Mint(custodyAddr, big.NewInt(100)))
	require.NoError(t, ledger.SetBalance(quoteAddr, big.NewInt(100)))
	require.NoError(t, ledger.SendPortfolio(quoteAddr, manager, big.NewInt(40)))

	require.NoError(t, ledger.ReceivePortfolio(quoteAddr, manager, big.NewInt(15)))

	portfolio, err := ledger.Portfolio(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(25), portfolio)
	require.Equal(t, big.NewInt(25), tok.BalanceOf(manager))
	require.Equal(t, big.NewInt(75), tok.BalanceOf(custodyAddr))

	// More than is currently delegated cannot come back.
	require.ErrorIs(t, ledger.ReceivePortfolio(quoteAddr, manager, big.NewInt(26)), ErrPortfolioInsufficient)

	balance, err := ledger.Balance(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), balance)
}

func TestPortfolioTransferValidation(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	require.ErrorIs(t, ledger.SendPortfolio([20]byte{}, manager, big.NewInt(1)), ErrZeroAddress)
	require.ErrorIs(t, ledger.SendPortfolio(quoteAddr, [20]byte{}, big.NewInt(1)), ErrZeroAddress)
	require.ErrorIs(t, ledger.SendPortfolio(quoteAddr, custodyAddr, big.NewInt(1)), ErrSelfTransfer)
	require.ErrorIs(t, ledger.SendPortfolio(quoteAddr, manager, big.NewInt(0)), ErrZeroAmount)
	require.ErrorIs(t, ledger.SendPortfolio(quoteAddr, manager, big.NewInt(-1)), ErrAmountNegative)

	require.ErrorIs(t, ledger.ReceivePortfolio(quoteAddr, custodyAddr, big.NewInt(1)), ErrSelfTransfer)
	require.ErrorIs(t, ledger.ReceivePortfolio(quoteAddr, manager, nil), ErrZeroAmount)
}

func TestReceivePortfolioUnknownBackend(t *testing.T) {
	store := newMemStorage()
	ledger := NewLedger(store, newMockTokenSource(), custodyAddr)
	require.NoError(t, ledger.SetBalance(quoteAddr, big.NewInt(10)))
	require.NoError(t, ledger.SetPortfolio(quoteAddr, big.NewInt(10)))

	require.ErrorIs(t, ledger.ReceivePortfolio(quoteAddr, manager, big.NewInt(5)), ErrTokenBackendMissing)
}

func TestRecordRejectsCorruptState(t *testing.T) {
	ledger, _, store := newTestLedger(t)
	require.NoError(t, store.KVPut(balanceKey(quoteAddr), storedBalanceRecord{Balance: "banana", Portfolio: "0"}))

	_, err := ledger.Record(quoteAddr)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid balance")
}

func TestRecordCopyIsDetached(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	require.NoError(t, ledger.SetBalance(quoteAddr, big.NewInt(10)))

	record, err := ledger.Record(quoteAddr)
	require.NoError(t, err)
	record.Balance.SetInt64(999)

	balance, err := ledger.Balance(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), balance)
}
