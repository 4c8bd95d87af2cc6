package events

import (
	"math/big"

	"hubfx/core/types"
)

const (
	// TypeSwapExecuted is emitted after a swap settles atomically.
	TypeSwapExecuted = "exchange.swap_executed"
	// TypeSwapFeeSent records the fee routed to the treasury for a swap.
	TypeSwapFeeSent = "exchange.swap_fee_sent"
	// TypeBalanceUpdated records a change to a custodied token balance.
	TypeBalanceUpdated = "exchange.balance_updated"
	// TypePortfolioUpdated records a change to the delegated portfolio figure.
	TypePortfolioUpdated = "exchange.portfolio_updated"
	// TypePortfolioSent records funds delegated out to the portfolio manager.
	TypePortfolioSent = "exchange.portfolio_sent"
	// TypePortfolioReceived records delegated funds returning to custody.
	TypePortfolioReceived = "exchange.portfolio_received"
)

// SwapExecuted captures the full economic outcome of a settled swap.
type SwapExecuted struct {
	TokenIn      [20]byte
	TokenOut     [20]byte
	Account      [20]byte
	AmountIn     *big.Int
	AmountOut    *big.Int
	FeeToken     [20]byte
	Fee          *big.Int
	FeeNumerator *big.Int
	Price        *big.Int
}

// EventType satisfies the events.Event interface.
func (SwapExecuted) EventType() string { return TypeSwapExecuted }

// Event converts the structured payload into a broadcastable event.
func (e SwapExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapExecuted,
		Attributes: map[string]string{
			"tokenIn":      addrString(e.TokenIn),
			"tokenOut":     addrString(e.TokenOut),
			"account":      addrString(e.Account),
			"amountIn":     amountString(e.AmountIn),
			"amountOut":    amountString(e.AmountOut),
			"feeToken":     addrString(e.FeeToken),
			"fee":          amountString(e.Fee),
			"feeNumerator": amountString(e.FeeNumerator),
			"price":        amountString(e.Price),
		},
	}
}

// SwapFeeSent records a fee transfer to the treasury address.
type SwapFeeSent struct {
	Token    [20]byte
	Treasury [20]byte
	Amount   *big.Int
}

func (SwapFeeSent) EventType() string { return TypeSwapFeeSent }

// Event converts the structured payload into a broadcastable event.
func (e SwapFeeSent) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapFeeSent,
		Attributes: map[string]string{
			"token":    addrString(e.Token),
			"treasury": addrString(e.Treasury),
			"amount":   amountString(e.Amount),
		},
	}
}

// BalanceUpdated records the new custodied balance for a token.
type BalanceUpdated struct {
	Token   [20]byte
	Balance *big.Int
}

func (BalanceUpdated) EventType() string { return TypeBalanceUpdated }

// Event converts the structured payload into a broadcastable event.
func (e BalanceUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBalanceUpdated,
		Attributes: map[string]string{
			"token":   addrString(e.Token),
			"balance": amountString(e.Balance),
		},
	}
}

// PortfolioUpdated records the new delegated portfolio figure for a token.
type PortfolioUpdated struct {
	Token     [20]byte
	Portfolio *big.Int
}

func (PortfolioUpdated) EventType() string { return TypePortfolioUpdated }

// Event converts the structured payload into a broadcastable event.
func (e PortfolioUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePortfolioUpdated,
		Attributes: map[string]string{
			"token":     addrString(e.Token),
			"portfolio": amountString(e.Portfolio),
		},
	}
}

// PortfolioSent records funds pushed out to the portfolio manager.
type PortfolioSent struct {
	Token    [20]byte
	Receiver [20]byte
	Amount   *big.Int
}

func (PortfolioSent) EventType() string { return TypePortfolioSent }

// Event converts the structured payload into a broadcastable event.
func (e PortfolioSent) Event() *types.Event {
	return &types.Event{
		Type: TypePortfolioSent,
		Attributes: map[string]string{
			"token":    addrString(e.Token),
			"receiver": addrString(e.Receiver),
			"amount":   amountString(e.Amount),
		},
	}
}

// PortfolioReceived records delegated funds pulled back into custody.
type PortfolioReceived struct {
	Token  [20]byte
	Sender [20]byte
	Amount *big.Int
}

func (PortfolioReceived) EventType() string { return TypePortfolioReceived }

// Event converts the structured payload into a broadcastable event.
func (e PortfolioReceived) Event() *types.Event {
	return &types.Event{
		Type: TypePortfolioReceived,
		Attributes: map[string]string{
			"token":  addrString(e.Token),
			"sender": addrString(e.Sender),
			"amount": amountString(e.Amount),
		},
	}
}
