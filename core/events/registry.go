package events

import (
	"encoding/hex"
	"math/big"

	"hubfx/core/types"
)

const (
	// TypeTokenAdded marks a token being registered with the exchange.
	TypeTokenAdded = "registry.token_added"
	// TypeTokenRemoved marks a token leaving the registry.
	TypeTokenRemoved = "registry.token_removed"
	// TypePairAdded marks a new trading pair configuration.
	TypePairAdded = "registry.pair_added"
	// TypePairUpdated marks an updated trading pair configuration.
	TypePairUpdated = "registry.pair_updated"
	// TypePairRemoved marks a trading pair being retired.
	TypePairRemoved = "registry.pair_removed"
	// TypeHubTokenChanged marks a replacement of the hub currency pointer.
	TypeHubTokenChanged = "registry.hub_token_changed"
)

// TokenAdded records the registration of a token and its tolerance band.
type TokenAdded struct {
	Token    [20]byte
	Kind     string
	MinPrice *big.Int
	MaxPrice *big.Int
}

// EventType satisfies the events.Event interface.
func (TokenAdded) EventType() string { return TypeTokenAdded }

// Event converts the structured payload into a broadcastable event.
func (e TokenAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenAdded,
		Attributes: map[string]string{
			"token":    addrString(e.Token),
			"kind":     e.Kind,
			"minPrice": amountString(e.MinPrice),
			"maxPrice": amountString(e.MaxPrice),
		},
	}
}

// TokenRemoved records a token being cleared from the registry.
type TokenRemoved struct {
	Token [20]byte
}

func (TokenRemoved) EventType() string { return TypeTokenRemoved }

// Event converts the structured payload into a broadcastable event.
func (e TokenRemoved) Event() *types.Event {
	return &types.Event{
		Type:       TypeTokenRemoved,
		Attributes: map[string]string{"token": addrString(e.Token)},
	}
}

// PairChanged carries the economic parameters of an added or updated pair.
type PairChanged struct {
	Updated                   bool
	Hash                      [32]byte
	AnchorToken               [20]byte
	QuoteToken                [20]byte
	BuyFee                    *big.Int
	BuyReserveRatioThreshold  *big.Int
	SellFee                   *big.Int
	SellReserveRatioThreshold *big.Int
}

func (e PairChanged) EventType() string {
	if e.Updated {
		return TypePairUpdated
	}
	return TypePairAdded
}

// Event converts the structured payload into a broadcastable event.
func (e PairChanged) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"pairHash":      "0x" + hexHash(e.Hash),
			"anchorToken":   addrString(e.AnchorToken),
			"quoteToken":    addrString(e.QuoteToken),
			"buyFee":        amountString(e.BuyFee),
			"buyThreshold":  amountString(e.BuyReserveRatioThreshold),
			"sellFee":       amountString(e.SellFee),
			"sellThreshold": amountString(e.SellReserveRatioThreshold),
		},
	}
}

// PairRemoved records a pair being retired from the registry.
type PairRemoved struct {
	Hash   [32]byte
	TokenX [20]byte
	TokenY [20]byte
}

func (PairRemoved) EventType() string { return TypePairRemoved }

// Event converts the structured payload into a broadcastable event.
func (e PairRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypePairRemoved,
		Attributes: map[string]string{
			"pairHash": "0x" + hexHash(e.Hash),
			"tokenX":   addrString(e.TokenX),
			"tokenY":   addrString(e.TokenY),
		},
	}
}

// HubTokenChanged records a replacement of the designated hub currency.
type HubTokenChanged struct {
	Previous [20]byte
	Current  [20]byte
}

func (HubTokenChanged) EventType() string { return TypeHubTokenChanged }

// Event converts the structured payload into a broadcastable event.
func (e HubTokenChanged) Event() *types.Event {
	attrs := map[string]string{"current": addrString(e.Current)}
	if !zeroBytes(e.Previous[:]) {
		attrs["previous"] = addrString(e.Previous)
	}
	return &types.Event{Type: TypeHubTokenChanged, Attributes: attrs}
}

func hexHash(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
