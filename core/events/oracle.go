package events

import (
	"math/big"
	"strconv"

	"hubfx/core/types"
)

// TypePriceUpdated is emitted when the oracle accepts a fresh observation.
const TypePriceUpdated = "oracle.price_updated"

// PriceUpdated records an accepted price observation for an asset.
type PriceUpdated struct {
	Token     [20]byte
	Price     *big.Int
	PrevPrice *big.Int
	Timestamp int64
}

// EventType satisfies the events.Event interface.
func (PriceUpdated) EventType() string { return TypePriceUpdated }

// Event converts the structured payload into a broadcastable event.
func (e PriceUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePriceUpdated,
		Attributes: map[string]string{
			"token":     addrString(e.Token),
			"price":     amountString(e.Price),
			"prevPrice": amountString(e.PrevPrice),
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
		},
	}
}
