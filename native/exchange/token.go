package exchange

import "math/big"

// Token is the narrow view of a fungible currency consumed by the exchange.
// Hub and satellite currencies additionally honour Mint and Burn under the
// exchange's minter capability; implementations enforce their own
// authorization and return an error when a move cannot be honoured in full.
type Token interface {
	Address() [20]byte
	Decimals() uint8
	TotalSupply() *big.Int
	BalanceOf(owner [20]byte) *big.Int
	// Transfer moves custodied funds between accounts.
	Transfer(from, to [20]byte, amount *big.Int) error
	// TransferFrom spends the approval a holder granted to the exchange.
	TransferFrom(owner, to [20]byte, amount *big.Int) error
	Mint(to [20]byte, amount *big.Int) error
	Burn(owner [20]byte, amount *big.Int) error
}

// TokenSource resolves token handles by address.
type TokenSource interface {
	Token(addr [20]byte) (Token, bool)
}

// CollateralPool is the custodial pool collaborator: collateral balances
// count toward solvency and can be drawn down when exchange reserves cannot
// honour a redemption.
type CollateralPool interface {
	Collateral(token [20]byte) (*big.Int, error)
	Portfolio(token [20]byte) (*big.Int, error)
	// WithdrawCollateral moves amount of token from the pool into the
	// exchange's custody. Fails when the pool cannot cover the amount.
	WithdrawCollateral(token [20]byte, amount *big.Int) error
}

// PriceSource is the oracle collaborator. Prices are fixed point with
// Decimals fractional digits and quote the pair's non-hub token against one
// unit of the hub token.
type PriceSource interface {
	LatestPrice(token [20]byte) (*big.Int, error)
	Decimals() uint8
}
