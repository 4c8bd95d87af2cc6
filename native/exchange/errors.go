package exchange

import "errors"

var (
	ErrZeroAmount              = errors.New("exchange: amount must be positive")
	ErrZeroAddress             = errors.New("exchange: zero address")
	ErrSelfTransfer            = errors.New("exchange: self transfer forbidden")
	ErrAmountNegative          = errors.New("exchange: amount must not be negative")
	ErrAmountOverflow          = errors.New("exchange: amount exceeds 256-bit range")
	ErrPriceInvalid            = errors.New("exchange: price must be positive")
	ErrQuoteTokenInvalid       = errors.New("exchange: quote token does not match pair")
	ErrFeeFractionInvalid      = errors.New("exchange: invalid fee fraction")
	ErrPriceToleranceUnset     = errors.New("exchange: price tolerance band unset")
	ErrPriceOutOfTolerance     = errors.New("exchange: price outside tolerance band")
	ErrSwapResultZero          = errors.New("exchange: swap result invalid")
	ErrReserveRatioTooLow      = errors.New("exchange: reserve ratio below threshold")
	ErrReentrantCall           = errors.New("exchange: reentrant call rejected")
	ErrTokenBackendMissing     = errors.New("exchange: token backend not available")
	ErrInsufficientBalance     = errors.New("exchange: insufficient balance")
	ErrPoolBalanceInsufficient = errors.New("exchange: pool balance insufficient")
	ErrPortfolioInsufficient   = errors.New("exchange: portfolio insufficient")
	ErrAvailableInsufficient   = errors.New("exchange: available balance insufficient")
	ErrPortfolioExceedsBalance = errors.New("exchange: portfolio exceeds balance")
	ErrNotConfigured           = errors.New("exchange: engine not configured")
)
