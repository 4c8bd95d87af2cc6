package registry

import "errors"

var (
	ErrZeroAddress           = errors.New("registry: zero address")
	ErrTokenExists           = errors.New("registry: token already registered")
	ErrTokenNotFound         = errors.New("registry: token not registered")
	ErrInvalidTokenKind      = errors.New("registry: invalid token kind")
	ErrInvalidPriceRange     = errors.New("registry: invalid price tolerance range")
	ErrNoContractCode        = errors.New("registry: token address has no contract code")
	ErrTokenHasPairs         = errors.New("registry: token still referenced by pairs")
	ErrPairExists            = errors.New("registry: pair already exists")
	ErrPairNotFound          = errors.New("registry: pair not found")
	ErrPairSelfReferential   = errors.New("registry: pair tokens must differ")
	ErrPairMissingHub        = errors.New("registry: pair must include the hub token")
	ErrHubTokenUnset         = errors.New("registry: hub token unset")
	ErrInvalidFeeFraction    = errors.New("registry: invalid fee fraction")
	ErrInvalidRatioThreshold = errors.New("registry: invalid reserve ratio threshold")
	ErrPaginationOutOfBounds = errors.New("registry: pagination window out of bounds")
)
