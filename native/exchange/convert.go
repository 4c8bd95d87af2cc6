package exchange

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Rounding selects the direction applied to the single rounding step of a
// conversion. There are exactly two modes.
type Rounding uint8

const (
	// RoundDown truncates toward zero (floor for unsigned values).
	RoundDown Rounding = iota
	// RoundUp rounds any nonzero remainder away from zero (ceiling).
	RoundUp
)

// TokenMeta carries the token identity and decimal precision the conversion
// primitives need. Decimal metadata comes from the token collaborator.
type TokenMeta struct {
	Address  [20]byte
	Decimals uint8
}

// Convert converts fromAmount of the from token into to-token units given the
// quote token's price against one unit of the hub token. price is an
// 18-decimal fixed-point value unless priceDecimals says otherwise. All
// intermediate arithmetic is exact 256-bit integer math; the one rounding
// step happens at the final multiply or divide per mode.
//
// The caller must supply the pair's quote side: the call fails when neither
// token equals quoteToken and quoteToken is not the hub.
func Convert(from, to TokenMeta, hub, quoteToken [20]byte, fromAmount, price *big.Int, priceDecimals uint8, mode Rounding) (*big.Int, error) {
	if from.Address == to.Address {
		if fromAmount == nil {
			return big.NewInt(0), nil
		}
		if fromAmount.Sign() < 0 {
			return nil, ErrAmountNegative
		}
		return new(big.Int).Set(fromAmount), nil
	}
	if quoteToken != from.Address && quoteToken != to.Address && quoteToken != hub {
		return nil, ErrQuoteTokenInvalid
	}
	if fromAmount == nil || fromAmount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if fromAmount.Sign() < 0 {
		return nil, ErrAmountNegative
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrPriceInvalid
	}
	amount, overflow := uint256.FromBig(fromAmount)
	if overflow {
		return nil, ErrAmountOverflow
	}
	rate, overflow := uint256.FromBig(price)
	if overflow {
		return nil, ErrAmountOverflow
	}
	if from.Address == hub {
		// Hub to quote: multiply by the price, then rescale from
		// from.decimals+priceDecimals down to the target precision.
		product, err := mulChecked(amount, rate)
		if err != nil {
			return nil, err
		}
		shift := int(to.Decimals) - int(from.Decimals) - int(priceDecimals)
		scaled, err := rescale(product, shift, mode)
		if err != nil {
			return nil, err
		}
		return scaled.ToBig(), nil
	}
	// Quote to hub: rescale up to to.decimals+priceDecimals, then divide by
	// the price. A negative shift is folded into the divisor so the exponent
	// never goes below zero.
	shift := int(to.Decimals) + int(priceDecimals) - int(from.Decimals)
	if shift >= 0 {
		numerator, err := mulPow10(amount, uint(shift))
		if err != nil {
			return nil, err
		}
		return divRound(numerator, rate, mode).ToBig(), nil
	}
	divisor, err := mulPow10(rate, uint(-shift))
	if err != nil {
		return nil, err
	}
	return divRound(amount, divisor, mode).ToBig(), nil
}

// FeeFromGrossAmount computes ceil(amount*feeNumerator/feeDenominator), the
// fee carved out of an amount that already contains it.
func FeeFromGrossAmount(amount, feeNumerator, feeDenominator *big.Int) (*big.Int, error) {
	if err := ValidateFeeFraction(feeNumerator, feeDenominator); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() == 0 || feeNumerator == nil || feeNumerator.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrAmountNegative
	}
	gross, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrAmountOverflow
	}
	num, _ := uint256.FromBig(feeNumerator)
	den, _ := uint256.FromBig(feeDenominator)
	product, err := mulChecked(gross, num)
	if err != nil {
		return nil, err
	}
	return divRound(product, den, RoundUp).ToBig(), nil
}

// FeeFromNetAmount computes the fee that must be added on top of a net
// amount so the net amount is exactly what remains after the fee is carved
// from the grossed-up total. The gross-up rounds up, so re-deriving the fee
// from the grossed total lands within one unit.
func FeeFromNetAmount(amount, feeNumerator, feeDenominator *big.Int) (*big.Int, error) {
	if err := ValidateFeeFraction(feeNumerator, feeDenominator); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() == 0 || feeNumerator == nil || feeNumerator.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrAmountNegative
	}
	net, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrAmountOverflow
	}
	num, _ := uint256.FromBig(feeNumerator)
	den, _ := uint256.FromBig(feeDenominator)
	remaining := new(uint256.Int).Sub(den, num)
	scaled, err := mulChecked(net, den)
	if err != nil {
		return nil, err
	}
	grossed := divRound(scaled, remaining, RoundUp)
	fee := new(uint256.Int).Sub(grossed, net)
	return fee.ToBig(), nil
}

// ValidateFeeFraction checks a fee fraction. A zero numerator is always
// valid; otherwise the numerator must be strictly below the denominator,
// which rules out a zero denominator.
func ValidateFeeFraction(numerator, denominator *big.Int) error {
	if numerator == nil || numerator.Sign() == 0 {
		return nil
	}
	if numerator.Sign() < 0 {
		return ErrFeeFractionInvalid
	}
	if denominator == nil || denominator.Sign() <= 0 || numerator.Cmp(denominator) >= 0 {
		return ErrFeeFractionInvalid
	}
	return nil
}

// rescale shifts value by 10^shift. Non-negative shifts are exact multiplies;
// negative shifts divide with the requested rounding.
func rescale(value *uint256.Int, shift int, mode Rounding) (*uint256.Int, error) {
	if shift >= 0 {
		return mulPow10(value, uint(shift))
	}
	divisor, err := pow10(uint(-shift))
	if err != nil {
		return nil, err
	}
	return divRound(value, divisor, mode), nil
}

// divRound divides a by b, rounding per mode. The ceiling variant adds one
// whenever a remainder exists, which is exact for the full unsigned range
// including when a is already a multiple of b.
func divRound(a, b *uint256.Int, mode Rounding) *uint256.Int {
	quo := new(uint256.Int)
	rem := new(uint256.Int)
	quo.DivMod(a, b, rem)
	if mode == RoundUp && !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	return quo
}

func mulChecked(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return product, nil
}

func mulPow10(value *uint256.Int, exp uint) (*uint256.Int, error) {
	scale, err := pow10(exp)
	if err != nil {
		return nil, err
	}
	return mulChecked(value, scale)
}

// maxPow10 is the largest power of ten representable in 256 bits.
const maxPow10 = 77

func pow10(exp uint) (*uint256.Int, error) {
	if exp > maxPow10 {
		return nil, ErrAmountOverflow
	}
	ten := uint256.NewInt(10)
	out := uint256.NewInt(1)
	for i := uint(0); i < exp; i++ {
		out.Mul(out, ten)
	}
	return out, nil
}
