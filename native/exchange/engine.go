package exchange

import (
	"fmt"
	"math/big"
	"sync"

	"hubfx/core/events"
	nativecommon "hubfx/native/common"
	"hubfx/native/registry"
	"hubfx/observability"
)

const moduleName = "exchange"

// AmountType selects which side of a swap the supplied amount fixes.
type AmountType uint8

const (
	// AmountIn fixes the amount the user spends.
	AmountIn AmountType = iota
	// AmountOut fixes the amount the user receives.
	AmountOut
)

// SwapResult carries the full economic outcome of a swap or estimate. Fees
// are always denominated in the hub token.
type SwapResult struct {
	TokenIn      [20]byte
	TokenOut     [20]byte
	AmountIn     *big.Int
	AmountOut    *big.Int
	FeeToken     [20]byte
	Fee          *big.Int
	FeeNumerator *big.Int
	Price        *big.Int
}

// swapPlan is the fully computed, not-yet-settled state of a swap call.
type swapPlan struct {
	result    SwapResult
	hub       [20]byte
	quote     [20]byte
	hubIsIn   bool
	threshold *big.Int
	inKind    registry.TokenKind
	outKind   registry.TokenKind
	tokenIn   Token
	tokenOut  Token
}

// Engine is the swap orchestrator. Collaborators are explicit handles wired
// at construction; there is no ambient global state.
type Engine struct {
	entry sync.Mutex

	registry *registry.Registry
	prices   PriceSource
	ledger   *Ledger
	tokens   TokenSource
	pool     CollateralPool
	treasury [20]byte

	emitter events.Emitter
	pauses  nativecommon.PauseView
	metrics *observability.ExchangeMetrics
}

// NewEngine constructs an orchestrator over the supplied collaborators.
func NewEngine(reg *registry.Registry, prices PriceSource, ledger *Ledger, tokens TokenSource) *Engine {
	return &Engine{
		registry: reg,
		prices:   prices,
		ledger:   ledger,
		tokens:   tokens,
		emitter:  events.NoopEmitter{},
	}
}

// SetCollateralPool wires the custodial pool used for solvency accounting
// and redemption shortfalls.
func (e *Engine) SetCollateralPool(pool CollateralPool) {
	if e == nil {
		return
	}
	e.pool = pool
}

// SetTreasury configures the address receiving swap fees.
func (e *Engine) SetTreasury(addr [20]byte) {
	if e == nil {
		return
	}
	e.treasury = addr
}

// SetEmitter configures the event emitter. Passing nil resets it to no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the module pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetMetrics wires the exchange metrics registry.
func (e *Engine) SetMetrics(m *observability.ExchangeMetrics) {
	if e == nil {
		return
	}
	e.metrics = m
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

// QuoteToken resolves the non-hub side of a candidate pair.
func (e *Engine) QuoteToken(tokenX, tokenY [20]byte) ([20]byte, error) {
	if e == nil || e.registry == nil {
		return [20]byte{}, ErrNotConfigured
	}
	if tokenX == tokenY {
		return [20]byte{}, registry.ErrPairSelfReferential
	}
	hub, ok := e.registry.HubToken()
	if !ok {
		return [20]byte{}, registry.ErrHubTokenUnset
	}
	if !e.registry.TokenKindOf(tokenX).Valid() || !e.registry.TokenKindOf(tokenY).Valid() {
		return [20]byte{}, registry.ErrTokenNotFound
	}
	switch hub {
	case tokenX:
		return tokenY, nil
	case tokenY:
		return tokenX, nil
	default:
		return [20]byte{}, registry.ErrPairMissingHub
	}
}

// Estimate runs the read-only pricing path. The numbers are bit-identical to
// what Swap would settle with the same inputs and oracle state.
func (e *Engine) Estimate(tokenIn, tokenOut [20]byte, amountType AmountType, amount *big.Int) (*SwapResult, error) {
	plan, err := e.plan(tokenIn, tokenOut, amountType, amount)
	if err != nil {
		return nil, err
	}
	result := plan.result
	return &result, nil
}

// Swap executes a swap atomically on behalf of account: price resolution,
// fee computation, reserve-ratio gating and settlement, or no effect at all.
func (e *Engine) Swap(account, tokenIn, tokenOut [20]byte, amountType AmountType, amount *big.Int) (*SwapResult, error) {
	if e == nil {
		return nil, ErrNotConfigured
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if account == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if !e.entry.TryLock() {
		return nil, ErrReentrantCall
	}
	defer e.entry.Unlock()

	plan, err := e.plan(tokenIn, tokenOut, amountType, amount)
	if err != nil {
		e.countSwap(tokenIn, "rejected")
		return nil, err
	}
	if plan.threshold != nil && plan.threshold.Sign() > 0 {
		ratio, err := e.ReserveRatio()
		if err != nil {
			e.countSwap(tokenIn, "error")
			return nil, err
		}
		e.observeRatio(ratio)
		if !ratio.Exceeds(plan.threshold) {
			e.countSwap(tokenIn, "gated")
			return nil, fmt.Errorf("%w: ratio %s", ErrReserveRatioTooLow, ratio)
		}
	}
	if err := e.settle(account, plan); err != nil {
		e.countSwap(tokenIn, "error")
		return nil, err
	}
	e.countSwap(tokenIn, "ok")
	e.emit(events.SwapExecuted{
		TokenIn:      plan.result.TokenIn,
		TokenOut:     plan.result.TokenOut,
		Account:      account,
		AmountIn:     cloneBigInt(plan.result.AmountIn),
		AmountOut:    cloneBigInt(plan.result.AmountOut),
		FeeToken:     plan.result.FeeToken,
		Fee:          cloneBigInt(plan.result.Fee),
		FeeNumerator: cloneBigInt(plan.result.FeeNumerator),
		Price:        cloneBigInt(plan.result.Price),
	})
	result := plan.result
	return &result, nil
}

// plan resolves the pair, snapshots the price once, validates tolerance and
// computes every amount of the swap without touching state.
func (e *Engine) plan(tokenIn, tokenOut [20]byte, amountType AmountType, amount *big.Int) (*swapPlan, error) {
	if e == nil || e.registry == nil || e.prices == nil || e.ledger == nil || e.tokens == nil {
		return nil, ErrNotConfigured
	}
	if err := checkAmountPositive(amount); err != nil {
		return nil, err
	}
	cfg, ok := e.registry.Pair(tokenIn, tokenOut)
	if !ok {
		return nil, registry.ErrPairNotFound
	}
	hub, ok := e.registry.HubToken()
	if !ok {
		return nil, registry.ErrHubTokenUnset
	}
	plan := &swapPlan{hub: hub}
	var feeNumerator *big.Int
	switch hub {
	case tokenIn:
		plan.hubIsIn = true
		plan.quote = tokenOut
		feeNumerator = cfg.BuyFee
		plan.threshold = cfg.BuyReserveRatioThreshold
	case tokenOut:
		plan.quote = tokenIn
		feeNumerator = cfg.SellFee
		plan.threshold = cfg.SellReserveRatioThreshold
	default:
		return nil, registry.ErrPairMissingHub
	}

	// Single oracle snapshot for the whole call.
	quoteInfo, ok := e.registry.Token(plan.quote)
	if !ok {
		return nil, registry.ErrTokenNotFound
	}
	if quoteInfo.MaxPrice == nil || quoteInfo.MaxPrice.Sign() == 0 {
		return nil, ErrPriceToleranceUnset
	}
	price, err := e.prices.LatestPrice(plan.quote)
	if err != nil {
		return nil, err
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrPriceInvalid
	}
	if price.Cmp(quoteInfo.MinPrice) < 0 || price.Cmp(quoteInfo.MaxPrice) > 0 {
		return nil, ErrPriceOutOfTolerance
	}

	plan.inKind = e.registry.TokenKindOf(tokenIn)
	plan.outKind = e.registry.TokenKindOf(tokenOut)
	plan.tokenIn, ok = e.tokens.Token(tokenIn)
	if !ok {
		return nil, ErrTokenBackendMissing
	}
	plan.tokenOut, ok = e.tokens.Token(tokenOut)
	if !ok {
		return nil, ErrTokenBackendMissing
	}
	inMeta := TokenMeta{Address: tokenIn, Decimals: plan.tokenIn.Decimals()}
	outMeta := TokenMeta{Address: tokenOut, Decimals: plan.tokenOut.Decimals()}
	priceDecimals := e.prices.Decimals()

	amountIn := new(big.Int)
	amountOut := new(big.Int)
	fee := new(big.Int)
	switch amountType {
	case AmountIn:
		amountIn.Set(amount)
		if plan.hubIsIn {
			// Fee is carved out of the hub amount the user spends; the
			// remainder converts to the output, rounded down.
			fee, err = FeeFromGrossAmount(amountIn, feeNumerator, registry.FeeBase)
			if err != nil {
				return nil, err
			}
			net := new(big.Int).Sub(amountIn, fee)
			if net.Sign() <= 0 {
				return nil, ErrSwapResultZero
			}
			amountOut, err = Convert(inMeta, outMeta, hub, plan.quote, net, price, priceDecimals, RoundDown)
			if err != nil {
				return nil, err
			}
		} else {
			// Convert to hub first, rounded down, then carve the fee out
			// of the gross hub proceeds, rounded up.
			gross, err := Convert(inMeta, outMeta, hub, plan.quote, amountIn, price, priceDecimals, RoundDown)
			if err != nil {
				return nil, err
			}
			fee, err = FeeFromGrossAmount(gross, feeNumerator, registry.FeeBase)
			if err != nil {
				return nil, err
			}
			amountOut = new(big.Int).Sub(gross, fee)
		}
		if amountOut.Sign() <= 0 {
			return nil, ErrSwapResultZero
		}
	case AmountOut:
		amountOut.Set(amount)
		if plan.hubIsIn {
			// Required hub input: inverse conversion rounded up, then the
			// fee grossed up on top.
			net, err := Convert(outMeta, inMeta, hub, plan.quote, amountOut, price, priceDecimals, RoundUp)
			if err != nil {
				return nil, err
			}
			fee, err = FeeFromNetAmount(net, feeNumerator, registry.FeeBase)
			if err != nil {
				return nil, err
			}
			amountIn = new(big.Int).Add(net, fee)
		} else {
			fee, err = FeeFromNetAmount(amountOut, feeNumerator, registry.FeeBase)
			if err != nil {
				return nil, err
			}
			gross := new(big.Int).Add(amountOut, fee)
			amountIn, err = Convert(outMeta, inMeta, hub, plan.quote, gross, price, priceDecimals, RoundUp)
			if err != nil {
				return nil, err
			}
		}
		if amountIn.Sign() <= 0 {
			return nil, ErrSwapResultZero
		}
	default:
		return nil, fmt.Errorf("exchange: unknown amount type %d", amountType)
	}

	plan.result = SwapResult{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		AmountOut:    amountOut,
		FeeToken:     hub,
		Fee:          fee,
		FeeNumerator: cloneBigInt(feeNumerator),
		Price:        cloneBigInt(price),
	}
	return plan, nil
}

// settle commits the computed swap: custody and supply changes first were
// already validated, so every external move either completes or aborts the
// whole call.
func (e *Engine) settle(account [20]byte, plan *swapPlan) error {
	custody := e.ledger.Custody()
	result := plan.result
	if result.Fee.Sign() > 0 && e.treasury == ([20]byte{}) {
		return fmt.Errorf("%w: fee treasury unset", ErrNotConfigured)
	}
	// Check output coverage before any input-side move so an unpayable
	// redemption aborts with no effect.
	if plan.outKind == registry.KindAsset {
		record, err := e.ledger.Record(result.TokenOut)
		if err != nil {
			return err
		}
		covered := new(big.Int).Sub(record.Balance, record.Portfolio)
		if e.pool != nil {
			pooled, err := e.pool.Collateral(result.TokenOut)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPoolBalanceInsufficient, err)
			}
			covered.Add(covered, pooled)
		}
		if covered.Cmp(result.AmountOut) < 0 {
			return ErrPoolBalanceInsufficient
		}
	}

	// Input side.
	if plan.inKind == registry.KindAsset {
		if err := plan.tokenIn.TransferFrom(account, custody, result.AmountIn); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
		balance, err := e.ledger.Balance(result.TokenIn)
		if err != nil {
			return err
		}
		if err := e.ledger.SetBalance(result.TokenIn, new(big.Int).Add(balance, result.AmountIn)); err != nil {
			return err
		}
	} else {
		burned := result.AmountIn
		if plan.hubIsIn && result.Fee.Sign() > 0 {
			burned = new(big.Int).Sub(result.AmountIn, result.Fee)
			if err := plan.tokenIn.TransferFrom(account, e.treasury, result.Fee); err != nil {
				return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
			}
			e.emit(events.SwapFeeSent{Token: plan.hub, Treasury: e.treasury, Amount: cloneBigInt(result.Fee)})
			e.countFeeTransfer()
		}
		if err := plan.tokenIn.Burn(account, burned); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
	}

	// Output side.
	if plan.outKind == registry.KindAsset {
		record, err := e.ledger.Record(result.TokenOut)
		if err != nil {
			return err
		}
		available := new(big.Int).Sub(record.Balance, record.Portfolio)
		take := new(big.Int).Set(result.AmountOut)
		if take.Cmp(available) > 0 {
			take.Set(available)
		}
		shortfall := new(big.Int).Sub(result.AmountOut, take)
		if shortfall.Sign() > 0 {
			if e.pool == nil {
				return ErrPoolBalanceInsufficient
			}
			if err := e.pool.WithdrawCollateral(result.TokenOut, shortfall); err != nil {
				return fmt.Errorf("%w: %v", ErrPoolBalanceInsufficient, err)
			}
		}
		if take.Sign() > 0 {
			if err := e.ledger.SetBalance(result.TokenOut, new(big.Int).Sub(record.Balance, take)); err != nil {
				return err
			}
		}
		if err := plan.tokenOut.Transfer(custody, account, result.AmountOut); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
	} else {
		if err := plan.tokenOut.Mint(account, result.AmountOut); err != nil {
			return err
		}
		if !plan.hubIsIn && result.Fee.Sign() > 0 {
			if err := plan.tokenOut.Mint(e.treasury, result.Fee); err != nil {
				return err
			}
			e.emit(events.SwapFeeSent{Token: plan.hub, Treasury: e.treasury, Amount: cloneBigInt(result.Fee)})
			e.countFeeTransfer()
		}
	}
	return nil
}

func (e *Engine) countSwap(tokenIn [20]byte, outcome string) {
	if e == nil || e.metrics == nil {
		return
	}
	direction := "sell"
	if hub, ok := e.registry.HubToken(); ok && hub == tokenIn {
		direction = "buy"
	}
	e.metrics.CountSwap(direction, outcome)
}

func (e *Engine) countFeeTransfer() {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.CountFeeTransfer()
}

func (e *Engine) observeRatio(ratio *ReserveRatio) {
	if e == nil || e.metrics == nil || ratio == nil || ratio.Kind != RatioFinite {
		return
	}
	e.metrics.ObserveReserveRatio(ratio.Value)
}
