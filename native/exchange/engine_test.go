package exchange

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"hubfx/core/events"
	nativecommon "hubfx/native/common"
	"hubfx/native/registry"
)

var (
	adminAddr    = testAddr(30)
	treasuryAddr = testAddr(31)
	aliceAddr    = testAddr(32)
)

type engineFixture struct {
	engine   *Engine
	registry *registry.Registry
	ledger   *Ledger
	hub      *mockToken
	quote    *mockToken
	prices   *stubPrices
	pool     *mockPool
	tokens   *mockTokenSource
}

// newEngineFixture wires a hub (18 decimals, stable) against a 6-decimal
// asset quoted at 2.0, with a 1% fee on both directions and no ratio gate.
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	onePercent := big.NewInt(1e16)
	reg := registry.New()
	reg.SetRoles(allowRoles{})
	require.NoError(t, reg.AddToken(adminAddr, hubAddr, registry.KindStable, big.NewInt(1), big.NewInt(1e18)))
	require.NoError(t, reg.SetHubToken(adminAddr, hubAddr))
	require.NoError(t, reg.AddToken(adminAddr, quoteAddr, registry.KindAsset, big.NewInt(1e18), big.NewInt(3e18)))
	require.NoError(t, reg.AddPair(adminAddr, &registry.PairConfig{
		AnchorToken:               hubAddr,
		QuoteToken:                quoteAddr,
		BuyFee:                    onePercent,
		BuyReserveRatioThreshold:  big.NewInt(0),
		SellFee:                   onePercent,
		SellReserveRatioThreshold: big.NewInt(0),
	}))

	prices := newStubPrices()
	prices.set(quoteAddr, big.NewInt(2e18))

	hub := newMockToken(hubAddr, 18)
	quote := newMockToken(quoteAddr, 6)
	tokens := newMockTokenSource(hub, quote)

	ledger := NewLedger(newMemStorage(), tokens, custodyAddr)
	engine := NewEngine(reg, prices, ledger, tokens)
	engine.SetTreasury(treasuryAddr)

	pool := newMockPool(tokens, custodyAddr)
	engine.SetCollateralPool(pool)

	return &engineFixture{
		engine:   engine,
		registry: reg,
		ledger:   ledger,
		hub:      hub,
		quote:    quote,
		prices:   prices,
		pool:     pool,
		tokens:   tokens,
	}
}

func amount18(t *testing.T, raw string) *big.Int {
	return bigFromString(t, raw)
}

func TestEstimateSellAmountIn(t *testing.T) {
	fix := newEngineFixture(t)

	// 100.0 asset units gross to 50 hub; 1% fee leaves 49.5.
	result, err := fix.engine.Estimate(quoteAddr, hubAddr, AmountIn, big.NewInt(100_000_000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100_000_000), result.AmountIn)
	require.Equal(t, amount18(t, "49500000000000000000"), result.AmountOut)
	require.Equal(t, amount18(t, "500000000000000000"), result.Fee)
	require.Equal(t, hubAddr, result.FeeToken)
	require.Equal(t, big.NewInt(2e18), result.Price)
}

func TestEstimateBuyAmountIn(t *testing.T) {
	fix := newEngineFixture(t)

	// 50 hub in: 0.5 fee, 49.5 net converts to 99.0 asset units.
	result, err := fix.engine.Estimate(hubAddr, quoteAddr, AmountIn, amount18(t, "50000000000000000000"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(99_000_000), result.AmountOut)
	require.Equal(t, amount18(t, "500000000000000000"), result.Fee)
}

func TestEstimateBuyAmountOut(t *testing.T) {
	fix := newEngineFixture(t)

	// Fixing 99.0 asset out requires exactly 50 hub in.
	result, err := fix.engine.Estimate(hubAddr, quoteAddr, AmountOut, big.NewInt(99_000_000))
	require.NoError(t, err)
	require.Equal(t, amount18(t, "50000000000000000000"), result.AmountIn)
	require.Equal(t, amount18(t, "500000000000000000"), result.Fee)
}

func TestEstimateSellAmountOut(t *testing.T) {
	fix := newEngineFixture(t)

	// Fixing 49.5 hub out grosses to 50 hub, which costs 100.0 asset units.
	result, err := fix.engine.Estimate(quoteAddr, hubAddr, AmountOut, amount18(t, "49500000000000000000"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100_000_000), result.AmountIn)
	require.Equal(t, amount18(t, "500000000000000000"), result.Fee)
}

func TestEstimateDoesNotTouchState(t *testing.T) {
	fix := newEngineFixture(t)
	_, err := fix.engine.Estimate(quoteAddr, hubAddr, AmountIn, big.NewInt(100_000_000))
	require.NoError(t, err)

	require.Equal(t, big.NewInt(0), fix.hub.TotalSupply())
	balance, err := fix.ledger.Balance(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), balance)
}

func TestSwapSellSettles(t *testing.T) {
	fix := newEngineFixture(t)
	require.NoError(t, fix.quote.Mint(aliceAddr, big.NewInt(100_000_000)))

	capture := &capturingEmitter{}
	fix.engine.SetEmitter(capture)

	result, err := fix.engine.Swap(aliceAddr, quoteAddr, hubAddr, AmountIn, big.NewInt(100_000_000))
	require.NoError(t, err)

	// Asset custody moved in and was recorded in the ledger.
	require.Equal(t, big.NewInt(0), fix.quote.BalanceOf(aliceAddr))
	require.Equal(t, big.NewInt(100_000_000), fix.quote.BalanceOf(custodyAddr))
	balance, err := fix.ledger.Balance(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100_000_000), balance)

	// Hub minted net to the account and fee to the treasury.
	require.Equal(t, amount18(t, "49500000000000000000"), fix.hub.BalanceOf(aliceAddr))
	require.Equal(t, amount18(t, "500000000000000000"), fix.hub.BalanceOf(treasuryAddr))
	require.Equal(t, amount18(t, "50000000000000000000"), fix.hub.TotalSupply())

	var executed *events.SwapExecuted
	var feeSent *events.SwapFeeSent
	for _, evt := range capture.events {
		switch e := evt.(type) {
		case events.SwapExecuted:
			executed = &e
		case events.SwapFeeSent:
			feeSent = &e
		}
	}
	require.NotNil(t, executed)
	require.Equal(t, result.AmountOut, executed.AmountOut)
	require.NotNil(t, feeSent)
	require.Equal(t, treasuryAddr, feeSent.Treasury)
}

func TestSwapBuySettles(t *testing.T) {
	fix := newEngineFixture(t)
	require.NoError(t, fix.hub.Mint(aliceAddr, amount18(t, "50000000000000000000")))
	require.NoError(t, fix.quote.Mint(custodyAddr, big.NewInt(200_000_000)))
	require.NoError(t, fix.ledger.SetBalance(quoteAddr, big.NewInt(200_000_000)))

	_, err := fix.engine.Swap(aliceAddr, hubAddr, quoteAddr, AmountIn, amount18(t, "50000000000000000000"))
	require.NoError(t, err)

	// Net hub burned, fee paid out in hub to the treasury.
	require.Equal(t, big.NewInt(0), fix.hub.BalanceOf(aliceAddr))
	require.Equal(t, amount18(t, "500000000000000000"), fix.hub.BalanceOf(treasuryAddr))
	require.Equal(t, amount18(t, "500000000000000000"), fix.hub.TotalSupply())

	// Asset paid out of exchange reserves.
	require.Equal(t, big.NewInt(99_000_000), fix.quote.BalanceOf(aliceAddr))
	balance, err := fix.ledger.Balance(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(101_000_000), balance)
}

func TestSwapHubForSatelliteAtMarketPrice(t *testing.T) {
	fix := newEngineFixture(t)
	satelliteAddr := testAddr(40)
	onePercent := big.NewInt(1e16)
	require.NoError(t, fix.registry.AddToken(adminAddr, satelliteAddr, registry.KindStable,
		big.NewInt(1e18), amount18(t, "100000000000000000000")))
	require.NoError(t, fix.registry.AddPair(adminAddr, &registry.PairConfig{
		AnchorToken:               hubAddr,
		QuoteToken:                satelliteAddr,
		BuyFee:                    onePercent,
		BuyReserveRatioThreshold:  big.NewInt(0),
		SellFee:                   onePercent,
		SellReserveRatioThreshold: big.NewInt(0),
	}))
	fix.prices.set(satelliteAddr, amount18(t, "79730000000000000000"))
	satellite := newMockToken(satelliteAddr, 18)
	fix.tokens.tokens[satelliteAddr] = satellite

	// Spending 1.5 hub at 79.73 satellite-per-hub: the 1% fee rounds up to
	// 0.015 hub and the remaining 1.485 hub converts to 118.39905 satellite.
	require.NoError(t, fix.hub.Mint(aliceAddr, amount18(t, "1500000000000000000")))
	result, err := fix.engine.Swap(aliceAddr, hubAddr, satelliteAddr, AmountIn, amount18(t, "1500000000000000000"))
	require.NoError(t, err)
	require.Equal(t, amount18(t, "118399050000000000000"), result.AmountOut)
	require.Equal(t, amount18(t, "15000000000000000"), result.Fee)
	require.Equal(t, hubAddr, result.FeeToken)

	// Net hub burned, fee kept in hub at the treasury, satellite issued.
	require.Equal(t, big.NewInt(0), fix.hub.BalanceOf(aliceAddr))
	require.Equal(t, amount18(t, "15000000000000000"), fix.hub.BalanceOf(treasuryAddr))
	require.Equal(t, amount18(t, "15000000000000000"), fix.hub.TotalSupply())
	require.Equal(t, amount18(t, "118399050000000000000"), satellite.BalanceOf(aliceAddr))
	require.Equal(t, amount18(t, "118399050000000000000"), satellite.TotalSupply())
}

func TestSwapBuyDrawsCollateralOnShortfall(t *testing.T) {
	fix := newEngineFixture(t)
	require.NoError(t, fix.hub.Mint(aliceAddr, amount18(t, "50000000000000000000")))
	require.NoError(t, fix.quote.Mint(custodyAddr, big.NewInt(50_000_000)))
	require.NoError(t, fix.ledger.SetBalance(quoteAddr, big.NewInt(50_000_000)))
	fix.pool.setCollateral(quoteAddr, big.NewInt(100_000_000))

	_, err := fix.engine.Swap(aliceAddr, hubAddr, quoteAddr, AmountIn, amount18(t, "50000000000000000000"))
	require.NoError(t, err)

	require.Equal(t, big.NewInt(99_000_000), fix.quote.BalanceOf(aliceAddr))
	balance, err := fix.ledger.Balance(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), balance)

	remaining, err := fix.pool.Collateral(quoteAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(51_000_000), remaining)
}

func TestSwapBuyFailsWithoutCollateral(t *testing.T) {
	fix := newEngineFixture(t)
	fix.engine.SetCollateralPool(nil)
	require.NoError(t, fix.hub.Mint(aliceAddr, amount18(t, "50000000000000000000")))

	_, err := fix.engine.Swap(aliceAddr, hubAddr, quoteAddr, AmountIn, amount18(t, "50000000000000000000"))
	require.ErrorIs(t, err, ErrPoolBalanceInsufficient)

	// The rejection leaves the account untouched.
	require.Equal(t, amount18(t, "50000000000000000000"), fix.hub.BalanceOf(aliceAddr))
	require.Equal(t, amount18(t, "50000000000000000000"), fix.hub.TotalSupply())
}

func TestSwapRejectsPriceOutOfTolerance(t *testing.T) {
	fix := newEngineFixture(t)
	fix.prices.set(quoteAddr, big.NewInt(4e18))

	_, err := fix.engine.Estimate(quoteAddr, hubAddr, AmountIn, big.NewInt(1_000_000))
	require.ErrorIs(t, err, ErrPriceOutOfTolerance)

	fix.prices.set(quoteAddr, big.NewInt(1))
	_, err = fix.engine.Estimate(quoteAddr, hubAddr, AmountIn, big.NewInt(1_000_000))
	require.ErrorIs(t, err, ErrPriceOutOfTolerance)
}

func TestSwapReserveRatioGate(t *testing.T) {
	fix := newEngineFixture(t)
	require.NoError(t, fix.registry.UpdatePair(adminAddr, &registry.PairConfig{
		AnchorToken:               hubAddr,
		QuoteToken:                quoteAddr,
		BuyFee:                    big.NewInt(0),
		BuyReserveRatioThreshold:  big.NewInt(0),
		SellFee:                   big.NewInt(0),
		SellReserveRatioThreshold: new(big.Int).Mul(big.NewInt(2), registry.RatioBase),
	}))
	require.NoError(t, fix.quote.Mint(aliceAddr, big.NewInt(1_000_000)))

	// Empty system: both backing and liabilities are zero, the ratio is
	// undefined and a nonzero threshold refuses the swap.
	_, err := fix.engine.Swap(aliceAddr, quoteAddr, hubAddr, AmountIn, big.NewInt(1_000_000))
	require.ErrorIs(t, err, ErrReserveRatioTooLow)

	// Backing with zero liabilities reads as infinite and passes any gate.
	require.NoError(t, fix.quote.Mint(custodyAddr, big.NewInt(10_000_000)))
	require.NoError(t, fix.ledger.SetBalance(quoteAddr, big.NewInt(10_000_000)))
	_, err = fix.engine.Swap(aliceAddr, quoteAddr, hubAddr, AmountIn, big.NewInt(1_000_000))
	require.NoError(t, err)
}

func TestSwapReentrancyGuard(t *testing.T) {
	fix := newEngineFixture(t)
	fix.engine.entry.Lock()
	defer fix.engine.entry.Unlock()

	_, err := fix.engine.Swap(aliceAddr, quoteAddr, hubAddr, AmountIn, big.NewInt(1))
	require.ErrorIs(t, err, ErrReentrantCall)
}

func TestSwapWhilePaused(t *testing.T) {
	fix := newEngineFixture(t)
	fix.engine.SetPauses(pausedModules{"exchange": true})

	_, err := fix.engine.Swap(aliceAddr, quoteAddr, hubAddr, AmountIn, big.NewInt(1))
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
}

func TestSwapInputValidation(t *testing.T) {
	fix := newEngineFixture(t)

	_, err := fix.engine.Swap([20]byte{}, quoteAddr, hubAddr, AmountIn, big.NewInt(1))
	require.ErrorIs(t, err, ErrZeroAddress)

	_, err = fix.engine.Swap(aliceAddr, quoteAddr, hubAddr, AmountIn, big.NewInt(0))
	require.ErrorIs(t, err, ErrZeroAmount)

	_, err = fix.engine.Swap(aliceAddr, quoteAddr, testAddr(99), AmountIn, big.NewInt(1))
	require.ErrorIs(t, err, registry.ErrPairNotFound)
}

func TestSwapFeeRequiresTreasury(t *testing.T) {
	fix := newEngineFixture(t)
	fix.engine.SetTreasury([20]byte{})
	require.NoError(t, fix.quote.Mint(aliceAddr, big.NewInt(100_000_000)))

	_, err := fix.engine.Swap(aliceAddr, quoteAddr, hubAddr, AmountIn, big.NewInt(100_000_000))
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestSwapTinyAmountYieldsZeroResult(t *testing.T) {
	fix := newEngineFixture(t)

	// One base unit of the asset converts to a nonzero hub dust amount, but
	// one base unit of hub converts to zero asset units and is rejected.
	_, err := fix.engine.Estimate(hubAddr, quoteAddr, AmountIn, big.NewInt(100))
	require.ErrorIs(t, err, ErrSwapResultZero)
}

func TestQuoteTokenResolution(t *testing.T) {
	fix := newEngineFixture(t)

	quote, err := fix.engine.QuoteToken(hubAddr, quoteAddr)
	require.NoError(t, err)
	require.Equal(t, quoteAddr, quote)

	quote, err = fix.engine.QuoteToken(quoteAddr, hubAddr)
	require.NoError(t, err)
	require.Equal(t, quoteAddr, quote)

	_, err = fix.engine.QuoteToken(hubAddr, hubAddr)
	require.ErrorIs(t, err, registry.ErrPairSelfReferential)

	_, err = fix.engine.QuoteToken(hubAddr, testAddr(99))
	require.ErrorIs(t, err, registry.ErrTokenNotFound)
}
