package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	nativecommon "hubfx/native/common"
	"hubfx/native/exchange"
	"hubfx/native/gov"
	"hubfx/native/oracle"
	"hubfx/native/registry"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress string
}

// defaultWindowLimit caps the implicit page size of the listing endpoints.
const defaultWindowLimit = 50

// Server hosts the public swap, registry and oracle endpoints plus the
// timelocked administrative surface.
type Server struct {
	cfg      Config
	engine   *exchange.Engine
	reg      *registry.Registry
	ledger   *exchange.Ledger
	prices   *oracle.Store
	timelock *gov.Timelock
	logger   *slog.Logger
}

// New constructs a new HTTP server over the wired modules.
func New(cfg Config, engine *exchange.Engine, reg *registry.Registry, ledger *exchange.Ledger, prices *oracle.Store, timelock *gov.Timelock, logger *slog.Logger) (*Server, error) {
	if engine == nil || reg == nil || ledger == nil || prices == nil || timelock == nil {
		return nil, fmt.Errorf("gateway: all module handles are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, engine: engine, reg: reg, ledger: ledger, prices: prices, timelock: timelock, logger: logger}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/swap", s.handleSwap)
	mux.HandleFunc("/v1/estimate", s.handleEstimate)
	mux.HandleFunc("/v1/reserve-ratio", s.handleReserveRatio)
	mux.HandleFunc("/v1/tokens", s.handleTokens)
	mux.HandleFunc("/v1/pairs", s.handlePairs)
	mux.HandleFunc("/v1/balance", s.handleBalance)
	mux.HandleFunc("/v1/oracle/price", s.handlePrice)
	mux.HandleFunc("/v1/admin/tokens", s.handleAdminTokens)
	mux.HandleFunc("/v1/admin/hub-token", s.handleAdminHubToken)
	mux.HandleFunc("/v1/admin/pairs", s.handleAdminPairs)
	mux.HandleFunc("/v1/admin/operations", s.handleAdminOperations)
	mux.HandleFunc("/v1/admin/operations/execute", s.handleAdminExecute)
	mux.HandleFunc("/v1/admin/operations/cancel", s.handleAdminCancel)
	return mux
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.ListenAddress, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", "address", s.cfg.ListenAddress)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type swapRequest struct {
	Account    string `json:"account"`
	TokenIn    string `json:"token_in"`
	TokenOut   string `json:"token_out"`
	AmountType string `json:"amount_type"`
	Amount     string `json:"amount"`
}

type swapResponse struct {
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	FeeToken  string `json:"fee_token"`
	Fee       string `json:"fee"`
	Price     string `json:"price"`
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	account, ok := parseAddress(req.Account)
	if !ok {
		http.Error(w, "invalid account address", http.StatusBadRequest)
		return
	}
	tokenIn, tokenOut, amountType, amount, err := parseSwapParams(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := s.engine.Swap(account, tokenIn, tokenOut, amountType, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, swapResult(result))
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	tokenIn, tokenOut, amountType, amount, err := parseSwapParams(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := s.engine.Estimate(tokenIn, tokenOut, amountType, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, swapResult(result))
}

func (s *Server) handleReserveRatio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ratio, err := s.engine.ReserveRatio()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := map[string]string{
		"kind":        ratio.Kind.String(),
		"reserves":    ratio.Reserves.String(),
		"collaterals": ratio.Collaterals.String(),
		"liabilities": ratio.Liabilities.String(),
	}
	if ratio.Kind == exchange.RatioFinite {
		resp["value"] = ratio.Value.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, count, err := parseWindow(r, uint64(s.reg.TokenCount(kind)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tokens, err := s.reg.TokensByKind(kind, offset, count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]map[string]string, 0, len(tokens))
	for _, addr := range tokens {
		entry := map[string]string{"address": hexAddress(addr)}
		if info, ok := s.reg.Token(addr); ok {
			entry["kind"] = info.Kind.String()
			entry["min_price"] = info.MinPrice.String()
			entry["max_price"] = info.MaxPrice.String()
		}
		items = append(items, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":  s.reg.TokenCount(kind),
		"tokens": items,
	})
}

func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	offset, count, err := parseWindow(r, uint64(s.reg.PairCount()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pairs, err := s.reg.Pairs(offset, count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]map[string]string, 0, len(pairs))
	for _, cfg := range pairs {
		items = append(items, map[string]string{
			"anchor":                       hexAddress(cfg.AnchorToken),
			"quote":                        hexAddress(cfg.QuoteToken),
			"buy_fee":                      cfg.BuyFee.String(),
			"buy_reserve_ratio_threshold":  cfg.BuyReserveRatioThreshold.String(),
			"sell_fee":                     cfg.SellFee.String(),
			"sell_reserve_ratio_threshold": cfg.SellReserveRatioThreshold.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total": s.reg.PairCount(),
		"pairs": items,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token, ok := parseAddress(r.URL.Query().Get("token"))
	if !ok {
		http.Error(w, "invalid token address", http.StatusBadRequest)
		return
	}
	record, err := s.ledger.Record(token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":     hexAddress(record.Token),
		"balance":   record.Balance.String(),
		"portfolio": record.Portfolio.String(),
	})
}

type priceRequest struct {
	Feeder    string `json:"feeder"`
	Token     string `json:"token"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getPrice(w, r)
	case http.MethodPost:
		s.putPrice(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getPrice(w http.ResponseWriter, r *http.Request) {
	token, ok := parseAddress(r.URL.Query().Get("token"))
	if !ok {
		http.Error(w, "invalid token address", http.StatusBadRequest)
		return
	}
	point, err := s.prices.Price(token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := map[string]any{
		"token":     hexAddress(token),
		"price":     point.Price.String(),
		"timestamp": point.Timestamp,
	}
	if point.PrevPrice != nil {
		resp["prev_price"] = point.PrevPrice.String()
		resp["prev_timestamp"] = point.PrevTimestamp
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) putPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	feeder, ok := parseAddress(req.Feeder)
	if !ok {
		http.Error(w, "invalid feeder address", http.StatusBadRequest)
		return
	}
	token, ok := parseAddress(req.Token)
	if !ok {
		http.Error(w, "invalid token address", http.StatusBadRequest)
		return
	}
	price, ok := parseAmount(req.Price)
	if !ok {
		http.Error(w, "invalid price", http.StatusBadRequest)
		return
	}
	if err := s.prices.PutPrice(feeder, token, price, req.Timestamp); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps module sentinel errors onto HTTP statuses. Unknown errors
// are logged and reported as opaque 500s.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var roleErr *nativecommon.RoleError
	switch {
	case errors.Is(err, registry.ErrTokenNotFound),
		errors.Is(err, registry.ErrPairNotFound),
		errors.Is(err, oracle.ErrPriceNotFound),
		errors.Is(err, gov.ErrOperationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, nativecommon.ErrModulePaused):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, exchange.ErrReentrantCall),
		errors.Is(err, gov.ErrOperationPending),
		errors.Is(err, gov.ErrOperationDone):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &roleErr), errors.Is(err, gov.ErrNotAdmin):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, exchange.ErrPriceOutOfTolerance),
		errors.Is(err, exchange.ErrReserveRatioTooLow),
		errors.Is(err, oracle.ErrStaleTimestamp):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case isValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func isValidationError(err error) bool {
	for _, candidate := range []error{
		exchange.ErrZeroAmount,
		exchange.ErrZeroAddress,
		exchange.ErrAmountNegative,
		exchange.ErrAmountOverflow,
		exchange.ErrSwapResultZero,
		exchange.ErrPriceToleranceUnset,
		exchange.ErrInsufficientBalance,
		exchange.ErrAvailableInsufficient,
		registry.ErrPaginationOutOfBounds,
		registry.ErrPairSelfReferential,
		registry.ErrPairMissingHub,
		registry.ErrHubTokenUnset,
		registry.ErrInvalidTokenKind,
		registry.ErrTokenExists,
		registry.ErrInvalidPriceRange,
		registry.ErrTokenHasPairs,
		registry.ErrPairExists,
		registry.ErrInvalidFeeFraction,
		registry.ErrInvalidRatioThreshold,
		oracle.ErrZeroAddress,
		oracle.ErrPriceInvalid,
		oracle.ErrFutureTimestamp,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func parseSwapParams(req swapRequest) (tokenIn, tokenOut [20]byte, amountType exchange.AmountType, amount *big.Int, err error) {
	tokenIn, ok := parseAddress(req.TokenIn)
	if !ok {
		return tokenIn, tokenOut, amountType, nil, fmt.Errorf("invalid token_in address")
	}
	tokenOut, ok = parseAddress(req.TokenOut)
	if !ok {
		return tokenIn, tokenOut, amountType, nil, fmt.Errorf("invalid token_out address")
	}
	switch strings.ToLower(strings.TrimSpace(req.AmountType)) {
	case "", "in":
		amountType = exchange.AmountIn
	case "out":
		amountType = exchange.AmountOut
	default:
		return tokenIn, tokenOut, amountType, nil, fmt.Errorf("amount_type must be in or out")
	}
	amount, ok = parseAmount(req.Amount)
	if !ok {
		return tokenIn, tokenOut, amountType, nil, fmt.Errorf("invalid amount")
	}
	return tokenIn, tokenOut, amountType, amount, nil
}

// parseWindow reads the pagination window. When count is omitted it defaults
// to the remainder of the collection, capped at defaultWindowLimit, so a bare
// listing request never exceeds the strict window bounds.
func parseWindow(r *http.Request, size uint64) (uint64, uint64, error) {
	query := r.URL.Query()
	offset, err := parseUint(query.Get("offset"), 0)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid offset")
	}
	fallback := uint64(0)
	if offset < size {
		fallback = size - offset
	}
	if fallback > defaultWindowLimit {
		fallback = defaultWindowLimit
	}
	count, err := parseUint(query.Get("count"), fallback)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid count")
	}
	return offset, count, nil
}

func parseUint(raw string, fallback uint64) (uint64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func parseKind(raw string) (registry.TokenKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "asset":
		return registry.KindAsset, nil
	case "stable":
		return registry.KindStable, nil
	default:
		return registry.KindUndefined, fmt.Errorf("kind must be asset or stable")
	}
}

func parseAddress(raw string) ([20]byte, bool) {
	if !ethcommon.IsHexAddress(raw) {
		return [20]byte{}, false
	}
	return ethcommon.HexToAddress(raw), true
}

func parseAmount(raw string) (*big.Int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, false
	}
	return value, true
}

func hexAddress(addr [20]byte) string {
	return ethcommon.Address(addr).Hex()
}

func swapResult(result *exchange.SwapResult) swapResponse {
	return swapResponse{
		TokenIn:   hexAddress(result.TokenIn),
		TokenOut:  hexAddress(result.TokenOut),
		AmountIn:  result.AmountIn.String(),
		AmountOut: result.AmountOut.String(),
		FeeToken:  hexAddress(result.FeeToken),
		Fee:       result.Fee.String(),
		Price:     result.Price.String(),
	}
}
