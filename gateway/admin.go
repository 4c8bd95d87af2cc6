package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"hubfx/native/gov"
	"hubfx/native/registry"
)

// Administrative mutations never apply immediately: each handler schedules the
// change on the timelock and returns the operation, which becomes executable
// through /v1/admin/operations/execute once the delay has elapsed. The
// scheduling caller must be the timelock admin and is also the caller the
// registry sees when the operation finally runs.

type adminTokenRequest struct {
	Caller   string `json:"caller"`
	Action   string `json:"action"`
	Address  string `json:"address"`
	Kind     string `json:"kind"`
	MinPrice string `json:"min_price"`
	MaxPrice string `json:"max_price"`
}

type adminHubTokenRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type adminPairRequest struct {
	Caller                    string `json:"caller"`
	Action                    string `json:"action"`
	Anchor                    string `json:"anchor"`
	Quote                     string `json:"quote"`
	BuyFee                    string `json:"buy_fee"`
	BuyReserveRatioThreshold  string `json:"buy_reserve_ratio_threshold"`
	SellFee                   string `json:"sell_fee"`
	SellReserveRatioThreshold string `json:"sell_reserve_ratio_threshold"`
}

type operationRequest struct {
	Caller string `json:"caller"`
	ID     string `json:"id"`
}

type operationResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	State       string `json:"state"`
	ReadyAt     string `json:"ready_at"`
}

func (s *Server) handleAdminTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req adminTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		http.Error(w, "invalid caller address", http.StatusBadRequest)
		return
	}
	tokenAddr, ok := parseAddress(req.Address)
	if !ok {
		http.Error(w, "invalid token address", http.StatusBadRequest)
		return
	}

	var description string
	var action func() error
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "", "add":
		kind, err := parseKind(req.Kind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		minPrice, ok := parseAmount(req.MinPrice)
		if !ok {
			http.Error(w, "invalid min_price", http.StatusBadRequest)
			return
		}
		maxPrice, ok := parseAmount(req.MaxPrice)
		if !ok {
			http.Error(w, "invalid max_price", http.StatusBadRequest)
			return
		}
		description = fmt.Sprintf("add token %s", hexAddress(tokenAddr))
		action = func() error {
			return s.reg.AddToken(caller, tokenAddr, kind, minPrice, maxPrice)
		}
	case "remove":
		description = fmt.Sprintf("remove token %s", hexAddress(tokenAddr))
		action = func() error {
			return s.reg.RemoveToken(caller, tokenAddr)
		}
	default:
		http.Error(w, "action must be add or remove", http.StatusBadRequest)
		return
	}
	s.schedule(w, r, caller, description, action)
}

func (s *Server) handleAdminHubToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req adminHubTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		http.Error(w, "invalid caller address", http.StatusBadRequest)
		return
	}
	tokenAddr, ok := parseAddress(req.Address)
	if !ok {
		http.Error(w, "invalid token address", http.StatusBadRequest)
		return
	}
	description := fmt.Sprintf("set hub token %s", hexAddress(tokenAddr))
	s.schedule(w, r, caller, description, func() error {
		return s.reg.SetHubToken(caller, tokenAddr)
	})
}

func (s *Server) handleAdminPairs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req adminPairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		http.Error(w, "invalid caller address", http.StatusBadRequest)
		return
	}
	anchor, ok := parseAddress(req.Anchor)
	if !ok {
		http.Error(w, "invalid anchor address", http.StatusBadRequest)
		return
	}
	quote, ok := parseAddress(req.Quote)
	if !ok {
		http.Error(w, "invalid quote address", http.StatusBadRequest)
		return
	}

	verb := strings.ToLower(strings.TrimSpace(req.Action))
	if verb == "remove" {
		description := fmt.Sprintf("remove pair %s/%s", hexAddress(anchor), hexAddress(quote))
		s.schedule(w, r, caller, description, func() error {
			return s.reg.RemovePair(caller, anchor, quote)
		})
		return
	}

	buyFee, ok := parseAmount(req.BuyFee)
	if !ok {
		http.Error(w, "invalid buy_fee", http.StatusBadRequest)
		return
	}
	buyThreshold, ok := parseAmount(req.BuyReserveRatioThreshold)
	if !ok {
		http.Error(w, "invalid buy_reserve_ratio_threshold", http.StatusBadRequest)
		return
	}
	sellFee, ok := parseAmount(req.SellFee)
	if !ok {
		http.Error(w, "invalid sell_fee", http.StatusBadRequest)
		return
	}
	sellThreshold, ok := parseAmount(req.SellReserveRatioThreshold)
	if !ok {
		http.Error(w, "invalid sell_reserve_ratio_threshold", http.StatusBadRequest)
		return
	}
	cfg := &registry.PairConfig{
		AnchorToken:               anchor,
		QuoteToken:                quote,
		BuyFee:                    buyFee,
		BuyReserveRatioThreshold:  buyThreshold,
		SellFee:                   sellFee,
		SellReserveRatioThreshold: sellThreshold,
	}

	var description string
	var action func() error
	switch verb {
	case "", "add":
		description = fmt.Sprintf("add pair %s/%s", hexAddress(anchor), hexAddress(quote))
		action = func() error { return s.reg.AddPair(caller, cfg) }
	case "update":
		description = fmt.Sprintf("update pair %s/%s", hexAddress(anchor), hexAddress(quote))
		action = func() error { return s.reg.UpdatePair(caller, cfg) }
	default:
		http.Error(w, "action must be add, update or remove", http.StatusBadRequest)
		return
	}
	s.schedule(w, r, caller, description, action)
}

// schedule queues the action on the timelock and answers with the pending
// operation snapshot.
func (s *Server) schedule(w http.ResponseWriter, r *http.Request, caller [20]byte, description string, action func() error) {
	id, err := s.timelock.Schedule(caller, description, action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	op, err := s.timelock.Operation(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("operation scheduled", "id", id.String(), "description", description)
	writeJSON(w, http.StatusAccepted, renderOperation(op))
}

func (s *Server) handleAdminOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "invalid operation id", http.StatusBadRequest)
		return
	}
	op, err := s.timelock.Operation(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOperation(op))
}

func (s *Server) handleAdminExecute(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := s.decodeOperationRequest(w, r)
	if !ok {
		return
	}
	if err := s.timelock.Execute(caller, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	op, err := s.timelock.Operation(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("operation executed", "id", id.String(), "description", op.Description)
	writeJSON(w, http.StatusOK, renderOperation(op))
}

func (s *Server) handleAdminCancel(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := s.decodeOperationRequest(w, r)
	if !ok {
		return
	}
	if err := s.timelock.Cancel(caller, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	op, err := s.timelock.Operation(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOperation(op))
}

func (s *Server) decodeOperationRequest(w http.ResponseWriter, r *http.Request) ([20]byte, uuid.UUID, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return [20]byte{}, uuid.Nil, false
	}
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return [20]byte{}, uuid.Nil, false
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		http.Error(w, "invalid caller address", http.StatusBadRequest)
		return [20]byte{}, uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		http.Error(w, "invalid operation id", http.StatusBadRequest)
		return [20]byte{}, uuid.Nil, false
	}
	return caller, id, true
}

func renderOperation(op gov.Operation) operationResponse {
	return operationResponse{
		ID:          op.ID.String(),
		Description: op.Description,
		State:       op.State.String(),
		ReadyAt:     op.ReadyAt.UTC().Format(time.RFC3339),
	}
}
