package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/LavaJover/shvark-settlement-service/internal/delivery/http/dto/request"
	"github.com/LavaJover/shvark-settlement-service/internal/delivery/http/dto/response"
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type SettlementHandler struct {
	proposals  usecase.ProposalUsecase
	settlement usecase.SettlementUsecase
	logger     *zap.Logger
}

func NewSettlementHandler(
	proposals usecase.ProposalUsecase,
	settlement usecase.SettlementUsecase,
	logger *zap.Logger,
) *SettlementHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementHandler{
		proposals:  proposals,
		settlement: settlement,
		logger:     logger,
	}
}

func (h *SettlementHandler) ListPendingProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.proposals.ListPending(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]response.ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, response.FromProposal(p))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *SettlementHandler) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	trade, err := h.proposals.Accept(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/trades/%d", trade.ID))
	respondJSON(w, http.StatusCreated, response.FromTrade(trade))
}

func (h *SettlementHandler) DeclineProposal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.proposals.Decline(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SettlementHandler) ConfirmPresence(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFrom(w, r)
	if !ok {
		return
	}
	var req request.ConfirmPresenceRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	code, err := h.settlement.ConfirmPresence(r.Context(), tradeID, req.Username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response.SessionCodeResponse{TradeID: tradeID, SessionCode: code})
}

func (h *SettlementHandler) VerifySessionCode(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFrom(w, r)
	if !ok {
		return
	}
	var req request.VerifySessionCodeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.settlement.VerifySessionCode(r.Context(), tradeID, req.ProposerCode, req.ReceiverCode); err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response.StatusResponse{TradeID: tradeID, Status: string(domain.TradeInspectionPhase)})
}

func (h *SettlementHandler) RecordInspection(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFrom(w, r)
	if !ok {
		return
	}
	var req request.InspectionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Passed == nil {
		respondError(w, http.StatusBadRequest, "username and passed are required")
		return
	}

	trade, err := h.settlement.RecordInspectionResult(r.Context(), tradeID, req.Username, *req.Passed)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response.FromTrade(trade))
}

func (h *SettlementHandler) CompleteTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFrom(w, r)
	if !ok {
		return
	}
	report, err := h.settlement.CompleteTrade(r.Context(), tradeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response.FromReport(report))
}

func (h *SettlementHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFrom(w, r)
	if !ok {
		return
	}
	trade, err := h.settlement.RefreshTradeStatus(r.Context(), tradeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response.FromTrade(trade))
}

// ListUserTrades serves ?view=scheduled (default) and ?view=concluded.
func (h *SettlementHandler) ListUserTrades(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var trades []*domain.Trade
	var err error
	switch view := r.URL.Query().Get("view"); view {
	case "", "scheduled":
		trades, err = h.settlement.ListScheduledTrades(r.Context(), username)
	case "concluded":
		trades, err = h.settlement.ListCompletedTrades(r.Context(), username)
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown view %q", view))
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response.FromTrades(trades))
}

func (h *SettlementHandler) ListTradesBetween(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	proposer, receiver := q.Get("proposer"), q.Get("receiver")
	if proposer == "" || receiver == "" {
		respondError(w, http.StatusBadRequest, "proposer and receiver are required")
		return
	}
	trades, err := h.settlement.ListTradesBetween(r.Context(), proposer, receiver)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response.FromTrades(trades))
}

func (h *SettlementHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	respondError(w, code, err.Error())
}

func tradeIDFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "trade id must be a positive integer")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
