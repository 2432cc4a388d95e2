package response

import (
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/exchange"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type SessionCodeResponse struct {
	TradeID     int64 `json:"trade_id"`
	SessionCode int   `json:"session_code"`
}

type StatusResponse struct {
	TradeID int64  `json:"trade_id"`
	Status  string `json:"status"`
}

type ProposalResponse struct {
	ID             string           `json:"id"`
	ProposerID     string           `json:"proposer_id"`
	ReceiverID     string           `json:"receiver_id"`
	OfferedCards   []domain.CardRef `json:"offered_cards"`
	RequestedCards []domain.CardRef `json:"requested_cards"`
	MeetingPlace   string           `json:"meeting_place"`
	MeetingDate    string           `json:"meeting_date"`
	Status         string           `json:"status"`
	LastUpdated    time.Time        `json:"last_updated"`
}

// TradeResponse carries no session codes. Each party sees only their own code on confirmation.
type TradeResponse struct {
	ID                   int64            `json:"id"`
	ProposalID           string           `json:"proposal_id"`
	Status               string           `json:"status"`
	ProposerID           string           `json:"proposer_id"`
	ReceiverID           string           `json:"receiver_id"`
	StoreID              string           `json:"store_id"`
	CreationDate         time.Time        `json:"creation_date"`
	TradeDate            string           `json:"trade_date"`
	OfferedCards         []domain.CardRef `json:"offered_cards"`
	RequestedCards       []domain.CardRef `json:"requested_cards"`
	ProposerArrived      bool             `json:"proposer_arrived"`
	ReceiverArrived      bool             `json:"receiver_arrived"`
	ProposerInspectionOK *bool            `json:"proposer_inspection_ok"`
	ReceiverInspectionOK *bool            `json:"receiver_inspection_ok"`
	UpdatedAt            time.Time        `json:"updated_at"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty"`
}

type CompletionResponse struct {
	TradeID        int64               `json:"trade_id"`
	Status         string              `json:"status"`
	Added          []exchange.Movement `json:"added"`
	Removed        []exchange.Movement `json:"removed"`
	CreatedBinders int                 `json:"created_binders"`
	Skipped        []string            `json:"skipped,omitempty"`
}

func FromProposal(p *domain.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:             p.ID,
		ProposerID:     p.ProposerID,
		ReceiverID:     p.ReceiverID,
		OfferedCards:   p.OfferedCards,
		RequestedCards: p.RequestedCards,
		MeetingPlace:   p.MeetingPlace,
		MeetingDate:    p.MeetingDate,
		Status:         string(p.Status),
		LastUpdated:    p.LastUpdated,
	}
}

func FromTrade(t *domain.Trade) TradeResponse {
	return TradeResponse{
		ID:                   t.ID,
		ProposalID:           t.ProposalID,
		Status:               string(t.Status),
		ProposerID:           t.ProposerID,
		ReceiverID:           t.ReceiverID,
		StoreID:              t.StoreID,
		CreationDate:         t.CreationDate,
		TradeDate:            t.TradeDate,
		OfferedCards:         t.OfferedCards,
		RequestedCards:       t.RequestedCards,
		ProposerArrived:      t.ProposerArrived,
		ReceiverArrived:      t.ReceiverArrived,
		ProposerInspectionOK: t.ProposerInspectionOK,
		ReceiverInspectionOK: t.ReceiverInspectionOK,
		UpdatedAt:            t.UpdatedAt,
		CompletedAt:          t.CompletedAt,
	}
}

func FromTrades(trades []*domain.Trade) []TradeResponse {
	out := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, FromTrade(t))
	}
	return out
}

func FromReport(r *exchange.Report) CompletionResponse {
	resp := CompletionResponse{
		TradeID:        r.TradeID,
		Status:         string(domain.TradeCompleted),
		Added:          r.Added,
		Removed:        r.Removed,
		CreatedBinders: r.CreatedBinders,
	}
	if r.Skipped != nil {
		for _, err := range r.Skipped.Errors {
			resp.Skipped = append(resp.Skipped, err.Error())
		}
	}
	return resp
}
