package domain

import (
	"context"
	"time"
)

type TradeEventType string

const (
	EventTradeCreated        TradeEventType = "trade.created"
	EventPresenceConfirmed   TradeEventType = "trade.presence_confirmed"
	EventSessionCodeVerified TradeEventType = "trade.session_verified"
	EventInspectionRecorded  TradeEventType = "trade.inspection_recorded"
	EventTradeCompleted      TradeEventType = "trade.completed"
	EventTradeCancelled      TradeEventType = "trade.cancelled"
	EventProposalDeclined    TradeEventType = "proposal.declined"
	EventProposalExpired     TradeEventType = "proposal.expired"
)

type TradeEvent struct {
	ID         string         `json:"id"`
	Type       TradeEventType `json:"type"`
	TradeID    int64          `json:"trade_id,omitempty"`
	ProposalID string         `json:"proposal_id,omitempty"`
	Status     string         `json:"status"`
	Actor      string         `json:"actor,omitempty"`
	ProposerID string         `json:"proposer_id"`
	ReceiverID string         `json:"receiver_id"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type EventPublisher interface {
	PublishTradeEvent(ctx context.Context, event TradeEvent) error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishTradeEvent(context.Context, TradeEvent) error { return nil }
