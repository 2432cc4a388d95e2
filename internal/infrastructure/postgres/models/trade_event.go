package models

import "time"

// TradeEventModel is an append-only audit row for every published settlement event.
type TradeEventModel struct {
	ID         string `gorm:"primaryKey"`
	Type       string `gorm:"index"`
	TradeID    int64  `gorm:"index"`
	ProposalID string `gorm:"index"`
	Status     string
	Actor      string
	ProposerID string
	ReceiverID string
	OccurredAt time.Time
}

func (TradeEventModel) TableName() string {
	return "trade_events"
}
