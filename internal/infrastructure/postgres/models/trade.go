package models

import "time"

type TradeModel struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement"`
	ProposalID           string    `gorm:"type:uuid;uniqueIndex"`
	Status               string    `gorm:"index:idx_trades_status_updated"`
	ProposerID           string    `gorm:"index:idx_trades_participants"`
	ReceiverID           string    `gorm:"index:idx_trades_participants;index:idx_trades_receiver"`
	StoreID              string
	CreationDate         time.Time
	TradeDate            string
	OfferedCards         CardList `gorm:"type:jsonb;not null"`
	RequestedCards       CardList `gorm:"type:jsonb;not null"`
	ProposerArrived      bool
	ReceiverArrived      bool
	ProposerSessionCode  int
	ReceiverSessionCode  int
	ProposerInspectionOK *bool
	ReceiverInspectionOK *bool
	UpdatedAt            time.Time `gorm:"index:idx_trades_status_updated;autoUpdateTime:false"`
	CompletedAt          *time.Time
}

func (TradeModel) TableName() string {
	return "trades"
}
