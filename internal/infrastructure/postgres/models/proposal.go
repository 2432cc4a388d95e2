package models

import "time"

type ProposalModel struct {
	ID             string   `gorm:"primaryKey;type:uuid"`
	ProposerID     string   `gorm:"index:idx_proposals_proposer_status"`
	ReceiverID     string   `gorm:"index:idx_proposals_receiver"`
	OfferedCards   CardList `gorm:"type:jsonb;not null"`
	RequestedCards CardList `gorm:"type:jsonb;not null"`
	MeetingPlace   string
	MeetingDate    string
	Status         string    `gorm:"index:idx_proposals_proposer_status;index:idx_proposals_status_updated"`
	LastUpdated    time.Time `gorm:"index:idx_proposals_status_updated"`
}

func (ProposalModel) TableName() string {
	return "proposals"
}
