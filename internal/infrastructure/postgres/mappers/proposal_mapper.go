package mappers

import (
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
)

func ToDomainProposal(model *models.ProposalModel) *domain.Proposal {
	return &domain.Proposal{
		ID:             model.ID,
		ProposerID:     model.ProposerID,
		ReceiverID:     model.ReceiverID,
		OfferedCards:   []domain.CardRef(model.OfferedCards),
		RequestedCards: []domain.CardRef(model.RequestedCards),
		MeetingPlace:   model.MeetingPlace,
		MeetingDate:    model.MeetingDate,
		Status:         domain.ProposalStatus(model.Status),
		LastUpdated:    model.LastUpdated,
	}
}

func ToGORMProposal(p *domain.Proposal) *models.ProposalModel {
	return &models.ProposalModel{
		ID:             p.ID,
		ProposerID:     p.ProposerID,
		ReceiverID:     p.ReceiverID,
		OfferedCards:   models.CardList(p.OfferedCards),
		RequestedCards: models.CardList(p.RequestedCards),
		MeetingPlace:   p.MeetingPlace,
		MeetingDate:    p.MeetingDate,
		Status:         string(p.Status),
		LastUpdated:    p.LastUpdated,
	}
}

func ToGORMTradeEvent(e domain.TradeEvent) *models.TradeEventModel {
	return &models.TradeEventModel{
		ID:         e.ID,
		Type:       string(e.Type),
		TradeID:    e.TradeID,
		ProposalID: e.ProposalID,
		Status:     e.Status,
		Actor:      e.Actor,
		ProposerID: e.ProposerID,
		ReceiverID: e.ReceiverID,
		OccurredAt: e.OccurredAt,
	}
}
