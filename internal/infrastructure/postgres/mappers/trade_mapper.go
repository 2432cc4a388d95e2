package mappers

import (
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
)

func ToDomainTrade(model *models.TradeModel) *domain.Trade {
	return &domain.Trade{
		ID:                   model.ID,
		ProposalID:           model.ProposalID,
		Status:               domain.TradeStatus(model.Status),
		ProposerID:           model.ProposerID,
		ReceiverID:           model.ReceiverID,
		StoreID:              model.StoreID,
		CreationDate:         model.CreationDate,
		TradeDate:            model.TradeDate,
		OfferedCards:         []domain.CardRef(model.OfferedCards),
		RequestedCards:       []domain.CardRef(model.RequestedCards),
		ProposerArrived:      model.ProposerArrived,
		ReceiverArrived:      model.ReceiverArrived,
		ProposerSessionCode:  model.ProposerSessionCode,
		ReceiverSessionCode:  model.ReceiverSessionCode,
		ProposerInspectionOK: model.ProposerInspectionOK,
		ReceiverInspectionOK: model.ReceiverInspectionOK,
		UpdatedAt:            model.UpdatedAt,
		CompletedAt:          model.CompletedAt,
	}
}

func ToGORMTrade(trade *domain.Trade) *models.TradeModel {
	return &models.TradeModel{
		ID:                   trade.ID,
		ProposalID:           trade.ProposalID,
		Status:               string(trade.Status),
		ProposerID:           trade.ProposerID,
		ReceiverID:           trade.ReceiverID,
		StoreID:              trade.StoreID,
		CreationDate:         trade.CreationDate,
		TradeDate:            trade.TradeDate,
		OfferedCards:         models.CardList(trade.OfferedCards),
		RequestedCards:       models.CardList(trade.RequestedCards),
		ProposerArrived:      trade.ProposerArrived,
		ReceiverArrived:      trade.ReceiverArrived,
		ProposerSessionCode:  trade.ProposerSessionCode,
		ReceiverSessionCode:  trade.ReceiverSessionCode,
		ProposerInspectionOK: trade.ProposerInspectionOK,
		ReceiverInspectionOK: trade.ReceiverInspectionOK,
		UpdatedAt:            trade.UpdatedAt,
		CompletedAt:          trade.CompletedAt,
	}
}
