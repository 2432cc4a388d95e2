package mappers

import (
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
)

func ToDomainBinder(model *models.BinderModel) *domain.Binder {
	cards := make([]domain.BinderCard, 0, len(model.Cards))
	for _, c := range model.Cards {
		cards = append(cards, domain.BinderCard{
			CardID:   c.CardID,
			Quantity: c.Quantity,
			Tradable: c.Tradable,
		})
	}
	return &domain.Binder{
		ID:      model.ID,
		Owner:   model.Owner,
		SetID:   model.SetID,
		SetName: model.SetName,
		Cards:   cards,
	}
}

func ToGORMBinderCards(binder *domain.Binder) []models.BinderCardModel {
	cards := make([]models.BinderCardModel, 0, len(binder.Cards))
	for _, c := range binder.Cards {
		if c.Quantity <= 0 {
			continue
		}
		cards = append(cards, models.BinderCardModel{
			BinderID: binder.ID,
			CardID:   c.CardID,
			Quantity: c.Quantity,
			Tradable: c.Tradable,
		})
	}
	return cards
}
