package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultTradeRepository struct {
	db *gorm.DB
}

func NewDefaultTradeRepository(db *gorm.DB) *DefaultTradeRepository {
	return &DefaultTradeRepository{db: db}
}

func (r *DefaultTradeRepository) GetTrade(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	var tradeModel models.TradeModel
	if err := r.db.WithContext(ctx).Where("id = ?", tradeID).First(&tradeModel).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("get trade %d", tradeID), err)
	}
	return mappers.ToDomainTrade(&tradeModel), nil
}

func (r *DefaultTradeRepository) CreateTrade(ctx context.Context, trade *domain.Trade) error {
	tradeModel := mappers.ToGORMTrade(trade)
	tradeModel.ID = 0
	if err := r.db.WithContext(ctx).Create(tradeModel).Error; err != nil {
		return wrapErr("create trade", err)
	}
	trade.ID = tradeModel.ID
	return nil
}

func (r *DefaultTradeRepository) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	tradeModel := mappers.ToGORMTrade(trade)
	result := r.db.WithContext(ctx).
		Model(&models.TradeModel{ID: trade.ID}).
		Select("*").
		Omit("id", "proposal_id", "creation_date", "trade_date").
		Updates(tradeModel)
	if result.Error != nil {
		return wrapErr(fmt.Sprintf("save trade %d", trade.ID), result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("save trade %d: %w", trade.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *DefaultTradeRepository) UpdateTradeStatus(ctx context.Context, tradeID int64, status domain.TradeStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.TradeModel{ID: tradeID}).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return wrapErr(fmt.Sprintf("update trade %d status", tradeID), result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update trade %d status: %w", tradeID, domain.ErrNotFound)
	}
	return nil
}

func (r *DefaultTradeRepository) FindByParticipants(ctx context.Context, proposerID, receiverID string) ([]*domain.Trade, error) {
	return r.find(ctx, "find trades by participants",
		r.db.Where("proposer_id = ? AND receiver_id = ?", proposerID, receiverID))
}

func (r *DefaultTradeRepository) ListForUser(ctx context.Context, username string) ([]*domain.Trade, error) {
	return r.find(ctx, "list trades for user",
		r.db.Where("proposer_id = ? OR receiver_id = ?", username, username))
}

func (r *DefaultTradeRepository) FindByStatusesBefore(ctx context.Context, statuses []domain.TradeStatus, before time.Time) ([]*domain.Trade, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	return r.find(ctx, "find trades by status",
		r.db.Where("status IN ?", names).Where("updated_at < ?", before))
}

func (r *DefaultTradeRepository) find(ctx context.Context, op string, query *gorm.DB) ([]*domain.Trade, error) {
	var tradeModels []models.TradeModel
	if err := query.WithContext(ctx).Order("id").Find(&tradeModels).Error; err != nil {
		return nil, wrapErr(op, err)
	}
	trades := make([]*domain.Trade, len(tradeModels))
	for i := range tradeModels {
		trades[i] = mappers.ToDomainTrade(&tradeModels[i])
	}
	return trades, nil
}
