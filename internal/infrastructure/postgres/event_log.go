package postgres

import (
	"context"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/mappers"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PGTradeEventLog appends every settlement event to the trade_events table.
type PGTradeEventLog struct {
	db *gorm.DB
}

func NewPGTradeEventLog(db *gorm.DB) *PGTradeEventLog {
	return &PGTradeEventLog{db: db}
}

func (l *PGTradeEventLog) PublishTradeEvent(ctx context.Context, event domain.TradeEvent) error {
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(mappers.ToGORMTradeEvent(event)).Error
}
