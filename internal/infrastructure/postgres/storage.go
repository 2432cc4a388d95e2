package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is the Postgres back end. Trades and proposals are locked with SELECT ... FOR UPDATE.
type Storage struct {
	db *gorm.DB
}

func NewStorage(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) DB() *gorm.DB {
	return s.db
}

func (s *Storage) Trades() domain.TradeRepository {
	return repository.NewDefaultTradeRepository(s.db)
}

func (s *Storage) Binders() domain.BinderRepository {
	return repository.NewDefaultBinderRepository(s.db, false)
}

func (s *Storage) Proposals() domain.ProposalRepository {
	return repository.NewDefaultProposalRepository(s.db)
}

func (s *Storage) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(ctx, txRepositories{tx: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return domain.NewPersistenceError("commit", err)
	}
	return nil
}

func (s *Storage) WithinTradeLock(ctx context.Context, tradeID int64, fn func(ctx context.Context, repos domain.Repositories) error) error {
	return s.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		tx := repos.(txRepositories).tx
		if err := lockRow(tx, &models.TradeModel{}, tradeID); err != nil {
			return fmt.Errorf("lock trade %d: %w", tradeID, err)
		}
		return fn(ctx, repos)
	})
}

func (s *Storage) WithinProposalLock(ctx context.Context, proposalID string, fn func(ctx context.Context, repos domain.Repositories) error) error {
	if _, err := uuid.Parse(proposalID); err != nil {
		return fmt.Errorf("lock proposal %s: %w", proposalID, domain.ErrNotFound)
	}
	return s.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		tx := repos.(txRepositories).tx
		if err := lockRow(tx, &models.ProposalModel{}, proposalID); err != nil {
			return fmt.Errorf("lock proposal %s: %w", proposalID, err)
		}
		return fn(ctx, repos)
	})
}

func lockRow(tx *gorm.DB, model interface{}, id interface{}) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		Take(model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return domain.NewPersistenceError("lock row", err)
	}
	return nil
}

// txRepositories binds every repository to one gorm transaction.
type txRepositories struct {
	tx *gorm.DB
}

func (r txRepositories) Trades() domain.TradeRepository {
	return repository.NewDefaultTradeRepository(r.tx)
}

func (r txRepositories) Binders() domain.BinderRepository {
	return repository.NewDefaultBinderRepository(r.tx, true)
}

func (r txRepositories) Proposals() domain.ProposalRepository {
	return repository.NewDefaultProposalRepository(r.tx)
}

var _ domain.Storage = (*Storage)(nil)
