package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultBinderRepository struct {
	db *gorm.DB
	// lockRows takes row locks on read binders; set inside transactions.
	lockRows bool
}

func NewDefaultBinderRepository(db *gorm.DB, lockRows bool) *DefaultBinderRepository {
	return &DefaultBinderRepository{db: db, lockRows: lockRows}
}

// LockOwners takes a transaction-scoped advisory lock per owner, which also covers owners
// that have no binder rows yet.
func (r *DefaultBinderRepository) LockOwners(ctx context.Context, owners ...string) error {
	if !r.lockRows {
		return nil
	}
	sorted := append([]string(nil), owners...)
	sort.Strings(sorted)

	db := r.db.WithContext(ctx)
	for i, owner := range sorted {
		if i > 0 && sorted[i-1] == owner {
			continue
		}
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "binders:"+owner).Error; err != nil {
			return wrapErr("lock binders", err)
		}
	}
	return nil
}

func (r *DefaultBinderRepository) GetUserBinders(ctx context.Context, owner string) ([]*domain.Binder, error) {
	query := r.db.WithContext(ctx)
	if r.lockRows {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var binderModels []models.BinderModel
	if err := query.Preload("Cards", func(db *gorm.DB) *gorm.DB {
		return db.Order("card_id")
	}).Where("owner = ?", owner).Order("id").Find(&binderModels).Error; err != nil {
		return nil, wrapErr("get user binders", err)
	}

	binders := make([]*domain.Binder, len(binderModels))
	for i := range binderModels {
		binders[i] = mappers.ToDomainBinder(&binderModels[i])
	}
	return binders, nil
}

// CreateBinder returns the existing binder when the owner already has one for setID.
func (r *DefaultBinderRepository) CreateBinder(ctx context.Context, owner, setID, setName string) (*domain.Binder, error) {
	binderModel := models.BinderModel{Owner: owner, SetID: setID, SetName: setName}
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "set_id"}},
		DoNothing: true,
	}).Create(&binderModel).Error; err != nil {
		return nil, wrapErr("create binder", err)
	}

	if binderModel.ID == 0 {
		if err := db.Preload("Cards").
			Where("owner = ? AND set_id = ?", owner, setID).
			First(&binderModel).Error; err != nil {
			return nil, wrapErr("create binder", err)
		}
	}
	return mappers.ToDomainBinder(&binderModel), nil
}

// SaveBinder replaces the binder's card entries with binder.Cards.
func (r *DefaultBinderRepository) SaveBinder(ctx context.Context, binder *domain.Binder) error {
	op := fmt.Sprintf("save binder %d", binder.ID)
	db := r.db.WithContext(ctx)

	result := db.Model(&models.BinderModel{ID: binder.ID}).Update("set_name", binder.SetName)
	if result.Error != nil {
		return wrapErr(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	if err := db.Where("binder_id = ?", binder.ID).Delete(&models.BinderCardModel{}).Error; err != nil {
		return wrapErr(op, err)
	}
	cards := mappers.ToGORMBinderCards(binder)
	if len(cards) == 0 {
		return nil
	}
	if err := db.Create(&cards).Error; err != nil {
		return wrapErr(op, err)
	}
	return nil
}
