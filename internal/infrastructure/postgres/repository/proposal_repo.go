package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultProposalRepository struct {
	db *gorm.DB
}

func NewDefaultProposalRepository(db *gorm.DB) *DefaultProposalRepository {
	return &DefaultProposalRepository{db: db}
}

func (r *DefaultProposalRepository) CreateProposal(ctx context.Context, proposal *domain.Proposal) error {
	if proposal.ID == "" {
		proposal.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(mappers.ToGORMProposal(proposal)).Error; err != nil {
		return wrapErr("create proposal", err)
	}
	return nil
}

func (r *DefaultProposalRepository) GetProposalByID(ctx context.Context, proposalID string) (*domain.Proposal, error) {
	if _, err := uuid.Parse(proposalID); err != nil {
		return nil, fmt.Errorf("get proposal %s: %w", proposalID, domain.ErrNotFound)
	}
	var proposalModel models.ProposalModel
	if err := r.db.WithContext(ctx).Where("id = ?", proposalID).First(&proposalModel).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("get proposal %s", proposalID), err)
	}
	return mappers.ToDomainProposal(&proposalModel), nil
}

func (r *DefaultProposalRepository) UpdateProposal(ctx context.Context, proposal *domain.Proposal) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProposalModel{ID: proposal.ID}).
		Select("*").
		Omit("id").
		Updates(mappers.ToGORMProposal(proposal))
	if result.Error != nil {
		return wrapErr(fmt.Sprintf("update proposal %s", proposal.ID), result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update proposal %s: %w", proposal.ID, domain.ErrNotFound)
	}
	return nil
}

// GetSentPending returns the user's sent proposals that are still PENDING or EXPIRED.
func (r *DefaultProposalRepository) GetSentPending(ctx context.Context, username string) ([]*domain.Proposal, error) {
	return r.find(ctx, "get sent proposals", r.db.
		Where("proposer_id = ?", username).
		Where("status IN ?", []string{string(domain.ProposalPending), string(domain.ProposalExpired)}))
}

func (r *DefaultProposalRepository) GetReceived(ctx context.Context, username string) ([]*domain.Proposal, error) {
	return r.find(ctx, "get received proposals", r.db.Where("receiver_id = ?", username))
}

func (r *DefaultProposalRepository) FindStalePending(ctx context.Context, before time.Time) ([]*domain.Proposal, error) {
	return r.find(ctx, "find stale proposals", r.db.
		Where("status = ?", string(domain.ProposalPending)).
		Where("last_updated < ?", before))
}

func (r *DefaultProposalRepository) find(ctx context.Context, op string, query *gorm.DB) ([]*domain.Proposal, error) {
	var proposalModels []models.ProposalModel
	if err := query.WithContext(ctx).Order("id").Find(&proposalModels).Error; err != nil {
		return nil, wrapErr(op, err)
	}
	proposals := make([]*domain.Proposal, len(proposalModels))
	for i := range proposalModels {
		proposals[i] = mappers.ToDomainProposal(&proposalModels[i])
	}
	return proposals, nil
}
