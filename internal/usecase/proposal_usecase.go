package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

type ProposalUsecase interface {
	ListPending(ctx context.Context, username string) ([]*domain.Proposal, error)
	ExpiryCheck(ctx context.Context, proposal *domain.Proposal, now time.Time) (*domain.Proposal, error)
	Accept(ctx context.Context, proposalID string) (*domain.Trade, error)
	Decline(ctx context.Context, proposalID string) error
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

type DefaultProposalUsecase struct {
	storage domain.Storage
	metrics *metrics.SettlementMetrics
	events  emitter
	logger  *zap.Logger
	ttl     time.Duration
	now     func() time.Time
}

func NewDefaultProposalUsecase(
	storage domain.Storage,
	publisher domain.EventPublisher,
	metrics *metrics.SettlementMetrics,
	logger *zap.Logger,
	ttl time.Duration,
) *DefaultProposalUsecase {
	if ttl <= 0 {
		ttl = domain.DefaultProposalTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultProposalUsecase{
		storage: storage,
		metrics: metrics,
		events:  newEmitter(publisher, logger),
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
	}
}

// ListPending returns the user's sent and received proposals that are still PENDING or EXPIRED,
// expiring stale ones on the way.
func (uc *DefaultProposalUsecase) ListPending(ctx context.Context, username string) ([]*domain.Proposal, error) {
	sent, err := uc.storage.Proposals().GetSentPending(ctx, username)
	if err != nil {
		return nil, err
	}
	received, err := uc.storage.Proposals().GetReceived(ctx, username)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	seen := make(map[string]struct{}, len(sent)+len(received))
	proposals := make([]*domain.Proposal, 0, len(sent)+len(received))
	for _, p := range append(sent, received...) {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		checked, err := uc.ExpiryCheck(ctx, p, now)
		if err != nil {
			return nil, err
		}
		if checked.Status == domain.ProposalPending || checked.Status == domain.ProposalExpired {
			proposals = append(proposals, checked)
		}
	}
	return proposals, nil
}

// ExpiryCheck persists EXPIRED for a pending proposal that outlived its TTL at now.
// Proposals that are not pending are returned unchanged.
func (uc *DefaultProposalUsecase) ExpiryCheck(ctx context.Context, proposal *domain.Proposal, now time.Time) (*domain.Proposal, error) {
	if !proposal.IsStale(now, uc.ttl) {
		return proposal, nil
	}

	var current *domain.Proposal
	var expired bool
	err := uc.storage.WithinProposalLock(ctx, proposal.ID, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Proposals().GetProposalByID(ctx, proposal.ID)
		if err != nil {
			return err
		}
		current = p
		if !p.IsStale(now, uc.ttl) {
			return nil
		}
		p.Status = domain.ProposalExpired
		p.LastUpdated = now
		expired = true
		return repos.Proposals().UpdateProposal(ctx, p)
	})
	if err != nil {
		uc.metrics.RecordFailure("expire_proposal", errorReason(err))
		return nil, fmt.Errorf("expire proposal %s: %w", proposal.ID, err)
	}

	if expired {
		uc.afterExpired(ctx, current, now)
	}
	return current, nil
}

// Accept turns a pending proposal into a trade waiting for both parties to arrive.
// Only an unknown id is a NotFound error. Unlike a plain lookup-and-build, a proposal that is not
// PENDING after the expiry check (EXPIRED, ACCEPTED or DECLINED) is refused with ErrInvalidTransition,
// so one proposal never yields two trades and an expired one cannot be revived.
func (uc *DefaultProposalUsecase) Accept(ctx context.Context, proposalID string) (*domain.Trade, error) {
	start := uc.now()
	now := start

	var trade *domain.Trade
	var expired *domain.Proposal
	err := uc.storage.WithinProposalLock(ctx, proposalID, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Proposals().GetProposalByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.IsStale(now, uc.ttl) {
			p.Status = domain.ProposalExpired
			p.LastUpdated = now
			expired = p
			return repos.Proposals().UpdateProposal(ctx, p)
		}
		if p.Status != domain.ProposalPending {
			return fmt.Errorf("%w: proposal %s is %s", domain.ErrInvalidTransition, p.ID, p.Status)
		}

		t, err := domain.NewTradeFromProposal(p, now)
		if err != nil {
			return err
		}
		if err := repos.Trades().CreateTrade(ctx, t); err != nil {
			return err
		}

		p.Status = domain.ProposalAccepted
		p.LastUpdated = now
		if err := repos.Proposals().UpdateProposal(ctx, p); err != nil {
			return err
		}
		trade = t
		return nil
	})
	if err == nil && expired != nil {
		uc.afterExpired(ctx, expired, now)
		err = fmt.Errorf("%w: proposal %s expired", domain.ErrInvalidTransition, proposalID)
	}
	if err != nil {
		uc.metrics.RecordFailure("accept_proposal", errorReason(err))
		uc.logger.Info("accept proposal rejected", zap.String("proposal_id", proposalID), zap.Error(err))
		return nil, err
	}

	uc.metrics.RecordTradeCreated()
	uc.metrics.RecordProposalStatus(string(domain.ProposalAccepted))
	uc.metrics.ObserveDuration("accept_proposal", uc.now().Sub(start).Seconds())
	uc.logger.Info("proposal accepted",
		zap.String("proposal_id", proposalID),
		zap.Int64("trade_id", trade.ID),
		zap.String("store_id", trade.StoreID),
	)
	uc.events.tradeEvent(ctx, domain.EventTradeCreated, trade, trade.ReceiverID, now)
	return trade, nil
}

// Decline closes a PENDING or EXPIRED proposal.
func (uc *DefaultProposalUsecase) Decline(ctx context.Context, proposalID string) error {
	now := uc.now()

	var declined *domain.Proposal
	err := uc.storage.WithinProposalLock(ctx, proposalID, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Proposals().GetProposalByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.Status != domain.ProposalPending && p.Status != domain.ProposalExpired {
			return fmt.Errorf("%w: proposal %s is %s", domain.ErrInvalidTransition, p.ID, p.Status)
		}
		p.Status = domain.ProposalDeclined
		p.LastUpdated = now
		declined = p
		return repos.Proposals().UpdateProposal(ctx, p)
	})
	if err != nil {
		uc.metrics.RecordFailure("decline_proposal", errorReason(err))
		return err
	}

	uc.metrics.RecordProposalStatus(string(domain.ProposalDeclined))
	uc.logger.Info("proposal declined", zap.String("proposal_id", proposalID))
	uc.events.proposalEvent(ctx, domain.EventProposalDeclined, declined, now)
	return nil
}

// ExpireStale expires every pending proposal that outlived the TTL at now and returns how many it expired.
// A failing proposal does not stop the sweep.
func (uc *DefaultProposalUsecase) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := uc.storage.Proposals().FindStalePending(ctx, now.Add(-uc.ttl))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range stale {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		checked, err := uc.ExpiryCheck(ctx, p, now)
		if err != nil {
			uc.logger.Error("failed to expire proposal", zap.String("proposal_id", p.ID), zap.Error(err))
			continue
		}
		if checked.Status == domain.ProposalExpired {
			expired++
		}
	}
	return expired, nil
}

func (uc *DefaultProposalUsecase) afterExpired(ctx context.Context, p *domain.Proposal, now time.Time) {
	uc.metrics.RecordProposalStatus(string(domain.ProposalExpired))
	uc.logger.Info("proposal expired", zap.String("proposal_id", p.ID))
	uc.events.proposalEvent(ctx, domain.EventProposalExpired, p, now)
}
