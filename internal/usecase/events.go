package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"
)

const eventIDLength = 21

// emitter publishes events after commit. Publishing never fails the operation.
type emitter struct {
	publisher domain.EventPublisher
	logger    *zap.Logger
	newID     func() string
}

func newEmitter(publisher domain.EventPublisher, logger *zap.Logger) emitter {
	idGenerator, err := nanoid.Standard(eventIDLength)
	if err != nil {
		logger.Error("event id generator unavailable, falling back to uuid", zap.Error(err))
		idGenerator = uuid.NewString
	}
	return emitter{publisher: publisher, logger: logger, newID: idGenerator}
}

func (e emitter) tradeEvent(ctx context.Context, typ domain.TradeEventType, trade *domain.Trade, actor string, at time.Time) {
	e.publish(ctx, domain.TradeEvent{
		Type:       typ,
		TradeID:    trade.ID,
		ProposalID: trade.ProposalID,
		Status:     string(trade.Status),
		Actor:      actor,
		ProposerID: trade.ProposerID,
		ReceiverID: trade.ReceiverID,
		OccurredAt: at,
	})
}

func (e emitter) proposalEvent(ctx context.Context, typ domain.TradeEventType, p *domain.Proposal, at time.Time) {
	e.publish(ctx, domain.TradeEvent{
		Type:       typ,
		ProposalID: p.ID,
		Status:     string(p.Status),
		ProposerID: p.ProposerID,
		ReceiverID: p.ReceiverID,
		OccurredAt: at,
	})
}

func (e emitter) publish(ctx context.Context, event domain.TradeEvent) {
	if e.publisher == nil {
		return
	}
	event.ID = e.newID()

	if err := e.publisher.PublishTradeEvent(ctx, event); err != nil {
		e.logger.Warn("failed to publish event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("trade_id", event.TradeID),
			zap.String("proposal_id", event.ProposalID),
			zap.Error(err),
		)
	}
}

// errorReason is the metrics label for a failed operation.
func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		return "already_confirmed"
	case errors.Is(err, domain.ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, domain.ErrNotParticipant):
		return "not_participant"
	case errors.Is(err, domain.ErrInvalidCard):
		return "invalid_card"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "internal"
}
