package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/exchange"
	"go.uber.org/zap"
)

type SettlementUsecase interface {
	ConfirmPresence(ctx context.Context, tradeID int64, username string) (int, error)
	VerifySessionCode(ctx context.Context, tradeID int64, proposerCode, receiverCode int) error
	RecordInspectionResult(ctx context.Context, tradeID int64, username string, passed bool) (*domain.Trade, error)
	CompleteTrade(ctx context.Context, tradeID int64) (*exchange.Report, error)
	RefreshTradeStatus(ctx context.Context, tradeID int64) (*domain.Trade, error)
	ListScheduledTrades(ctx context.Context, username string) ([]*domain.Trade, error)
	ListCompletedTrades(ctx context.Context, username string) ([]*domain.Trade, error)
	ListTradesBetween(ctx context.Context, proposerID, receiverID string) ([]*domain.Trade, error)
	MonitorStaleTrades(ctx context.Context, now time.Time) ([]*domain.Trade, error)
}

type DefaultSettlementUsecase struct {
	storage    domain.Storage
	exchanger  *exchange.Exchanger
	metrics    *metrics.SettlementMetrics
	events     emitter
	logger     *zap.Logger
	codes      domain.SessionCodeGenerator
	staleAfter time.Duration
	now        func() time.Time
}

func NewDefaultSettlementUsecase(
	storage domain.Storage,
	exchanger *exchange.Exchanger,
	publisher domain.EventPublisher,
	metrics *metrics.SettlementMetrics,
	logger *zap.Logger,
	codes domain.SessionCodeGenerator,
	staleAfter time.Duration,
) *DefaultSettlementUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultSettlementUsecase{
		storage:    storage,
		exchanger:  exchanger,
		metrics:    metrics,
		events:     newEmitter(publisher, logger),
		logger:     logger,
		codes:      codes,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// mutate re-reads the trade under its lock, applies fn and saves the result in one transaction.
// The returned trade is the committed state; on error nothing is persisted.
func (uc *DefaultSettlementUsecase) mutate(
	ctx context.Context,
	operation string,
	tradeID int64,
	fn func(ctx context.Context, repos domain.Repositories, trade *domain.Trade) error,
) (*domain.Trade, error) {
	start := uc.now()
	var saved *domain.Trade
	var from domain.TradeStatus

	err := uc.storage.WithinTradeLock(ctx, tradeID, func(ctx context.Context, repos domain.Repositories) error {
		trade, err := repos.Trades().GetTrade(ctx, tradeID)
		if err != nil {
			return err
		}
		from = trade.Status
		if err := fn(ctx, repos, trade); err != nil {
			return err
		}
		trade.UpdatedAt = uc.now()
		if err := repos.Trades().SaveTrade(ctx, trade); err != nil {
			return err
		}
		saved = trade
		return nil
	})
	if err != nil {
		uc.metrics.RecordFailure(operation, errorReason(err))
		uc.logger.Info(operation+" rejected", zap.Int64("trade_id", tradeID), zap.Error(err))
		return nil, err
	}

	uc.metrics.ObserveDuration(operation, uc.now().Sub(start).Seconds())
	if saved.Status != from {
		uc.metrics.RecordTransition(string(from), string(saved.Status))
	}
	return saved, nil
}

// ConfirmPresence records that username arrived at the store and returns their session code.
func (uc *DefaultSettlementUsecase) ConfirmPresence(ctx context.Context, tradeID int64, username string) (int, error) {
	var code int
	trade, err := uc.mutate(ctx, "confirm_presence", tradeID, func(_ context.Context, _ domain.Repositories, t *domain.Trade) error {
		c, err := t.ConfirmPresence(username, uc.codes)
		code = c
		return err
	})
	if err != nil {
		return 0, err
	}

	uc.logger.Info("presence confirmed",
		zap.Int64("trade_id", tradeID),
		zap.String("username", username),
		zap.String("status", string(trade.Status)),
	)
	uc.events.tradeEvent(ctx, domain.EventPresenceConfirmed, trade, username, trade.UpdatedAt)
	return code, nil
}

// VerifySessionCode moves a trade whose parties both arrived into inspection when both codes match.
func (uc *DefaultSettlementUsecase) VerifySessionCode(ctx context.Context, tradeID int64, proposerCode, receiverCode int) error {
	trade, err := uc.mutate(ctx, "verify_session_code", tradeID, func(_ context.Context, _ domain.Repositories, t *domain.Trade) error {
		return t.VerifySessionCodes(proposerCode, receiverCode)
	})
	if err != nil {
		return err
	}

	uc.logger.Info("session codes verified", zap.Int64("trade_id", tradeID))
	uc.events.tradeEvent(ctx, domain.EventSessionCodeVerified, trade, "", trade.UpdatedAt)
	return nil
}

// RecordInspectionResult stores username's verdict. A failed inspection cancels the trade.
func (uc *DefaultSettlementUsecase) RecordInspectionResult(ctx context.Context, tradeID int64, username string, passed bool) (*domain.Trade, error) {
	trade, err := uc.mutate(ctx, "record_inspection", tradeID, func(_ context.Context, _ domain.Repositories, t *domain.Trade) error {
		return t.RecordInspection(username, passed)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("inspection recorded",
		zap.Int64("trade_id", tradeID),
		zap.String("username", username),
		zap.Bool("passed", passed),
		zap.String("status", string(trade.Status)),
	)
	if trade.Status == domain.TradeCancelled {
		uc.events.tradeEvent(ctx, domain.EventTradeCancelled, trade, username, trade.UpdatedAt)
	} else {
		uc.events.tradeEvent(ctx, domain.EventInspectionRecorded, trade, username, trade.UpdatedAt)
	}
	return trade, nil
}

// CompleteTrade exchanges the traded cards and marks the trade COMPLETED in the same transaction.
// Set names for new binders are looked up before the trade is locked; the card lists they
// derive from are frozen at creation.
func (uc *DefaultSettlementUsecase) CompleteTrade(ctx context.Context, tradeID int64) (*exchange.Report, error) {
	var names exchange.SetNames
	if snapshot, err := uc.storage.Trades().GetTrade(ctx, tradeID); err == nil && snapshot.Status == domain.TradeInspectionPassed {
		names = uc.exchanger.ResolveSetNames(ctx, snapshot)
	}

	var report *exchange.Report
	trade, err := uc.mutate(ctx, "complete_trade", tradeID, func(ctx context.Context, repos domain.Repositories, t *domain.Trade) error {
		if t.Status != domain.TradeInspectionPassed {
			return &domain.TransitionError{From: t.Status, Event: "complete trade"}
		}
		r, err := uc.exchanger.Execute(ctx, repos.Binders(), t, names)
		if err != nil {
			return fmt.Errorf("exchange cards for trade %d: %w", t.ID, err)
		}
		report = r
		return t.MarkCompleted(uc.now())
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.RecordExchange(report.QuantityAdded(), report.QuantityRemoved(), report.SkippedCount(), report.CreatedBinders)
	fields := []zap.Field{
		zap.Int64("trade_id", tradeID),
		zap.Int("cards_added", report.QuantityAdded()),
		zap.Int("cards_removed", report.QuantityRemoved()),
		zap.Int("binders_created", report.CreatedBinders),
	}
	if report.Skipped != nil {
		uc.logger.Warn("trade completed with skipped removals", append(fields, zap.Error(report.Skipped))...)
	} else {
		uc.logger.Info("trade completed", fields...)
	}
	uc.events.tradeEvent(ctx, domain.EventTradeCompleted, trade, "", trade.UpdatedAt)
	return report, nil
}

// RefreshTradeStatus returns the latest committed state of the trade.
func (uc *DefaultSettlementUsecase) RefreshTradeStatus(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	trade, err := uc.storage.Trades().GetTrade(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("get trade %d: %w", tradeID, err)
	}
	return trade, nil
}

// ListScheduledTrades returns the user's trades that have not reached a terminal status.
func (uc *DefaultSettlementUsecase) ListScheduledTrades(ctx context.Context, username string) ([]*domain.Trade, error) {
	return uc.listForUser(ctx, username, func(t *domain.Trade) bool { return !t.Status.IsTerminal() })
}

// ListCompletedTrades returns the user's COMPLETED and CANCELLED trades.
func (uc *DefaultSettlementUsecase) ListCompletedTrades(ctx context.Context, username string) ([]*domain.Trade, error) {
	return uc.listForUser(ctx, username, func(t *domain.Trade) bool { return t.Status.IsTerminal() })
}

func (uc *DefaultSettlementUsecase) ListTradesBetween(ctx context.Context, proposerID, receiverID string) ([]*domain.Trade, error) {
	trades, err := uc.storage.Trades().FindByParticipants(ctx, proposerID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("find trades between %s and %s: %w", proposerID, receiverID, err)
	}
	return trades, nil
}

// MonitorStaleTrades reports trades that have waited for arrival or verification longer than
// the stale threshold. They are logged for operators and never cancelled automatically.
func (uc *DefaultSettlementUsecase) MonitorStaleTrades(ctx context.Context, now time.Time) ([]*domain.Trade, error) {
	if uc.staleAfter <= 0 {
		return nil, nil
	}
	stale, err := uc.storage.Trades().FindByStatusesBefore(ctx, domain.StaleCandidateStatuses, now.Add(-uc.staleAfter))
	if err != nil {
		return nil, fmt.Errorf("find stale trades: %w", err)
	}

	uc.metrics.SetStaleTrades(len(stale))
	for _, t := range stale {
		uc.logger.Warn("trade is stuck",
			zap.Int64("trade_id", t.ID),
			zap.String("status", string(t.Status)),
			zap.String("store_id", t.StoreID),
			zap.Duration("idle", now.Sub(t.UpdatedAt)),
		)
	}
	return stale, nil
}

func (uc *DefaultSettlementUsecase) listForUser(ctx context.Context, username string, keep func(*domain.Trade) bool) ([]*domain.Trade, error) {
	trades, err := uc.storage.Trades().ListForUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list trades for %s: %w", username, err)
	}
	out := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

