package background

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/usecase"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Intervals struct {
	ProposalExpiry time.Duration
	StaleTrades    time.Duration
}

type BackgroundTasks struct {
	ProposalUsecase   usecase.ProposalUsecase
	SettlementUsecase usecase.SettlementUsecase
	Intervals         Intervals
	Logger            *zap.Logger
	Now               func() time.Time
}

func NewBackgroundTasks(
	proposalUC usecase.ProposalUsecase,
	settlementUC usecase.SettlementUsecase,
	intervals Intervals,
	logger *zap.Logger,
) *BackgroundTasks {
	return &BackgroundTasks{
		ProposalUsecase:   proposalUC,
		SettlementUsecase: settlementUC,
		Intervals:         intervals,
		Logger:            logger,
		Now:               time.Now,
	}
}

// Run blocks until ctx is cancelled. A task with a non-positive interval is disabled.
func (bt *BackgroundTasks) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if bt.Intervals.ProposalExpiry > 0 {
		g.Go(func() error {
			bt.every(ctx, bt.Intervals.ProposalExpiry, bt.expireProposals)
			return nil
		})
	}
	if bt.Intervals.StaleTrades > 0 {
		g.Go(func() error {
			bt.every(ctx, bt.Intervals.StaleTrades, bt.monitorStaleTrades)
			return nil
		})
	}
	return g.Wait()
}

func (bt *BackgroundTasks) every(ctx context.Context, interval time.Duration, task func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task(ctx)
		}
	}
}

func (bt *BackgroundTasks) expireProposals(ctx context.Context) {
	n, err := bt.ProposalUsecase.ExpireStale(ctx, bt.Now())
	if err != nil {
		bt.Logger.Error("proposal expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		bt.Logger.Info("expired stale proposals", zap.Int("count", n))
	}
}

func (bt *BackgroundTasks) monitorStaleTrades(ctx context.Context) {
	stale, err := bt.SettlementUsecase.MonitorStaleTrades(ctx, bt.Now())
	if err != nil {
		bt.Logger.Error("stale trade monitor failed", zap.Error(err))
		return
	}
	if len(stale) > 0 {
		bt.Logger.Warn("stale trades need operator attention", zap.Int("count", len(stale)))
	}
}
