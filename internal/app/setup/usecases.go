package setup

import (
	"fmt"

	"github.com/LavaJover/shvark-settlement-service/internal/app/background"
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/exchange"
)

type UseCases struct {
	ProposalUsecase   usecase.ProposalUsecase
	SettlementUsecase usecase.SettlementUsecase
}

func InitializeUseCases(deps *Dependencies) (*UseCases, error) {
	st := deps.Config.Settlement

	codes, err := domain.NewSessionCodeGenerator(st.SessionCodeLength)
	if err != nil {
		return nil, fmt.Errorf("session codes: %w", err)
	}

	exchanger := exchange.NewExchanger(deps.SetNames, deps.Logger.Named("exchange"))

	proposalUsecase := usecase.NewDefaultProposalUsecase(
		deps.Storage,
		deps.Publisher,
		deps.Metrics,
		deps.Logger.Named("proposals"),
		st.ProposalTTL,
	)

	settlementUsecase := usecase.NewDefaultSettlementUsecase(
		deps.Storage,
		exchanger,
		deps.Publisher,
		deps.Metrics,
		deps.Logger.Named("settlement"),
		codes,
		st.StaleTradeAfter,
	)

	return &UseCases{
		ProposalUsecase:   proposalUsecase,
		SettlementUsecase: settlementUsecase,
	}, nil
}

func InitializeBackgroundTasks(deps *Dependencies, uc *UseCases) *background.BackgroundTasks {
	st := deps.Config.Settlement
	return background.NewBackgroundTasks(
		uc.ProposalUsecase,
		uc.SettlementUsecase,
		background.Intervals{
			ProposalExpiry: st.ExpirySweepInterval,
			StaleTrades:    st.StaleSweepInterval,
		},
		deps.Logger.Named("background"),
	)
}
