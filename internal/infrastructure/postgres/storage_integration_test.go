//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/config"
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/exchange"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

func startStorage(t *testing.T) *postgres.Storage {
	t.Helper()
	ctx := context.Background()

	pgC, err := pgcontainer.Run(ctx,
		"postgres:16",
		pgcontainer.WithDatabase("settlement"),
		pgcontainer.WithUsername("settlement"),
		pgcontainer.WithPassword("settlement"),
		pgcontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.InitDB(config.SettlementDB{Driver: "postgres", Dsn: dsn})
	require.NoError(t, err)
	require.NoError(t, migrate.RunMigrations(db, "../../../migrations", zap.NewNop()))
	return postgres.NewStorage(db)
}

func seedBinder(t *testing.T, s *postgres.Storage, owner, setID string, cards ...domain.BinderCard) {
	t.Helper()
	ctx := context.Background()
	b, err := s.Binders().CreateBinder(ctx, owner, setID, setID)
	require.NoError(t, err)
	b.Cards = cards
	require.NoError(t, s.Binders().SaveBinder(ctx, b))
}

func TestPostgresSettlementFlow(t *testing.T) {
	s := startStorage(t)
	ctx := context.Background()
	logger := zap.NewNop()
	m := metrics.NewSettlementMetrics(prometheus.NewRegistry())
	events := postgres.NewPGTradeEventLog(s.DB())

	proposal := &domain.Proposal{
		ProposerID:     "ash",
		ReceiverID:     "misty",
		OfferedCards:   []domain.CardRef{{CardID: "base1-4", Name: "Charizard", Quantity: 1}},
		RequestedCards: []domain.CardRef{{CardID: "jungle-10", Name: "Pinsir", Quantity: 2}},
		MeetingPlace:   "store-7",
		MeetingDate:    "2026-03-02T15:00",
		Status:         domain.ProposalPending,
		LastUpdated:    time.Now(),
	}
	require.NoError(t, s.Proposals().CreateProposal(ctx, proposal))
	_, err := uuid.Parse(proposal.ID)
	require.NoError(t, err)

	seedBinder(t, s, "ash", "base1", domain.BinderCard{CardID: "base1-4", Quantity: 1, Tradable: true})
	seedBinder(t, s, "misty", "jungle", domain.BinderCard{CardID: "jungle-10", Quantity: 3, Tradable: true})

	codes, err := domain.NewSessionCodeGenerator(6)
	require.NoError(t, err)
	proposals := usecase.NewDefaultProposalUsecase(s, events, m, logger, 24*time.Hour)
	settlement := usecase.NewDefaultSettlementUsecase(s, exchange.NewExchanger(nil, logger), events, m, logger, codes, 72*time.Hour)

	trade, err := proposals.Accept(ctx, proposal.ID)
	require.NoError(t, err)
	assert.NotZero(t, trade.ID)

	var wg sync.WaitGroup
	codesByUser := make(map[string]int)
	var mu sync.Mutex
	for _, user := range []string{"ash", "misty"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			code, err := settlement.ConfirmPresence(ctx, trade.ID, user)
			assert.NoError(t, err)
			mu.Lock()
			codesByUser[user] = code
			mu.Unlock()
		}(user)
	}
	wg.Wait()

	require.NoError(t, settlement.VerifySessionCode(ctx, trade.ID, codesByUser["ash"], codesByUser["misty"]))
	_, err = settlement.RecordInspectionResult(ctx, trade.ID, "ash", true)
	require.NoError(t, err)
	_, err = settlement.RecordInspectionResult(ctx, trade.ID, "misty", true)
	require.NoError(t, err)

	report, err := settlement.CompleteTrade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CreatedBinders)

	done, err := settlement.RefreshTradeStatus(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeCompleted, done.Status)
	assert.Equal(t, "2026-03-02T15:00", done.TradeDate)

	misty, err := s.Binders().GetUserBinders(ctx, "misty")
	require.NoError(t, err)
	assert.Equal(t, 1, domain.FindBinder(misty, "base1").QuantityOf("base1-4"))
	assert.Equal(t, 1, domain.FindBinder(misty, "jungle").QuantityOf("jungle-10"))

	ash, err := s.Binders().GetUserBinders(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, 0, domain.FindBinder(ash, "base1").QuantityOf("base1-4"))
	assert.Equal(t, 2, domain.FindBinder(ash, "jungle").QuantityOf("jungle-10"))

	_, err = settlement.CompleteTrade(ctx, trade.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	var logged int64
	require.NoError(t, s.DB().Table("trade_events").Where("trade_id = ?", trade.ID).Count(&logged).Error)
	assert.Equal(t, int64(7), logged)
}

func TestPostgresNotFound(t *testing.T) {
	s := startStorage(t)
	ctx := context.Background()

	_, err := s.Trades().GetTrade(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.WithinTradeLock(ctx, 12345, func(context.Context, domain.Repositories) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.WithinProposalLock(ctx, "not-a-uuid", func(context.Context, domain.Repositories) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Proposals().GetProposalByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresRollback(t *testing.T) {
	s := startStorage(t)
	ctx := context.Background()
	seedBinder(t, s, "ash", "base1", domain.BinderCard{CardID: "base1-4", Quantity: 2})

	err := s.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		binders, err := repos.Binders().GetUserBinders(ctx, "ash")
		require.NoError(t, err)
		binders[0].RemoveCard("base1-4", 2)
		require.NoError(t, repos.Binders().SaveBinder(ctx, binders[0]))
		return domain.ErrVerificationFailed
	})
	require.ErrorIs(t, err, domain.ErrVerificationFailed)

	ash, err := s.Binders().GetUserBinders(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, 2, domain.FindBinder(ash, "base1").QuantityOf("base1-4"))
}

func TestPostgresInventoryLocksArePerOwner(t *testing.T) {
	s := startStorage(t)
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			if err := repos.Binders().LockOwners(ctx, "misty", "ash"); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := s.WithinTx(cctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Binders().LockOwners(ctx, "brock", "gary")
	})
	require.NoError(t, err)

	short, cancelShort := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancelShort()
	err = s.WithinTx(short, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Binders().LockOwners(ctx, "ash")
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	close(release)
	require.NoError(t, <-done)
}
