package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/exchange"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.TradeEvent
	err    error
}

func (p *recordingPublisher) PublishTradeEvent(_ context.Context, e domain.TradeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []domain.TradeEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.TradeEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// sequenceCodes hands out 111111, 222222, ... in order.
func sequenceCodes() domain.SessionCodeGenerator {
	var mu sync.Mutex
	next := 0
	return func() (int, error) {
		mu.Lock()
		defer mu.Unlock()
		next++
		return next * 111111, nil
	}
}

type fixture struct {
	storage    *memory.Storage
	publisher  *recordingPublisher
	metrics    *metrics.SettlementMetrics
	proposals  *DefaultProposalUsecase
	settlement *DefaultSettlementUsecase
	clock      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		storage:   memory.NewStorage(),
		publisher: &recordingPublisher{},
		metrics:   metrics.NewSettlementMetrics(prometheus.NewRegistry()),
		clock:     baseTime,
	}
	logger := zap.NewNop()
	now := func() time.Time { return f.clock }

	f.proposals = NewDefaultProposalUsecase(f.storage, f.publisher, f.metrics, logger, 24*time.Hour)
	f.proposals.now = now

	exchanger := exchange.NewExchanger(nil, logger)
	f.settlement = NewDefaultSettlementUsecase(f.storage, exchanger, f.publisher, f.metrics, logger, sequenceCodes(), 72*time.Hour)
	f.settlement.now = now
	return f
}

func (f *fixture) seedProposal(t *testing.T, id string, lastUpdated time.Time) *domain.Proposal {
	t.Helper()
	return f.seedProposalBetween(t, id, "ash", "misty", lastUpdated)
}

func (f *fixture) seedProposalBetween(t *testing.T, id, proposer, receiver string, lastUpdated time.Time) *domain.Proposal {
	t.Helper()
	p := &domain.Proposal{
		ID:             id,
		ProposerID:     proposer,
		ReceiverID:     receiver,
		OfferedCards:   []domain.CardRef{{CardID: "base1-4", Name: "Charizard", Quantity: 1}},
		RequestedCards: []domain.CardRef{{CardID: "jungle-10", Name: "Pinsir", Quantity: 2}},
		MeetingPlace:   "store-7",
		MeetingDate:    "2026-03-02T15:00",
		Status:         domain.ProposalPending,
		LastUpdated:    lastUpdated,
	}
	require.NoError(t, f.storage.Proposals().CreateProposal(context.Background(), p))
	return p
}

// useCatalog swaps the exchanger for one that labels binders through names.
func (f *fixture) useCatalog(names exchange.SetNamer) {
	f.settlement.exchanger = exchange.NewExchanger(names, zap.NewNop())
}

func (f *fixture) seedBinder(t *testing.T, owner, setID string, cards ...domain.BinderCard) {
	t.Helper()
	ctx := context.Background()
	b, err := f.storage.Binders().CreateBinder(ctx, owner, setID, setID)
	require.NoError(t, err)
	b.Cards = cards
	require.NoError(t, f.storage.Binders().SaveBinder(ctx, b))
}

// acceptedTrade seeds a fresh proposal and accepts it.
func (f *fixture) acceptedTrade(t *testing.T) *domain.Trade {
	t.Helper()
	return f.acceptedTradeBetween(t, "ash", "misty")
}

func (f *fixture) acceptedTradeBetween(t *testing.T, proposer, receiver string) *domain.Trade {
	t.Helper()
	id := "p-" + t.Name() + "-" + proposer + "-" + receiver
	f.seedProposalBetween(t, id, proposer, receiver, f.clock)
	trade, err := f.proposals.Accept(context.Background(), id)
	require.NoError(t, err)
	return trade
}

// inspectedTrade drives a new trade to INSPECTION_PASSED.
func (f *fixture) inspectedTrade(t *testing.T) *domain.Trade {
	t.Helper()
	return f.inspectedTradeBetween(t, "ash", "misty")
}

func (f *fixture) inspectedTradeBetween(t *testing.T, proposer, receiver string) *domain.Trade {
	t.Helper()
	ctx := context.Background()
	trade := f.acceptedTradeBetween(t, proposer, receiver)

	pc, err := f.settlement.ConfirmPresence(ctx, trade.ID, proposer)
	require.NoError(t, err)
	rc, err := f.settlement.ConfirmPresence(ctx, trade.ID, receiver)
	require.NoError(t, err)
	require.NoError(t, f.settlement.VerifySessionCode(ctx, trade.ID, pc, rc))
	_, err = f.settlement.RecordInspectionResult(ctx, trade.ID, proposer, true)
	require.NoError(t, err)
	got, err := f.settlement.RecordInspectionResult(ctx, trade.ID, receiver, true)
	require.NoError(t, err)
	require.Equal(t, domain.TradeInspectionPassed, got.Status)
	return got
}
