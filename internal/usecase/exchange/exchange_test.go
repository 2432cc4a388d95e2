package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBinders struct {
	nextID  int64
	binders map[string][]*domain.Binder
	saved   int
	locked  []string
}

func newFakeBinders() *fakeBinders {
	return &fakeBinders{binders: make(map[string][]*domain.Binder)}
}

func (f *fakeBinders) put(owner, setID string, cards ...domain.BinderCard) {
	f.nextID++
	f.binders[owner] = append(f.binders[owner], &domain.Binder{
		ID: f.nextID, Owner: owner, SetID: setID, SetName: setID, Cards: cards,
	})
}

func (f *fakeBinders) LockOwners(_ context.Context, owners ...string) error {
	f.locked = append(f.locked, owners...)
	return nil
}

func (f *fakeBinders) GetUserBinders(_ context.Context, owner string) ([]*domain.Binder, error) {
	out := make([]*domain.Binder, 0, len(f.binders[owner]))
	for _, b := range f.binders[owner] {
		out = append(out, b.Clone())
	}
	return out, nil
}

func (f *fakeBinders) CreateBinder(_ context.Context, owner, setID, setName string) (*domain.Binder, error) {
	f.nextID++
	b := &domain.Binder{ID: f.nextID, Owner: owner, SetID: setID, SetName: setName}
	f.binders[owner] = append(f.binders[owner], b.Clone())
	return b, nil
}

func (f *fakeBinders) SaveBinder(_ context.Context, binder *domain.Binder) error {
	f.saved++
	for i, b := range f.binders[binder.Owner] {
		if b.ID == binder.ID {
			f.binders[binder.Owner][i] = binder.Clone()
			return nil
		}
	}
	return errors.New("binder not found")
}

func (f *fakeBinders) quantity(owner, cardID string) int {
	setID, _ := domain.SetIDFromCardID(cardID)
	b := domain.FindBinder(f.binders[owner], setID)
	if b == nil {
		return 0
	}
	return b.QuantityOf(cardID)
}

type fakeNames map[string]string

func (n fakeNames) SetName(_ context.Context, setID string) (string, bool, error) {
	name, ok := n[setID]
	return name, ok, nil
}

type failingNames struct{}

func (failingNames) SetName(context.Context, string) (string, bool, error) {
	return "", false, errors.New("catalog down")
}

// countingNames counts catalog lookups.
type countingNames struct {
	names fakeNames
	calls int
}

func (n *countingNames) SetName(ctx context.Context, setID string) (string, bool, error) {
	n.calls++
	return n.names.SetName(ctx, setID)
}

func run(ex *Exchanger, repo *fakeBinders, tr *domain.Trade) (*Report, error) {
	ctx := context.Background()
	return ex.Execute(ctx, repo, tr, ex.ResolveSetNames(ctx, tr))
}

func trade(offered, requested []domain.CardRef) *domain.Trade {
	return &domain.Trade{
		ID:             7,
		ProposerID:     "ash",
		ReceiverID:     "misty",
		Status:         domain.TradeInspectionPassed,
		OfferedCards:   offered,
		RequestedCards: requested,
	}
}

func TestExecute_MovesSingleCardIntoNewBinder(t *testing.T) {
	repo := newFakeBinders()
	repo.put("ash", "base1", domain.BinderCard{CardID: "base1-4", Quantity: 1, Tradable: true})

	ex := NewExchanger(fakeNames{"base1": "Base Set"}, nil)
	report, err := run(ex, repo,
		trade([]domain.CardRef{{CardID: "base1-4", Name: "Charizard", Quantity: 1}}, nil))
	require.NoError(t, err)

	assert.Equal(t, 0, repo.quantity("ash", "base1-4"))
	assert.Empty(t, domain.FindBinder(repo.binders["ash"], "base1").Cards, "entry reaching zero is removed")

	received := domain.FindBinder(repo.binders["misty"], "base1")
	require.NotNil(t, received)
	assert.Equal(t, "Base Set", received.SetName)
	require.Len(t, received.Cards, 1)
	assert.Equal(t, domain.BinderCard{CardID: "base1-4", Quantity: 1, Tradable: false}, received.Cards[0])

	assert.Equal(t, 1, report.CreatedBinders)
	assert.Equal(t, 1, report.QuantityAdded())
	assert.Equal(t, 1, report.QuantityRemoved())
	assert.Zero(t, report.SkippedCount())
}

func TestExecute_IncrementsExistingEntries(t *testing.T) {
	repo := newFakeBinders()
	repo.put("ash", "base1", domain.BinderCard{CardID: "base1-4", Quantity: 3})
	repo.put("misty", "base1", domain.BinderCard{CardID: "base1-4", Quantity: 1})

	_, err := run(NewExchanger(nil, nil), repo,
		trade([]domain.CardRef{{CardID: "base1-4", Quantity: 2}}, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, repo.quantity("ash", "base1-4"))
	assert.Equal(t, 3, repo.quantity("misty", "base1-4"))
}

func TestExecute_ConservesQuantitiesBothWays(t *testing.T) {
	repo := newFakeBinders()
	repo.put("ash", "base1", domain.BinderCard{CardID: "base1-4", Quantity: 2})
	repo.put("misty", "jungle", domain.BinderCard{CardID: "jungle-10", Quantity: 5})

	offered := []domain.CardRef{{CardID: "base1-4", Quantity: 2}}
	requested := []domain.CardRef{{CardID: "jungle-10", Quantity: 3}}

	before := map[string]int{
		"base1-4":   repo.quantity("ash", "base1-4") + repo.quantity("misty", "base1-4"),
		"jungle-10": repo.quantity("ash", "jungle-10") + repo.quantity("misty", "jungle-10"),
	}

	_, err := run(NewExchanger(fakeNames{}, nil), repo, trade(offered, requested))
	require.NoError(t, err)

	for cardID, total := range before {
		assert.Equal(t, total, repo.quantity("ash", cardID)+repo.quantity("misty", cardID), cardID)
	}
	assert.Equal(t, 2, repo.quantity("misty", "base1-4"))
	assert.Equal(t, 3, repo.quantity("ash", "jungle-10"))
	assert.Equal(t, 2, repo.quantity("misty", "jungle-10"))
}

func TestExecute_SkipsMissingDonorCard(t *testing.T) {
	repo := newFakeBinders()

	report, err := run(NewExchanger(fakeNames{}, nil), repo,
		trade([]domain.CardRef{{CardID: "base1-4", Quantity: 1}}, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, repo.quantity("misty", "base1-4"), "addition still applied")
	assert.Equal(t, 1, report.SkippedCount())
	assert.Empty(t, report.Removed)
	assert.ErrorContains(t, report.Skipped, "base1-4")
}

func TestExecute_CatalogFailureLabelsWithSetID(t *testing.T) {
	repo := newFakeBinders()
	repo.put("ash", "fossil", domain.BinderCard{CardID: "fossil-1", Quantity: 1})

	_, err := run(NewExchanger(failingNames{}, nil), repo,
		trade([]domain.CardRef{{CardID: "fossil-1", Quantity: 1}}, nil))
	require.NoError(t, err)

	b := domain.FindBinder(repo.binders["misty"], "fossil")
	require.NotNil(t, b)
	assert.Equal(t, "fossil", b.SetName)
}

func TestExecute_SameOwnerSameSetCreatesOneBinder(t *testing.T) {
	repo := newFakeBinders()
	repo.put("ash", "base1",
		domain.BinderCard{CardID: "base1-4", Quantity: 1},
		domain.BinderCard{CardID: "base1-58", Quantity: 1},
	)

	report, err := run(NewExchanger(nil, nil), repo, trade([]domain.CardRef{
		{CardID: "base1-4", Quantity: 1},
		{CardID: "base1-58", Quantity: 1},
	}, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, report.CreatedBinders)
	assert.Len(t, repo.binders["misty"], 1)
	assert.Equal(t, 1, repo.quantity("misty", "base1-58"))
}

func TestResolveSetNames_LooksUpEachSetOnce(t *testing.T) {
	names := &countingNames{names: fakeNames{"base1": "Base Set"}}
	ex := NewExchanger(names, nil)

	got := ex.ResolveSetNames(context.Background(), trade(
		[]domain.CardRef{{CardID: "base1-4", Quantity: 1}, {CardID: "base1-58", Quantity: 1}},
		[]domain.CardRef{{CardID: "jungle-10", Quantity: 2}},
	))

	assert.Equal(t, SetNames{"base1": "Base Set", "jungle": "jungle"}, got)
	assert.Equal(t, 2, names.calls)
}

func TestExecute_UsesResolvedNamesWithoutCatalog(t *testing.T) {
	repo := newFakeBinders()
	names := &countingNames{names: fakeNames{"base1": "Base Set"}}
	ex := NewExchanger(names, nil)
	tr := trade(nil, []domain.CardRef{{CardID: "base1-4", Quantity: 1}, {CardID: "neo1-9", Quantity: 1}})

	_, err := ex.Execute(context.Background(), repo, tr, SetNames{"base1": "Base Set"})
	require.NoError(t, err)

	assert.Zero(t, names.calls, "the exchange itself never calls the catalog")
	assert.Equal(t, "Base Set", domain.FindBinder(repo.binders["ash"], "base1").SetName)
	assert.Equal(t, "neo1", domain.FindBinder(repo.binders["ash"], "neo1").SetName)
}

func TestExecute_LocksBothInventoriesFirst(t *testing.T) {
	repo := newFakeBinders()
	_, err := run(NewExchanger(nil, nil), repo, trade([]domain.CardRef{{CardID: "base1-4", Quantity: 1}}, nil))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ash", "misty"}, repo.locked)
}

func TestExecute_ReportsOnlyHeldCopiesAsRemoved(t *testing.T) {
	repo := newFakeBinders()
	repo.put("ash", "base1", domain.BinderCard{CardID: "base1-4", Quantity: 1})

	report, err := run(NewExchanger(nil, nil), repo, trade([]domain.CardRef{{CardID: "base1-4", Quantity: 3}}, nil))
	require.NoError(t, err)

	assert.Equal(t, 3, report.QuantityAdded())
	assert.Equal(t, 1, report.QuantityRemoved())
	assert.Equal(t, []Movement{{Owner: "ash", CardID: "base1-4", Quantity: 1}}, report.Removed)
	assert.Zero(t, report.SkippedCount())
	assert.Zero(t, repo.quantity("ash", "base1-4"))
}
