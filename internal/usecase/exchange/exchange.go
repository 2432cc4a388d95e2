// Package exchange moves traded cards between the two parties' binders.
package exchange

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// SetNamer resolves the display name of a card set.
type SetNamer interface {
	SetName(ctx context.Context, setID string) (name string, found bool, err error)
}

// Movement is one binder entry change applied by the exchange.
type Movement struct {
	Owner    string `json:"owner"`
	CardID   string `json:"card_id"`
	Quantity int    `json:"quantity"`
}

type Report struct {
	TradeID        int64      `json:"trade_id"`
	Added          []Movement `json:"added"`
	Removed        []Movement `json:"removed"`
	CreatedBinders int        `json:"created_binders"`
	// Skipped aggregates removals that found no card in the donor's binder.
	Skipped *multierror.Error `json:"-"`
}

func (r *Report) SkippedCount() int {
	if r.Skipped == nil {
		return 0
	}
	return len(r.Skipped.Errors)
}

func (r *Report) QuantityAdded() int {
	return sumQuantity(r.Added)
}

func (r *Report) QuantityRemoved() int {
	return sumQuantity(r.Removed)
}

type Exchanger struct {
	names  SetNamer
	logger *zap.Logger
}

func NewExchanger(names SetNamer, logger *zap.Logger) *Exchanger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exchanger{names: names, logger: logger}
}

// SetNames maps set id to the label given to binders created for that set.
type SetNames map[string]string

// label falls back to the set id for sets that were not resolved.
func (n SetNames) label(setID string) string {
	if name, ok := n[setID]; ok && name != "" {
		return name
	}
	return setID
}

// ResolveSetNames looks up the name of every set the trade touches. It talks to the catalog and
// must run before any storage lock is taken. Failed or unknown lookups resolve to the set id.
func (e *Exchanger) ResolveSetNames(ctx context.Context, trade *domain.Trade) SetNames {
	names := make(SetNames)
	for _, cards := range [][]domain.CardRef{trade.OfferedCards, trade.RequestedCards} {
		for _, c := range cards {
			setID, err := domain.SetIDFromCardID(c.CardID)
			if err != nil {
				continue
			}
			if _, done := names[setID]; done {
				continue
			}
			names[setID] = e.setName(ctx, setID)
		}
	}
	return names
}

// ledger holds the binders touched by one exchange, loaded once per owner.
type ledger struct {
	repo    domain.BinderRepository
	names   SetNames
	binders map[string][]*domain.Binder
	dirty   map[*domain.Binder]struct{}
}

// Execute applies the trade's frozen card lists to the binders reachable through repo.
// Both parties' inventories are locked first, then additions run before removals.
// It must be called inside the transaction that completes the trade and does no I/O besides repo.
func (e *Exchanger) Execute(ctx context.Context, repo domain.BinderRepository, trade *domain.Trade, names SetNames) (*Report, error) {
	if err := repo.LockOwners(ctx, trade.ProposerID, trade.ReceiverID); err != nil {
		return nil, fmt.Errorf("lock binders: %w", err)
	}

	l := &ledger{
		repo:    repo,
		names:   names,
		binders: make(map[string][]*domain.Binder),
		dirty:   make(map[*domain.Binder]struct{}),
	}
	report := &Report{TradeID: trade.ID}

	if err := e.addAll(ctx, l, report, trade.ReceiverID, trade.OfferedCards); err != nil {
		return nil, err
	}
	if err := e.addAll(ctx, l, report, trade.ProposerID, trade.RequestedCards); err != nil {
		return nil, err
	}
	if err := e.removeAll(ctx, l, report, trade.ProposerID, trade.OfferedCards); err != nil {
		return nil, err
	}
	if err := e.removeAll(ctx, l, report, trade.ReceiverID, trade.RequestedCards); err != nil {
		return nil, err
	}

	for b := range l.dirty {
		if err := repo.SaveBinder(ctx, b); err != nil {
			return nil, domain.NewPersistenceError("save binder", err)
		}
	}
	return report, nil
}

func (e *Exchanger) addAll(ctx context.Context, l *ledger, report *Report, owner string, cards []domain.CardRef) error {
	for _, c := range cards {
		setID, err := domain.SetIDFromCardID(c.CardID)
		if err != nil {
			return err
		}
		binders, err := l.load(ctx, owner)
		if err != nil {
			return err
		}

		b := domain.FindBinder(binders, setID)
		if b == nil {
			b, err = l.repo.CreateBinder(ctx, owner, setID, l.names.label(setID))
			if err != nil {
				return domain.NewPersistenceError("create binder", err)
			}
			l.binders[owner] = append(l.binders[owner], b)
			report.CreatedBinders++
		}

		b.AddCard(c.CardID, c.Quantity)
		l.dirty[b] = struct{}{}
		report.Added = append(report.Added, Movement{Owner: owner, CardID: c.CardID, Quantity: c.Quantity})
	}
	return nil
}

func (e *Exchanger) removeAll(ctx context.Context, l *ledger, report *Report, owner string, cards []domain.CardRef) error {
	for _, c := range cards {
		setID, err := domain.SetIDFromCardID(c.CardID)
		if err != nil {
			return err
		}
		binders, err := l.load(ctx, owner)
		if err != nil {
			return err
		}

		removed := 0
		b := domain.FindBinder(binders, setID)
		if b != nil {
			removed = b.RemoveCard(c.CardID, c.Quantity)
		}
		if removed == 0 {
			miss := fmt.Errorf("card %s not in %s's binder for set %s", c.CardID, owner, setID)
			e.logger.Warn("exchange: skipping removal of missing card",
				zap.Int64("trade_id", report.TradeID),
				zap.String("username", owner),
				zap.String("card_id", c.CardID),
			)
			report.Skipped = multierror.Append(report.Skipped, miss)
			continue
		}
		if removed < c.Quantity {
			e.logger.Warn("exchange: donor held fewer copies than traded",
				zap.Int64("trade_id", report.TradeID),
				zap.String("username", owner),
				zap.String("card_id", c.CardID),
				zap.Int("traded", c.Quantity),
				zap.Int("removed", removed),
			)
		}

		l.dirty[b] = struct{}{}
		report.Removed = append(report.Removed, Movement{Owner: owner, CardID: c.CardID, Quantity: removed})
	}
	return nil
}

func (e *Exchanger) setName(ctx context.Context, setID string) string {
	if e.names == nil {
		return setID
	}
	name, found, err := e.names.SetName(ctx, setID)
	if err != nil {
		e.logger.Warn("exchange: catalog lookup failed, labelling binder with set id",
			zap.String("set_id", setID), zap.Error(err))
		return setID
	}
	if !found || name == "" {
		e.logger.Warn("exchange: unknown set, labelling binder with set id", zap.String("set_id", setID))
		return setID
	}
	return name
}

func (l *ledger) load(ctx context.Context, owner string) ([]*domain.Binder, error) {
	if binders, ok := l.binders[owner]; ok {
		return binders, nil
	}
	binders, err := l.repo.GetUserBinders(ctx, owner)
	if err != nil {
		return nil, domain.NewPersistenceError("get user binders", err)
	}
	l.binders[owner] = binders
	return binders, nil
}

func sumQuantity(moves []Movement) int {
	total := 0
	for _, m := range moves {
		total += m.Quantity
	}
	return total
}
