// Package memory is a process-local Storage used for development and tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/google/uuid"
)

type Storage struct {
	mu           sync.RWMutex
	trades       map[int64]*domain.Trade
	proposals    map[string]*domain.Proposal
	binders      map[string]map[string]*domain.Binder // owner -> set id
	nextTradeID  int64
	nextBinderID int64

	locks *keyedLocks
}

func NewStorage() *Storage {
	return &Storage{
		trades:    make(map[int64]*domain.Trade),
		proposals: make(map[string]*domain.Proposal),
		binders:   make(map[string]map[string]*domain.Binder),
		locks:     newKeyedLocks(),
	}
}

// Outside a transaction every write is applied immediately.
func (s *Storage) Trades() domain.TradeRepository       { return &repos{s: s} }
func (s *Storage) Binders() domain.BinderRepository     { return &repos{s: s} }
func (s *Storage) Proposals() domain.ProposalRepository { return &repos{s: s} }

func (s *Storage) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	t := &tx{s: s}
	defer t.unlock()

	if err := fn(ctx, t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

func (s *Storage) WithinTradeLock(ctx context.Context, tradeID int64, fn func(ctx context.Context, repos domain.Repositories) error) error {
	return s.withinLock(ctx, "trade:"+strconv.FormatInt(tradeID, 10), func() bool {
		_, ok := s.trades[tradeID]
		return ok
	}, fn)
}

func (s *Storage) WithinProposalLock(ctx context.Context, proposalID string, fn func(ctx context.Context, repos domain.Repositories) error) error {
	return s.withinLock(ctx, "proposal:"+proposalID, func() bool {
		_, ok := s.proposals[proposalID]
		return ok
	}, fn)
}

func (s *Storage) withinLock(ctx context.Context, key string, exists func() bool, fn func(ctx context.Context, repos domain.Repositories) error) error {
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return domain.NewPersistenceError("lock "+key, err)
	}
	defer unlock()

	s.mu.RLock()
	ok := exists()
	s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}
	return s.WithinTx(ctx, fn)
}

// tx records an undo entry for every write so a failed fn leaves storage untouched.
// Binder access takes the owner's inventory lock, held until the transaction ends.
type tx struct {
	s      *Storage
	undo   []func()
	owners map[string]func()
}

func (t *tx) Trades() domain.TradeRepository       { return &repos{s: t.s, tx: t} }
func (t *tx) Binders() domain.BinderRepository     { return &repos{s: t.s, tx: t} }
func (t *tx) Proposals() domain.ProposalRepository { return &repos{s: t.s, tx: t} }

func (t *tx) record(undo func()) {
	t.undo = append(t.undo, undo)
}

func (t *tx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func binderLockKey(owner string) string {
	return "binders:" + owner
}

// lockOwners locks the inventories not yet held by t in sorted owner order.
func (t *tx) lockOwners(ctx context.Context, owners ...string) error {
	pending := make([]string, 0, len(owners))
	for _, owner := range owners {
		if _, held := t.owners[owner]; !held {
			pending = append(pending, owner)
		}
	}
	sort.Strings(pending)

	for i, owner := range pending {
		if i > 0 && pending[i-1] == owner {
			continue
		}
		unlock, err := t.s.locks.Lock(ctx, binderLockKey(owner))
		if err != nil {
			return domain.NewPersistenceError("lock binders of "+owner, err)
		}
		if t.owners == nil {
			t.owners = make(map[string]func())
		}
		t.owners[owner] = unlock
	}
	return nil
}

func (t *tx) unlock() {
	for owner, unlock := range t.owners {
		unlock()
		delete(t.owners, owner)
	}
}

// repos implements every repository port; tx is nil outside a transaction.
type repos struct {
	s  *Storage
	tx *tx
}

func (r *repos) record(undo func()) {
	if r.tx != nil {
		r.tx.record(undo)
	}
}

func (r *repos) GetTrade(_ context.Context, tradeID int64) (*domain.Trade, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.trades[tradeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *repos) CreateTrade(_ context.Context, trade *domain.Trade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextTradeID++
	trade.ID = r.s.nextTradeID
	r.s.trades[trade.ID] = trade.Clone()

	id := trade.ID
	r.record(func() { delete(r.s.trades, id) })
	return nil
}

func (r *repos) SaveTrade(_ context.Context, trade *domain.Trade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.trades[trade.ID]
	if !ok {
		return domain.ErrNotFound
	}
	r.s.trades[trade.ID] = trade.Clone()
	r.record(func() { r.s.trades[prev.ID] = prev })
	return nil
}

func (r *repos) UpdateTradeStatus(_ context.Context, tradeID int64, status domain.TradeStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.trades[tradeID]
	if !ok {
		return domain.ErrNotFound
	}
	next := prev.Clone()
	next.Status = status
	r.s.trades[tradeID] = next
	r.record(func() { r.s.trades[tradeID] = prev })
	return nil
}

func (r *repos) FindByParticipants(_ context.Context, proposerID, receiverID string) ([]*domain.Trade, error) {
	return r.filterTrades(func(t *domain.Trade) bool {
		return t.ProposerID == proposerID && t.ReceiverID == receiverID
	}), nil
}

func (r *repos) ListForUser(_ context.Context, username string) ([]*domain.Trade, error) {
	return r.filterTrades(func(t *domain.Trade) bool {
		return t.Involves(username)
	}), nil
}

func (r *repos) FindByStatusesBefore(_ context.Context, statuses []domain.TradeStatus, before time.Time) ([]*domain.Trade, error) {
	wanted := make(map[domain.TradeStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	return r.filterTrades(func(t *domain.Trade) bool {
		return wanted[t.Status] && t.UpdatedAt.Before(before)
	}), nil
}

func (r *repos) filterTrades(keep func(*domain.Trade) bool) []*domain.Trade {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Trade
	for _, t := range r.s.trades {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *repos) LockOwners(ctx context.Context, owners ...string) error {
	if r.tx == nil {
		return nil
	}
	return r.tx.lockOwners(ctx, owners...)
}

func (r *repos) GetUserBinders(ctx context.Context, owner string) ([]*domain.Binder, error) {
	if r.tx != nil {
		if err := r.tx.lockOwners(ctx, owner); err != nil {
			return nil, err
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Binder, 0, len(r.s.binders[owner]))
	for _, b := range r.s.binders[owner] {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repos) CreateBinder(ctx context.Context, owner, setID, setName string) (*domain.Binder, error) {
	if r.tx != nil {
		if err := r.tx.lockOwners(ctx, owner); err != nil {
			return nil, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sets, ok := r.s.binders[owner]
	if !ok {
		sets = make(map[string]*domain.Binder)
		r.s.binders[owner] = sets
	}
	if existing, ok := sets[setID]; ok {
		return existing.Clone(), nil
	}

	r.s.nextBinderID++
	b := &domain.Binder{ID: r.s.nextBinderID, Owner: owner, SetID: setID, SetName: setName, Cards: []domain.BinderCard{}}
	sets[setID] = b
	r.record(func() { delete(r.s.binders[owner], setID) })
	return b.Clone(), nil
}

func (r *repos) SaveBinder(ctx context.Context, binder *domain.Binder) error {
	if r.tx != nil {
		if err := r.tx.lockOwners(ctx, binder.Owner); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.binders[binder.Owner][binder.SetID]
	if !ok || prev.ID != binder.ID {
		return domain.ErrNotFound
	}
	r.s.binders[binder.Owner][binder.SetID] = binder.Clone()
	r.record(func() { r.s.binders[prev.Owner][prev.SetID] = prev })
	return nil
}

func (r *repos) CreateProposal(_ context.Context, proposal *domain.Proposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if proposal.ID == "" {
		proposal.ID = uuid.New().String()
	}
	if _, ok := r.s.proposals[proposal.ID]; ok {
		return domain.NewPersistenceError("create proposal", errDuplicateID)
	}
	r.s.proposals[proposal.ID] = proposal.Clone()
	id := proposal.ID
	r.record(func() { delete(r.s.proposals, id) })
	return nil
}

func (r *repos) GetProposalByID(_ context.Context, proposalID string) (*domain.Proposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.proposals[proposalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *repos) UpdateProposal(_ context.Context, proposal *domain.Proposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.proposals[proposal.ID]
	if !ok {
		return domain.ErrNotFound
	}
	r.s.proposals[proposal.ID] = proposal.Clone()
	r.record(func() { r.s.proposals[prev.ID] = prev })
	return nil
}

func (r *repos) GetSentPending(_ context.Context, username string) ([]*domain.Proposal, error) {
	return r.filterProposals(func(p *domain.Proposal) bool {
		return p.ProposerID == username && (p.Status == domain.ProposalPending || p.Status == domain.ProposalExpired)
	}), nil
}

func (r *repos) GetReceived(_ context.Context, username string) ([]*domain.Proposal, error) {
	return r.filterProposals(func(p *domain.Proposal) bool {
		return p.ReceiverID == username
	}), nil
}

func (r *repos) FindStalePending(_ context.Context, before time.Time) ([]*domain.Proposal, error) {
	return r.filterProposals(func(p *domain.Proposal) bool {
		return p.Status == domain.ProposalPending && p.LastUpdated.Before(before)
	}), nil
}

func (r *repos) filterProposals(keep func(*domain.Proposal) bool) []*domain.Proposal {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Proposal
	for _, p := range r.s.proposals {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
