package domain

import (
	"context"
	"time"
)

type TradeRepository interface {
	GetTrade(ctx context.Context, tradeID int64) (*Trade, error)
	CreateTrade(ctx context.Context, trade *Trade) error
	SaveTrade(ctx context.Context, trade *Trade) error
	UpdateTradeStatus(ctx context.Context, tradeID int64, status TradeStatus) error
	FindByParticipants(ctx context.Context, proposerID, receiverID string) ([]*Trade, error)
	ListForUser(ctx context.Context, username string) ([]*Trade, error)
	FindByStatusesBefore(ctx context.Context, statuses []TradeStatus, before time.Time) ([]*Trade, error)
}

type BinderRepository interface {
	// LockOwners takes the inventory locks of the given owners, in sorted order, for the rest of
	// the transaction. It is a no-op outside a transaction.
	LockOwners(ctx context.Context, owners ...string) error
	GetUserBinders(ctx context.Context, owner string) ([]*Binder, error)
	CreateBinder(ctx context.Context, owner, setID, setName string) (*Binder, error)
	SaveBinder(ctx context.Context, binder *Binder) error
}

type ProposalRepository interface {
	CreateProposal(ctx context.Context, proposal *Proposal) error
	GetProposalByID(ctx context.Context, proposalID string) (*Proposal, error)
	UpdateProposal(ctx context.Context, proposal *Proposal) error
	GetSentPending(ctx context.Context, username string) ([]*Proposal, error)
	GetReceived(ctx context.Context, username string) ([]*Proposal, error)
	FindStalePending(ctx context.Context, before time.Time) ([]*Proposal, error)
}

// SetCatalog labels newly created binders. It maps set id to set name.
type SetCatalog interface {
	GetAllSets(ctx context.Context) (map[string]string, error)
}

// Repositories is a view of storage bound to one storage transaction.
type Repositories interface {
	Trades() TradeRepository
	Binders() BinderRepository
	Proposals() ProposalRepository
}

// Transactor runs fn atomically: every write made through the given Repositories
// is committed when fn returns nil and discarded otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	// WithinTradeLock additionally holds an exclusive lock on the trade for the duration of fn.
	// Returns ErrNotFound when the trade does not exist.
	WithinTradeLock(ctx context.Context, tradeID int64, fn func(ctx context.Context, repos Repositories) error) error
	// WithinProposalLock is WithinTradeLock for proposals.
	WithinProposalLock(ctx context.Context, proposalID string, fn func(ctx context.Context, repos Repositories) error) error
}

// Storage is a complete persistence back end.
type Storage interface {
	Repositories
	Transactor
}
