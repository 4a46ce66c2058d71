package domain

import (
	"context"
	"time"
)

// Tx is a ledger transaction. Writes staged through a Tx become visible on Commit only.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxManager opens ledger transactions.
type TxManager interface {
	BeginTx(ctx context.Context) (Tx, error)
}

type AuctionRepository interface {
	GetByID(ctx context.Context, id uint64) (*Auction, error)
	Save(ctx context.Context, tx Tx, auction *Auction) error
	// GetEndedActive lists active auctions whose end time is not after now.
	GetEndedActive(ctx context.Context, now time.Time) ([]uint64, error)
	// GetActive lists every auction not yet settled.
	GetActive(ctx context.Context) ([]uint64, error)
}

type BidRepository interface {
	Save(ctx context.Context, tx Tx, bid *Bid) error
	GetBidsByAuctionID(ctx context.Context, auctionID uint64) ([]*Bid, error)
}

// StateRepository persists the versioned engine storage.
type StateRepository interface {
	// Load returns the stored state, or nil when the engine was never initialized.
	Load(ctx context.Context) (*EngineState, error)
	Save(ctx context.Context, tx Tx, state *EngineState) error
}

// FeedRegistration maps a settlement currency to the address of its price source.
type FeedRegistration struct {
	Currency Currency
	Source   Address
}

type FeedRepository interface {
	// Get returns ErrPricingUnavailable when no feed is registered for currency.
	Get(ctx context.Context, currency Currency) (Address, error)
	Put(ctx context.Context, tx Tx, currency Currency, source Address) error
	List(ctx context.Context) ([]FeedRegistration, error)
}
