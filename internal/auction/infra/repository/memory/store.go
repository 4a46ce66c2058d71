// Package memory keeps the auction ledger in process memory. Writes are staged on a Tx
// and applied together on Commit, so a rolled back call leaves no trace.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
)

var (
	ErrTxDone    = errors.New("memory: transaction already committed or rolled back")
	ErrForeignTx = errors.New("memory: transaction was not opened by this store")
)

// Store holds every table of the ledger.
type Store struct {
	mu       sync.RWMutex
	auctions map[uint64]*domain.Auction
	bids     map[uint64][]*domain.Bid
	state    *domain.EngineState
	feeds    map[domain.Currency]domain.Address
}

func NewStore() *Store {
	return &Store{
		auctions: make(map[uint64]*domain.Auction),
		bids:     make(map[uint64][]*domain.Bid),
		feeds:    make(map[domain.Currency]domain.Address),
	}
}

// Tx stages writes until Commit.
type Tx struct {
	store *Store
	ops   []func()
	done  bool
}

// BeginTx implements domain.TxManager.
func (s *Store) BeginTx(ctx context.Context) (domain.Tx, error) {
	return &Tx{store: s}, nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, op := range t.ops {
		op()
	}
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.ops = nil
	return nil
}

func (s *Store) stage(tx domain.Tx, op func()) error {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return ErrForeignTx
	}
	if t.done {
		return ErrTxDone
	}
	t.ops = append(t.ops, op)
	return nil
}
