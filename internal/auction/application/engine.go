package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// ErrNotInitialized is returned when the engine storage was never written.
var ErrNotInitialized = errors.New("engine storage is not initialized")

// PriceOracle is the part of the oracle adapter the engine needs.
type PriceOracle interface {
	domain.PriceOracle
	RegisterFeed(ctx context.Context, tx domain.Tx, currency domain.Currency, source domain.Address) error
	Feeds(ctx context.Context) ([]domain.FeedRegistration, error)
}

// Dependencies groups everything the use cases share.
type Dependencies struct {
	TxManager domain.TxManager
	Auctions  domain.AuctionRepository
	Bids      domain.BidRepository
	State     domain.StateRepository
	Oracle    PriceOracle
	Chain     domain.Chain
	Events    domain.EventPublisher
	Clock     clock.Clock
	// Escrow is the engine's own account: it holds assets and bids until settlement.
	Escrow domain.Address
}

// engine is the core every mutating use case runs through. It totally orders calls and
// opens the ledger and chain transactions of each call.
type engine struct {
	Dependencies
	mu sync.Mutex
	// transferring is set while a transfer runs on behalf of the lock holder. Receive hooks
	// run inside that window, so any engine call arriving then is a callback.
	transferring atomic.Bool
}

type inCallKey struct{}

func newEngine(deps Dependencies) *engine {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Events == nil {
		deps.Events = NewLogPublisher()
	}
	return &engine{Dependencies: deps}
}

// serialize runs fn while no other mutating call runs. A call made from inside fn, either
// with the context fn received or while one of its transfers is running, is rejected
// instead of waiting on the lock its caller holds.
func (e *engine) serialize(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inCallKey{}) != nil || e.transferring.Load() {
		log.Warn("Reentrant engine call rejected")
		return domain.ErrReentrantCall
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(context.WithValue(ctx, inCallKey{}, true))
}

// inTransaction runs fn with a ledger tx and a chain tx. Both commit when fn returns nil,
// both roll back otherwise. fn must stage every ledger write before its first transfer.
func (e *engine) inTransaction(ctx context.Context, op string, fn func(tx domain.Tx, chainTx domain.ChainTx) error) (err error) {
	tx, err := e.TxManager.BeginTx(ctx)
	if err != nil {
		log.Error("Failed to begin ledger transaction", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	rawTx, err := e.Chain.Begin(ctx, e.Escrow)
	if err != nil {
		_ = tx.Rollback(ctx)
		log.Error("Failed to begin chain transaction", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: failed to begin chain transaction: %w", op, err)
	}
	chainTx := &guardedChainTx{ChainTx: rawTx, transferring: &e.transferring}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic during transaction",
				zap.String("op", op),
				zap.Any("panic", r),
			)
			_ = chainTx.Rollback(ctx)
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err != nil {
			log.Warn("Rolling back transaction due to error",
				zap.String("op", op),
				zap.Error(err),
			)
			if rbErr := chainTx.Rollback(ctx); rbErr != nil {
				log.Error("Failed to roll back chain transaction", zap.String("op", op), zap.Error(rbErr))
			}
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error("Failed to commit ledger transaction",
				zap.String("op", op),
				zap.Error(commitErr),
			)
			_ = chainTx.Rollback(ctx)
			err = fmt.Errorf("%s: failed to commit transaction: %w", op, commitErr)
			return
		}
		if commitErr := chainTx.Commit(ctx); commitErr != nil {
			// the ledger is already committed, only an operator can reconcile this
			log.Error("Ledger committed but chain commit failed",
				zap.String("op", op),
				zap.Error(commitErr),
			)
			err = fmt.Errorf("%s: failed to commit chain transaction: %w", op, commitErr)
			return
		}
		log.Debug("Transaction committed successfully", zap.String("op", op))
	}()

	err = fn(tx, chainTx)
	return err
}

// guardedChainTx flags the engine as transferring for the duration of every transfer.
type guardedChainTx struct {
	domain.ChainTx
	transferring *atomic.Bool
}

func (t *guardedChainTx) TransferCurrency(ctx context.Context, currency domain.Currency, from, to domain.Address, amount *big.Int) error {
	t.transferring.Store(true)
	defer t.transferring.Store(false)
	return t.ChainTx.TransferCurrency(ctx, currency, from, to, amount)
}

func (t *guardedChainTx) TransferAsset(ctx context.Context, asset domain.Asset, from, to domain.Address) error {
	t.transferring.Store(true)
	defer t.transferring.Store(false)
	return t.ChainTx.TransferAsset(ctx, asset, from, to)
}

func (e *engine) loadState(ctx context.Context) (*domain.EngineState, error) {
	state, err := e.State.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load engine state: %w", err)
	}
	if state == nil {
		return nil, ErrNotInitialized
	}
	return state, nil
}

// init writes a fresh v1 storage when none exists. Existing storage is left untouched.
func (e *engine) init(ctx context.Context, admin domain.Address) error {
	state, err := e.State.Load(ctx)
	if err != nil {
		return fmt.Errorf("load engine state: %w", err)
	}
	if state != nil {
		log.Info("Engine storage found",
			zap.Uint8("version", uint8(state.Version)),
			zap.String("admin", state.Admin.Hex()),
			zap.Uint64("nextAuctionID", state.NextAuctionID),
		)
		return nil
	}
	tx, err := e.TxManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("init engine state: %w", err)
	}
	if err := e.State.Save(ctx, tx, domain.NewEngineState(admin)); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("init engine state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("init engine state: %w", err)
	}
	log.Info("Engine storage initialized", zap.String("admin", admin.Hex()))
	return nil
}

func (e *engine) publish(ctx context.Context, events ...domain.Event) {
	for _, ev := range events {
		e.Events.Publish(ctx, ev)
	}
}
