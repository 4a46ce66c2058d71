package application

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"go.uber.org/zap"
)

// Keeper periodically settles auctions whose window closed. Settlement is open to anyone,
// the keeper is just a caller that never forgets.
type Keeper struct {
	service  AuctionService
	auctions domain.AuctionRepository
	clock    clock.Clock
	interval time.Duration
}

func NewKeeper(service AuctionService, auctions domain.AuctionRepository, clk clock.Clock, interval time.Duration) *Keeper {
	return &Keeper{service: service, auctions: auctions, clock: clk, interval: interval}
}

// Run settles due auctions every interval until ctx is done.
func (k *Keeper) Run(ctx context.Context) {
	log.Info("Settlement keeper started", zap.Duration("interval", k.interval))
	ticker := k.clock.Ticker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Settlement keeper stopped")
			return
		case <-ticker.C:
			if _, err := k.SettleDue(ctx); err != nil {
				log.Error("Settlement keeper pass failed", zap.Error(err))
			}
		}
	}
}

// SettleDue ends every active auction past its end time and returns how many it settled.
// A failed settlement is logged and retried on the next pass.
func (k *Keeper) SettleDue(ctx context.Context) (int, error) {
	ids, err := k.auctions.GetEndedActive(ctx, k.clock.Now())
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, id := range ids {
		if _, err := k.service.EndAuction(ctx, id); err != nil {
			if errors.Is(err, domain.ErrAlreadyClosed) {
				continue
			}
			log.Warn("Keeper could not settle auction",
				zap.Uint64("auctionID", id),
				zap.Error(err),
			)
			continue
		}
		settled++
	}
	return settled, nil
}
