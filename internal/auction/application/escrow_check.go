package application

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"go.uber.org/zap"
)

// VerifyEscrow checks that escrow holds every asset and leading bid of the active auctions in
// the ledger. A ledger that outlived its chain fails here instead of on every settlement.
func VerifyEscrow(ctx context.Context, auctions domain.AuctionRepository, chain domain.Chain, escrow domain.Address) error {
	ids, err := auctions.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("verify escrow: list active auctions: %w", err)
	}
	owed := make(map[domain.Currency]*big.Int)
	for _, id := range ids {
		a, err := auctions.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("verify escrow: auction %d: %w", id, err)
		}
		owner, err := chain.OwnerOf(ctx, a.Asset)
		if err != nil {
			return fmt.Errorf("verify escrow: auction %d: %w: owner of %s: %v", id, domain.ErrEscrowMismatch, a.Asset, err)
		}
		if owner != escrow {
			log.Error("Escrow does not hold auctioned asset",
				zap.Uint64("auctionID", id),
				zap.String("asset", a.Asset.Key()),
				zap.String("owner", owner.Hex()),
			)
			return fmt.Errorf("verify escrow: auction %d: %w: asset %s held by %s", id, domain.ErrEscrowMismatch, a.Asset, owner.Hex())
		}
		if a.HasBids() {
			sum, ok := owed[a.HighestCurrency]
			if !ok {
				sum = new(big.Int)
				owed[a.HighestCurrency] = sum
			}
			sum.Add(sum, a.HighestBid)
		}
	}
	for currency, amount := range owed {
		bal, err := chain.BalanceOf(ctx, currency, escrow)
		if err != nil {
			return fmt.Errorf("verify escrow: balance of %s: %w", currency.Hex(), err)
		}
		if bal.Cmp(amount) < 0 {
			log.Error("Escrow balance below leading bids",
				zap.String("currency", currency.Hex()),
				zap.Stringer("balance", bal),
				zap.Stringer("owed", amount),
			)
			return fmt.Errorf("verify escrow: %w: %s balance %s below %s", domain.ErrEscrowMismatch, currency.Hex(), bal, amount)
		}
	}
	log.Info("Escrow matches ledger", zap.Int("activeAuctions", len(ids)))
	return nil
}
