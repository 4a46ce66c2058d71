package application

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"go.uber.org/zap"
)

// Settlement describes what EndAuction moved.
type Settlement struct {
	AuctionID      uint64
	Sold           bool
	Seller         domain.Address
	Winner         domain.Address
	Currency       domain.Currency
	Amount         *big.Int
	SellerProceeds *big.Int
	Fee            *big.Int
	FeeRecipient   domain.Address
}

// EndAuctionUseCase closes an auction after its end time. Anyone may call it.
type EndAuctionUseCase struct {
	*engine
}

func newEndAuctionUseCase(e *engine) *EndAuctionUseCase {
	return &EndAuctionUseCase{engine: e}
}

func (uc *EndAuctionUseCase) Execute(ctx context.Context, auctionID uint64) (*Settlement, error) {
	log.Info("Executing EndAuctionUseCase", zap.Uint64("auctionID", auctionID))

	var settlement *Settlement
	err := uc.serialize(ctx, func(ctx context.Context) error {
		auction, err := uc.Auctions.GetByID(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("end auction: failed to get auction %d: %w", auctionID, err)
		}
		now := uc.Clock.Now()
		if err := auction.CheckSettleable(now); err != nil {
			return fmt.Errorf("end auction: auction %d: %w", auctionID, err)
		}
		state, err := uc.loadState(ctx)
		if err != nil {
			return fmt.Errorf("end auction: %w", err)
		}

		s := plan(auction, auction.SettlementFee(state.EffectiveFee()))
		if err := auction.Close(now); err != nil {
			return fmt.Errorf("end auction: auction %d: %w", auctionID, err)
		}

		err = uc.inTransaction(ctx, "end auction", func(tx domain.Tx, chainTx domain.ChainTx) error {
			if err := uc.Auctions.Save(ctx, tx, auction); err != nil {
				return fmt.Errorf("end auction: failed to save auction %d: %w", auctionID, err)
			}
			if err := uc.transfer(ctx, chainTx, auction, s); err != nil {
				log.Error("EndAuctionUseCase: settlement transfer failed",
					zap.Uint64("auctionID", auctionID),
					zap.Bool("sold", s.Sold),
					zap.Error(err),
				)
				return fmt.Errorf("end auction %d: %w: %w", auctionID, domain.ErrSettlementFailed, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		settlement = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := domain.Event{
		Type:      domain.EventAuctionEnded,
		AuctionID: settlement.AuctionID,
		Actor:     settlement.Winner,
		Timestamp: uc.Clock.Now(),
	}
	if settlement.Sold {
		ev.Currency = settlement.Currency
		ev.Amount = settlement.Amount
		ev.Fee = settlement.Fee
		log.Info("Auction settled",
			zap.Uint64("auctionID", settlement.AuctionID),
			zap.String("winner", settlement.Winner.Hex()),
			zap.Stringer("amount", settlement.Amount),
			zap.Stringer("fee", settlement.Fee),
		)
	} else {
		ev.Actor = settlement.Seller
		log.Info("Auction closed without bids, asset returned",
			zap.Uint64("auctionID", settlement.AuctionID),
			zap.String("seller", settlement.Seller.Hex()),
		)
	}
	uc.publish(ctx, ev)
	return settlement, nil
}

// plan computes the settlement legs of auction under fee.
func plan(auction *domain.Auction, fee domain.FeePolicy) *Settlement {
	s := &Settlement{
		AuctionID: auction.ID,
		Seller:    auction.Seller,
		Sold:      auction.HasBids(),
	}
	if !s.Sold {
		return s
	}
	s.Winner = auction.HighestBidder
	s.Currency = auction.HighestCurrency
	s.Amount = new(big.Int).Set(auction.HighestBid)
	s.Fee, s.SellerProceeds = domain.SplitFee(auction.HighestBid, fee.FeeRateBps)
	s.FeeRecipient = fee.FeeRecipient
	return s
}

func (uc *EndAuctionUseCase) transfer(ctx context.Context, chainTx domain.ChainTx, auction *domain.Auction, s *Settlement) error {
	if !s.Sold {
		return chainTx.TransferAsset(ctx, auction.Asset, uc.Escrow, s.Seller)
	}
	if s.SellerProceeds.Sign() > 0 {
		if err := chainTx.TransferCurrency(ctx, s.Currency, uc.Escrow, s.Seller, s.SellerProceeds); err != nil {
			return fmt.Errorf("pay seller: %w", err)
		}
	}
	if s.Fee.Sign() > 0 {
		if err := chainTx.TransferCurrency(ctx, s.Currency, uc.Escrow, s.FeeRecipient, s.Fee); err != nil {
			return fmt.Errorf("pay platform fee: %w", err)
		}
	}
	if err := chainTx.TransferAsset(ctx, auction.Asset, uc.Escrow, s.Winner); err != nil {
		return fmt.Errorf("deliver asset: %w", err)
	}
	return nil
}
