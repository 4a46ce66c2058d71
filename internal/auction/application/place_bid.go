package application

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceBidDTO is DTO input for PlaceBid useCase, contains the necesary data to make a bid.
// Value is the native coin attached to the call. For native bids Amount may be left nil,
// otherwise it must equal Value. For token bids Value must be zero.
type PlaceBidDTO struct {
	AuctionID uint64
	Bidder    domain.Address
	Currency  domain.Currency
	Amount    *big.Int
	Value     *big.Int
}

// PlaceBidUseCase admits a bid: it prices it in USD, compares it with the leader, takes the
// funds into escrow and refunds the displaced leader, all in one step.
type PlaceBidUseCase struct {
	*engine
}

func newPlaceBidUseCase(e *engine) *PlaceBidUseCase {
	return &PlaceBidUseCase{engine: e}
}

// bidAmount resolves the amount being bid from the explicit amount and the attached value.
func bidAmount(cmd PlaceBidDTO) (*big.Int, error) {
	value := cmd.Value
	if value == nil {
		value = new(big.Int)
	}
	if domain.IsNative(cmd.Currency) {
		if cmd.Amount != nil && cmd.Amount.Sign() != 0 && cmd.Amount.Cmp(value) != 0 {
			return nil, domain.ErrAmountMismatch
		}
		if value.Sign() <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		return new(big.Int).Set(value), nil
	}
	if value.Sign() != 0 {
		return nil, domain.ErrAmountMismatch
	}
	if cmd.Amount == nil || cmd.Amount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	return new(big.Int).Set(cmd.Amount), nil
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.Uint64("auctionID", cmd.AuctionID),
		zap.String("bidder", cmd.Bidder.Hex()),
		zap.String("currency", cmd.Currency.Hex()),
	)
	// 1. validates input DTO (input data only, bussines rules live in the domain)
	amount, err := bidAmount(cmd)
	if err != nil {
		log.Warn("PlaceBidUseCase: Invalid bid amount",
			zap.Uint64("auctionID", cmd.AuctionID),
			zap.String("bidder", cmd.Bidder.Hex()),
			zap.Error(err),
		)
		return nil, err
	}

	var (
		bid       *domain.Bid
		displaced *domain.Bid
	)
	err = uc.serialize(ctx, func(ctx context.Context) error {
		// 2. load the auction and fail fast on the bidding window
		auction, err := uc.Auctions.GetByID(ctx, cmd.AuctionID)
		if err != nil {
			return fmt.Errorf("place bid use case: failed to get auction %d: %w", cmd.AuctionID, err)
		}
		now := uc.Clock.Now()
		if err := auction.CheckBiddable(now); err != nil {
			return fmt.Errorf("place bid use case: auction %d: %w", cmd.AuctionID, err)
		}

		if !domain.IsNative(cmd.Currency) {
			allowance, err := uc.Chain.Allowance(ctx, cmd.Currency, cmd.Bidder, uc.Escrow)
			if err != nil {
				return fmt.Errorf("place bid use case: allowance: %w", err)
			}
			if allowance.Cmp(amount) < 0 {
				log.Warn("PlaceBidUseCase: allowance too small",
					zap.Uint64("auctionID", cmd.AuctionID),
					zap.String("bidder", cmd.Bidder.Hex()),
					zap.Stringer("allowance", allowance),
					zap.Stringer("amount", amount),
				)
				return domain.ErrInsufficientAllowance
			}
		}

		// 3. normalize to USD with a fresh quote
		quote, err := uc.Oracle.Quote(ctx, cmd.Currency)
		if err != nil {
			return fmt.Errorf("place bid use case: price %s: %w", cmd.Currency.Hex(), err)
		}
		decimals, err := uc.Chain.Decimals(ctx, cmd.Currency)
		if err != nil {
			return fmt.Errorf("place bid use case: decimals of %s: %w", cmd.Currency.Hex(), err)
		}
		usd := domain.ToUSD(amount, decimals, quote.Price, quote.Decimals)

		// 4. let the aggregate decide whether the bid takes the lead
		newBid := domain.NewBid(uuid.New(), auction.ID, cmd.Bidder, cmd.Currency, amount, usd, now)
		prev, err := auction.AcceptBid(newBid, now)
		if err != nil {
			return fmt.Errorf("place bid use case: bid failed for auction %d: %w", cmd.AuctionID, err)
		}

		// 5. persist first, then move funds: pull the new bid, refund the previous leader
		err = uc.inTransaction(ctx, "place bid", func(tx domain.Tx, chainTx domain.ChainTx) error {
			if err := uc.Auctions.Save(ctx, tx, auction); err != nil {
				return fmt.Errorf("place bid use case: failed to save auction %d: %w", auction.ID, err)
			}
			if err := uc.Bids.Save(ctx, tx, newBid); err != nil {
				return fmt.Errorf("place bid use case: failed to save bid for auction %d: %w", auction.ID, err)
			}
			if err := chainTx.TransferCurrency(ctx, cmd.Currency, cmd.Bidder, uc.Escrow, amount); err != nil {
				return fmt.Errorf("place bid use case: escrow bid funds: %w", err)
			}
			if prev != nil {
				if err := chainTx.TransferCurrency(ctx, prev.Currency, uc.Escrow, prev.Bidder, prev.Amount); err != nil {
					log.Error("PlaceBidUseCase: refund failed",
						zap.Uint64("auctionID", auction.ID),
						zap.String("refundTo", prev.Bidder.Hex()),
						zap.String("currency", prev.Currency.Hex()),
						zap.Stringer("amount", prev.Amount),
						zap.Error(err),
					)
					return fmt.Errorf("place bid use case: %w: %w", domain.ErrRefundFailed, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		bid, displaced = newBid, prev
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Bid placed successfully",
		zap.Uint64("auctionID", bid.AuctionID),
		zap.String("bidID", bid.ID.String()),
		zap.String("bidder", bid.Bidder.Hex()),
		zap.String("currency", bid.Currency.Hex()),
		zap.Stringer("amount", bid.Amount),
		zap.String("usdValue", domain.FormatUSD(bid.USDValue)),
	)
	events := []domain.Event{{
		Type:      domain.EventBidPlaced,
		AuctionID: bid.AuctionID,
		Actor:     bid.Bidder,
		Currency:  bid.Currency,
		Amount:    bid.Amount,
		USDValue:  bid.USDValue,
		Timestamp: bid.Timestamp,
	}}
	if displaced != nil {
		events = append(events, domain.Event{
			Type:      domain.EventBidRefunded,
			AuctionID: bid.AuctionID,
			Actor:     displaced.Bidder,
			Currency:  displaced.Currency,
			Amount:    displaced.Amount,
			USDValue:  displaced.USDValue,
			Timestamp: bid.Timestamp,
		})
	}
	uc.publish(ctx, events...)
	return bid, nil
}
