package application

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"go.uber.org/zap"
)

// CreateAuctionDTO is the input of CreateAuctionUseCase. ReferencePrice is expressed in
// base units of ReferenceCurrency.
type CreateAuctionDTO struct {
	Seller            domain.Address
	Duration          time.Duration
	ReferencePrice    *big.Int
	Asset             domain.Asset
	ReferenceCurrency domain.Currency
}

// CreateAuctionUseCase lists an asset: it prices the reserve in USD, takes the asset into
// escrow and records the auction under a fresh id.
type CreateAuctionUseCase struct {
	*engine
}

func newCreateAuctionUseCase(e *engine) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{engine: e}
}

func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	log.Info("Executing CreateAuctionUseCase",
		zap.String("seller", cmd.Seller.Hex()),
		zap.String("asset", cmd.Asset.Key()),
		zap.Duration("duration", cmd.Duration),
		zap.String("currency", cmd.ReferenceCurrency.Hex()),
	)
	if cmd.Duration <= 0 {
		return nil, domain.ErrInvalidDuration
	}
	if cmd.ReferencePrice == nil || cmd.ReferencePrice.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if cmd.Asset.TokenID == nil {
		return nil, fmt.Errorf("create auction: missing token id")
	}

	var created *domain.Auction
	err := uc.serialize(ctx, func(ctx context.Context) error {
		owner, err := uc.Chain.OwnerOf(ctx, cmd.Asset)
		if err != nil {
			return fmt.Errorf("create auction: owner of %s: %w", cmd.Asset, err)
		}
		if owner != cmd.Seller {
			log.Warn("CreateAuctionUseCase: seller does not own asset",
				zap.String("seller", cmd.Seller.Hex()),
				zap.String("owner", owner.Hex()),
				zap.String("asset", cmd.Asset.Key()),
			)
			return domain.ErrNotAssetOwner
		}
		approved, err := uc.Chain.IsApproved(ctx, cmd.Asset, cmd.Seller, uc.Escrow)
		if err != nil {
			return fmt.Errorf("create auction: approval of %s: %w", cmd.Asset, err)
		}
		if !approved {
			return domain.ErrAssetNotApproved
		}

		quote, err := uc.Oracle.Quote(ctx, cmd.ReferenceCurrency)
		if err != nil {
			return fmt.Errorf("create auction: price %s: %w", cmd.ReferenceCurrency.Hex(), err)
		}
		decimals, err := uc.Chain.Decimals(ctx, cmd.ReferenceCurrency)
		if err != nil {
			return fmt.Errorf("create auction: decimals of %s: %w", cmd.ReferenceCurrency.Hex(), err)
		}
		startUSD := domain.ToUSD(cmd.ReferencePrice, decimals, quote.Price, quote.Decimals)

		state, err := uc.loadState(ctx)
		if err != nil {
			return fmt.Errorf("create auction: %w", err)
		}
		id := state.TakeAuctionID()
		auction := domain.NewAuction(id, cmd.Seller, cmd.Asset, cmd.ReferenceCurrency,
			cmd.ReferencePrice, startUSD, uc.Clock.Now(), cmd.Duration)
		auction.CreatedUnder = state.Version

		err = uc.inTransaction(ctx, "create auction", func(tx domain.Tx, chainTx domain.ChainTx) error {
			if err := uc.State.Save(ctx, tx, state); err != nil {
				return fmt.Errorf("create auction: save state: %w", err)
			}
			if err := uc.Auctions.Save(ctx, tx, auction); err != nil {
				return fmt.Errorf("create auction: save auction %d: %w", id, err)
			}
			if err := chainTx.TransferAsset(ctx, cmd.Asset, cmd.Seller, uc.Escrow); err != nil {
				return fmt.Errorf("create auction: escrow %s: %w", cmd.Asset, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		created = auction
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Auction created",
		zap.Uint64("auctionID", created.ID),
		zap.String("seller", created.Seller.Hex()),
		zap.String("startPriceUsd", domain.FormatUSD(created.StartPriceUSD)),
		zap.Time("endTime", created.EndTime),
	)
	uc.publish(ctx, domain.Event{
		Type:      domain.EventAuctionCreated,
		AuctionID: created.ID,
		Actor:     created.Seller,
		Currency:  created.StartCurrency,
		Amount:    created.StartPrice,
		USDValue:  created.StartPriceUSD,
		Timestamp: created.CreatedAt,
	})
	return created, nil
}
