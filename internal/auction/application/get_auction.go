package application

import (
	"context"
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
)

// AuctionDTO is the output DTO exposing the full auction record to HTTP and WS clients.
// Amounts are base units, USD values are decimal strings.
type AuctionDTO struct {
	AuctionID       uint64    `json:"auction_id"`
	Seller          string    `json:"seller"`
	Collection      string    `json:"collection"`
	TokenID         string    `json:"token_id"`
	StartCurrency   string    `json:"start_currency"`
	StartPrice      string    `json:"start_price"`
	StartPriceUSD   string    `json:"start_price_usd"`
	HighestBid      string    `json:"highest_bid"`
	HighestBidder   string    `json:"highest_bidder,omitempty"`
	HighestBidUSD   string    `json:"highest_bid_usd"`
	HighestCurrency string    `json:"highest_currency,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Active          bool      `json:"active"`
}

// BidDTO is one entry of an auction's bid history.
type BidDTO struct {
	ID        string    `json:"id"`
	Bidder    string    `json:"bidder"`
	Currency  string    `json:"currency"`
	Amount    string    `json:"amount"`
	USDValue  string    `json:"usd_value"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAuctionDTO(a *domain.Auction) *AuctionDTO {
	dto := &AuctionDTO{
		AuctionID:     a.ID,
		Seller:        a.Seller.Hex(),
		Collection:    a.Asset.Collection.Hex(),
		TokenID:       a.Asset.TokenID.String(),
		StartCurrency: a.StartCurrency.Hex(),
		StartPrice:    a.StartPrice.String(),
		StartPriceUSD: domain.FormatUSD(a.StartPriceUSD),
		HighestBid:    a.HighestBid.String(),
		HighestBidUSD: domain.FormatUSD(a.HighestBidUSD),
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Active:        a.Active,
	}
	if a.HasBids() {
		dto.HighestBidder = a.HighestBidder.Hex()
		dto.HighestCurrency = a.HighestCurrency.Hex()
	}
	return dto
}

func NewBidDTO(b *domain.Bid) BidDTO {
	return BidDTO{
		ID:        b.ID.String(),
		Bidder:    b.Bidder.Hex(),
		Currency:  b.Currency.Hex(),
		Amount:    b.Amount.String(),
		USDValue:  domain.FormatUSD(b.USDValue),
		Timestamp: b.Timestamp,
	}
}

// GetAuctionUseCase retrieves the current state of an auction and its bid history.
type GetAuctionUseCase struct {
	auctions domain.AuctionRepository
	bids     domain.BidRepository
}

func NewGetAuctionUseCase(auctions domain.AuctionRepository, bids domain.BidRepository) *GetAuctionUseCase {
	return &GetAuctionUseCase{auctions: auctions, bids: bids}
}

func (uc *GetAuctionUseCase) Execute(ctx context.Context, id uint64) (*domain.Auction, error) {
	return uc.auctions.GetByID(ctx, id)
}

// Bids lists the accepted bids of an auction, oldest first.
func (uc *GetAuctionUseCase) Bids(ctx context.Context, id uint64) ([]*domain.Bid, error) {
	if _, err := uc.auctions.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return uc.bids.GetBidsByAuctionID(ctx, id)
}
