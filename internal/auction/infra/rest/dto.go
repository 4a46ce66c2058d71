package rest

import (
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/application"
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
)

// CreateAuctionRequest lists an asset. StartPrice is a decimal amount of Currency, an empty
// Currency means the native coin.
type CreateAuctionRequest struct {
	Collection      string `json:"collection" validate:"required,hexaddr"`
	TokenID         string `json:"token_id" validate:"required,numeric"`
	Currency        string `json:"currency" validate:"omitempty,hexaddr"`
	StartPrice      string `json:"start_price" validate:"required"`
	DurationSeconds int64  `json:"duration_seconds" validate:"required,gt=0,lte=31536000"`
}

// PlaceBidRequest bids Amount of Currency. Value stands for the native coin attached to the
// call and defaults to Amount for native bids.
type PlaceBidRequest struct {
	Currency string `json:"currency" validate:"omitempty,hexaddr"`
	Amount   string `json:"amount" validate:"required"`
	Value    string `json:"value"`
}

type RegisterFeedRequest struct {
	Currency string `json:"currency" validate:"omitempty,hexaddr"`
	Source   string `json:"source" validate:"required,hexaddr"`
}

type FeePolicyRequest struct {
	FeeRateBps   uint16 `json:"fee_rate_bps" validate:"lte=10000"`
	FeeRecipient string `json:"fee_recipient" validate:"omitempty,hexaddr"`
}

type TransferAdminRequest struct {
	NewAdmin string `json:"new_admin" validate:"required,hexaddr"`
}

type SettlementResponse struct {
	AuctionID      uint64 `json:"auction_id"`
	Sold           bool   `json:"sold"`
	Seller         string `json:"seller"`
	Winner         string `json:"winner,omitempty"`
	Currency       string `json:"currency,omitempty"`
	Amount         string `json:"amount,omitempty"`
	SellerProceeds string `json:"seller_proceeds,omitempty"`
	Fee            string `json:"fee,omitempty"`
	FeeRecipient   string `json:"fee_recipient,omitempty"`
}

func newSettlementResponse(s *application.Settlement) SettlementResponse {
	resp := SettlementResponse{AuctionID: s.AuctionID, Sold: s.Sold, Seller: s.Seller.Hex()}
	if s.Sold {
		resp.Winner = s.Winner.Hex()
		resp.Currency = s.Currency.Hex()
		resp.Amount = s.Amount.String()
		resp.SellerProceeds = s.SellerProceeds.String()
		resp.Fee = s.Fee.String()
		resp.FeeRecipient = s.FeeRecipient.Hex()
	}
	return resp
}

type FeePolicyResponse struct {
	Version      uint8  `json:"version"`
	Installed    bool   `json:"installed"`
	FeeRateBps   uint16 `json:"fee_rate_bps"`
	FeeRecipient string `json:"fee_recipient"`
	Admin        string `json:"admin"`
}

func newFeePolicyResponse(p *application.FeePolicyDTO) FeePolicyResponse {
	return FeePolicyResponse{
		Version:      uint8(p.Version),
		Installed:    p.Installed,
		FeeRateBps:   p.FeeRateBps,
		FeeRecipient: p.FeeRecipient.Hex(),
		Admin:        p.Admin.Hex(),
	}
}

type FeedResponse struct {
	Currency string `json:"currency"`
	Source   string `json:"source"`
}

type QuoteResponse struct {
	Currency   string    `json:"currency"`
	Price      string    `json:"price"`
	Decimals   uint8     `json:"decimals"`
	PriceUSD   string    `json:"price_usd"`
	ObservedAt time.Time `json:"observed_at"`
}

func newQuoteResponse(q domain.PriceQuote) QuoteResponse {
	return QuoteResponse{
		Currency:   q.Currency.Hex(),
		Price:      q.Price.String(),
		Decimals:   q.Decimals,
		PriceUSD:   domain.FormatUnits(q.Price, q.Decimals),
		ObservedAt: q.ObservedAt,
	}
}
