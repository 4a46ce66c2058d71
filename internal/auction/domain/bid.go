package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Bid is one accepted bid. The ledger keeps the history, the auction keeps the leader.
type Bid struct {
	ID        uuid.UUID
	AuctionID uint64
	Bidder    Address
	Currency  Currency
	Amount    *big.Int
	USDValue  *big.Int
	Timestamp time.Time
}

// NewBid creates a new Bid instance
func NewBid(id uuid.UUID, auctionID uint64, bidder Address, currency Currency, amount, usdValue *big.Int, timestamp time.Time) *Bid {
	return &Bid{
		ID:        id,
		AuctionID: auctionID,
		Bidder:    bidder,
		Currency:  currency,
		Amount:    new(big.Int).Set(amount),
		USDValue:  new(big.Int).Set(usdValue),
		Timestamp: timestamp,
	}
}
