package domain

import (
	"math/big"
	"time"

	"github.com/cristianortiz/nftAuction/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Auction is the ledger record of one escrowed asset on sale.
// The four Highest* fields always change together, see AcceptBid.
type Auction struct {
	ID     uint64
	Seller Address
	Asset  Asset

	StartCurrency Currency
	StartPrice    *big.Int
	StartPriceUSD *big.Int

	HighestBid      *big.Int
	HighestBidder   Address
	HighestBidUSD   *big.Int
	HighestCurrency Currency

	StartTime time.Time
	EndTime   time.Time
	Active    bool

	// CreatedUnder is the storage version live when the auction was listed.
	// Auctions listed before the v2 migration settle without a platform fee.
	CreatedUnder StorageVersion

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAuction creates an active auction whose window starts at now and lasts duration.
func NewAuction(id uint64, seller Address, asset Asset, currency Currency, startPrice, startPriceUSD *big.Int, now time.Time, duration time.Duration) *Auction {
	return &Auction{
		ID:            id,
		Seller:        seller,
		Asset:         NewAsset(asset.Collection, asset.TokenID),
		StartCurrency: currency,
		StartPrice:    new(big.Int).Set(startPrice),
		StartPriceUSD: new(big.Int).Set(startPriceUSD),
		HighestBid:    new(big.Int),
		HighestBidUSD: new(big.Int),
		StartTime:     now,
		EndTime:       now.Add(duration),
		Active:        true,
		CreatedUnder:  StorageV1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HasBids reports whether a leader holds escrowed funds.
func (a *Auction) HasBids() bool {
	return a.HighestBidder != (Address{})
}

// Leader returns the current leading bid, or nil when nobody bid yet.
func (a *Auction) Leader() *Bid {
	if !a.HasBids() {
		return nil
	}
	return &Bid{
		AuctionID: a.ID,
		Bidder:    a.HighestBidder,
		Currency:  a.HighestCurrency,
		Amount:    new(big.Int).Set(a.HighestBid),
		USDValue:  new(big.Int).Set(a.HighestBidUSD),
	}
}

// CheckBiddable validates that a bid may be placed at now.
func (a *Auction) CheckBiddable(now time.Time) error {
	if !a.Active {
		return ErrAlreadyClosed
	}
	if now.Before(a.StartTime) {
		return ErrAuctionNotStarted
	}
	if !now.Before(a.EndTime) {
		return ErrAuctionEnded
	}
	return nil
}

// CheckSettleable validates that the auction may be settled at now.
func (a *Auction) CheckSettleable(now time.Time) error {
	if !a.Active {
		return ErrAlreadyClosed
	}
	if now.Before(a.EndTime) {
		return ErrAuctionNotEnded
	}
	return nil
}

// AcceptBid replaces the leading bid when usdValue outbids it. The first bid must reach the
// start price, later bids must be strictly greater than the leader so ties keep the leader.
// It returns the displaced leader, if any.
func (a *Auction) AcceptBid(bid *Bid, now time.Time) (*Bid, error) {
	if err := a.CheckBiddable(now); err != nil {
		log.Warn("Bid rejected: auction not biddable",
			zap.Uint64("auctionID", a.ID),
			zap.String("bidder", bid.Bidder.Hex()),
			zap.Error(err),
		)
		return nil, err
	}

	if !a.HasBids() && bid.USDValue.Cmp(a.StartPriceUSD) < 0 {
		log.Warn("Bid rejected: below start price",
			zap.Uint64("auctionID", a.ID),
			zap.String("bidder", bid.Bidder.Hex()),
			zap.String("bidUsd", FormatUSD(bid.USDValue)),
			zap.String("startPriceUsd", FormatUSD(a.StartPriceUSD)),
		)
		return nil, ErrBidTooLow
	}
	if bid.USDValue.Cmp(a.HighestBidUSD) <= 0 {
		log.Warn("Bid rejected: amount too low",
			zap.Uint64("auctionID", a.ID),
			zap.String("bidder", bid.Bidder.Hex()),
			zap.String("bidUsd", FormatUSD(bid.USDValue)),
			zap.String("highestBidUsd", FormatUSD(a.HighestBidUSD)),
		)
		return nil, ErrBidTooLow
	}

	displaced := a.Leader()

	a.HighestBid = new(big.Int).Set(bid.Amount)
	a.HighestBidder = bid.Bidder
	a.HighestBidUSD = new(big.Int).Set(bid.USDValue)
	a.HighestCurrency = bid.Currency
	a.UpdatedAt = now

	return displaced, nil
}

// SettlementFee returns the fee policy that applies to this auction when current is in force.
func (a *Auction) SettlementFee(current FeePolicy) FeePolicy {
	if a.CreatedUnder < StorageV2 {
		return FeePolicy{}
	}
	return current
}

// Close ends the auction. Closing is one-way.
func (a *Auction) Close(now time.Time) error {
	if !a.Active {
		log.Warn("Attempted to close auction that is already closed",
			zap.Uint64("auctionID", a.ID),
		)
		return ErrAlreadyClosed
	}
	a.Active = false
	a.UpdatedAt = now
	return nil
}

// Clone returns a deep copy, so repositories never share big.Int pointers with callers.
func (a *Auction) Clone() *Auction {
	c := *a
	c.Asset = NewAsset(a.Asset.Collection, a.Asset.TokenID)
	c.StartPrice = cloneInt(a.StartPrice)
	c.StartPriceUSD = cloneInt(a.StartPriceUSD)
	c.HighestBid = cloneInt(a.HighestBid)
	c.HighestBidUSD = cloneInt(a.HighestBidUSD)
	return &c
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
