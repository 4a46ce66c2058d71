package domain

import (
	"math/big"
	"time"
)

type EventType string

const (
	EventAuctionCreated  EventType = "auction_created"
	EventBidPlaced       EventType = "bid_placed"
	EventBidRefunded     EventType = "bid_refunded"
	EventAuctionEnded    EventType = "auction_ended"
	EventPriceFeedSet    EventType = "price_feed_set"
	EventFeePolicySet    EventType = "fee_policy_set"
	EventStorageMigrated EventType = "storage_migrated"
	EventAdminChanged    EventType = "admin_changed"
)

// Event is the log entry emitted by every successful mutating call.
// AuctionID is zero for engine-wide events.
type Event struct {
	Type      EventType
	AuctionID uint64
	Actor     Address
	Currency  Currency
	Amount    *big.Int
	USDValue  *big.Int
	Fee       *big.Int
	Timestamp time.Time
}
