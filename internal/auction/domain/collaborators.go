package domain

import (
	"context"
	"math/big"
	"time"
)

// AssetRegistry is the read side of the non-fungible asset contracts.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, asset Asset) (Address, error)
	// IsApproved reports whether operator may move the asset on behalf of owner.
	IsApproved(ctx context.Context, asset Asset, owner, operator Address) (bool, error)
}

// CurrencyRegistry is the read side of the settlement currencies.
type CurrencyRegistry interface {
	Decimals(ctx context.Context, currency Currency) (uint8, error)
	Allowance(ctx context.Context, currency Currency, owner, spender Address) (*big.Int, error)
	BalanceOf(ctx context.Context, currency Currency, account Address) (*big.Int, error)
}

// Chain gives the engine access to assets, currencies and atomic transfer batches.
type Chain interface {
	AssetRegistry
	CurrencyRegistry
	// Begin opens a transfer batch executed on behalf of operator (the engine's escrow account).
	Begin(ctx context.Context, operator Address) (ChainTx, error)
}

// ChainTx is an all-or-nothing batch of transfers.
//
// Moving funds or assets out of the operator account is a plain transfer. Moving them out of
// any other account is a pull: tokens need an allowance, assets an approval, and native coin
// models the value attached to the call.
type ChainTx interface {
	TransferCurrency(ctx context.Context, currency Currency, from, to Address, amount *big.Int) error
	TransferAsset(ctx context.Context, asset Asset, from, to Address) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Round is the latest answer of a price feed.
type Round struct {
	Answer    *big.Int
	UpdatedAt time.Time
}

// PriceFeed is a single price source, shaped after a Chainlink aggregator.
type PriceFeed interface {
	LatestRoundData(ctx context.Context) (Round, error)
	Decimals(ctx context.Context) (uint8, error)
}

// FeedResolver turns the registered source address into a readable feed.
type FeedResolver interface {
	Resolve(ctx context.Context, source Address) (PriceFeed, error)
}

// PriceQuote is the USD price of one whole unit of a currency. It is never persisted.
type PriceQuote struct {
	Currency   Currency
	Price      *big.Int
	Decimals   uint8
	ObservedAt time.Time
}

// PriceOracle quotes currencies in USD.
type PriceOracle interface {
	Quote(ctx context.Context, currency Currency) (PriceQuote, error)
}

// EventPublisher forwards engine events to external indexers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}
