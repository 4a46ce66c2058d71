package domain

import "errors"

var (
	ErrNotFound              = errors.New("auction not found")
	ErrPricingUnavailable    = errors.New("no price feed registered for currency")
	ErrStalePrice            = errors.New("price feed returned a stale or invalid answer")
	ErrBidTooLow             = errors.New("bid amount is too low")
	ErrAmountMismatch        = errors.New("bid amount does not match attached value")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrRefundFailed          = errors.New("refund of displaced bidder failed")
	ErrSettlementFailed      = errors.New("auction settlement failed")
	ErrAlreadyClosed         = errors.New("auction is already closed")
	ErrAlreadyMigrated       = errors.New("engine storage is already migrated")
	ErrNotMigrated           = errors.New("engine storage is not migrated to v2")
	ErrUnauthorized          = errors.New("caller is not the administrator")
	ErrReentrantCall         = errors.New("reentrant call")
	ErrEscrowMismatch        = errors.New("escrow does not hold what the ledger records")

	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidDuration   = errors.New("auction duration must be greater than zero")
	ErrInvalidFeeRate    = errors.New("fee rate exceeds 10000 bps")
	ErrInvalidRecipient  = errors.New("fee recipient cannot be the zero address")
	ErrAuctionNotStarted = errors.New("auction has not started")
	ErrAuctionEnded      = errors.New("auction bidding window has ended")
	ErrAuctionNotEnded   = errors.New("auction has not ended yet")
	ErrNotAssetOwner     = errors.New("seller does not own the asset")
	ErrAssetNotApproved  = errors.New("engine is not approved to transfer the asset")
)
