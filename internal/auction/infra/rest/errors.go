package rest

import (
	"errors"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/gofiber/fiber/v2"
)

// statusByError is checked in order, the first match wins. Collaborator failures come first
// because they wrap the cause, which may itself be a domain error.
var statusByError = []struct {
	err    error
	status int
}{
	{domain.ErrRefundFailed, fiber.StatusBadGateway},
	{domain.ErrSettlementFailed, fiber.StatusBadGateway},
	{domain.ErrStalePrice, fiber.StatusBadGateway},

	{domain.ErrNotFound, fiber.StatusNotFound},

	{domain.ErrUnauthorized, fiber.StatusForbidden},
	{domain.ErrNotAssetOwner, fiber.StatusForbidden},

	{domain.ErrAlreadyClosed, fiber.StatusConflict},
	{domain.ErrAlreadyMigrated, fiber.StatusConflict},
	{domain.ErrNotMigrated, fiber.StatusConflict},
	{domain.ErrAuctionNotStarted, fiber.StatusConflict},
	{domain.ErrAuctionEnded, fiber.StatusConflict},
	{domain.ErrAuctionNotEnded, fiber.StatusConflict},
	{domain.ErrBidTooLow, fiber.StatusConflict},
	{domain.ErrReentrantCall, fiber.StatusConflict},

	{domain.ErrPricingUnavailable, fiber.StatusUnprocessableEntity},
	{domain.ErrAmountMismatch, fiber.StatusUnprocessableEntity},
	{domain.ErrInsufficientAllowance, fiber.StatusUnprocessableEntity},
	{domain.ErrInsufficientBalance, fiber.StatusUnprocessableEntity},
	{domain.ErrAssetNotApproved, fiber.StatusUnprocessableEntity},
	{domain.ErrInvalidAmount, fiber.StatusUnprocessableEntity},
	{domain.ErrInvalidDuration, fiber.StatusUnprocessableEntity},
	{domain.ErrInvalidFeeRate, fiber.StatusUnprocessableEntity},
	{domain.ErrInvalidRecipient, fiber.StatusUnprocessableEntity},
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return fiber.StatusInternalServerError
}

// toHTTPError turns an engine error into a fiber error the server error handler renders.
func toHTTPError(err error) error {
	return fiber.NewError(statusFor(err), err.Error())
}
