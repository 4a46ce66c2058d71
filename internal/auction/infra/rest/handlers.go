// Package rest exposes the auction engine over HTTP.
package rest

import (
	"context"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/application"
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/shared/httpserver"
	"github.com/cristianortiz/nftAuction/internal/shared/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// DecimalsSource resolves the precision of a currency, used to parse decimal amounts.
type DecimalsSource interface {
	Decimals(ctx context.Context, currency domain.Currency) (uint8, error)
}

// AuctionHandler serves the auction HTTP API.
type AuctionHandler struct {
	service   application.AuctionService
	decimals  DecimalsSource
	validator *httpserver.Validator
}

func NewAuctionHandler(service application.AuctionService, decimals DecimalsSource, validator *httpserver.Validator) *AuctionHandler {
	return &AuctionHandler{service: service, decimals: decimals, validator: validator}
}

// Register mounts the routes on router. auth guards every route that acts for a caller.
func (h *AuctionHandler) Register(router fiber.Router, auth fiber.Handler) {
	router.Get("/auctions/:id", h.GetAuction)
	router.Get("/auctions/:id/bids", h.GetBids)
	router.Post("/auctions/:id/end", h.EndAuction)
	router.Get("/fee-policy", h.GetFeePolicy)
	router.Get("/price-feeds", h.ListPriceFeeds)
	router.Get("/price-feeds/:currency/quote", h.GetQuote)

	router.Post("/auctions", auth, h.CreateAuction)
	router.Post("/auctions/:id/bids", auth, h.PlaceBid)

	admin := router.Group("/admin", auth)
	admin.Post("/price-feeds", h.RegisterPriceFeed)
	admin.Post("/migrate", h.MigrateToV2)
	admin.Post("/fee-policy", h.SetPlatformFee)
	admin.Post("/transfer", h.TransferAdmin)
}

func (h *AuctionHandler) bind(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := h.validator.Validate(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func caller(c *fiber.Ctx) (domain.Address, error) {
	addr, ok := httpserver.Caller(c)
	if !ok {
		return domain.Address{}, fiber.NewError(fiber.StatusUnauthorized, httpserver.ErrInvalidToken.Error())
	}
	return addr, nil
}

func auctionID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}
	return id, nil
}

// currency parses an optional hex address. Empty and "native" name the native coin.
func currency(s string) (domain.Currency, error) {
	if s == "" || strings.EqualFold(s, "native") {
		return domain.NativeCurrency, nil
	}
	if !httpserver.IsValidAddress(s) {
		return domain.Currency{}, fiber.NewError(fiber.StatusBadRequest, "invalid currency address")
	}
	return common.HexToAddress(s), nil
}

func (h *AuctionHandler) units(ctx context.Context, cur domain.Currency, amount string) (*big.Int, error) {
	decimals, err := h.decimals.Decimals(ctx, cur)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "unknown currency: "+err.Error())
	}
	v, err := domain.ParseUnits(amount, decimals)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return v, nil
}

func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	seller, err := caller(c)
	if err != nil {
		return err
	}
	var req CreateAuctionRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	tokenID, ok := new(big.Int).SetString(req.TokenID, 10)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid token id")
	}
	cur, err := currency(req.Currency)
	if err != nil {
		return err
	}
	price, err := h.units(c.UserContext(), cur, req.StartPrice)
	if err != nil {
		return err
	}

	auction, err := h.service.CreateAuction(c.UserContext(), application.CreateAuctionDTO{
		Seller:            seller,
		Duration:          time.Duration(req.DurationSeconds) * time.Second,
		ReferencePrice:    price,
		Asset:             domain.NewAsset(common.HexToAddress(req.Collection), tokenID),
		ReferenceCurrency: cur,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(application.NewAuctionDTO(auction))
}

func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	auction, err := h.service.GetAuction(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(application.NewAuctionDTO(auction))
}

func (h *AuctionHandler) GetBids(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	if _, err := h.service.GetAuction(c.UserContext(), id); err != nil {
		return toHTTPError(err)
	}
	bids, err := h.service.GetBids(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]application.BidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, application.NewBidDTO(b))
	}
	return c.JSON(out)
}

func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	bidder, err := caller(c)
	if err != nil {
		return err
	}
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	var req PlaceBidRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	cur, err := currency(req.Currency)
	if err != nil {
		return err
	}
	amount, err := h.units(c.UserContext(), cur, req.Amount)
	if err != nil {
		return err
	}
	value := new(big.Int)
	if req.Value != "" {
		if value, err = h.units(c.UserContext(), domain.NativeCurrency, req.Value); err != nil {
			return err
		}
	} else if domain.IsNative(cur) {
		value.Set(amount)
	}

	bid, err := h.service.PlaceBid(c.UserContext(), application.PlaceBidDTO{
		AuctionID: id,
		Bidder:    bidder,
		Currency:  cur,
		Amount:    amount,
		Value:     value,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(application.NewBidDTO(bid))
}

func (h *AuctionHandler) EndAuction(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	settlement, err := h.service.EndAuction(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(newSettlementResponse(settlement))
}

func (h *AuctionHandler) GetFeePolicy(c *fiber.Ctx) error {
	policy, err := h.service.FeePolicy(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(newFeePolicyResponse(policy))
}

func (h *AuctionHandler) ListPriceFeeds(c *fiber.Ctx) error {
	feeds, err := h.service.PriceFeeds(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]FeedResponse, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, FeedResponse{Currency: f.Currency.Hex(), Source: f.Source.Hex()})
	}
	return c.JSON(out)
}

func (h *AuctionHandler) GetQuote(c *fiber.Ctx) error {
	cur, err := currency(c.Params("currency"))
	if err != nil {
		return err
	}
	quote, err := h.service.Quote(c.UserContext(), cur)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(newQuoteResponse(quote))
}

func (h *AuctionHandler) RegisterPriceFeed(c *fiber.Ctx) error {
	admin, err := caller(c)
	if err != nil {
		return err
	}
	var req RegisterFeedRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	cur, err := currency(req.Currency)
	if err != nil {
		return err
	}
	if err := h.service.RegisterPriceFeed(c.UserContext(), admin, cur, common.HexToAddress(req.Source)); err != nil {
		return toHTTPError(err)
	}
	log.Info("Price feed registered over HTTP",
		zap.String("currency", cur.Hex()),
		zap.String("source", req.Source),
	)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuctionHandler) MigrateToV2(c *fiber.Ctx) error {
	return h.feePolicy(c, h.service.MigrateToV2)
}

func (h *AuctionHandler) SetPlatformFee(c *fiber.Ctx) error {
	return h.feePolicy(c, h.service.SetPlatformFee)
}

func (h *AuctionHandler) feePolicy(c *fiber.Ctx, apply func(ctx context.Context, caller domain.Address, rateBps uint16, recipient domain.Address) error) error {
	admin, err := caller(c)
	if err != nil {
		return err
	}
	var req FeePolicyRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	var recipient domain.Address
	if req.FeeRecipient != "" {
		recipient = common.HexToAddress(req.FeeRecipient)
	}
	if err := apply(c.UserContext(), admin, req.FeeRateBps, recipient); err != nil {
		return toHTTPError(err)
	}
	policy, err := h.service.FeePolicy(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(newFeePolicyResponse(policy))
}

func (h *AuctionHandler) TransferAdmin(c *fiber.Ctx) error {
	admin, err := caller(c)
	if err != nil {
		return err
	}
	var req TransferAdminRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if err := h.service.TransferAdmin(c.UserContext(), admin, common.HexToAddress(req.NewAdmin)); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
