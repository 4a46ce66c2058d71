package application

import (
	"context"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
)

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error)
	// PlaceBid handles logic when a user makes a bid on an auction
	// receives a command with necesary data and returns the accepted bid or an error
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error)
	EndAuction(ctx context.Context, auctionID uint64) (*Settlement, error)
	GetAuction(ctx context.Context, auctionID uint64) (*domain.Auction, error)
	GetBids(ctx context.Context, auctionID uint64) ([]*domain.Bid, error)

	RegisterPriceFeed(ctx context.Context, caller domain.Address, currency domain.Currency, source domain.Address) error
	MigrateToV2(ctx context.Context, caller domain.Address, rateBps uint16, recipient domain.Address) error
	SetPlatformFee(ctx context.Context, caller domain.Address, rateBps uint16, recipient domain.Address) error
	TransferAdmin(ctx context.Context, caller, newAdmin domain.Address) error
	FeePolicy(ctx context.Context) (*FeePolicyDTO, error)
	PriceFeeds(ctx context.Context) ([]domain.FeedRegistration, error)
	Quote(ctx context.Context, currency domain.Currency) (domain.PriceQuote, error)
}

// concret implementation of AuctionService (struct)
type auctionService struct {
	createAuctionUC *CreateAuctionUseCase
	placeBidUC      *PlaceBidUseCase
	endAuctionUC    *EndAuctionUseCase
	getAuctionUC    *GetAuctionUseCase
	adminUC         *AdminUseCase
	oracle          PriceOracle
}

// NewAuctionService wires the use cases around one shared engine and makes sure the engine
// storage exists, writing a v1 layout administered by admin on first start.
func NewAuctionService(ctx context.Context, deps Dependencies, admin domain.Address) (AuctionService, error) {
	e := newEngine(deps)
	if err := e.init(ctx, admin); err != nil {
		return nil, err
	}
	return &auctionService{
		createAuctionUC: newCreateAuctionUseCase(e),
		placeBidUC:      newPlaceBidUseCase(e),
		endAuctionUC:    newEndAuctionUseCase(e),
		getAuctionUC:    NewGetAuctionUseCase(deps.Auctions, deps.Bids),
		adminUC:         newAdminUseCase(e),
		oracle:          deps.Oracle,
	}, nil
}

func (as *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	return as.createAuctionUC.Execute(ctx, cmd)
}

// PlaceBid implements AuctionService.
func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	return as.placeBidUC.Execute(ctx, cmd)
}

func (as *auctionService) EndAuction(ctx context.Context, auctionID uint64) (*Settlement, error) {
	return as.endAuctionUC.Execute(ctx, auctionID)
}

func (as *auctionService) GetAuction(ctx context.Context, auctionID uint64) (*domain.Auction, error) {
	return as.getAuctionUC.Execute(ctx, auctionID)
}

func (as *auctionService) GetBids(ctx context.Context, auctionID uint64) ([]*domain.Bid, error) {
	return as.getAuctionUC.Bids(ctx, auctionID)
}

func (as *auctionService) RegisterPriceFeed(ctx context.Context, caller domain.Address, currency domain.Currency, source domain.Address) error {
	return as.adminUC.RegisterPriceFeed(ctx, caller, currency, source)
}

func (as *auctionService) MigrateToV2(ctx context.Context, caller domain.Address, rateBps uint16, recipient domain.Address) error {
	return as.adminUC.MigrateToV2(ctx, caller, rateBps, recipient)
}

func (as *auctionService) SetPlatformFee(ctx context.Context, caller domain.Address, rateBps uint16, recipient domain.Address) error {
	return as.adminUC.SetPlatformFee(ctx, caller, rateBps, recipient)
}

func (as *auctionService) TransferAdmin(ctx context.Context, caller, newAdmin domain.Address) error {
	return as.adminUC.TransferAdmin(ctx, caller, newAdmin)
}

func (as *auctionService) FeePolicy(ctx context.Context) (*FeePolicyDTO, error) {
	return as.adminUC.FeePolicy(ctx)
}

func (as *auctionService) PriceFeeds(ctx context.Context) ([]domain.FeedRegistration, error) {
	return as.oracle.Feeds(ctx)
}

func (as *auctionService) Quote(ctx context.Context, currency domain.Currency) (domain.PriceQuote, error) {
	return as.oracle.Quote(ctx, currency)
}
