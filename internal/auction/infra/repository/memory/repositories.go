package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
)

// AuctionRepository implements domain.AuctionRepository
type AuctionRepository struct {
	store *Store
}

func NewAuctionRepository(store *Store) *AuctionRepository {
	return &AuctionRepository{store: store}
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uint64) (*domain.Auction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.auctions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *AuctionRepository) Save(ctx context.Context, tx domain.Tx, auction *domain.Auction) error {
	snapshot := auction.Clone()
	return r.store.stage(tx, func() {
		r.store.auctions[snapshot.ID] = snapshot
	})
}

func (r *AuctionRepository) GetEndedActive(ctx context.Context, now time.Time) ([]uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var ids []uint64
	for id, a := range r.store.auctions {
		if a.Active && !now.Before(a.EndTime) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *AuctionRepository) GetActive(ctx context.Context) ([]uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var ids []uint64
	for id, a := range r.store.auctions {
		if a.Active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// BidRepository implements domain.BidRepository
type BidRepository struct {
	store *Store
}

func NewBidRepository(store *Store) *BidRepository {
	return &BidRepository{store: store}
}

func (r *BidRepository) Save(ctx context.Context, tx domain.Tx, bid *domain.Bid) error {
	snapshot := *domain.NewBid(bid.ID, bid.AuctionID, bid.Bidder, bid.Currency, bid.Amount, bid.USDValue, bid.Timestamp)
	return r.store.stage(tx, func() {
		r.store.bids[snapshot.AuctionID] = append(r.store.bids[snapshot.AuctionID], &snapshot)
	})
}

func (r *BidRepository) GetBidsByAuctionID(ctx context.Context, auctionID uint64) ([]*domain.Bid, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	stored := r.store.bids[auctionID]
	bids := make([]*domain.Bid, 0, len(stored))
	for _, b := range stored {
		bids = append(bids, domain.NewBid(b.ID, b.AuctionID, b.Bidder, b.Currency, b.Amount, b.USDValue, b.Timestamp))
	}
	return bids, nil
}

// StateRepository implements domain.StateRepository
type StateRepository struct {
	store *Store
}

func NewStateRepository(store *Store) *StateRepository {
	return &StateRepository{store: store}
}

func (r *StateRepository) Load(ctx context.Context) (*domain.EngineState, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.state == nil {
		return nil, nil
	}
	return r.store.state.Clone(), nil
}

func (r *StateRepository) Save(ctx context.Context, tx domain.Tx, state *domain.EngineState) error {
	snapshot := state.Clone()
	return r.store.stage(tx, func() {
		r.store.state = snapshot
	})
}

// FeedRepository implements domain.FeedRepository
type FeedRepository struct {
	store *Store
}

func NewFeedRepository(store *Store) *FeedRepository {
	return &FeedRepository{store: store}
}

func (r *FeedRepository) Get(ctx context.Context, currency domain.Currency) (domain.Address, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	source, ok := r.store.feeds[currency]
	if !ok {
		return domain.Address{}, domain.ErrPricingUnavailable
	}
	return source, nil
}

func (r *FeedRepository) Put(ctx context.Context, tx domain.Tx, currency domain.Currency, source domain.Address) error {
	return r.store.stage(tx, func() {
		r.store.feeds[currency] = source
	})
}

func (r *FeedRepository) List(ctx context.Context) ([]domain.FeedRegistration, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	feeds := make([]domain.FeedRegistration, 0, len(r.store.feeds))
	for c, s := range r.store.feeds {
		feeds = append(feeds, domain.FeedRegistration{Currency: c, Source: s})
	}
	sort.Slice(feeds, func(i, j int) bool {
		return feeds[i].Currency.Hex() < feeds[j].Currency.Hex()
	})
	return feeds, nil
}
