package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
)

// ErrUnknownSource is returned by resolvers that do not know a source address.
var ErrUnknownSource = errors.New("unknown price feed source")

// StaticFeed is an in-process aggregator with a settable answer.
// Its rounds are stamped with the clock's current time.
type StaticFeed struct {
	mu       sync.RWMutex
	answer   *big.Int
	decimals uint8
	clock    clock.Clock
}

func NewStaticFeed(decimals uint8, answer *big.Int, clk clock.Clock) *StaticFeed {
	return &StaticFeed{decimals: decimals, answer: new(big.Int).Set(answer), clock: clk}
}

// SetAnswer updates the price.
func (f *StaticFeed) SetAnswer(answer *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answer = new(big.Int).Set(answer)
}

func (f *StaticFeed) LatestRoundData(ctx context.Context) (domain.Round, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return domain.Round{Answer: new(big.Int).Set(f.answer), UpdatedAt: f.clock.Now()}, nil
}

func (f *StaticFeed) Decimals(ctx context.Context) (uint8, error) {
	return f.decimals, nil
}

// StaticResolver serves StaticFeeds by address.
type StaticResolver struct {
	mu    sync.RWMutex
	feeds map[domain.Address]*StaticFeed
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{feeds: make(map[domain.Address]*StaticFeed)}
}

// Add publishes feed under source.
func (r *StaticResolver) Add(source domain.Address, feed *StaticFeed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[source] = feed
}

func (r *StaticResolver) Resolve(ctx context.Context, source domain.Address) (domain.PriceFeed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	feed, ok := r.feeds[source]
	if !ok {
		return nil, ErrUnknownSource
	}
	return feed, nil
}

// ChainResolver asks each resolver in turn and returns the first hit.
type ChainResolver []domain.FeedResolver

func (c ChainResolver) Resolve(ctx context.Context, source domain.Address) (domain.PriceFeed, error) {
	for _, r := range c {
		feed, err := r.Resolve(ctx, source)
		if err == nil {
			return feed, nil
		}
		if !errors.Is(err, ErrUnknownSource) {
			return nil, err
		}
	}
	return nil, ErrUnknownSource
}
