package oracle

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/auction/infra/repository/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"
)

var (
	usdc       = common.HexToAddress("0xa000000000000000000000000000000000000001")
	ethFeedSrc = common.HexToAddress("0xf000000000000000000000000000000000000001")
	usdcFeeds  = common.HexToAddress("0xf000000000000000000000000000000000000002")
)

type adapterSuite struct {
	suite.Suite
	ctx      context.Context
	clock    *clock.Mock
	store    *memory.Store
	resolver *StaticResolver
	ethFeed  *StaticFeed
	adapter  *Adapter
}

func TestAdapter(t *testing.T) {
	suite.Run(t, new(adapterSuite))
}

func (s *adapterSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewMock()
	s.clock.Set(time.Unix(1_700_000_000, 0))
	s.store = memory.NewStore()
	s.resolver = NewStaticResolver()
	s.ethFeed = NewStaticFeed(8, big.NewInt(2980_00000000), s.clock)
	s.resolver.Add(ethFeedSrc, s.ethFeed)
	s.resolver.Add(usdcFeeds, NewStaticFeed(8, big.NewInt(98000000), s.clock))
	s.adapter = NewAdapter(memory.NewFeedRepository(s.store), s.resolver, s.clock, time.Hour)
}

func (s *adapterSuite) register(currency, source domain.Address) error {
	tx, err := s.store.BeginTx(s.ctx)
	s.Require().NoError(err)
	if err := s.adapter.RegisterFeed(s.ctx, tx, currency, source); err != nil {
		_ = tx.Rollback(s.ctx)
		return err
	}
	return tx.Commit(s.ctx)
}

func (s *adapterSuite) TestQuoteUnregistered() {
	_, err := s.adapter.Quote(s.ctx, usdc)
	s.ErrorIs(err, domain.ErrPricingUnavailable)
}

func (s *adapterSuite) TestQuoteRegistered() {
	s.Require().NoError(s.register(domain.NativeCurrency, ethFeedSrc))

	q, err := s.adapter.Quote(s.ctx, domain.NativeCurrency)
	s.Require().NoError(err)
	s.Equal(uint8(8), q.Decimals)
	s.Equal(int64(2980_00000000), q.Price.Int64())
	s.Equal(s.clock.Now(), q.ObservedAt)
}

func (s *adapterSuite) TestQuoteIsNeverCached() {
	s.Require().NoError(s.register(domain.NativeCurrency, ethFeedSrc))
	_, err := s.adapter.Quote(s.ctx, domain.NativeCurrency)
	s.Require().NoError(err)

	s.ethFeed.SetAnswer(big.NewInt(3000_00000000))
	q, err := s.adapter.Quote(s.ctx, domain.NativeCurrency)
	s.Require().NoError(err)
	s.Equal(int64(3000_00000000), q.Price.Int64())
}

func (s *adapterSuite) TestRegisterOverwrites() {
	s.Require().NoError(s.register(usdc, ethFeedSrc))
	s.Require().NoError(s.register(usdc, usdcFeeds))

	q, err := s.adapter.Quote(s.ctx, usdc)
	s.Require().NoError(err)
	s.Equal(int64(98000000), q.Price.Int64())

	feeds, err := s.adapter.Feeds(s.ctx)
	s.Require().NoError(err)
	s.Len(feeds, 1)
}

func (s *adapterSuite) TestRegisterUnknownSource() {
	err := s.register(usdc, common.HexToAddress("0xdead"))
	s.ErrorIs(err, ErrUnknownSource)
	s.Error(s.register(usdc, common.Address{}))
}

func (s *adapterSuite) TestStaleAnswers() {
	s.Require().NoError(s.register(domain.NativeCurrency, ethFeedSrc))

	s.ethFeed.SetAnswer(big.NewInt(0))
	_, err := s.adapter.Quote(s.ctx, domain.NativeCurrency)
	s.ErrorIs(err, domain.ErrStalePrice)

	s.ethFeed.SetAnswer(big.NewInt(-1))
	_, err = s.adapter.Quote(s.ctx, domain.NativeCurrency)
	s.ErrorIs(err, domain.ErrStalePrice)
}

type fixedFeed struct{ round domain.Round }

func (f fixedFeed) LatestRoundData(ctx context.Context) (domain.Round, error) { return f.round, nil }
func (f fixedFeed) Decimals(ctx context.Context) (uint8, error)             { return 8, nil }

type fixedResolver struct{ feed domain.PriceFeed }

func (r fixedResolver) Resolve(ctx context.Context, source domain.Address) (domain.PriceFeed, error) {
	return r.feed, nil
}

func (s *adapterSuite) TestRoundTimestamps() {
	now := s.clock.Now()
	cases := map[string]domain.Round{
		"no timestamp": {Answer: big.NewInt(1)},
		"future":       {Answer: big.NewInt(1), UpdatedAt: now.Add(time.Minute)},
		"too old":      {Answer: big.NewInt(1), UpdatedAt: now.Add(-2 * time.Hour)},
	}
	for name, round := range cases {
		s.Run(name, func() {
			store := memory.NewStore()
			a := NewAdapter(memory.NewFeedRepository(store), fixedResolver{fixedFeed{round}}, s.clock, time.Hour)
			tx, _ := store.BeginTx(s.ctx)
			s.Require().NoError(a.RegisterFeed(s.ctx, tx, usdc, usdcFeeds))
			s.Require().NoError(tx.Commit(s.ctx))

			_, err := a.Quote(s.ctx, usdc)
			s.ErrorIs(err, domain.ErrStalePrice)
		})
	}
}

func (s *adapterSuite) TestRoundSlightlyAheadAccepted() {
	round := domain.Round{Answer: big.NewInt(1_000000), UpdatedAt: s.clock.Now().Add(5 * time.Second)}
	store := memory.NewStore()
	a := NewAdapter(memory.NewFeedRepository(store), fixedResolver{fixedFeed{round}}, s.clock, time.Hour)
	tx, _ := store.BeginTx(s.ctx)
	s.Require().NoError(a.RegisterFeed(s.ctx, tx, usdc, usdcFeeds))
	s.Require().NoError(tx.Commit(s.ctx))

	q, err := a.Quote(s.ctx, usdc)
	s.Require().NoError(err)
	s.Equal(round.Answer, q.Price)
}

func (s *adapterSuite) TestChainResolver() {
	other := NewStaticResolver()
	feed := NewStaticFeed(6, big.NewInt(1), s.clock)
	other.Add(common.HexToAddress("0xbeef"), feed)

	chain := ChainResolver{s.resolver, other}
	got, err := chain.Resolve(s.ctx, common.HexToAddress("0xbeef"))
	s.Require().NoError(err)
	s.Same(feed, got)

	_, err = chain.Resolve(s.ctx, common.HexToAddress("0xdead"))
	s.ErrorIs(err, ErrUnknownSource)
}
