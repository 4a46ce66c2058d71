package postgres

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/shared/db/dbtest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
)

var (
	admin      = common.HexToAddress("0xad00000000000000000000000000000000000001")
	seller     = common.HexToAddress("0x5e00000000000000000000000000000000000001")
	alice      = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob        = common.HexToAddress("0xb0b0000000000000000000000000000000000001")
	treasury   = common.HexToAddress("0x7ea5000000000000000000000000000000000001")
	usdc       = common.HexToAddress("0xc000000000000000000000000000000000000001")
	collection = common.HexToAddress("0xcc00000000000000000000000000000000000001")
	feedSource = common.HexToAddress("0xf000000000000000000000000000000000000001")
)

func usd18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// ledgerSuite runs against a real postgres. The schema is migrated one step at a time so
// rows written under the first layout can be read back after the second.
type ledgerSuite struct {
	suite.Suite
	ctx      context.Context
	migrator *migrate.Migrate
	pool     *pgxpool.Pool
	tx       *TxManager
	auctions *AuctionRepository
	bids     *BidRepository
	state    *StateRepository
	feeds    *FeedRepository
	start    time.Time
}

func TestPostgresLedger(t *testing.T) {
	suite.Run(t, new(ledgerSuite))
}

func (s *ledgerSuite) SetupTest() {
	s.ctx = context.Background()
	dsn := dbtest.PostgresURL(s.T())

	m, err := migrate.New(dbtest.MigrationsURL(), dsn)
	s.Require().NoError(err)
	s.migrator = m
	s.Require().NoError(s.migrator.Steps(1))

	pool, err := pgxpool.New(s.ctx, dsn)
	s.Require().NoError(err)
	s.pool = pool
	s.tx = NewTxManager(pool)
	s.auctions = NewAuctionRepository(pool)
	s.bids = NewBidRepository(pool)
	s.state = NewStateRepository(pool)
	s.feeds = NewFeedRepository(pool)
	s.start = time.Unix(1_700_000_000, 0).UTC()
}

func (s *ledgerSuite) TearDownTest() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.migrator != nil {
		s.migrator.Close()
	}
}

func (s *ledgerSuite) migrateUp() {
	err := s.migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		s.Require().NoError(err)
	}
}

func (s *ledgerSuite) inTx(fn func(tx domain.Tx)) {
	tx, err := s.tx.BeginTx(s.ctx)
	s.Require().NoError(err)
	fn(tx)
	s.Require().NoError(tx.Commit(s.ctx))
}

func (s *ledgerSuite) newAuction(id uint64, version domain.StorageVersion) *domain.Auction {
	a := domain.NewAuction(id, seller, domain.NewAsset(collection, big.NewInt(int64(id))), usdc,
		big.NewInt(50_000000), usd18(49), s.start, time.Hour)
	a.CreatedUnder = version
	return a
}

func (s *ledgerSuite) assertSameTime(want, got time.Time) {
	s.WithinDuration(want, got, time.Microsecond)
}

// TestFirstLayoutRowsSurviveSecondMigration writes engine storage and an auction with the
// columns of the first schema only, then applies the fee migration and reads them back.
func (s *ledgerSuite) TestFirstLayoutRowsSurviveSecondMigration() {
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO engine_state (version, admin, next_auction_id) VALUES (1, $1, 2)`, admin.Hex())
	s.Require().NoError(err)
	_, err = s.pool.Exec(s.ctx, `
        INSERT INTO auctions (id, seller, collection, token_id, start_currency, start_price, start_price_usd,
            highest_bidder, highest_currency, start_time, end_time)
        VALUES (1, $1, $2, 7, $3, 50000000, 49000000000000000000, $4, $4, $5, $6)`,
		seller.Hex(), collection.Hex(), usdc.Hex(), common.Address{}.Hex(), s.start, s.start.Add(time.Hour))
	s.Require().NoError(err)

	s.migrateUp()

	state, err := s.state.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(state)
	s.Equal(domain.StorageV1, state.Version)
	s.Equal(admin, state.Admin)
	s.Equal(uint64(2), state.NextAuctionID)
	s.Equal(domain.FeePolicy{}, state.FeePolicy)

	a, err := s.auctions.GetByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(domain.StorageV1, a.CreatedUnder, "rows older than the fee columns are first-layout auctions")
	s.Equal(big.NewInt(7), a.Asset.TokenID)
	s.Equal(usd18(49), a.StartPriceUSD)
	s.False(a.HasBids())
	s.True(a.Active)
	s.assertSameTime(s.start.Add(time.Hour), a.EndTime)

	// install the fee policy on the same row
	s.Require().NoError(state.MigrateToV2(500, treasury))
	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.state.Save(s.ctx, tx, state))
	})
	state, err = s.state.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.StorageV2, state.Version)
	s.Equal(uint16(500), state.FeeRateBps)
	s.Equal(treasury, state.FeeRecipient)
	s.Equal(uint64(2), state.NextAuctionID)
}

func (s *ledgerSuite) TestEngineStateRoundTrip() {
	s.migrateUp()

	state, err := s.state.Load(s.ctx)
	s.Require().NoError(err)
	s.Nil(state, "no storage before init")

	fresh := domain.NewEngineState(admin)
	s.Equal(uint64(1), fresh.TakeAuctionID())
	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.state.Save(s.ctx, tx, fresh))
	})
	state, err = s.state.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(fresh, state)

	s.Require().NoError(state.MigrateToV2(250, treasury))
	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.state.Save(s.ctx, tx, state))
	})
	again, err := s.state.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(state, again)
}

func (s *ledgerSuite) TestAuctionUpsertAndQueries() {
	s.migrateUp()

	a := s.newAuction(1, domain.StorageV2)
	b := s.newAuction(2, domain.StorageV1)
	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.auctions.Save(s.ctx, tx, a))
		s.Require().NoError(s.auctions.Save(s.ctx, tx, b))
	})

	got, err := s.auctions.GetByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(domain.StorageV2, got.CreatedUnder)
	s.Equal(a.Seller, got.Seller)
	s.Equal(a.Asset.Key(), got.Asset.Key())
	s.Equal(a.StartPrice, got.StartPrice)

	// an accepted bid updates the leader in place
	bid := domain.NewBid(uuid.New(), 1, alice, domain.NativeCurrency, big.NewInt(2e16), usd18(59), s.start.Add(time.Minute))
	_, err = a.AcceptBid(bid, bid.Timestamp)
	s.Require().NoError(err)
	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.auctions.Save(s.ctx, tx, a))
	})
	got, err = s.auctions.GetByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(alice, got.HighestBidder)
	s.Equal(domain.NativeCurrency, got.HighestCurrency)
	s.Equal(big.NewInt(2e16), got.HighestBid)
	s.Equal(usd18(59), got.HighestBidUSD)
	s.assertSameTime(bid.Timestamp, got.UpdatedAt)

	ids, err := s.auctions.GetActive(s.ctx)
	s.Require().NoError(err)
	s.Equal([]uint64{1, 2}, ids)
	ids, err = s.auctions.GetEndedActive(s.ctx, s.start)
	s.Require().NoError(err)
	s.Empty(ids)

	s.Require().NoError(b.Close(s.start.Add(time.Hour)))
	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.auctions.Save(s.ctx, tx, b))
	})
	ids, err = s.auctions.GetEndedActive(s.ctx, s.start.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal([]uint64{1}, ids)

	_, err = s.auctions.GetByID(s.ctx, 9)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *ledgerSuite) TestRollbackDiscardsWrites() {
	s.migrateUp()

	tx, err := s.tx.BeginTx(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.auctions.Save(s.ctx, tx, s.newAuction(3, domain.StorageV2)))
	s.Require().NoError(tx.Rollback(s.ctx))

	_, err = s.auctions.GetByID(s.ctx, 3)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *ledgerSuite) TestBidHistoryKeepsInsertionOrder() {
	s.migrateUp()

	a := s.newAuction(1, domain.StorageV2)
	// ids are random, so only the insertion sequence can order them
	placed := []*domain.Bid{
		domain.NewBid(uuid.New(), 1, alice, usdc, big.NewInt(60_000000), usd18(58), s.start.Add(time.Minute)),
		domain.NewBid(uuid.New(), 1, bob, domain.NativeCurrency, big.NewInt(2e16), usd18(59), s.start.Add(time.Minute)),
		domain.NewBid(uuid.New(), 1, alice, usdc, big.NewInt(100_000000), usd18(98), s.start.Add(2*time.Minute)),
	}
	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.auctions.Save(s.ctx, tx, a))
		s.Require().NoError(s.bids.Save(s.ctx, tx, placed[0]))
	})
	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.bids.Save(s.ctx, tx, placed[1]))
		s.Require().NoError(s.bids.Save(s.ctx, tx, placed[2]))
	})

	got, err := s.bids.GetBidsByAuctionID(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(got, len(placed))
	for i, want := range placed {
		s.Equal(want.ID, got[i].ID)
		s.Equal(want.Bidder, got[i].Bidder)
		s.Equal(want.Currency, got[i].Currency)
		s.Equal(want.Amount, got[i].Amount)
		s.Equal(want.USDValue, got[i].USDValue)
		s.assertSameTime(want.Timestamp, got[i].Timestamp)
	}

	none, err := s.bids.GetBidsByAuctionID(s.ctx, 2)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *ledgerSuite) TestFeedRegistry() {
	s.migrateUp()

	_, err := s.feeds.Get(s.ctx, usdc)
	s.ErrorIs(err, domain.ErrPricingUnavailable)

	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.feeds.Put(s.ctx, tx, usdc, feedSource))
		s.Require().NoError(s.feeds.Put(s.ctx, tx, domain.NativeCurrency, feedSource))
	})
	other := common.HexToAddress("0xf000000000000000000000000000000000000002")
	s.inTx(func(tx domain.Tx) {
		s.Require().NoError(s.feeds.Put(s.ctx, tx, usdc, other))
	})

	src, err := s.feeds.Get(s.ctx, usdc)
	s.Require().NoError(err)
	s.Equal(other, src)

	all, err := s.feeds.List(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]domain.FeedRegistration{
		{Currency: usdc, Source: other},
		{Currency: domain.NativeCurrency, Source: feedSource},
	}, all)
}
