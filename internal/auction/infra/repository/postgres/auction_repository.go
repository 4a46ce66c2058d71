package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AuctionRepository implements domain.AuctionRepository interface
type AuctionRepository struct {
	pool *pgxpool.Pool
}

// NewAuctionRepository creates a new instance of AuctionRepository
func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

const auctionColumns = `id, seller, collection, token_id, start_currency, start_price, start_price_usd,
        highest_bid, highest_bidder, highest_bid_usd, highest_currency, start_time, end_time, active,
        created_at, updated_at, created_under`

// Save inserts or updates an auction inside tx.
// INSERT ON CONFLICT handles both creation and every later update.
func (r *AuctionRepository) Save(ctx context.Context, tx domain.Tx, a *domain.Auction) error {
	ptx, err := unwrap(tx)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO auctions (id, seller, collection, token_id, start_currency, start_price, start_price_usd,
            highest_bid, highest_bidder, highest_bid_usd, highest_currency, start_time, end_time, active,
            created_at, updated_at, created_under)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        ON CONFLICT (id) DO UPDATE
        SET
            highest_bid = EXCLUDED.highest_bid,
            highest_bidder = EXCLUDED.highest_bidder,
            highest_bid_usd = EXCLUDED.highest_bid_usd,
            highest_currency = EXCLUDED.highest_currency,
            active = EXCLUDED.active,
            updated_at = EXCLUDED.updated_at;
    `
	_, err = ptx.Exec(ctx, query,
		int64(a.ID),
		a.Seller.Hex(),
		a.Asset.Collection.Hex(),
		toNumeric(a.Asset.TokenID),
		a.StartCurrency.Hex(),
		toNumeric(a.StartPrice),
		toNumeric(a.StartPriceUSD),
		toNumeric(a.HighestBid),
		a.HighestBidder.Hex(),
		toNumeric(a.HighestBidUSD),
		a.HighestCurrency.Hex(),
		a.StartTime,
		a.EndTime,
		a.Active,
		a.CreatedAt,
		a.UpdatedAt,
		int16(a.CreatedUnder),
	)
	if err != nil {
		log.Error("Failed to save auction", zap.Uint64("auctionID", a.ID), zap.Error(err))
	}
	return err
}

// GetByID retrieves an auction by its id.
func (r *AuctionRepository) GetByID(ctx context.Context, id uint64) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	a, err := scanAuction(r.pool.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// GetEndedActive lists active auctions whose end time is not after now, oldest first.
func (r *AuctionRepository) GetEndedActive(ctx context.Context, now time.Time) ([]uint64, error) {
	query := `
        SELECT id
        FROM auctions
        WHERE active AND end_time <= $1
        ORDER BY id ASC
    `
	return r.queryIDs(ctx, query, now)
}

// GetActive lists every active auction, oldest first.
func (r *AuctionRepository) GetActive(ctx context.Context) ([]uint64, error) {
	return r.queryIDs(ctx, `SELECT id FROM auctions WHERE active ORDER BY id ASC`)
}

func (r *AuctionRepository) queryIDs(ctx context.Context, query string, args ...any) ([]uint64, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	var id int64
	var createdUnder int16
	var seller, collection, startCurrency, bidder, currency string
	var tokenID, startPrice, startUSD, highest, highestUSD pgtype.Numeric
	var a domain.Auction
	err := row.Scan(
		&id,
		&seller,
		&collection,
		&tokenID,
		&startCurrency,
		&startPrice,
		&startUSD,
		&highest,
		&bidder,
		&highestUSD,
		&currency,
		&a.StartTime,
		&a.EndTime,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
		&createdUnder,
	)
	if err != nil {
		return nil, err
	}
	a.ID = uint64(id)
	a.CreatedUnder = domain.StorageVersion(createdUnder)

	addrs := []struct {
		dst *domain.Address
		src string
	}{
		{&a.Seller, seller},
		{&a.Asset.Collection, collection},
		{&a.StartCurrency, startCurrency},
		{&a.HighestBidder, bidder},
		{&a.HighestCurrency, currency},
	}
	for _, f := range addrs {
		if *f.dst, err = toAddress(f.src); err != nil {
			return nil, fmt.Errorf("auction %d: %w", id, err)
		}
	}
	nums := []struct {
		dst **big.Int
		src pgtype.Numeric
	}{
		{&a.Asset.TokenID, tokenID},
		{&a.StartPrice, startPrice},
		{&a.StartPriceUSD, startUSD},
		{&a.HighestBid, highest},
		{&a.HighestBidUSD, highestUSD},
	}
	for _, f := range nums {
		if *f.dst, err = fromNumeric(f.src); err != nil {
			return nil, fmt.Errorf("auction %d: %w", id, err)
		}
	}
	return &a, nil
}
