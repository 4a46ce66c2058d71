package postgres

import (
	"context"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository implements domain.BidRepository interface
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates new instance of BidRepository.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// this method only inserts a new bid, the auction row is updated by the caller in the same tx
func (r *BidRepository) Save(ctx context.Context, tx domain.Tx, bid *domain.Bid) error {
	ptx, err := unwrap(tx)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO bids (id, auction_id, bidder, currency, amount, usd_value, timestamp)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err = ptx.Exec(ctx, query,
		bid.ID,
		int64(bid.AuctionID),
		bid.Bidder.Hex(),
		bid.Currency.Hex(),
		toNumeric(bid.Amount),
		toNumeric(bid.USDValue),
		bid.Timestamp,
	)
	return err
}

func (r *BidRepository) GetBidsByAuctionID(ctx context.Context, auctionID uint64) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder, currency, amount, usd_value, timestamp
        FROM bids
        WHERE auction_id = $1
        ORDER BY seq ASC
    `
	rows, err := r.pool.Query(ctx, query, int64(auctionID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid := &domain.Bid{}
		var id int64
		var bidder, currency string
		var amount, usd pgtype.Numeric
		err := rows.Scan(
			&bid.ID,
			&id,
			&bidder,
			&currency,
			&amount,
			&usd,
			&bid.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		bid.AuctionID = uint64(id)
		if bid.Bidder, err = toAddress(bidder); err != nil {
			return nil, err
		}
		if bid.Currency, err = toAddress(currency); err != nil {
			return nil, err
		}
		if bid.Amount, err = fromNumeric(amount); err != nil {
			return nil, err
		}
		if bid.USDValue, err = fromNumeric(usd); err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bids, nil
}
