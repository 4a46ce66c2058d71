package postgres

import (
	"context"
	"errors"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedRepository implements domain.FeedRepository on the price_feeds table.
type FeedRepository struct {
	pool *pgxpool.Pool
}

func NewFeedRepository(pool *pgxpool.Pool) *FeedRepository {
	return &FeedRepository{pool: pool}
}

func (r *FeedRepository) Get(ctx context.Context, currency domain.Currency) (domain.Address, error) {
	var source string
	err := r.pool.QueryRow(ctx, `SELECT source FROM price_feeds WHERE currency = $1`, currency.Hex()).Scan(&source)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Address{}, domain.ErrPricingUnavailable
		}
		return domain.Address{}, err
	}
	return toAddress(source)
}

func (r *FeedRepository) Put(ctx context.Context, tx domain.Tx, currency domain.Currency, source domain.Address) error {
	ptx, err := unwrap(tx)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO price_feeds (currency, source)
        VALUES ($1, $2)
        ON CONFLICT (currency) DO UPDATE
        SET source = EXCLUDED.source, updated_at = NOW();
    `
	_, err = ptx.Exec(ctx, query, currency.Hex(), source.Hex())
	return err
}

func (r *FeedRepository) List(ctx context.Context) ([]domain.FeedRegistration, error) {
	rows, err := r.pool.Query(ctx, `SELECT currency, source FROM price_feeds ORDER BY currency ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []domain.FeedRegistration
	for rows.Next() {
		var currency, source string
		if err := rows.Scan(&currency, &source); err != nil {
			return nil, err
		}
		var reg domain.FeedRegistration
		if reg.Currency, err = toAddress(currency); err != nil {
			return nil, err
		}
		if reg.Source, err = toAddress(source); err != nil {
			return nil, err
		}
		feeds = append(feeds, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return feeds, nil
}
