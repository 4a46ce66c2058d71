package postgres

import (
	"context"
	"errors"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// StateRepository keeps the engine storage in the single row of engine_state.
type StateRepository struct {
	pool *pgxpool.Pool
}

func NewStateRepository(pool *pgxpool.Pool) *StateRepository {
	return &StateRepository{pool: pool}
}

func (r *StateRepository) Load(ctx context.Context) (*domain.EngineState, error) {
	query := `
        SELECT version, admin, next_auction_id, fee_rate_bps, fee_recipient
        FROM engine_state
        WHERE id = 1
    `
	var (
		version   int16
		admin     string
		nextID    int64
		feeRate   int32
		recipient string
	)
	err := r.pool.QueryRow(ctx, query).Scan(&version, &admin, &nextID, &feeRate, &recipient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	state := &domain.EngineState{}
	state.Version = domain.StorageVersion(version)
	state.NextAuctionID = uint64(nextID)
	state.FeeRateBps = uint16(feeRate)
	if state.Admin, err = toAddress(admin); err != nil {
		return nil, err
	}
	if state.FeeRecipient, err = toAddress(recipient); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *StateRepository) Save(ctx context.Context, tx domain.Tx, state *domain.EngineState) error {
	ptx, err := unwrap(tx)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO engine_state (id, version, admin, next_auction_id, fee_rate_bps, fee_recipient)
        VALUES (1, $1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE
        SET
            version = EXCLUDED.version,
            admin = EXCLUDED.admin,
            next_auction_id = EXCLUDED.next_auction_id,
            fee_rate_bps = EXCLUDED.fee_rate_bps,
            fee_recipient = EXCLUDED.fee_recipient,
            updated_at = NOW();
    `
	_, err = ptx.Exec(ctx, query,
		int16(state.Version),
		state.Admin.Hex(),
		int64(state.NextAuctionID),
		int32(state.FeeRateBps),
		state.FeeRecipient.Hex(),
	)
	if err != nil {
		log.Error("Failed to save engine state", zap.Uint8("version", uint8(state.Version)), zap.Error(err))
	}
	return err
}
