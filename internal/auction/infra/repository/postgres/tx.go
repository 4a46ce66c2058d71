package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/cristianortiz/nftAuction/internal/shared/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var log = logger.GetLogger()

var ErrForeignTx = errors.New("postgres: transaction was not opened by this store")

// Tx wraps a pgx.Tx so it satisfies domain.Tx.
type Tx struct {
	pgx.Tx
}

// TxManager implements domain.TxManager on top of a pgx pool.
type TxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

func (m *TxManager) BeginTx(ctx context.Context) (domain.Tx, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx}, nil
}

func unwrap(tx domain.Tx) (pgx.Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.Tx == nil {
		return nil, ErrForeignTx
	}
	return t.Tx, nil
}

// toNumeric encodes an integer for a NUMERIC(78,0) column.
func toNumeric(x *big.Int) pgtype.Numeric {
	if x == nil {
		x = new(big.Int)
	}
	return pgtype.Numeric{Int: new(big.Int).Set(x), Valid: true}
}

// fromNumeric decodes a NUMERIC column that must hold an integer.
func fromNumeric(n pgtype.Numeric) (*big.Int, error) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return nil, fmt.Errorf("postgres: numeric is not a finite value")
	}
	v := new(big.Int)
	if n.Int != nil {
		v.Set(n.Int)
	}
	switch {
	case n.Exp > 0:
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		var rem big.Int
		v.QuoRem(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil), &rem)
		if rem.Sign() != 0 {
			return nil, fmt.Errorf("postgres: numeric has a fractional part")
		}
	}
	return v, nil
}

func toAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("postgres: invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
