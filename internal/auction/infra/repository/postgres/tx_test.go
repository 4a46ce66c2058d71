package postgres

import (
	"context"
	"math/big"
	"testing"

	"github.com/cristianortiz/nftAuction/internal/auction/infra/repository/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	v, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	require.True(t, ok)

	got, err := fromNumeric(toNumeric(v))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cmp(v))

	got, err = fromNumeric(toNumeric(nil))
	require.NoError(t, err)
	assert.Zero(t, got.Sign())
}

func TestFromNumericExponent(t *testing.T) {
	got, err := fromNumeric(pgtype.Numeric{Int: big.NewInt(15), Exp: 3, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, int64(15000), got.Int64())

	got, err = fromNumeric(pgtype.Numeric{Int: big.NewInt(15000), Exp: -2, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, int64(150), got.Int64())

	_, err = fromNumeric(pgtype.Numeric{Int: big.NewInt(15001), Exp: -2, Valid: true})
	assert.Error(t, err)
	_, err = fromNumeric(pgtype.Numeric{NaN: true, Valid: true})
	assert.Error(t, err)
	_, err = fromNumeric(pgtype.Numeric{})
	assert.Error(t, err)
}

func TestUnwrapRejectsForeignTx(t *testing.T) {
	tx, err := memory.NewStore().BeginTx(context.Background())
	require.NoError(t, err)
	_, err = unwrap(tx)
	assert.ErrorIs(t, err, ErrForeignTx)
}

func TestToAddress(t *testing.T) {
	addr, err := toAddress("0xa000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xa000000000000000000000000000000000000001"), addr)

	_, err = toAddress("not-an-address")
	assert.Error(t, err)
}
