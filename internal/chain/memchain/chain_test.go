package memchain

import (
	"context"
	"math/big"
	"testing"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	engine = common.HexToAddress("0xe000000000000000000000000000000000000001")
	alice  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bob    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	usdc   = common.HexToAddress("0xa000000000000000000000000000000000000001")
	nft    = common.HexToAddress("0xb000000000000000000000000000000000000001")
)

func balance(t *testing.T, c *Chain, currency, account domain.Address) int64 {
	t.Helper()
	b, err := c.BalanceOf(context.Background(), currency, account)
	require.NoError(t, err)
	return b.Int64()
}

func TestTransferCurrency_PullNeedsAllowance(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.DeployToken(usdc, "USDC", 6)
	require.NoError(t, c.Mint(usdc, alice, big.NewInt(100)))

	tx, _ := c.Begin(ctx, engine)
	err := tx.TransferCurrency(ctx, usdc, alice, engine, big.NewInt(50))
	assert.ErrorIs(t, err, domain.ErrInsufficientAllowance)
	require.NoError(t, tx.Rollback(ctx))

	require.NoError(t, c.Approve(usdc, alice, engine, big.NewInt(60)))
	tx, _ = c.Begin(ctx, engine)
	require.NoError(t, tx.TransferCurrency(ctx, usdc, alice, engine, big.NewInt(50)))
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, int64(50), balance(t, c, usdc, alice))
	assert.Equal(t, int64(50), balance(t, c, usdc, engine))
	allowance, _ := c.Allowance(ctx, usdc, alice, engine)
	assert.Equal(t, int64(10), allowance.Int64())
}

func TestTransferCurrency_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.NoError(t, c.Mint(domain.NativeCurrency, alice, big.NewInt(5)))

	tx, _ := c.Begin(ctx, engine)
	err := tx.TransferCurrency(ctx, domain.NativeCurrency, alice, engine, big.NewInt(6))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestRollback_UndoesEverything(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.DeployToken(usdc, "USDC", 6)
	require.NoError(t, c.Mint(usdc, alice, big.NewInt(100)))
	require.NoError(t, c.Approve(usdc, alice, engine, big.NewInt(100)))
	require.NoError(t, c.Mint(domain.NativeCurrency, engine, big.NewInt(10)))
	asset := domain.NewAsset(nft, big.NewInt(1))
	c.MintAsset(asset, engine)

	tx, _ := c.Begin(ctx, engine)
	require.NoError(t, tx.TransferCurrency(ctx, usdc, alice, engine, big.NewInt(40)))
	require.NoError(t, tx.TransferCurrency(ctx, domain.NativeCurrency, engine, bob, big.NewInt(10)))
	require.NoError(t, tx.TransferAsset(ctx, asset, engine, bob))
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, int64(100), balance(t, c, usdc, alice))
	assert.Equal(t, int64(10), balance(t, c, domain.NativeCurrency, engine))
	assert.Equal(t, int64(0), balance(t, c, domain.NativeCurrency, bob))
	owner, _ := c.OwnerOf(ctx, asset)
	assert.Equal(t, engine, owner)
	allowance, _ := c.Allowance(ctx, usdc, alice, engine)
	assert.Equal(t, int64(100), allowance.Int64())

	assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
}

func TestReceiveHook_Rejects(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.NoError(t, c.Mint(domain.NativeCurrency, engine, big.NewInt(10)))
	c.SetReceiveHook(bob, RejectAll)

	tx, _ := c.Begin(ctx, engine)
	err := tx.TransferCurrency(ctx, domain.NativeCurrency, engine, bob, big.NewInt(10))
	assert.ErrorIs(t, err, ErrTransferRejected)
	require.NoError(t, tx.Rollback(ctx))
	assert.Equal(t, int64(10), balance(t, c, domain.NativeCurrency, engine))

	c.SetReceiveHook(bob, nil)
	tx, _ = c.Begin(ctx, engine)
	require.NoError(t, tx.TransferCurrency(ctx, domain.NativeCurrency, engine, bob, big.NewInt(10)))
	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, int64(10), balance(t, c, domain.NativeCurrency, bob))
}

func TestTransferAsset_Approvals(t *testing.T) {
	ctx := context.Background()
	c := New()
	asset := domain.NewAsset(nft, big.NewInt(3))
	c.MintAsset(asset, alice)

	ok, err := c.IsApproved(ctx, asset, alice, engine)
	require.NoError(t, err)
	assert.False(t, ok)

	tx, _ := c.Begin(ctx, engine)
	assert.ErrorIs(t, tx.TransferAsset(ctx, asset, alice, engine), domain.ErrAssetNotApproved)
	assert.ErrorIs(t, tx.TransferAsset(ctx, asset, bob, engine), domain.ErrNotAssetOwner)
	require.NoError(t, tx.Rollback(ctx))

	c.SetApprovalForAll(nft, alice, engine, true)
	ok, _ = c.IsApproved(ctx, asset, alice, engine)
	assert.True(t, ok)

	tx, _ = c.Begin(ctx, engine)
	require.NoError(t, tx.TransferAsset(ctx, asset, alice, engine))
	require.NoError(t, tx.Commit(ctx))
	owner, _ := c.OwnerOf(ctx, asset)
	assert.Equal(t, engine, owner)

	_, err = c.OwnerOf(ctx, domain.NewAsset(nft, big.NewInt(99)))
	assert.ErrorIs(t, err, ErrUnknownAsset)
}
