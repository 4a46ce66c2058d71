package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seller  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bidderA = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bidderB = common.HexToAddress("0x3000000000000000000000000000000000000003")
	usdc    = common.HexToAddress("0xa000000000000000000000000000000000000001")
	nft     = common.HexToAddress("0xb000000000000000000000000000000000000001")
)

func newTestAuction(now time.Time) *Auction {
	return NewAuction(1, seller, NewAsset(nft, big.NewInt(7)), NativeCurrency,
		big.NewInt(1000), big.NewInt(10), now, 10*time.Second)
}

func usdBid(bidder Address, usd int64, now time.Time) *Bid {
	return NewBid(uuid.New(), 1, bidder, NativeCurrency, big.NewInt(usd), big.NewInt(usd), now)
}

func TestNewAuction_FixesWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAuction(now)

	assert.True(t, a.Active)
	assert.False(t, a.HasBids())
	assert.Nil(t, a.Leader())
	assert.Equal(t, now.Add(10*time.Second), a.EndTime)
}

func TestAcceptBid_StrictlyGreater(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAuction(now)

	_, err := a.AcceptBid(usdBid(bidderA, 9, now), now)
	assert.ErrorIs(t, err, ErrBidTooLow, "below start price")

	displaced, err := a.AcceptBid(usdBid(bidderA, 10, now), now)
	require.NoError(t, err, "start price itself is enough for the first bid")
	assert.Nil(t, displaced)

	_, err = a.AcceptBid(usdBid(bidderB, 10, now), now)
	assert.ErrorIs(t, err, ErrBidTooLow, "ties keep the leader")
	assert.Equal(t, bidderA, a.HighestBidder)

	displaced, err = a.AcceptBid(usdBid(bidderB, 11, now), now)
	require.NoError(t, err)
	require.NotNil(t, displaced)
	assert.Equal(t, bidderA, displaced.Bidder)
	assert.Equal(t, int64(10), displaced.Amount.Int64())
	assert.Equal(t, bidderB, a.HighestBidder)
	assert.Equal(t, int64(11), a.HighestBidUSD.Int64())
}

func TestAcceptBid_Window(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAuction(now)

	_, err := a.AcceptBid(usdBid(bidderA, 50, now), now.Add(-time.Second))
	assert.ErrorIs(t, err, ErrAuctionNotStarted)

	_, err = a.AcceptBid(usdBid(bidderA, 50, now), a.EndTime)
	assert.ErrorIs(t, err, ErrAuctionEnded)

	require.NoError(t, a.Close(a.EndTime))
	_, err = a.AcceptBid(usdBid(bidderA, 50, now), now)
	assert.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestClose_Once(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAuction(now)

	assert.ErrorIs(t, a.CheckSettleable(now), ErrAuctionNotEnded)
	require.NoError(t, a.CheckSettleable(a.EndTime))
	require.NoError(t, a.Close(a.EndTime))
	assert.ErrorIs(t, a.Close(a.EndTime), ErrAlreadyClosed)
	assert.ErrorIs(t, a.CheckSettleable(a.EndTime), ErrAlreadyClosed)
}

func TestClone_DoesNotShare(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAuction(now)
	c := a.Clone()
	c.StartPrice.SetInt64(1)
	c.Asset.TokenID.SetInt64(99)

	assert.Equal(t, int64(1000), a.StartPrice.Int64())
	assert.Equal(t, int64(7), a.Asset.TokenID.Int64())
}
