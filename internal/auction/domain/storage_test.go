package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineState_Migration(t *testing.T) {
	admin := common.HexToAddress("0xad00000000000000000000000000000000000001")
	recipient := common.HexToAddress("0xfe00000000000000000000000000000000000001")
	s := NewEngineState(admin)

	assert.True(t, s.IsAdmin(admin))
	assert.False(t, s.IsAdmin(recipient))
	assert.False(t, s.Migrated())
	assert.Equal(t, FeePolicy{}, s.EffectiveFee())
	assert.ErrorIs(t, s.SetFeePolicy(100, recipient), ErrNotMigrated)

	assert.ErrorIs(t, s.MigrateToV2(10_001, recipient), ErrInvalidFeeRate)
	assert.ErrorIs(t, s.MigrateToV2(500, common.Address{}), ErrInvalidRecipient)

	require.NoError(t, s.MigrateToV2(500, recipient))
	assert.Equal(t, StorageV2, s.Version)
	assert.Equal(t, uint16(500), s.EffectiveFee().FeeRateBps)
	assert.ErrorIs(t, s.MigrateToV2(500, recipient), ErrAlreadyMigrated)

	require.NoError(t, s.SetFeePolicy(250, admin))
	assert.Equal(t, FeePolicy{FeeRateBps: 250, FeeRecipient: admin}, s.EffectiveFee())
}

func TestEngineState_AuctionIDs(t *testing.T) {
	s := NewEngineState(common.Address{})
	assert.Equal(t, uint64(1), s.TakeAuctionID())
	assert.Equal(t, uint64(2), s.TakeAuctionID())
	assert.False(t, s.IsAdmin(common.Address{}))
}
