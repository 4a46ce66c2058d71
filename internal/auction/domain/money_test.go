package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUnits(t *testing.T, s string, decimals uint8) *big.Int {
	t.Helper()
	v, err := ParseUnits(s, decimals)
	require.NoError(t, err)
	return v
}

func TestToUSD_CrossCurrency(t *testing.T) {
	ethPrice := big.NewInt(2980_00000000) // 8 decimals
	usdcPrice := big.NewInt(98000000)

	eth := ToUSD(mustUnits(t, "0.02", 18), 18, ethPrice, 8)
	usdc := ToUSD(mustUnits(t, "100", 6), 6, usdcPrice, 8)

	assert.Equal(t, "59.6", FormatUSD(eth))
	assert.Equal(t, "98", FormatUSD(usdc))
	assert.Equal(t, 1, usdc.Cmp(eth))
}

func TestToUSD_Truncates(t *testing.T) {
	// 1 base unit of a 6-decimal token at $0.98 is 0.98e-6 USD.
	usd := ToUSD(big.NewInt(1), 6, big.NewInt(98000000), 8)
	assert.Equal(t, "0.00000098", FormatUSD(usd))

	usd = ToUSD(big.NewInt(1), 18, big.NewInt(1), 8)
	assert.Equal(t, 0, usd.Sign())
}

func TestToUSD_NilInputs(t *testing.T) {
	assert.Equal(t, 0, ToUSD(nil, 18, big.NewInt(1), 8).Sign())
	assert.Equal(t, 0, ToUSD(big.NewInt(1), 18, nil, 8).Sign())
}

func TestSplitFee(t *testing.T) {
	fee, rest := SplitFee(mustUnits(t, "1", 18), 500)
	assert.Equal(t, "0.05", FormatUnits(fee, 18))
	assert.Equal(t, "0.95", FormatUnits(rest, 18))

	fee, rest = SplitFee(big.NewInt(199), 500)
	assert.Equal(t, int64(9), fee.Int64())
	assert.Equal(t, int64(190), rest.Int64())

	fee, rest = SplitFee(big.NewInt(1000), 0)
	assert.Equal(t, 0, fee.Sign())
	assert.Equal(t, int64(1000), rest.Int64())
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("200", 6)
	require.NoError(t, err)
	assert.Equal(t, "200000000", v.String())

	_, err = ParseUnits("0.0000001", 6)
	assert.Error(t, err)

	_, err = ParseUnits("abc", 6)
	assert.Error(t, err)
}
