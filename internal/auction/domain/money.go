package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var tenPowCache = map[uint8]*big.Int{}

func pow10(n uint8) *big.Int {
	if v, ok := tenPowCache[n]; ok {
		return v
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func init() {
	for i := uint8(0); i <= 36; i++ {
		tenPowCache[i] = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(i)), nil)
	}
}

// ToUSD converts amount (in base units of a currency with amountDecimals) into a USD value
// with USDDecimals precision, using a price reported with priceDecimals. The result is
// truncated toward zero.
//
//	usd = amount * price * 10^USDDecimals / (10^amountDecimals * 10^priceDecimals)
func ToUSD(amount *big.Int, amountDecimals uint8, price *big.Int, priceDecimals uint8) *big.Int {
	if amount == nil || price == nil {
		return new(big.Int)
	}
	num := new(big.Int).Mul(amount, price)
	num.Mul(num, pow10(USDDecimals))
	den := new(big.Int).Mul(pow10(amountDecimals), pow10(priceDecimals))
	return num.Quo(num, den)
}

// SplitFee splits amount into the fee owed at rateBps and the remainder.
// The fee truncates toward zero, the remainder keeps whatever the truncation drops.
func SplitFee(amount *big.Int, rateBps uint16) (fee, remainder *big.Int) {
	fee = new(big.Int).Mul(amount, big.NewInt(int64(rateBps)))
	fee.Quo(fee, big.NewInt(BpsDenominator))
	remainder = new(big.Int).Sub(amount, fee)
	return fee, remainder
}

// ParseUnits converts a human readable amount ("0.02") into base units of a currency
// with the given decimals. Amounts with more fractional digits than decimals are rejected.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse units %q: %w", s, err)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("parse units %q: more than %d fractional digits", s, decimals)
	}
	return shifted.BigInt(), nil
}

// FormatUnits renders base units as a decimal string with the given precision.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// FormatUSD renders a normalized USD value.
func FormatUSD(usd *big.Int) string {
	return FormatUnits(usd, USDDecimals)
}
