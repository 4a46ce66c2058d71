package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies an account, a token contract or an NFT collection.
type Address = common.Address

// Currency is the settlement currency of a bid. The zero address is the native coin,
// any other address is a fungible token contract.
type Currency = common.Address

const (
	// NativeDecimals is the unit precision of the native coin (wei).
	NativeDecimals uint8 = 18
	// USDDecimals is the common fixed-point precision every bid is normalized to.
	USDDecimals uint8 = 18
	// BpsDenominator is the basis points base used by the fee policy.
	BpsDenominator = 10_000
)

// NativeCurrency is the identifier of the chain's native coin.
var NativeCurrency = Currency{}

// IsNative reports whether c denotes the native coin.
func IsNative(c Currency) bool {
	return c == NativeCurrency
}

// Asset identifies one non-fungible item: the collection contract and the token id inside it.
type Asset struct {
	Collection Address
	TokenID    *big.Int
}

// NewAsset builds an Asset, copying the token id.
func NewAsset(collection Address, tokenID *big.Int) Asset {
	return Asset{Collection: collection, TokenID: new(big.Int).Set(tokenID)}
}

// Key returns a stable string key for maps and logs.
func (a Asset) Key() string {
	id := "0"
	if a.TokenID != nil {
		id = a.TokenID.String()
	}
	return fmt.Sprintf("%s/%s", a.Collection.Hex(), id)
}

func (a Asset) String() string { return a.Key() }
