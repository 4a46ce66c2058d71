package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cristianortiz/nftAuction/internal/auction/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"
)

// AggregatorV3ABI is the subset of the Chainlink AggregatorV3Interface the adapter reads.
var AggregatorV3ABI abi.ABI

func init() {
	_abi, err := abi.JSON(strings.NewReader(aggregatorV3ABIJson))
	if err != nil {
		panic("Failed to parse ABI")
	}
	AggregatorV3ABI = _abi
}

var aggregatorV3ABIJson = `
[
  {
    "inputs": [],
    "name": "decimals",
    "outputs": [{ "internalType": "uint8", "name": "", "type": "uint8" }],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "latestRoundData",
    "outputs": [
      { "internalType": "uint80", "name": "roundId", "type": "uint80" },
      { "internalType": "int256", "name": "answer", "type": "int256" },
      { "internalType": "uint256", "name": "startedAt", "type": "uint256" },
      { "internalType": "uint256", "name": "updatedAt", "type": "uint256" },
      { "internalType": "uint80", "name": "answeredInRound", "type": "uint80" }
    ],
    "stateMutability": "view",
    "type": "function"
  }
]
`

// ChainlinkFeed reads an aggregator contract through an RPC node.
type ChainlinkFeed struct {
	caller  ethereum.ContractCaller
	address domain.Address
}

func NewChainlinkFeed(caller ethereum.ContractCaller, address domain.Address) *ChainlinkFeed {
	return &ChainlinkFeed{caller: caller, address: address}
}

func (f *ChainlinkFeed) call(ctx context.Context, method string) ([]interface{}, error) {
	data, err := AggregatorV3ABI.Pack(method)
	if err != nil {
		log.Error("abi.Pack failed", zap.String("method", method), zap.Error(err))
		return nil, err
	}
	msg := ethereum.CallMsg{
		To:   &f.address,
		Data: data,
	}
	res, err := f.caller.CallContract(ctx, msg, nil)
	if err != nil {
		log.Error("CallContract failed",
			zap.String("feed", f.address.Hex()),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}
	unpacked, err := AggregatorV3ABI.Unpack(method, res)
	if err != nil {
		log.Error("abi.Unpack failed", zap.String("method", method), zap.Error(err))
		return nil, err
	}
	return unpacked, nil
}

func (f *ChainlinkFeed) LatestRoundData(ctx context.Context) (domain.Round, error) {
	out, err := f.call(ctx, "latestRoundData")
	if err != nil {
		return domain.Round{}, err
	}
	if len(out) != 5 {
		return domain.Round{}, fmt.Errorf("latestRoundData: unexpected output length %d", len(out))
	}
	answer, ok := out[1].(*big.Int)
	if !ok {
		return domain.Round{}, fmt.Errorf("latestRoundData: unexpected answer type %T", out[1])
	}
	updatedAt, ok := out[3].(*big.Int)
	if !ok {
		return domain.Round{}, fmt.Errorf("latestRoundData: unexpected updatedAt type %T", out[3])
	}
	round := domain.Round{Answer: answer}
	if updatedAt.Sign() > 0 {
		round.UpdatedAt = time.Unix(updatedAt.Int64(), 0)
	}
	return round, nil
}

func (f *ChainlinkFeed) Decimals(ctx context.Context) (uint8, error) {
	out, err := f.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("decimals: unexpected output length %d", len(out))
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected type %T", out[0])
	}
	return d, nil
}

// ChainlinkResolver treats every source address as an aggregator contract.
type ChainlinkResolver struct {
	caller ethereum.ContractCaller
}

func NewChainlinkResolver(caller ethereum.ContractCaller) *ChainlinkResolver {
	return &ChainlinkResolver{caller: caller}
}

func (r *ChainlinkResolver) Resolve(ctx context.Context, source domain.Address) (domain.PriceFeed, error) {
	return NewChainlinkFeed(r.caller, source), nil
}
