package pricing

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"launchkit/internal/chain"
	"launchkit/internal/model"
)

const aggregatorABIJSON = `[
  {
    "inputs": [],
    "name": "latestRoundData",
    "outputs": [
      {"internalType": "uint80", "name": "roundId", "type": "uint80"},
      {"internalType": "int256", "name": "answer", "type": "int256"},
      {"internalType": "uint256", "name": "startedAt", "type": "uint256"},
      {"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
      {"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	aggregatorABI     abi.ABI
	aggregatorABIOnce sync.Once
	aggregatorABIErr  error
)

func getAggregatorABI() (abi.ABI, error) {
	aggregatorABIOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

// Round is one observation from the reference feed.
type Round struct {
	RoundID         *big.Int
	Answer          *big.Int
	UpdatedAt       uint64
	AnsweredInRound *big.Int
}

// RoundReader fetches the latest observation from a price feed.
type RoundReader interface {
	LatestRound(ctx context.Context) (Round, error)
}

// RateSource yields a validated USD reference rate.
type RateSource interface {
	Rate(ctx context.Context) (*big.Int, error)
}

// OracleAdapter validates feed observations before handing the rate to the
// price calculator. Failures propagate verbatim; retrying at a later block is
// the caller's decision.
type OracleAdapter struct {
	reader    RoundReader
	freshness time.Duration
	now       func() time.Time
}

// NewOracleAdapter wraps reader with a freshness window.
func NewOracleAdapter(reader RoundReader, freshness time.Duration) *OracleAdapter {
	return &OracleAdapter{
		reader:    reader,
		freshness: freshness,
		now:       time.Now,
	}
}

// Rate returns the latest validated 8-decimal USD rate.
func (a *OracleAdapter) Rate(ctx context.Context) (*big.Int, error) {
	if a.reader == nil {
		return nil, fmt.Errorf("round reader is nil")
	}

	round, err := a.reader.LatestRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest round: %w", err)
	}

	if round.UpdatedAt == 0 {
		return nil, fmt.Errorf("round %v never completed: %w", round.RoundID, model.ErrIncompleteRound)
	}
	if round.AnsweredInRound != nil && round.RoundID != nil && round.AnsweredInRound.Cmp(round.RoundID) < 0 {
		return nil, fmt.Errorf("answer from round %v requested in %v: %w", round.AnsweredInRound, round.RoundID, model.ErrIncompleteRound)
	}
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return nil, fmt.Errorf("answer %v: %w", round.Answer, model.ErrInvalidPrice)
	}

	age := a.now().Sub(time.Unix(int64(round.UpdatedAt), 0))
	if a.freshness > 0 && age > a.freshness {
		return nil, fmt.Errorf("observation age %s exceeds %s: %w", age, a.freshness, model.ErrStaleData)
	}

	return new(big.Int).Set(round.Answer), nil
}

// ChainRoundReader reads latestRoundData from an on-chain aggregator.
type ChainRoundReader struct {
	client *chain.Client
	feed   common.Address
}

// NewChainRoundReader builds a reader against the feed address.
func NewChainRoundReader(client *chain.Client, feed common.Address) *ChainRoundReader {
	return &ChainRoundReader{client: client, feed: feed}
}

// LatestRound performs the eth_call and unpacks the observation.
func (r *ChainRoundReader) LatestRound(ctx context.Context) (Round, error) {
	if r.client == nil {
		return Round{}, fmt.Errorf("chain client is nil")
	}

	feedABI, err := getAggregatorABI()
	if err != nil {
		return Round{}, err
	}

	data, err := feedABI.Pack("latestRoundData")
	if err != nil {
		return Round{}, fmt.Errorf("pack latestRoundData: %w", err)
	}

	msg := ethereum.CallMsg{To: &r.feed, Data: data}
	resp, err := r.client.CallContract(ctx, msg, nil)
	if err != nil {
		return Round{}, fmt.Errorf("call latestRoundData: %w", err)
	}

	values, err := feedABI.Unpack("latestRoundData", resp)
	if err != nil {
		return Round{}, fmt.Errorf("unpack latestRoundData: %w", err)
	}
	if len(values) != 5 {
		return Round{}, fmt.Errorf("latestRoundData return size %d", len(values))
	}

	roundID, ok := values[0].(*big.Int)
	if !ok {
		return Round{}, fmt.Errorf("roundId unexpected type %T", values[0])
	}
	answer, ok := values[1].(*big.Int)
	if !ok {
		return Round{}, fmt.Errorf("answer unexpected type %T", values[1])
	}
	updatedAt, ok := values[3].(*big.Int)
	if !ok {
		return Round{}, fmt.Errorf("updatedAt unexpected type %T", values[3])
	}
	answeredIn, ok := values[4].(*big.Int)
	if !ok {
		return Round{}, fmt.Errorf("answeredInRound unexpected type %T", values[4])
	}

	return Round{
		RoundID:         roundID,
		Answer:          answer,
		UpdatedAt:       updatedAt.Uint64(),
		AnsweredInRound: answeredIn,
	}, nil
}
