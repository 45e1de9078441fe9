package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Bounds for the per-block and per-transaction caches. A full vault sync
// touches millions of blocks.
const (
	timestampCacheSize = 100_000
	senderCacheSize    = 50_000
)

// Client wraps go-ethereum RPC with the lookups the vault indexer repeats.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	timestamps *lru.Cache[uint64, uint64]
	senders    *lru.Cache[common.Hash, common.Address]

	mu      sync.Mutex
	chainID *big.Int
	signer  types.Signer
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	timestamps, err := lru.New[uint64, uint64](timestampCacheSize)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	senders, err := lru.New[common.Hash, common.Address](senderCacheSize)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}

	return &Client{
		rpcClient:  rpcClient,
		ethClient:  ethclient.NewClient(rpcClient),
		timestamps: timestamps,
		senders:    senders,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID, asking the node once.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID == nil {
		id, err := c.ethClient.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		c.chainID = id
		c.signer = types.LatestSignerForChainID(id)
	}
	return new(big.Int).Set(c.chainID), nil
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestamp returns the block timestamp, using a bounded cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	if ts, ok := c.timestamps.Get(number); ok {
		return ts, nil
	}

	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}
	c.timestamps.Add(number, header.Time)
	return header.Time, nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// TransactionFrom recovers the sender of a transaction, using a bounded cache.
func (c *Client) TransactionFrom(ctx context.Context, txHash common.Hash) (common.Address, error) {
	if from, ok := c.senders.Get(txHash); ok {
		return from, nil
	}

	if _, err := c.GetChainID(ctx); err != nil {
		return common.Address{}, err
	}
	tx, _, err := c.ethClient.TransactionByHash(ctx, txHash)
	if err != nil {
		return common.Address{}, err
	}
	c.mu.Lock()
	signer := c.signer
	c.mu.Unlock()

	from, err := types.Sender(signer, tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover sender %s: %w", txHash.Hex(), err)
	}
	c.senders.Add(txHash, from)
	return from, nil
}
