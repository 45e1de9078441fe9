package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"balancerScope/internal/model"
)

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// ChainReader serves token metadata and pool parameters from contract calls.
type ChainReader struct {
	caller Caller
	tokens *TokenMetaCache
	logger *zap.Logger
}

// NewChainReader builds a reader; a nil cache gets a fresh one.
func NewChainReader(caller Caller, cache *TokenMetaCache, logger *zap.Logger) *ChainReader {
	if cache == nil {
		cache = NewTokenMetaCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainReader{caller: caller, tokens: cache, logger: logger}
}

// TokenMeta returns cached metadata, fetching it on first use. A failed
// fetch is cached too so an unreadable token costs one round of calls.
func (r *ChainReader) TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.tokens.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, r.caller, token, r.logger)
	if err != nil {
		r.logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	r.tokens.Set(token, meta)
	return meta, err
}

// SwapFeePercentage reads getSwapFeePercentage from a pool.
func (r *ChainReader) SwapFeePercentage(ctx context.Context, pool common.Address) (*big.Int, error) {
	values, err := r.callPool(ctx, pool, "getSwapFeePercentage")
	if err != nil {
		return nil, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("swap fee: %w", err)
	}
	return fee, nil
}

// NormalizedWeights reads getNormalizedWeights from a weighted pool.
func (r *ChainReader) NormalizedWeights(ctx context.Context, pool common.Address) ([]*big.Int, error) {
	values, err := r.callPool(ctx, pool, "getNormalizedWeights")
	if err != nil {
		return nil, err
	}
	weights, err := asBigInts(values[0])
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	return weights, nil
}

func (r *ChainReader) callPool(ctx context.Context, pool common.Address, method string) ([]interface{}, error) {
	if r.caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	poolABI, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	return callMethod(ctx, r.caller, pool, poolABI, method)
}

func callMethod(ctx context.Context, caller Caller, target common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return values, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls.
func FetchTokenMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("chain caller is nil")
	}

	stringABI, err := tokenContract.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := tokenBytes32Contract.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	meta.Symbol = readText(ctx, caller, token, "symbol", stringABI, bytes32ABI, logger)
	meta.Name = readText(ctx, caller, token, "name", stringABI, bytes32ABI, logger)
	return meta, nil
}

// readText tries the string ABI first, then the bytes32 variant older tokens use.
func readText(ctx context.Context, caller Caller, token common.Address, method string, stringABI, bytes32ABI abi.ABI, logger *zap.Logger) string {
	if values, err := callMethod(ctx, caller, token, stringABI, method); err == nil {
		if text, ok := values[0].(string); ok {
			return text
		}
	}
	values, err := callMethod(ctx, caller, token, bytes32ABI, method)
	if err == nil {
		if text, ok := bytes32ToString(values[0]); ok {
			return text
		}
	}
	if logger != nil {
		logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	return ""
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
