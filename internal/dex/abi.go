package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const vaultABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "contract IERC20", "name": "tokenIn", "type": "address"},
      {"indexed": true, "internalType": "contract IERC20", "name": "tokenOut", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountOut", "type": "uint256"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "liquidityProvider", "type": "address"},
      {"indexed": false, "internalType": "contract IERC20[]", "name": "tokens", "type": "address[]"},
      {"indexed": false, "internalType": "int256[]", "name": "deltas", "type": "int256[]"},
      {"indexed": false, "internalType": "uint256[]", "name": "protocolFeeAmounts", "type": "uint256[]"}
    ],
    "name": "PoolBalanceChanged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "assetManager", "type": "address"},
      {"indexed": true, "internalType": "contract IERC20", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "int256", "name": "cashDelta", "type": "int256"},
      {"indexed": false, "internalType": "int256", "name": "managedDelta", "type": "int256"}
    ],
    "name": "PoolBalanceManaged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "contract IERC20", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "int256", "name": "delta", "type": "int256"}
    ],
    "name": "InternalBalanceChanged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "poolAddress", "type": "address"},
      {"indexed": false, "internalType": "enum IVault.PoolSpecialization", "name": "specialization", "type": "uint8"}
    ],
    "name": "PoolRegistered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": false, "internalType": "contract IERC20[]", "name": "tokens", "type": "address[]"},
      {"indexed": false, "internalType": "address[]", "name": "assetManagers", "type": "address[]"}
    ],
    "name": "TokensRegistered",
    "type": "event"
  }
]`

const poolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"}
    ],
    "name": "PoolCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "swapFeePercentage", "type": "uint256"}
    ],
    "name": "SwapFeePercentageChanged",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "getSwapFeePercentage",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getNormalizedWeights",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

// Token metadata ABIs. Some early tokens return bytes32 for name and symbol.
const tokenABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const tokenBytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

// lazyABI parses its JSON source once, on first use.
type lazyABI struct {
	source string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.source))
	})
	return l.parsed, l.err
}

var (
	vaultContract        = &lazyABI{source: vaultABIJSON}
	poolContract         = &lazyABI{source: poolABIJSON}
	tokenContract        = &lazyABI{source: tokenABIJSON}
	tokenBytes32Contract = &lazyABI{source: tokenBytes32ABIJSON}
)

// VaultABI returns the parsed vault event ABI.
func VaultABI() (abi.ABI, error) { return vaultContract.get() }

// PoolABI returns the parsed ABI of the pool factories and pool contracts.
func PoolABI() (abi.ABI, error) { return poolContract.get() }
