package entity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultVaultID is the id of the protocol totals row.
const DefaultVaultID = "2"

// AddressID is the canonical lowercase hex form used inside keys.
func AddressID(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// PoolID is the canonical lowercase hex form of a vault pool id.
func PoolID(id common.Hash) string {
	return strings.ToLower(id.Hex())
}

// TxID is the canonical lowercase hex form of a transaction hash.
func TxID(tx common.Hash) string {
	return strings.ToLower(tx.Hex())
}

func PoolTokenID(poolID string, token common.Address) string {
	return poolID + "-" + AddressID(token)
}

// TokenPriceID keys an immutable price observation.
func TokenPriceID(poolID string, asset, pricingAsset common.Address, block uint64) string {
	return fmt.Sprintf("%s-%s-%s-%d", poolID, AddressID(asset), AddressID(pricingAsset), block)
}

// LatestPriceID is order-sensitive: the priced asset comes first.
func LatestPriceID(asset, pricingAsset common.Address) string {
	return AddressID(asset) + "-" + AddressID(pricingAsset)
}

func PoolHistoricalLiquidityID(poolID string, pricingAsset common.Address, block uint64) string {
	return fmt.Sprintf("%s-%s-%d", poolID, AddressID(pricingAsset), block)
}

// EventID keys records created once per log: swaps, joins/exits, investments.
func EventID(tx common.Hash, logIndex uint64) string {
	return fmt.Sprintf("%s-%d", TxID(tx), logIndex)
}

// SortedPair orders two tokens lexicographically by address bytes.
func SortedPair(a, b common.Address) (common.Address, common.Address) {
	if strings.Compare(AddressID(a), AddressID(b)) <= 0 {
		return a, b
	}
	return b, a
}

// TradePairID is independent of argument order.
func TradePairID(a, b common.Address) string {
	token0, token1 := SortedPair(a, b)
	return AddressID(token0) + "-" + AddressID(token1)
}

func UserInternalBalanceID(user, token common.Address) string {
	return AddressID(user) + "-" + AddressID(token)
}

// SnapshotID keys a day bucket of an entity.
func SnapshotID(entityID string, dayID int64) string {
	return fmt.Sprintf("%s-%d", entityID, dayID)
}
