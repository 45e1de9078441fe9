package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Event names emitted by the vault, the pool factories and the pools.
const (
	EventSwap                     = "Swap"
	EventPoolBalanceChanged       = "PoolBalanceChanged"
	EventPoolBalanceManaged       = "PoolBalanceManaged"
	EventInternalBalanceChanged   = "InternalBalanceChanged"
	EventPoolRegistered           = "PoolRegistered"
	EventTokensRegistered         = "TokensRegistered"
	EventPoolCreated              = "PoolCreated"
	EventSwapFeePercentageChanged = "SwapFeePercentageChanged"
)

// TypedEvent is a decoded vault event with its chain position.
type TypedEvent struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	BlockHash   string      `json:"block_hash"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	From        string      `json:"from,omitempty"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// RawLogRef keeps a minimal raw reference for traceability.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// TypedEventRecord is a TypedEvent read back from JSONL, with the payload
// left raw until the event name is known.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	From        string          `json:"from,omitempty"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

var errNoPayload = errors.New("missing decoded payload")

// DecodePayload unmarshals the decoded payload into out. An absent or null
// payload is an error.
func (r TypedEventRecord) DecodePayload(out interface{}) error {
	payload := bytes.TrimSpace(r.Decoded)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return errNoPayload
	}
	return json.Unmarshal(payload, out)
}
