package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogRecord is one vault log line in the raw JSONL stream. From is filled
// only when the run resolved transaction senders.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	From        string   `json:"from,omitempty"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at"`
}

// NewLogRecord flattens a chain log into its stored form.
func NewLogRecord(chainID uint64, log types.Log, timestamp uint64, ingestedAt time.Time) LogRecord {
	topics := make([]string, len(log.Topics))
	for i, topic := range log.Topics {
		topics[i] = topic.Hex()
	}
	return LogRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Removed:     log.Removed,
		Timestamp:   timestamp,
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Key identifies a log position; replays of the same log share it.
func (lr LogRecord) Key() string {
	return fmt.Sprintf("%d:%s:%d", lr.BlockNumber, strings.ToLower(lr.TxHash), lr.LogIndex)
}

// Topic0 returns the event signature topic, or "" for anonymous logs.
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return lr.Topics[0]
}

// DecodeError is one line of the decode errors file.
type DecodeError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	EventName   string `json:"event_name,omitempty"`
	Error       string `json:"error"`
}

// NewDecodeError locates err at the log it was raised for. eventName may
// be empty when the topic is unknown.
func NewDecodeError(lr LogRecord, eventName string, err error) DecodeError {
	return DecodeError{
		ChainID:     lr.ChainID,
		BlockNumber: lr.BlockNumber,
		TxHash:      lr.TxHash,
		LogIndex:    lr.LogIndex,
		Address:     lr.Address,
		Topic0:      lr.Topic0(),
		EventName:   eventName,
		Error:       err.Error(),
	}
}
