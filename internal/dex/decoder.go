package dex

import (
	"github.com/ethereum/go-ethereum/common"

	"balancerScope/internal/model"
)

// Decoder turns raw log records into typed events. Topic0 values are
// compared case-insensitively.
type Decoder interface {
	Topics() []common.Hash
	CanDecode(topic0 string) bool
	EventName(topic0 string) string
	Decode(log model.LogRecord) (*model.TypedEvent, error)
}
