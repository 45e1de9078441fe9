package indexer

import (
	"fmt"
	"strings"
)

// BlockRange is an inclusive block span.
type BlockRange struct {
	From uint64
	To   uint64
}

// Halve splits r into two non-empty spans. Single-block ranges cannot split.
func (r BlockRange) Halve() (BlockRange, BlockRange, bool) {
	if r.From >= r.To {
		return r, BlockRange{}, false
	}
	mid := r.From + (r.To-r.From)/2
	return BlockRange{From: r.From, To: mid}, BlockRange{From: mid + 1, To: r.To}, true
}

// SplitRange cuts [from, to] into consecutive spans of at most batchSize blocks.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; start += batchSize {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
	}
}

// Messages providers return when an eth_getLogs span holds too many logs.
var rangeLimitHints = []string{
	"query returned more than",
	"block range",
	"response size exceeded",
	"too many results",
}

func isRangeTooLarge(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range rangeLimitHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
