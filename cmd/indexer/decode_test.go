package main

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"balancerScope/internal/dex"
	"balancerScope/internal/model"
)

type captureWriter struct {
	values []interface{}
}

func (c *captureWriter) Write(value interface{}) error {
	c.values = append(c.values, value)
	return nil
}

func (c *captureWriter) Close() error { return nil }

func TestDecodeLogs(t *testing.T) {
	vaultABI, err := dex.VaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	internal := vaultABI.Events["InternalBalanceChanged"]
	data, err := internal.Inputs.NonIndexed().Pack(big.NewInt(-42))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	vault := common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8")
	user := common.HexToHash("0x0000000000000000000000001111111111111111111111111111111111111111")
	token := common.HexToHash("0x000000000000000000000000c02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	now := time.Unix(1700000000, 0)

	valid := model.NewLogRecord(1, types.Log{
		Address:     vault,
		Topics:      []common.Hash{internal.ID, user, token},
		Data:        data,
		BlockNumber: 10,
		TxHash:      common.HexToHash("0xaa"),
	}, 1619222400, now)
	removed := valid
	removed.LogIndex = 1
	removed.Removed = true
	unknown := valid
	unknown.LogIndex = 2
	unknown.Topics = []string{common.HexToHash("0x01").Hex()}
	anonymous := valid
	anonymous.LogIndex = 3
	anonymous.Topics = nil
	truncated := valid
	truncated.LogIndex = 4
	truncated.Data = "0x01"

	path := filepath.Join(t.TempDir(), "logs.jsonl")
	var content []byte
	for _, record := range []model.LogRecord{valid, valid, removed, unknown, anonymous, truncated} {
		line, err := json.Marshal(record)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		content = append(content, line...)
		content = append(content, '\n')
	}
	content = append(content, []byte("not json\n")...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	decoder, err := dex.NewVaultDecoder(dex.DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	out := &captureWriter{}
	errs := &captureWriter{}

	stats, err := decodeLogs(path, decoder, out, errs, zap.NewNop())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := decodeStats{total: 7, decoded: 1, skipped: 1, removed: 1, duplicates: 1, failed: 3}
	if stats != want {
		t.Fatalf("stats mismatch: %+v != %+v", stats, want)
	}

	if len(out.values) != 1 {
		t.Fatalf("expected one decoded event, got %d", len(out.values))
	}
	event, ok := out.values[0].(*model.TypedEvent)
	if !ok || event.EventName != model.EventInternalBalanceChanged || event.Timestamp != 1619222400 {
		t.Fatalf("event mismatch: %#v", out.values[0])
	}

	if len(errs.values) != 3 {
		t.Fatalf("expected 3 decode errors, got %d", len(errs.values))
	}
	missing, ok := errs.values[0].(model.DecodeError)
	if !ok || missing.LogIndex != 3 || missing.Topic0 != "" {
		t.Fatalf("missing topic error mismatch: %#v", errs.values[0])
	}
	unpack, ok := errs.values[1].(model.DecodeError)
	if !ok || unpack.EventName != model.EventInternalBalanceChanged || unpack.LogIndex != 4 {
		t.Fatalf("unpack error mismatch: %#v", errs.values[1])
	}
	malformed, ok := errs.values[2].(model.DecodeError)
	if !ok || malformed.Error == "" || malformed.TxHash != "" {
		t.Fatalf("malformed line error mismatch: %#v", errs.values[2])
	}
}
