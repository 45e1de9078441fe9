package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseAddressesDedupes(t *testing.T) {
	got, err := ParseAddresses([]string{
		" 0xBA12222222228d8Ba445958a75a0704d566BF2C8 ",
		"",
		"0xba12222222228d8ba445958a75a0704d566bf2c8",
		mainnetWETH,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []common.Address{common.HexToAddress(MainnetVault), common.HexToAddress(mainnetWETH)}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("addresses mismatch: %v", got)
	}

	if _, err := ParseAddresses([]string{"0x1234"}); err == nil {
		t.Fatalf("expected error for short address")
	}
}

func TestParseTopic0AcceptsSignatures(t *testing.T) {
	swap := "0x2170c741c41531aec20e7c107c24eecfdd15e69c9bb0a8dd37b1840b9e0b207b"
	got, err := ParseTopic0([]string{
		"Swap(bytes32,address,address,uint256,uint256)",
		swap,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != common.HexToHash(swap) {
		t.Fatalf("signature and hex should collapse to one topic: %v", got)
	}
}

func TestParseTopic0Rejects(t *testing.T) {
	for _, input := range []string{
		"0xdeadbeef",
		"not-hex",
		"Swap(bytes32, address)",
		"Swap(bytes32",
	} {
		if _, err := ParseTopic0([]string{input}); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
