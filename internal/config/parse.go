package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParseAddresses converts hex strings into addresses. Blank entries are
// ignored and repeats keep their first position.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(inputs))
	seen := make(map[common.Address]struct{}, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address %q", input)
		}
		addr := common.HexToAddress(input)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}

// ParseTopic0 accepts either 32-byte hex topics or event signatures such as
// "Swap(bytes32,address,address,uint256,uint256)", which are hashed.
func ParseTopic0(inputs []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(inputs))
	seen := make(map[common.Hash]struct{}, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		topic, err := parseTopic(input)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		out = append(out, topic)
	}
	return out, nil
}

func parseTopic(input string) (common.Hash, error) {
	if strings.Contains(input, "(") {
		if !strings.HasSuffix(input, ")") || strings.ContainsAny(input, " \t") {
			return common.Hash{}, fmt.Errorf("invalid event signature %q", input)
		}
		return crypto.Keccak256Hash([]byte(input)), nil
	}
	return parseTopicHex(input)
}

func parseTopicHex(input string) (common.Hash, error) {
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid topic0 %q", input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid topic0 length %q", input)
	}
	return common.BytesToHash(data), nil
}
