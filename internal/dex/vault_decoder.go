package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"balancerScope/internal/model"
)

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	// Topic0Map adds topic0 aliases for known event names.
	Topic0Map map[string]string
}

// VaultDecoder decodes vault, pool factory and pool events.
type VaultDecoder struct {
	events map[string]abi.Event
}

var _ Decoder = (*VaultDecoder)(nil)

// NewVaultDecoder builds a decoder for every vault, factory and pool event.
func NewVaultDecoder(cfg DecoderConfig) (*VaultDecoder, error) {
	vault, err := VaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	pool, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	byName := make(map[string]abi.Event)
	for _, parsed := range []abi.ABI{vault, pool} {
		for name, event := range parsed.Events {
			byName[name] = event
		}
	}

	events := make(map[string]abi.Event, len(byName))
	for _, event := range byName {
		events[strings.ToLower(event.ID.Hex())] = event
	}

	for topic0, name := range cfg.Topic0Map {
		event, ok := byName[normalizeEventName(name)]
		if !ok {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", name)
		}
		if topic0 == "" {
			continue
		}
		events[strings.ToLower(topic0)] = event
	}

	return &VaultDecoder{events: events}, nil
}

// Topics returns every topic0 the decoder understands.
func (d *VaultDecoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.events))
	for topic := range d.events {
		out = append(out, common.HexToHash(topic))
	}
	return out
}

// CanDecode checks if the topic0 is supported.
func (d *VaultDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.events[strings.ToLower(topic0)]
	return ok
}

// EventName returns the event a topic0 decodes to, or "" when unknown.
func (d *VaultDecoder) EventName(topic0 string) string {
	event, ok := d.events[strings.ToLower(topic0)]
	if !ok {
		return ""
	}
	return event.Name
}

// Decode converts a LogRecord into a TypedEvent.
func (d *VaultDecoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	event, ok := d.events[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid emitter address: %s", log.Address)
	}

	var (
		decoded interface{}
		err     error
	)
	switch event.Name {
	case model.EventSwap:
		decoded, err = decodeSwap(event, log)
	case model.EventPoolBalanceChanged:
		decoded, err = decodePoolBalanceChanged(event, log)
	case model.EventPoolBalanceManaged:
		decoded, err = decodePoolBalanceManaged(event, log)
	case model.EventInternalBalanceChanged:
		decoded, err = decodeInternalBalanceChanged(event, log)
	case model.EventPoolRegistered:
		decoded, err = decodePoolRegistered(event, log)
	case model.EventTokensRegistered:
		decoded, err = decodeTokensRegistered(event, log)
	case model.EventPoolCreated:
		decoded, err = decodePoolCreated(event, log)
	case model.EventSwapFeePercentageChanged:
		decoded, err = decodeSwapFeePercentageChanged(event, log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", event.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", event.Name, err)
	}
	return buildTypedEvent(log, event.Name, decoded), nil
}

func normalizeEventName(name string) string {
	names := []string{
		model.EventSwap,
		model.EventPoolBalanceChanged,
		model.EventPoolBalanceManaged,
		model.EventInternalBalanceChanged,
		model.EventPoolRegistered,
		model.EventTokensRegistered,
		model.EventPoolCreated,
		model.EventSwapFeePercentageChanged,
	}
	trimmed := strings.TrimSpace(name)
	for _, known := range names {
		if strings.EqualFold(known, trimmed) {
			return known
		}
	}
	return ""
}

func buildTypedEvent(log model.LogRecord, name string, decoded interface{}) *model.TypedEvent {
	raw := &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data}
	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		From:        log.From,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		Raw:         raw,
	}
}

func decodeSwap(event abi.Event, log model.LogRecord) (model.SwapEventData, error) {
	var indexed struct {
		PoolId   [32]byte
		TokenIn  common.Address
		TokenOut common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.SwapEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.SwapEventData{}, err
	}
	amountIn, err := asBigInt(values[0])
	if err != nil {
		return model.SwapEventData{}, err
	}
	amountOut, err := asBigInt(values[1])
	if err != nil {
		return model.SwapEventData{}, err
	}

	return model.SwapEventData{
		PoolID:    common.Hash(indexed.PoolId),
		TokenIn:   indexed.TokenIn,
		TokenOut:  indexed.TokenOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
	}, nil
}

func decodePoolBalanceChanged(event abi.Event, log model.LogRecord) (model.PoolBalanceChangedData, error) {
	var indexed struct {
		PoolId            [32]byte
		LiquidityProvider common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.PoolBalanceChangedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 3)
	if err != nil {
		return model.PoolBalanceChangedData{}, err
	}
	tokens, err := asAddresses(values[0])
	if err != nil {
		return model.PoolBalanceChangedData{}, err
	}
	deltas, err := asBigInts(values[1])
	if err != nil {
		return model.PoolBalanceChangedData{}, err
	}
	fees, err := asBigInts(values[2])
	if err != nil {
		return model.PoolBalanceChangedData{}, err
	}

	return model.PoolBalanceChangedData{
		PoolID:             common.Hash(indexed.PoolId),
		LiquidityProvider:  indexed.LiquidityProvider,
		Tokens:             tokens,
		Deltas:             deltas,
		ProtocolFeeAmounts: fees,
	}, nil
}

func decodePoolBalanceManaged(event abi.Event, log model.LogRecord) (model.PoolBalanceManagedData, error) {
	var indexed struct {
		PoolId       [32]byte
		AssetManager common.Address
		Token        common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.PoolBalanceManagedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.PoolBalanceManagedData{}, err
	}
	cash, err := asBigInt(values[0])
	if err != nil {
		return model.PoolBalanceManagedData{}, err
	}
	managed, err := asBigInt(values[1])
	if err != nil {
		return model.PoolBalanceManagedData{}, err
	}

	return model.PoolBalanceManagedData{
		PoolID:       common.Hash(indexed.PoolId),
		AssetManager: indexed.AssetManager,
		Token:        indexed.Token,
		CashDelta:    cash,
		ManagedDelta: managed,
	}, nil
}

func decodeInternalBalanceChanged(event abi.Event, log model.LogRecord) (model.InternalBalanceChangedData, error) {
	var indexed struct {
		User  common.Address
		Token common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.InternalBalanceChangedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.InternalBalanceChangedData{}, err
	}
	delta, err := asBigInt(values[0])
	if err != nil {
		return model.InternalBalanceChangedData{}, err
	}

	return model.InternalBalanceChangedData{
		User:  indexed.User,
		Token: indexed.Token,
		Delta: delta,
	}, nil
}

func decodePoolRegistered(event abi.Event, log model.LogRecord) (model.PoolRegisteredData, error) {
	var indexed struct {
		PoolId      [32]byte
		PoolAddress common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.PoolRegisteredData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.PoolRegisteredData{}, err
	}
	specialization, err := asUint8(values[0])
	if err != nil {
		return model.PoolRegisteredData{}, err
	}

	return model.PoolRegisteredData{
		PoolID:         common.Hash(indexed.PoolId),
		PoolAddress:    indexed.PoolAddress,
		Specialization: specialization,
	}, nil
}

func decodeTokensRegistered(event abi.Event, log model.LogRecord) (model.TokensRegisteredData, error) {
	var indexed struct {
		PoolId [32]byte
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.TokensRegisteredData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.TokensRegisteredData{}, err
	}
	tokens, err := asAddresses(values[0])
	if err != nil {
		return model.TokensRegisteredData{}, err
	}
	managers, err := asAddresses(values[1])
	if err != nil {
		return model.TokensRegisteredData{}, err
	}

	return model.TokensRegisteredData{
		PoolID:        common.Hash(indexed.PoolId),
		Tokens:        tokens,
		AssetManagers: managers,
	}, nil
}

func decodePoolCreated(event abi.Event, log model.LogRecord) (model.PoolCreatedData, error) {
	var indexed struct {
		Pool common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.PoolCreatedData{}, err
	}
	return model.PoolCreatedData{Pool: indexed.Pool}, nil
}

func decodeSwapFeePercentageChanged(event abi.Event, log model.LogRecord) (model.SwapFeePercentageChangedData, error) {
	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.SwapFeePercentageChangedData{}, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return model.SwapFeePercentageChangedData{}, err
	}
	return model.SwapFeePercentageChangedData{SwapFeePercentage: fee}, nil
}

func parseIndexed(event abi.Event, topics []string, out interface{}) error {
	indexedArgs := indexedArguments(event.Inputs)
	if len(topics) != len(indexedArgs)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(indexedArgs)+1, len(topics))
	}
	hashes, err := parseTopicHashes(topics[1:])
	if err != nil {
		return err
	}
	if err := abi.ParseTopics(out, indexedArgs, hashes); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string, want int) ([]interface{}, error) {
	if dataHex == "" {
		dataHex = "0x"
	}
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	return values, nil
}

func asAddresses(value interface{}) ([]common.Address, error) {
	switch v := value.(type) {
	case []common.Address:
		return append([]common.Address(nil), v...), nil
	default:
		return nil, fmt.Errorf("unsupported address list type %T", value)
	}
}

func asBigInts(value interface{}) ([]*big.Int, error) {
	switch v := value.(type) {
	case []*big.Int:
		out := make([]*big.Int, len(v))
		for i, item := range v {
			out[i] = new(big.Int).Set(item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported int list type %T", value)
	}
}
