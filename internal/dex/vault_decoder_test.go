package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"balancerScope/internal/model"
)

var (
	testVault  = common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8")
	testPoolID = common.HexToHash("0x5c6ee304399dbdb9c8ef030ab642b10820db8f56000200000000000000000014")
	testWETH   = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testBAL    = common.HexToAddress("0xba100000625a3754423978a60c9317c58a424e3D")
)

func TestVaultDecoderSwap(t *testing.T) {
	vaultABI, err := VaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewVaultDecoder(DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	data, err := vaultABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(1000),
		big.NewInt(2000),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}

	logRecord := buildLogRecord(testVault, vaultABI.Events["Swap"].ID, data, []common.Hash{
		testPoolID,
		topicFromAddress(testWETH),
		topicFromAddress(testBAL),
	})
	logRecord.From = "0x2222222222222222222222222222222222222222"

	if !decoder.CanDecode(logRecord.Topics[0]) {
		t.Fatalf("swap topic not recognised")
	}

	event, err := decoder.Decode(logRecord)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	if event.EventName != model.EventSwap {
		t.Fatalf("event name mismatch: %s", event.EventName)
	}
	if event.From != logRecord.From {
		t.Fatalf("from mismatch: %s", event.From)
	}

	swap, ok := event.Decoded.(model.SwapEventData)
	if !ok {
		t.Fatalf("decoded type mismatch")
	}
	if swap.PoolID != testPoolID {
		t.Fatalf("pool id mismatch: %s", swap.PoolID.Hex())
	}
	if swap.TokenIn != testWETH || swap.TokenOut != testBAL {
		t.Fatalf("token mismatch: %+v", swap)
	}
	if swap.AmountIn.Int64() != 1000 || swap.AmountOut.Int64() != 2000 {
		t.Fatalf("amounts mismatch: %+v", swap)
	}
}

func TestVaultDecoderPoolBalanceChanged(t *testing.T) {
	vaultABI, err := VaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewVaultDecoder(DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	provider := common.HexToAddress("0x3333333333333333333333333333333333333333")
	data, err := vaultABI.Events["PoolBalanceChanged"].Inputs.NonIndexed().Pack(
		[]common.Address{testWETH, testBAL},
		[]*big.Int{big.NewInt(500), big.NewInt(-250)},
		[]*big.Int{big.NewInt(0), big.NewInt(3)},
	)
	if err != nil {
		t.Fatalf("pack balance change: %v", err)
	}

	logRecord := buildLogRecord(testVault, vaultABI.Events["PoolBalanceChanged"].ID, data, []common.Hash{
		testPoolID,
		topicFromAddress(provider),
	})

	event, err := decoder.Decode(logRecord)
	if err != nil {
		t.Fatalf("decode balance change: %v", err)
	}

	change, ok := event.Decoded.(model.PoolBalanceChangedData)
	if !ok {
		t.Fatalf("decoded type mismatch")
	}
	if change.LiquidityProvider != provider {
		t.Fatalf("provider mismatch: %s", change.LiquidityProvider.Hex())
	}
	if len(change.Tokens) != 2 || change.Tokens[1] != testBAL {
		t.Fatalf("tokens mismatch: %+v", change.Tokens)
	}
	if change.Deltas[0].Int64() != 500 || change.Deltas[1].Int64() != -250 {
		t.Fatalf("deltas mismatch: %+v", change.Deltas)
	}
	if change.ProtocolFeeAmounts[1].Int64() != 3 {
		t.Fatalf("fees mismatch: %+v", change.ProtocolFeeAmounts)
	}
}

func TestVaultDecoderRegistration(t *testing.T) {
	vaultABI, err := VaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	poolABI, err := PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewVaultDecoder(DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x5c6Ee304399DBdB9C8Ef030aB642B10820DB8F56")
	factory := common.HexToAddress("0xA5bf2ddF098bb0Ef6d120C98217dD6B141c74EE0")

	createdLog := buildLogRecord(factory, poolABI.Events["PoolCreated"].ID, nil, []common.Hash{
		topicFromAddress(pool),
	})
	createdEvent, err := decoder.Decode(createdLog)
	if err != nil {
		t.Fatalf("decode pool created: %v", err)
	}
	created, ok := createdEvent.Decoded.(model.PoolCreatedData)
	if !ok || created.Pool != pool {
		t.Fatalf("pool created mismatch: %+v", createdEvent.Decoded)
	}

	registeredData, err := vaultABI.Events["PoolRegistered"].Inputs.NonIndexed().Pack(uint8(1))
	if err != nil {
		t.Fatalf("pack pool registered: %v", err)
	}
	registeredLog := buildLogRecord(testVault, vaultABI.Events["PoolRegistered"].ID, registeredData, []common.Hash{
		testPoolID,
		topicFromAddress(pool),
	})
	registeredEvent, err := decoder.Decode(registeredLog)
	if err != nil {
		t.Fatalf("decode pool registered: %v", err)
	}
	registered, ok := registeredEvent.Decoded.(model.PoolRegisteredData)
	if !ok {
		t.Fatalf("pool registered type mismatch")
	}
	if registered.PoolAddress != pool || registered.Specialization != 1 || registered.PoolID != testPoolID {
		t.Fatalf("pool registered mismatch: %+v", registered)
	}

	tokensData, err := vaultABI.Events["TokensRegistered"].Inputs.NonIndexed().Pack(
		[]common.Address{testBAL, testWETH},
		[]common.Address{{}, {}},
	)
	if err != nil {
		t.Fatalf("pack tokens registered: %v", err)
	}
	tokensLog := buildLogRecord(testVault, vaultABI.Events["TokensRegistered"].ID, tokensData, []common.Hash{testPoolID})
	tokensEvent, err := decoder.Decode(tokensLog)
	if err != nil {
		t.Fatalf("decode tokens registered: %v", err)
	}
	tokens, ok := tokensEvent.Decoded.(model.TokensRegisteredData)
	if !ok {
		t.Fatalf("tokens registered type mismatch")
	}
	if len(tokens.Tokens) != 2 || tokens.Tokens[0] != testBAL || len(tokens.AssetManagers) != 2 {
		t.Fatalf("tokens registered mismatch: %+v", tokens)
	}

	feeData, err := poolABI.Events["SwapFeePercentageChanged"].Inputs.NonIndexed().Pack(big.NewInt(3000000000000000))
	if err != nil {
		t.Fatalf("pack fee: %v", err)
	}
	feeEvent, err := decoder.Decode(buildLogRecord(pool, poolABI.Events["SwapFeePercentageChanged"].ID, feeData, nil))
	if err != nil {
		t.Fatalf("decode fee: %v", err)
	}
	fee, ok := feeEvent.Decoded.(model.SwapFeePercentageChangedData)
	if !ok || fee.SwapFeePercentage.String() != "3000000000000000" {
		t.Fatalf("fee mismatch: %+v", feeEvent.Decoded)
	}
}

func TestVaultDecoderBalanceManagedAndInternal(t *testing.T) {
	vaultABI, err := VaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewVaultDecoder(DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	manager := common.HexToAddress("0x4444444444444444444444444444444444444444")
	managedData, err := vaultABI.Events["PoolBalanceManaged"].Inputs.NonIndexed().Pack(
		big.NewInt(-700),
		big.NewInt(700),
	)
	if err != nil {
		t.Fatalf("pack managed: %v", err)
	}
	managedEvent, err := decoder.Decode(buildLogRecord(testVault, vaultABI.Events["PoolBalanceManaged"].ID, managedData, []common.Hash{
		testPoolID,
		topicFromAddress(manager),
		topicFromAddress(testWETH),
	}))
	if err != nil {
		t.Fatalf("decode managed: %v", err)
	}
	managed, ok := managedEvent.Decoded.(model.PoolBalanceManagedData)
	if !ok {
		t.Fatalf("managed type mismatch")
	}
	if managed.AssetManager != manager || managed.Token != testWETH {
		t.Fatalf("managed address mismatch: %+v", managed)
	}
	if managed.CashDelta.Int64() != -700 || managed.ManagedDelta.Int64() != 700 {
		t.Fatalf("managed delta mismatch: %+v", managed)
	}

	user := common.HexToAddress("0x5555555555555555555555555555555555555555")
	internalData, err := vaultABI.Events["InternalBalanceChanged"].Inputs.NonIndexed().Pack(big.NewInt(-42))
	if err != nil {
		t.Fatalf("pack internal: %v", err)
	}
	internalEvent, err := decoder.Decode(buildLogRecord(testVault, vaultABI.Events["InternalBalanceChanged"].ID, internalData, []common.Hash{
		topicFromAddress(user),
		topicFromAddress(testBAL),
	}))
	if err != nil {
		t.Fatalf("decode internal: %v", err)
	}
	internal, ok := internalEvent.Decoded.(model.InternalBalanceChangedData)
	if !ok {
		t.Fatalf("internal type mismatch")
	}
	if internal.User != user || internal.Token != testBAL || internal.Delta.Int64() != -42 {
		t.Fatalf("internal mismatch: %+v", internal)
	}
}

func TestVaultDecoderRejects(t *testing.T) {
	vaultABI, err := VaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewVaultDecoder(DecoderConfig{})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	if decoder.CanDecode("") {
		t.Fatalf("empty topic accepted")
	}
	unknown := common.HexToHash("0x01").Hex()
	if decoder.CanDecode(unknown) {
		t.Fatalf("unknown topic accepted")
	}

	missingTopic := buildLogRecord(testVault, vaultABI.Events["Swap"].ID, nil, []common.Hash{testPoolID})
	if _, err := decoder.Decode(missingTopic); err == nil {
		t.Fatalf("expected topic count error")
	}

	truncated := buildLogRecord(testVault, vaultABI.Events["InternalBalanceChanged"].ID, []byte{0x01}, []common.Hash{
		topicFromAddress(testWETH),
		topicFromAddress(testBAL),
	})
	if _, err := decoder.Decode(truncated); err == nil {
		t.Fatalf("expected unpack error")
	}
}

func TestVaultDecoderTopicAlias(t *testing.T) {
	alias := "0x00000000000000000000000000000000000000000000000000000000000000aa"
	decoder, err := NewVaultDecoder(DecoderConfig{Topic0Map: map[string]string{alias: "swap"}})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	if !decoder.CanDecode(alias) {
		t.Fatalf("alias topic not recognised")
	}
	if decoder.EventName(alias) != model.EventSwap {
		t.Fatalf("alias name mismatch: %s", decoder.EventName(alias))
	}

	if _, err := NewVaultDecoder(DecoderConfig{Topic0Map: map[string]string{alias: "Mint"}}); err == nil {
		t.Fatalf("expected unsupported name error")
	}
}

func buildLogRecord(emitter common.Address, topic0 common.Hash, data []byte, indexed []common.Hash) model.LogRecord {
	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, topic0.Hex())
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     1,
		BlockNumber: 12345,
		BlockHash:   "0xabc",
		TxHash:      "0xdef",
		LogIndex:    1,
		Address:     emitter.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   1700000000,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
