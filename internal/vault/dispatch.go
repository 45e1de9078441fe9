package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
)

// ErrUnsupportedEvent is returned by Apply for event names it does not handle.
var ErrUnsupportedEvent = errors.New("unsupported event")

// MetaFromRecord extracts the chain position of a typed event.
func MetaFromRecord(rec model.TypedEventRecord) EventMeta {
	return EventMeta{
		Block:     rec.BlockNumber,
		Timestamp: int64(rec.Timestamp),
		TxHash:    common.HexToHash(rec.TxHash),
		LogIndex:  rec.LogIndex,
		From:      common.HexToAddress(rec.From),
		Address:   common.HexToAddress(rec.Address),
	}
}

// Apply decodes rec and routes it to its handler.
func (h *Handler) Apply(ctx context.Context, s entity.Store, rec model.TypedEventRecord) error {
	meta := MetaFromRecord(rec)

	switch rec.EventName {
	case model.EventSwap:
		var ev model.SwapEventData
		if err := decodePayload(rec, &ev); err != nil {
			return err
		}
		return h.HandleSwap(ctx, s, meta, ev)
	case model.EventPoolBalanceChanged:
		var ev model.PoolBalanceChangedData
		if err := decodePayload(rec, &ev); err != nil {
			return err
		}
		return h.HandleBalanceChange(ctx, s, meta, ev)
	case model.EventPoolBalanceManaged:
		var ev model.PoolBalanceManagedData
		if err := decodePayload(rec, &ev); err != nil {
			return err
		}
		return h.HandleBalanceManaged(ctx, s, meta, ev)
	case model.EventInternalBalanceChanged:
		var ev model.InternalBalanceChangedData
		if err := decodePayload(rec, &ev); err != nil {
			return err
		}
		return h.HandleInternalBalanceChange(ctx, s, meta, ev)
	case model.EventPoolRegistered:
		var ev model.PoolRegisteredData
		if err := decodePayload(rec, &ev); err != nil {
			return err
		}
		return h.HandlePoolRegistered(ctx, s, meta, ev)
	case model.EventTokensRegistered:
		var ev model.TokensRegisteredData
		if err := decodePayload(rec, &ev); err != nil {
			return err
		}
		return h.HandleTokensRegistered(ctx, s, meta, ev)
	case model.EventPoolCreated:
		var ev model.PoolCreatedData
		if err := decodePayload(rec, &ev); err != nil {
			return err
		}
		return h.HandlePoolCreated(ctx, s, meta, ev)
	case model.EventSwapFeePercentageChanged:
		var ev model.SwapFeePercentageChangedData
		if err := decodePayload(rec, &ev); err != nil {
			return err
		}
		return h.HandleSwapFeeChanged(ctx, s, meta, ev)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedEvent, rec.EventName)
	}
}

func decodePayload(rec model.TypedEventRecord, out interface{}) error {
	if err := rec.DecodePayload(out); err != nil {
		return fmt.Errorf("%w: %s payload at %s/%d: %v", ErrInvalidEvent, rec.EventName, rec.TxHash, rec.LogIndex, err)
	}
	return nil
}
