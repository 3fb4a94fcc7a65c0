package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"poolScope/internal/model"
	"poolScope/internal/store"
)

// Apply folds one typed event record unless the chain cursor already covers
// it. Dropped and malformed events return nil after being logged.
func (e *Engine) Apply(ctx context.Context, record model.TypedEventRecord) error {
	ev := EventFromRecord(record)

	applied, err := e.Cursor(ctx, ev.ChainID)
	if err != nil {
		return err
	}
	if applied.Covers(ev.BlockNumber, ev.LogIndex) {
		e.metrics.Skipped(record.EventName)
		return nil
	}

	switch record.EventName {
	case model.EventPoolCreated:
		var data model.PoolCreatedEventData
		if err := decodePayload(record, &data); err != nil {
			return e.malformed(record, err)
		}
		err = e.HandlePoolCreated(ctx, ev, data)
	case model.EventMint:
		var data model.MintEventData
		if err := decodePayload(record, &data); err != nil {
			return e.malformed(record, err)
		}
		err = e.HandleMint(ctx, ev, data)
	case model.EventBurn:
		var data model.BurnEventData
		if err := decodePayload(record, &data); err != nil {
			return e.malformed(record, err)
		}
		err = e.HandleBurn(ctx, ev, data)
	case model.EventCollect:
		var data model.CollectEventData
		if err := decodePayload(record, &data); err != nil {
			return e.malformed(record, err)
		}
		err = e.HandleCollect(ctx, ev, data)
	case model.EventSwap:
		var data model.SwapEventData
		if err := decodePayload(record, &data); err != nil {
			return e.malformed(record, err)
		}
		err = e.HandleSwap(ctx, ev, data)
	default:
		e.logger.Debug("unhandled event", zap.String("event", record.EventName), zap.String("address", ev.Address))
		return nil
	}

	if err != nil && IsDroppable(err) {
		return nil
	}
	return err
}

// Cursor returns the last applied position of chainID, or nil before the first event.
func (e *Engine) Cursor(ctx context.Context, chainID uint64) (*model.FoldCursor, error) {
	tx := store.Begin(e.kv, chainID)
	defer tx.Discard()
	return tx.Cursors.Get(ctx, cursorID)
}

func (e *Engine) malformed(record model.TypedEventRecord, err error) error {
	e.metrics.Dropped(record.EventName, "malformed_payload")
	e.logger.Warn("decode event payload", zap.Uint64("block_number", record.BlockNumber), zap.Uint64("log_index", record.LogIndex), zap.Error(err))
	return nil
}

func decodePayload(record model.TypedEventRecord, v interface{}) error {
	if len(record.Decoded) == 0 {
		return fmt.Errorf("%s %s-%d: empty payload", record.EventName, record.TxHash, record.LogIndex)
	}
	if err := json.Unmarshal(record.Decoded, v); err != nil {
		return fmt.Errorf("%s %s-%d: decode payload: %w", record.EventName, record.TxHash, record.LogIndex, err)
	}
	return nil
}
