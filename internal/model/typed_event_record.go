package model

import "encoding/json"

// TypedEventRecord is the JSON representation read back by the fold step.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	TxFrom      string          `json:"tx_from,omitempty"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	PoolMeta    *PoolMeta       `json:"pool_meta,omitempty"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

// Event names carried in TypedEvent.EventName.
const (
	EventPoolCreated = "PoolCreated"
	EventSwap        = "Swap"
	EventMint        = "Mint"
	EventBurn        = "Burn"
	EventCollect     = "Collect"
)
