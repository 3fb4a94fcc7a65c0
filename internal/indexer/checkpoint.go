package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCheckpointMismatch is returned when a checkpoint was written for another
// chain or log filter.
var ErrCheckpointMismatch = errors.New("checkpoint belongs to another chain or filter")

// Checkpoint is the last fully stored block of one chain and filter.
type Checkpoint struct {
	ChainID            uint64 `json:"chain_id"`
	Filter             string `json:"filter"`
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// CheckpointStore keeps one Checkpoint in a JSON file, replaced atomically.
// A disabled store never resumes and never writes.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

// Load returns the stored checkpoint for chainID and filter. It reports false
// when there is none.
func (c *CheckpointStore) Load(chainID uint64, filter string) (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint %s: %w", c.path, err)
	}
	if cp.ChainID != chainID || cp.Filter != filter {
		return Checkpoint{}, false, fmt.Errorf("%w: %s has chain %d filter %s, want chain %d filter %s",
			ErrCheckpointMismatch, c.path, cp.ChainID, cp.Filter, chainID, filter)
	}
	return cp, true, nil
}

// Save records lastProcessed for chainID and filter.
func (c *CheckpointStore) Save(chainID uint64, filter string, lastProcessed uint64) error {
	if !c.enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	data, err := json.Marshal(Checkpoint{
		ChainID:            chainID,
		Filter:             filter,
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
