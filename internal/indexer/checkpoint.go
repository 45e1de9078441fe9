package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrCheckpointScope means the checkpoint was written by a run over another
// chain or address set.
var ErrCheckpointScope = errors.New("checkpoint scope mismatch")

// Checkpoint is the last fully stored block of a run.
type Checkpoint struct {
	ChainID            uint64   `json:"chain_id,omitempty"`
	Addresses          []string `json:"addresses,omitempty"`
	LastProcessedBlock uint64   `json:"last_processed_block"`
	UpdatedAt          string   `json:"updated_at"`
}

// CheckpointStore keeps the checkpoint in a JSON file. A disabled store
// loads nothing and saves nothing.
type CheckpointStore struct {
	path      string
	enabled   bool
	chainID   uint64
	addresses []string
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled}
}

// Scope ties the store to one chain and address set. Loading a checkpoint
// saved under a different scope fails with ErrCheckpointScope.
func (c *CheckpointStore) Scope(chainID uint64, addresses []common.Address) {
	c.chainID = chainID
	c.addresses = make([]string, len(addresses))
	for i, addr := range addresses {
		c.addresses[i] = strings.ToLower(addr.Hex())
	}
	slices.Sort(c.addresses)
	c.addresses = slices.Compact(c.addresses)
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}

	// Unscoped checkpoints on either side match anything.
	if c.chainID != 0 && cp.ChainID != 0 && c.chainID != cp.ChainID {
		return Checkpoint{}, false, fmt.Errorf("%w: saved for chain %d, running on %d", ErrCheckpointScope, cp.ChainID, c.chainID)
	}
	if len(c.addresses) > 0 && len(cp.Addresses) > 0 && !slices.Equal(c.addresses, cp.Addresses) {
		return Checkpoint{}, false, fmt.Errorf("%w: saved for %v", ErrCheckpointScope, cp.Addresses)
	}

	return cp, true, nil
}

// Save atomically replaces the checkpoint file.
func (c *CheckpointStore) Save(lastProcessed uint64) error {
	if !c.enabled {
		return nil
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(Checkpoint{
		ChainID:            c.chainID,
		Addresses:          c.addresses,
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
