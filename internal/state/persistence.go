package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	engineerrors "github.com/ducminhle1904/prop-challenge-engine/internal/errors"
	"github.com/ducminhle1904/prop-challenge-engine/internal/portfolio"
	"github.com/ducminhle1904/prop-challenge-engine/internal/risk"
)

// SnapshotVersion is bumped when the snapshot layout changes incompatibly
const SnapshotVersion = "1"

// ErrNoSnapshot is returned by Load when nothing has been saved yet
var ErrNoSnapshot = errors.New("no saved snapshot")

// Snapshot is the recoverable state of a challenge run
type Snapshot struct {
	Version   string               `json:"version"`
	RunID     string               `json:"run_id"`
	SavedAt   time.Time            `json:"saved_at"`
	Risk      risk.State           `json:"risk"`
	Positions []portfolio.Position `json:"positions"`
}

// Capture takes a snapshot of the portfolio and its risk manager
func Capture(p *portfolio.Portfolio, runID string) Snapshot {
	return Snapshot{
		Version:   SnapshotVersion,
		RunID:     runID,
		Risk:      p.Risk().State(),
		Positions: p.OpenPositions(),
	}
}

// Restore rebuilds a risk manager and portfolio from a snapshot
func Restore(snap Snapshot, riskCfg risk.Config, pCfg portfolio.Config, riskOpts []risk.Option, pOpts []portfolio.Option) (*portfolio.Portfolio, error) {
	rm, err := risk.RestoreManager(riskCfg, snap.Risk, riskOpts...)
	if err != nil {
		return nil, engineerrors.NewStateError("state", "restore", err)
	}
	p, err := portfolio.NewPortfolio(pCfg, rm, pOpts...)
	if err != nil {
		return nil, engineerrors.NewStateError("state", "restore", err)
	}
	if reason := p.RestorePositions(snap.Positions); reason != risk.RejectNone {
		return nil, engineerrors.NewStateError("state", "restore",
			fmt.Errorf("restoring positions: %s", reason))
	}
	return p, nil
}

// FileStore persists snapshots as JSON, writing through a temp file and rename
type FileStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewFileStore creates a store at filePath, creating its directory
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		filePath = "challenge_state.json"
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, engineerrors.NewStateError("state", "init", err)
		}
	}
	return &FileStore{filePath: filePath}, nil
}

// Path returns the snapshot file location
func (f *FileStore) Path() string { return f.filePath }

// Save writes the snapshot atomically
func (f *FileStore) Save(snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if snap.Version == "" {
		snap.Version = SnapshotVersion
	}
	snap.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return engineerrors.NewStateError("state", "save", fmt.Errorf("marshal snapshot: %w", err))
	}

	tempFile := f.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return engineerrors.NewStateError("state", "save", fmt.Errorf("write temporary file: %w", err))
	}
	if err := os.Rename(tempFile, f.filePath); err != nil {
		os.Remove(tempFile)
		return engineerrors.NewStateError("state", "save", fmt.Errorf("commit snapshot: %w", err))
	}
	return nil
}

// Load reads and validates the saved snapshot
func (f *FileStore) Load() (Snapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, engineerrors.NewStateError("state", "load", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, engineerrors.NewStateError("state", "load", fmt.Errorf("unmarshal snapshot: %w", err))
	}
	if err := validateSnapshot(snap); err != nil {
		return Snapshot{}, engineerrors.NewStateError("state", "load", err).WithContext("path", f.filePath)
	}
	return snap, nil
}

// Exists reports whether a snapshot has been saved
func (f *FileStore) Exists() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, err := os.Stat(f.filePath)
	return err == nil
}

// Remove deletes the snapshot, ignoring a missing file
func (f *FileStore) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return engineerrors.NewStateError("state", "remove", err)
	}
	return nil
}

func validateSnapshot(snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q", snap.Version)
	}
	acct := snap.Risk.Account
	if acct.InitialEquity <= 0 {
		return fmt.Errorf("initial equity must be positive, got %.2f", acct.InitialEquity)
	}
	if acct.PeakEquity < acct.Equity {
		return fmt.Errorf("peak equity %.2f below equity %.2f", acct.PeakEquity, acct.Equity)
	}
	seen := make(map[string]bool, len(snap.Positions))
	for _, pos := range snap.Positions {
		if seen[pos.Strategy] {
			return fmt.Errorf("strategy %s has more than one open position", pos.Strategy)
		}
		seen[pos.Strategy] = true
		if pos.Size <= 0 || !pos.Direction.Valid() {
			return fmt.Errorf("invalid position for strategy %s", pos.Strategy)
		}
	}
	return nil
}
