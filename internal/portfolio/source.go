package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Source supplies portfolio snapshots to the caller of the risk engine
type Source interface {
	Snapshot(ctx context.Context) (*State, error)
}

// StaticSource always returns a copy of the same snapshot
type StaticSource struct {
	State *State
}

// Snapshot implements Source
func (s StaticSource) Snapshot(ctx context.Context) (*State, error) {
	if s.State == nil {
		return nil, fmt.Errorf("static source has no state")
	}
	return s.State.Clone(), nil
}

// FileSource reads and writes portfolio snapshots as JSON
type FileSource struct {
	mu       sync.RWMutex
	filePath string
}

// NewFileSource creates a file-backed snapshot source
func NewFileSource(filePath string) *FileSource {
	if filePath == "" {
		filePath = "portfolio_state.json"
	}
	return &FileSource{filePath: filePath}
}

// Snapshot loads the snapshot from file
func (f *FileSource) Snapshot(ctx context.Context) (*State, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal portfolio state: %w", err)
	}

	if err := validateState(&state); err != nil {
		return nil, fmt.Errorf("invalid portfolio state: %w", err)
	}

	return &state, nil
}

// Save writes the snapshot atomically
func (f *FileSource) Save(state *State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if state == nil {
		return fmt.Errorf("cannot save nil state")
	}

	state.LastUpdated = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio state: %w", err)
	}

	if dir := filepath.Dir(f.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tempFile := f.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}

	if err := os.Rename(tempFile, f.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to commit state file: %w", err)
	}

	return nil
}

func validateState(s *State) error {
	if s.PortfolioValue < 0 {
		return fmt.Errorf("portfolio_value cannot be negative: %.2f", s.PortfolioValue)
	}
	for i, p := range s.Positions {
		if p.Symbol == "" {
			return fmt.Errorf("position %d has no symbol", i)
		}
		if p.SizeUSD < 0 {
			return fmt.Errorf("position %s has negative size", p.Symbol)
		}
	}
	return nil
}
