// Package rules loads, validates, and hot-reloads the detection rule
// set. Rules are published as an immutable, generation-numbered
// snapshot behind an atomic pointer: evaluators take one atomic read
// per event and never block on the reload task.
package rules

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// Store owns the current rule snapshot and the background reload
// ticker that replaces it.
type Store struct {
	dir       string
	extension string
	interval  time.Duration
	logger    *slog.Logger

	snapshot atomic.Pointer[types.RuleSnapshot]
}

// NewStore loads generation 1 synchronously so the store never hands
// out a nil snapshot.
func NewStore(dir, extension string, reloadInterval time.Duration, logger *slog.Logger) (*Store, error) {
	s := &Store{
		dir:       dir,
		extension: extension,
		interval:  reloadInterval,
		logger:    logger.With("component", "rule-store"),
	}

	loaded, err := LoadDir(dir, extension, s.logger)
	if err != nil {
		return nil, err
	}

	s.publish(loaded)
	s.logger.Info("rule snapshot loaded", "generation", 1, "rules", len(loaded))
	return s, nil
}

// Snapshot returns the currently published snapshot. Safe to call
// concurrently; takes one atomic load.
func (s *Store) Snapshot() *types.RuleSnapshot {
	return s.snapshot.Load()
}

// Run re-scans the rules directory every reload interval until ctx is
// canceled, publishing a new generation on every successful scan that
// finds at least one valid rule. A scan that finds zero valid rules
// keeps the prior snapshot rather than clearing it.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reload()
		}
	}
}

func (s *Store) reload() {
	loaded, err := LoadDir(s.dir, s.extension, s.logger)
	if err != nil {
		s.logger.Error("rule reload scan failed, keeping current snapshot", "error", err)
		return
	}
	if len(loaded) == 0 {
		s.logger.Warn("rule reload found zero valid rules, keeping current snapshot")
		return
	}

	prev := s.snapshot.Load()
	gen := uint64(1)
	if prev != nil {
		gen = prev.Generation + 1
	}
	s.publishAt(loaded, gen)
	s.logger.Info("rule snapshot reloaded", "generation", gen, "rules", len(loaded))
}

func (s *Store) publish(rules []*types.Rule) {
	s.publishAt(rules, 1)
}

func (s *Store) publishAt(rules []*types.Rule, generation uint64) {
	s.snapshot.Store(&types.RuleSnapshot{
		Generation: generation,
		Rules:      rules,
		LoadedAt:   time.Now().UTC(),
	})
}
