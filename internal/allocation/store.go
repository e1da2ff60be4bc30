// Package allocation owns per-market, per-outcome percentage state and the
// rebalancing algorithms that keep each market's allocations summing to 100%.
package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// StorageKey is the fixed key under which the full allocation map is
// persisted.
const StorageKey = "outcome-allocations"

// Store holds the allocation map: marketID -> outcome index -> percentage.
// A market absent from the map is unallocated (implicit zero). Every mutation
// persists the full map to the configured key-value store; persistence
// failures are logged and never affect the in-memory result.
type Store struct {
	mu     sync.Mutex
	allocs map[string]map[int]float64
	kv     domain.KVStore
	logger *slog.Logger
}

// NewStore creates an empty Store backed by kv.
func NewStore(kv domain.KVStore, logger *slog.Logger) *Store {
	return &Store{
		allocs: make(map[string]map[int]float64),
		kv:     kv,
		logger: logger.With(slog.String("component", "allocation")),
	}
}

// Load restores the allocation map from storage. An absent or corrupt value
// leaves the store empty.
func (s *Store) Load(ctx context.Context) {
	data, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "could not restore allocations",
				slog.String("error", err.Error()),
			)
		}
		return
	}

	var restored map[string]map[int]float64
	if err := json.Unmarshal(data, &restored); err != nil {
		s.logger.WarnContext(ctx, "corrupt allocation state, starting empty",
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	s.allocs = restored
	if s.allocs == nil {
		s.allocs = make(map[string]map[int]float64)
	}
	s.mu.Unlock()
}

// Set overwrites a single outcome's percentage with no rebalancing. It is
// used by auto-distribute and odds reset, which write complete allocations.
func (s *Store) Set(ctx context.Context, marketID string, outcomeIndex int, percentage float64) {
	s.mu.Lock()
	entry := s.allocs[marketID]
	if entry == nil {
		entry = make(map[int]float64)
		s.allocs[marketID] = entry
	}
	entry[outcomeIndex] = percentage
	s.mu.Unlock()

	s.persist(ctx)
}

// SetWithRebalance sets one outcome's percentage and redistributes the
// remainder across the market's other outcomes so the total stays at 100.
//
// The requested value is clamped to [0,100]. Other outcomes receive the
// remainder proportionally to their current shares; if they were all zero,
// the remainder is split equally. A final normalization pass scales the
// entries so the sum is exactly 100, correcting floating-point drift. That
// pass may move the edited value by a sub-1e-3 amount in pathological cases,
// which is an accepted rounding tolerance.
//
// Degenerate input (totalOutcomes <= 0, index out of range) is a no-op.
func (s *Store) SetWithRebalance(ctx context.Context, marketID string, outcomeIndex int, newPercentage float64, totalOutcomes int) {
	if totalOutcomes <= 0 || outcomeIndex < 0 || outcomeIndex >= totalOutcomes {
		return
	}

	s.mu.Lock()
	current := s.allocs[marketID]
	next := make(map[int]float64, totalOutcomes)
	for i, v := range current {
		next[i] = v
	}

	next[outcomeIndex] = clamp(newPercentage, 0, 100)
	remaining := 100 - next[outcomeIndex]

	others := make([]int, 0, totalOutcomes-1)
	for i := 0; i < totalOutcomes; i++ {
		if i != outcomeIndex {
			others = append(others, i)
		}
	}

	if len(others) > 0 && remaining >= 0 {
		var otherTotal float64
		for _, i := range others {
			otherTotal += current[i]
		}

		if otherTotal > 0 {
			// Proportional redistribution over the existing shares.
			for _, i := range others {
				v := remaining * (current[i] / otherTotal)
				if v < 0 {
					v = 0
				}
				next[i] = v
			}
		} else {
			// All other outcomes were zero: split equally.
			share := remaining / float64(len(others))
			for _, i := range others {
				next[i] = share
			}
		}
	}

	// Force the invariant exactly, absorbing floating-point drift.
	var total float64
	for _, v := range next {
		total += v
	}
	if total != 100 && total > 0 {
		adjustment := 100 / total
		for i := range next {
			next[i] *= adjustment
		}
	}

	s.allocs[marketID] = next
	s.mu.Unlock()

	s.persist(ctx)
}

// AutoDistribute assigns an equal share of 100% to each of the market's
// outcomes. Zero outcomes is a no-op.
func (s *Store) AutoDistribute(ctx context.Context, marketID string, outcomeCount int) {
	if outcomeCount <= 0 {
		return
	}

	share := 100 / float64(outcomeCount)

	s.mu.Lock()
	entry := make(map[int]float64, outcomeCount)
	for i := 0; i < outcomeCount; i++ {
		entry[i] = share
	}
	s.allocs[marketID] = entry
	s.mu.Unlock()

	s.persist(ctx)
}

// ResetToImpliedOdds sets the market's allocations to its outcomes' implied
// probabilities, normalized to sum to 100. It is a no-op unless every outcome
// carries a positive implied probability.
func (s *Store) ResetToImpliedOdds(ctx context.Context, marketID string, outcomes []domain.Outcome) {
	if len(outcomes) == 0 {
		return
	}

	var totalProb float64
	for _, o := range outcomes {
		if !o.HasImpliedProb() {
			return
		}
		totalProb += *o.ImpliedProb
	}
	if totalProb <= 0 {
		return
	}

	s.mu.Lock()
	entry := make(map[int]float64, len(outcomes))
	for i, o := range outcomes {
		entry[i] = *o.ImpliedProb / totalProb * 100
	}
	s.allocs[marketID] = entry
	s.mu.Unlock()

	s.persist(ctx)
}

// Get returns the percentage allocated to one outcome, 0 if absent.
func (s *Store) Get(marketID string, outcomeIndex int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocs[marketID][outcomeIndex]
}

// Total returns the sum of the market's allocation entries, 0 if absent.
func (s *Store) Total(marketID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLocked(marketID)
}

func (s *Store) totalLocked(marketID string) float64 {
	var total float64
	for _, v := range s.allocs[marketID] {
		total += v
	}
	return total
}

// Snapshot returns a copy of the market's allocation entries for payload
// assembly. The returned map is nil when the market is unallocated.
func (s *Store) Snapshot(marketID string) map[int]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.allocs[marketID]
	if entry == nil {
		return nil
	}
	out := make(map[int]float64, len(entry))
	for i, v := range entry {
		out[i] = v
	}
	return out
}

// Clear removes the market's entry entirely. Called on deselection.
func (s *Store) Clear(ctx context.Context, marketID string) {
	s.mu.Lock()
	_, ok := s.allocs[marketID]
	delete(s.allocs, marketID)
	s.mu.Unlock()

	if ok {
		s.persist(ctx)
	}
}

func (s *Store) persist(ctx context.Context) {
	s.mu.Lock()
	data, err := json.Marshal(s.allocs)
	s.mu.Unlock()
	if err != nil {
		s.logger.WarnContext(ctx, "marshal allocations", slog.String("error", err.Error()))
		return
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		s.logger.WarnContext(ctx, "persist allocations", slog.String("error", err.Error()))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
