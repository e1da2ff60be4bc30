// Package selection tracks which markets are selected, independently per
// source tab, with persisted memory across sessions.
package selection

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// Allocator is the slice of the allocation store the manager drives as a side
// effect of selection changes.
type Allocator interface {
	AutoDistribute(ctx context.Context, marketID string, outcomeCount int)
	Clear(ctx context.Context, marketID string)
	Total(marketID string) float64
}

// Manager owns one selection set per source tab. The sets are mutually
// independent: ids are never assumed unique across tabs, and a change in one
// tab never touches the other. Every mutation persists the affected tab's set
// under its tab-scoped storage key.
type Manager struct {
	mu     sync.Mutex
	sets   map[domain.SourceTab]map[string]struct{}
	kv     domain.KVStore
	alloc  Allocator
	logger *slog.Logger
}

// NewManager creates a Manager with empty sets for all tabs.
func NewManager(kv domain.KVStore, alloc Allocator, logger *slog.Logger) *Manager {
	sets := make(map[domain.SourceTab]map[string]struct{}, len(domain.Tabs))
	for _, tab := range domain.Tabs {
		sets[tab] = make(map[string]struct{})
	}
	return &Manager{
		sets:   sets,
		kv:     kv,
		alloc:  alloc,
		logger: logger.With(slog.String("component", "selection")),
	}
}

// Load restores each tab's selection set from storage. Absent or corrupt
// values leave that tab's set empty.
func (m *Manager) Load(ctx context.Context) {
	for _, tab := range domain.Tabs {
		data, err := m.kv.Get(ctx, tab.SelectionKey())
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				m.logger.WarnContext(ctx, "could not restore selections",
					slog.String("tab", string(tab)),
					slog.String("error", err.Error()),
				)
			}
			continue
		}

		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			m.logger.WarnContext(ctx, "corrupt selection state, starting empty",
				slog.String("tab", string(tab)),
				slog.String("error", err.Error()),
			)
			continue
		}

		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		m.mu.Lock()
		m.sets[tab] = set
		m.mu.Unlock()
	}
}

// Toggle adds or removes a single market from the tab's set. On a transition
// to selected, the market's allocations are auto-distributed equally unless a
// carried-over allocation already exists (total > 0). On a transition to
// unselected, the market's allocations are cleared.
func (m *Manager) Toggle(ctx context.Context, tab domain.SourceTab, market domain.Market, selected bool) {
	if !tab.Valid() {
		return
	}

	m.mu.Lock()
	set := m.sets[tab]
	_, was := set[market.ID]
	if selected {
		set[market.ID] = struct{}{}
	} else {
		delete(set, market.ID)
	}
	m.mu.Unlock()

	switch {
	case selected && !was:
		if m.alloc.Total(market.ID) == 0 {
			m.alloc.AutoDistribute(ctx, market.ID, len(market.Outcomes))
		}
	case !selected && was:
		m.alloc.Clear(ctx, market.ID)
	}

	m.persist(ctx, tab)
}

// SelectAll replaces the tab's set with exactly the given visible markets.
// This is a select-all over the currently filtered/visible rows, not the full
// unfiltered dataset. Markets leaving the set have their allocations cleared;
// markets entering it are auto-distributed when unallocated.
func (m *Manager) SelectAll(ctx context.Context, tab domain.SourceTab, visible []domain.Market) {
	if !tab.Valid() {
		return
	}

	next := make(map[string]struct{}, len(visible))
	for _, mk := range visible {
		next[mk.ID] = struct{}{}
	}

	m.mu.Lock()
	prev := m.sets[tab]
	m.sets[tab] = next
	m.mu.Unlock()

	for id := range prev {
		if _, kept := next[id]; !kept {
			m.alloc.Clear(ctx, id)
		}
	}
	for _, mk := range visible {
		if _, had := prev[mk.ID]; !had && m.alloc.Total(mk.ID) == 0 {
			m.alloc.AutoDistribute(ctx, mk.ID, len(mk.Outcomes))
		}
	}

	m.persist(ctx, tab)
}

// DeselectAll empties the tab's set and clears allocations for every market
// that was selected.
func (m *Manager) DeselectAll(ctx context.Context, tab domain.SourceTab) {
	if !tab.Valid() {
		return
	}

	m.mu.Lock()
	prev := m.sets[tab]
	m.sets[tab] = make(map[string]struct{})
	m.mu.Unlock()

	for id := range prev {
		m.alloc.Clear(ctx, id)
	}

	m.persist(ctx, tab)
}

// IsSelected reports whether the market is selected in the given tab.
func (m *Manager) IsSelected(tab domain.SourceTab, marketID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sets[tab][marketID]
	return ok
}

// Selected returns the tab's selected ids as a set copy.
func (m *Manager) Selected(tab domain.SourceTab) map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]struct{}, len(m.sets[tab]))
	for id := range m.sets[tab] {
		out[id] = struct{}{}
	}
	return out
}

// Count returns the number of selected markets in the given tab.
func (m *Manager) Count(tab domain.SourceTab) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets[tab])
}

// TotalCount returns the number of selected markets across all tabs.
func (m *Manager) TotalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for _, set := range m.sets {
		n += len(set)
	}
	return n
}

func (m *Manager) persist(ctx context.Context, tab domain.SourceTab) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sets[tab]))
	for id := range m.sets[tab] {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	data, err := json.Marshal(ids)
	if err != nil {
		m.logger.WarnContext(ctx, "marshal selections", slog.String("error", err.Error()))
		return
	}
	if err := m.kv.Set(ctx, tab.SelectionKey(), data); err != nil {
		m.logger.WarnContext(ctx, "persist selections",
			slog.String("tab", string(tab)),
			slog.String("error", err.Error()),
		)
	}
}
