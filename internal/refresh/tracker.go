// Package refresh keeps per-tab market snapshots current and flags markets
// that newly appeared between successive fetches.
package refresh

import (
	"sync"
	"time"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// NewMarketWindow is how long a newly discovered market stays flagged before
// the highlight clears on its own.
const NewMarketWindow = 60 * time.Second

// DiffTracker compares successive snapshots of a market list and flags ids
// that were not present in the prior snapshot. The first load never flags
// anything; a later refresh replaces the flag set rather than stacking.
type DiffTracker struct {
	mu       sync.Mutex
	previous map[string]struct{}
	flags    map[string]struct{}
	deadline time.Time
	window   time.Duration
	now      func() time.Time
}

// NewDiffTracker creates a DiffTracker with the default 60-second highlight
// window.
func NewDiffTracker() *DiffTracker {
	return &DiffTracker{
		previous: make(map[string]struct{}),
		flags:    make(map[string]struct{}),
		window:   NewMarketWindow,
		now:      time.Now,
	}
}

// OnRefresh processes a completed fetch and returns the ids discovered by it.
// When isRefresh is true and a prior snapshot exists, ids absent from the
// prior snapshot become the new flag set and the highlight window restarts.
// The prior snapshot is always replaced, flags or not.
func (t *DiffTracker) OnRefresh(markets []domain.Market, isRefresh bool) []string {
	current := make(map[string]struct{}, len(markets))
	for _, m := range markets {
		current[m.ID] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var discoveredIDs []string
	if isRefresh && len(t.previous) > 0 {
		discovered := make(map[string]struct{})
		for id := range current {
			if _, seen := t.previous[id]; !seen {
				discovered[id] = struct{}{}
				discoveredIDs = append(discoveredIDs, id)
			}
		}
		t.flags = discovered
		if len(discovered) > 0 {
			t.deadline = t.now().Add(t.window)
		}
	}

	t.previous = current
	return discoveredIDs
}

// IsNew reports whether the market is currently flagged as newly discovered.
// Flags expire once the highlight window elapses.
func (t *DiffTracker) IsNew(marketID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.now().After(t.deadline) {
		return false
	}
	_, ok := t.flags[marketID]
	return ok
}

// NewMarkets returns the ids currently flagged as new, empty once the window
// elapses.
func (t *DiffTracker) NewMarkets() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.now().After(t.deadline) {
		return nil
	}
	ids := make([]string, 0, len(t.flags))
	for id := range t.flags {
		ids = append(ids, id)
	}
	return ids
}
