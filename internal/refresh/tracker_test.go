package refresh

import (
	"testing"
	"time"

	"github.com/TokenTimes/dropsd/internal/domain"
)

func markets(ids ...string) []domain.Market {
	out := make([]domain.Market, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Market{ID: id, Title: id})
	}
	return out
}

func TestOnRefresh_FirstLoadFlagsNothing(t *testing.T) {
	tr := NewDiffTracker()

	discovered := tr.OnRefresh(markets("a", "b"), false)

	if len(discovered) != 0 {
		t.Errorf("first load discovered %v, want none", discovered)
	}
	if tr.IsNew("a") || tr.IsNew("b") {
		t.Error("first load must not flag any market")
	}
}

func TestOnRefresh_FlagsOnlyAddedMarkets(t *testing.T) {
	tr := NewDiffTracker()

	tr.OnRefresh(markets("a", "b"), false)
	discovered := tr.OnRefresh(markets("a", "b", "c"), true)

	if len(discovered) != 1 || discovered[0] != "c" {
		t.Errorf("discovered = %v, want [c]", discovered)
	}
	if tr.IsNew("a") || tr.IsNew("b") {
		t.Error("markets present before must not be flagged")
	}
	if !tr.IsNew("c") {
		t.Error("c appeared this refresh and must be flagged")
	}
}

func TestOnRefresh_RemovalsAreNotFlagged(t *testing.T) {
	tr := NewDiffTracker()

	tr.OnRefresh(markets("a", "b", "c"), false)
	discovered := tr.OnRefresh(markets("a"), true)

	if len(discovered) != 0 {
		t.Errorf("discovered = %v, want none", discovered)
	}
	if tr.IsNew("b") || tr.IsNew("c") {
		t.Error("removed markets must not be flagged")
	}
}

func TestOnRefresh_LaterRefreshReplacesFlags(t *testing.T) {
	tr := NewDiffTracker()

	tr.OnRefresh(markets("a"), false)
	tr.OnRefresh(markets("a", "b"), true)
	tr.OnRefresh(markets("a", "b", "c"), true)

	if tr.IsNew("b") {
		t.Error("b was in the prior snapshot and its flag must be replaced")
	}
	if !tr.IsNew("c") {
		t.Error("c is the only market discovered by the latest refresh")
	}
}

func TestOnRefresh_IsRefreshFalseResetsBaseline(t *testing.T) {
	tr := NewDiffTracker()

	tr.OnRefresh(markets("a"), false)
	// A non-refresh load (e.g. filters changed) replaces the baseline without
	// flagging anything.
	discovered := tr.OnRefresh(markets("a", "b"), false)

	if len(discovered) != 0 {
		t.Errorf("discovered = %v, want none", discovered)
	}
	if tr.IsNew("b") {
		t.Error("non-refresh load must not flag markets")
	}
}

func TestFlags_ExpireAfterWindow(t *testing.T) {
	tr := NewDiffTracker()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	tr.now = func() time.Time { return current }

	tr.OnRefresh(markets("a"), false)
	tr.OnRefresh(markets("a", "b"), true)

	current = base.Add(NewMarketWindow - time.Second)
	if !tr.IsNew("b") {
		t.Error("flag must hold inside the highlight window")
	}
	if got := tr.NewMarkets(); len(got) != 1 || got[0] != "b" {
		t.Errorf("NewMarkets = %v, want [b]", got)
	}

	current = base.Add(NewMarketWindow + time.Second)
	if tr.IsNew("b") {
		t.Error("flag must expire once the window elapses")
	}
	if got := tr.NewMarkets(); got != nil {
		t.Errorf("NewMarkets after expiry = %v, want nil", got)
	}
}

func TestFlags_NewDiscoveryRestartsWindow(t *testing.T) {
	tr := NewDiffTracker()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	tr.now = func() time.Time { return current }

	tr.OnRefresh(markets("a"), false)
	tr.OnRefresh(markets("a", "b"), true)

	current = base.Add(45 * time.Second)
	tr.OnRefresh(markets("a", "b", "c"), true)

	// 30s later the original window would have lapsed, but c's discovery
	// restarted it.
	current = base.Add(75 * time.Second)
	if !tr.IsNew("c") {
		t.Error("window must restart on a fresh discovery")
	}
}
