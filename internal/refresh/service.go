package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// Service fetches market lists for each tab, feeds the per-tab diff trackers,
// and retains the latest snapshot so selections and payload assembly can see
// data from both tabs regardless of which one is active.
type Service struct {
	fetcher  domain.MarketFetcher
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	snapshots map[domain.SourceTab][]domain.Market
	trackers  map[domain.SourceTab]*DiffTracker
	loaded    map[domain.SourceTab]bool
	nextAt    time.Time

	onDiscovered func(tab domain.SourceTab, ids []string)
	now          func() time.Time
}

// NewService creates a Service refreshing on the given interval (the default
// deployment uses 3600 seconds).
func NewService(fetcher domain.MarketFetcher, interval time.Duration, logger *slog.Logger) *Service {
	trackers := make(map[domain.SourceTab]*DiffTracker, len(domain.Tabs))
	for _, tab := range domain.Tabs {
		trackers[tab] = NewDiffTracker()
	}
	return &Service{
		fetcher:   fetcher,
		interval:  interval,
		logger:    logger.With(slog.String("component", "refresh")),
		snapshots: make(map[domain.SourceTab][]domain.Market, len(domain.Tabs)),
		trackers:  trackers,
		loaded:    make(map[domain.SourceTab]bool, len(domain.Tabs)),
		now:       time.Now,
	}
}

// RefreshTab fetches the tab's market list once and, on success, updates the
// diff tracker and stored snapshot. On failure the existing snapshot is left
// untouched and the error is returned for the caller to surface; there is no
// retry here.
func (s *Service) RefreshTab(ctx context.Context, tab domain.SourceTab, f domain.MarketFilters) error {
	if !tab.Valid() {
		return fmt.Errorf("refresh: %w: %q", domain.ErrUnknownTab, tab)
	}

	markets, err := s.fetcher.FetchMarkets(ctx, tab, f)
	if err != nil {
		return fmt.Errorf("refresh: fetch %s markets: %w", tab, err)
	}

	s.mu.Lock()
	isRefresh := s.loaded[tab]
	s.loaded[tab] = true
	s.snapshots[tab] = markets
	s.mu.Unlock()

	discovered := s.trackers[tab].OnRefresh(markets, isRefresh)
	if len(discovered) > 0 && s.onDiscovered != nil {
		s.onDiscovered(tab, discovered)
	}

	s.logger.InfoContext(ctx, "refreshed markets",
		slog.String("tab", string(tab)),
		slog.Int("count", len(markets)),
		slog.Int("new", len(discovered)),
		slog.Bool("refresh", isRefresh),
	)
	return nil
}

// OnDiscovered registers a hook invoked with the ids a refresh newly
// discovered. Must be set before the refresh loops start.
func (s *Service) OnDiscovered(fn func(tab domain.SourceTab, ids []string)) {
	s.onDiscovered = fn
}

// Run refreshes the tab immediately and then on every interval until the
// context is cancelled. The timer is rearmed only after a refresh settles, so
// an in-flight refresh always completes before the next one can start. Fetch
// errors are logged and the loop continues with the previous data.
func (s *Service) Run(ctx context.Context, tab domain.SourceTab, f domain.MarketFilters) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh loop stopped", slog.String("tab", string(tab)))
			return ctx.Err()
		case <-timer.C:
			if err := s.RefreshTab(ctx, tab, f); err != nil {
				s.logger.ErrorContext(ctx, "refresh failed",
					slog.String("tab", string(tab)),
					slog.String("error", err.Error()),
				)
			}
			s.mu.Lock()
			s.nextAt = s.now().Add(s.interval)
			s.mu.Unlock()
			timer.Reset(s.interval)
		}
	}
}

// Snapshot returns the latest fetched market list for the tab, nil before the
// first successful fetch.
func (s *Service) Snapshot(tab domain.SourceTab) []domain.Market {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.snapshots[tab]
	if src == nil {
		return nil
	}
	out := make([]domain.Market, len(src))
	copy(out, src)
	return out
}

// Lookup finds a market by id in the tab's snapshot.
func (s *Service) Lookup(tab domain.SourceTab, marketID string) (domain.Market, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.snapshots[tab] {
		if m.ID == marketID {
			return m, true
		}
	}
	return domain.Market{}, false
}

// IsNew reports whether the market is flagged as newly discovered in the tab.
func (s *Service) IsNew(tab domain.SourceTab, marketID string) bool {
	tr, ok := s.trackers[tab]
	return ok && tr.IsNew(marketID)
}

// Tracker exposes the tab's diff tracker.
func (s *Service) Tracker(tab domain.SourceTab) *DiffTracker {
	return s.trackers[tab]
}

// Countdown returns the seconds remaining until the next scheduled refresh,
// 0 when no refresh is scheduled yet.
func (s *Service) Countdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextAt.IsZero() {
		return 0
	}
	remaining := s.nextAt.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// FormatCountdown renders a seconds count as "1h 2m 3s", dropping leading
// zero units.
func FormatCountdown(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
