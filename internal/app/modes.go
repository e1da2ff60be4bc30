package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/TokenTimes/dropsd/internal/domain"
	"github.com/TokenTimes/dropsd/internal/notify"
)

// tabFilters builds the fetch filters for a tab from the source
// configuration.
func (a *App) tabFilters(tab domain.SourceTab) domain.MarketFilters {
	src := a.cfg.Source
	switch tab {
	case domain.SourceBet365:
		return domain.MarketFilters{
			Sport:   src.Sport,
			Regions: src.Regions,
			Limit:   src.SecondaryLimit,
		}
	default:
		return domain.MarketFilters{
			OnlyOpen: src.OnlyOpen,
			Limit:    src.PrimaryLimit,
		}
	}
}

// WatchMode runs the periodic refresh loop for both tabs until the context
// is cancelled, notifying on newly discovered markets.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	deps.Refresh.OnDiscovered(func(tab domain.SourceTab, ids []string) {
		_ = deps.Notifier.Notify(ctx, notify.EventNewMarkets,
			fmt.Sprintf("New %s markets", tab),
			fmt.Sprintf("%d newly listed: %s", len(ids), strings.Join(ids, ", ")),
		)
	})

	g, ctx := errgroup.WithContext(ctx)
	for _, tab := range domain.Tabs {
		g.Go(func() error {
			err := deps.Refresh.Run(ctx, tab, a.tabFilters(tab))
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("refresh %s: %w", tab, err)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ExportMode performs a one-shot export: refresh both tabs once, apply the
// configured investment, and drive the pipeline over the persisted
// selections.
func (a *App) ExportMode(ctx context.Context, deps *Dependencies) error {
	for _, tab := range domain.Tabs {
		if err := deps.Refresh.RefreshTab(ctx, tab, a.tabFilters(tab)); err != nil {
			return fmt.Errorf("app: initial %s fetch: %w", tab, err)
		}
	}

	deps.Desk.SetInvestment(ctx, a.cfg.Investment.Amount)

	payload := deps.Desk.Preview()
	a.logger.InfoContext(ctx, "export preview assembled",
		slog.Int("questions", len(payload.Questions)),
		slog.Float64("total_invested", payload.TotalInvested),
	)

	if err := deps.Desk.StartExport(ctx); err != nil {
		return fmt.Errorf("app: export: %w", err)
	}
	return nil
}
