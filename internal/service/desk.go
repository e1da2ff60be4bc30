// Package service composes the engine components into the user-level desk
// operations: browsing rows, toggling selections, editing allocations,
// entering an investment, and driving the export.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TokenTimes/dropsd/internal/allocation"
	"github.com/TokenTimes/dropsd/internal/domain"
	"github.com/TokenTimes/dropsd/internal/export"
	"github.com/TokenTimes/dropsd/internal/investment"
	"github.com/TokenTimes/dropsd/internal/notify"
	"github.com/TokenTimes/dropsd/internal/refresh"
	"github.com/TokenTimes/dropsd/internal/selection"
)

// Row is one displayed market row: the market plus its per-tab selection and
// new-market highlight state.
type Row struct {
	Market   domain.Market
	Selected bool
	New      bool
}

// Desk owns the component instances and exposes the operations a client
// performs against them. All state objects are explicit and injected; there
// are no ambient singletons.
type Desk struct {
	alloc    *allocation.Store
	sel      *selection.Manager
	refresh  *refresh.Service
	pipeline *export.Pipeline
	balance  domain.BalanceProvider
	notifier *notify.Notifier
	logger   *slog.Logger

	address string

	mu      sync.Mutex
	amount  float64
	funds   domain.Balance
}

// NewDesk creates a Desk. balance may be nil when no wallet is configured;
// notifier may be nil to disable notifications.
func NewDesk(
	alloc *allocation.Store,
	sel *selection.Manager,
	refreshSvc *refresh.Service,
	pipeline *export.Pipeline,
	balance domain.BalanceProvider,
	notifier *notify.Notifier,
	address string,
	logger *slog.Logger,
) *Desk {
	return &Desk{
		alloc:    alloc,
		sel:      sel,
		refresh:  refreshSvc,
		pipeline: pipeline,
		balance:  balance,
		notifier: notifier,
		address:  address,
		logger:   logger.With(slog.String("component", "desk")),
	}
}

// Load restores persisted allocation and selection state and primes the
// wallet balance.
func (d *Desk) Load(ctx context.Context) {
	d.alloc.Load(ctx)
	d.sel.Load(ctx)
	d.RefreshBalance(ctx)
}

// Rows returns the tab's visible rows under the given filter, annotated with
// selection and new-market state.
func (d *Desk) Rows(tab domain.SourceTab, f RowFilter) []Row {
	visible := FilterRows(d.refresh.Snapshot(tab), f)
	rows := make([]Row, 0, len(visible))
	for _, m := range visible {
		rows = append(rows, Row{
			Market:   m,
			Selected: d.sel.IsSelected(tab, m.ID),
			New:      d.refresh.IsNew(tab, m.ID),
		})
	}
	return rows
}

// ToggleMarket selects or deselects a single market in the tab. The market
// must exist in the tab's current snapshot.
func (d *Desk) ToggleMarket(ctx context.Context, tab domain.SourceTab, marketID string, selected bool) error {
	m, ok := d.refresh.Lookup(tab, marketID)
	if !ok {
		return fmt.Errorf("desk: market %s in tab %s: %w", marketID, tab, domain.ErrNotFound)
	}
	d.sel.Toggle(ctx, tab, m, selected)
	return nil
}

// SelectAllVisible replaces the tab's selection with the rows visible under
// the filter — not the full unfiltered dataset.
func (d *Desk) SelectAllVisible(ctx context.Context, tab domain.SourceTab, f RowFilter) {
	d.sel.SelectAll(ctx, tab, FilterRows(d.refresh.Snapshot(tab), f))
}

// DeselectAll empties the tab's selection.
func (d *Desk) DeselectAll(ctx context.Context, tab domain.SourceTab) {
	d.sel.DeselectAll(ctx, tab)
}

// SetAllocation applies a rebalancing edit to one outcome of a selected
// market.
func (d *Desk) SetAllocation(ctx context.Context, tab domain.SourceTab, marketID string, outcomeIndex int, percentage float64) error {
	m, ok := d.refresh.Lookup(tab, marketID)
	if !ok {
		return fmt.Errorf("desk: market %s in tab %s: %w", marketID, tab, domain.ErrNotFound)
	}
	d.alloc.SetWithRebalance(ctx, marketID, outcomeIndex, percentage, len(m.Outcomes))
	return nil
}

// ResetToOdds resets a market's allocations to its outcomes' implied
// probabilities.
func (d *Desk) ResetToOdds(ctx context.Context, tab domain.SourceTab, marketID string) error {
	m, ok := d.refresh.Lookup(tab, marketID)
	if !ok {
		return fmt.Errorf("desk: market %s in tab %s: %w", marketID, tab, domain.ErrNotFound)
	}
	d.alloc.ResetToImpliedOdds(ctx, marketID, m.Outcomes)
	return nil
}

// SetInvestment records the total investment amount. A positive amount
// auto-distributes any selected market that has no allocation yet.
func (d *Desk) SetInvestment(ctx context.Context, amount float64) {
	d.mu.Lock()
	d.amount = amount
	d.mu.Unlock()

	if amount > 0 {
		d.autoDistributeSelected(ctx)
	}
}

// autoDistributeSelected equal-splits every selected market whose allocation
// total is still zero, across both tabs.
func (d *Desk) autoDistributeSelected(ctx context.Context) {
	for _, tab := range domain.Tabs {
		for id := range d.sel.Selected(tab) {
			if d.alloc.Total(id) != 0 {
				continue
			}
			if m, ok := d.refresh.Lookup(tab, id); ok {
				d.alloc.AutoDistribute(ctx, id, len(m.Outcomes))
			}
		}
	}
}

// Investment returns the entered total investment.
func (d *Desk) Investment() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.amount
}

// PerQuestion returns the per-question budget for the current investment and
// selection count.
func (d *Desk) PerQuestion() float64 {
	return investment.PerQuestion(d.Investment(), d.sel.TotalCount())
}

// ValidateInvestment checks the entered investment against the balance rules.
func (d *Desk) ValidateInvestment() error {
	return investment.Validate(d.Investment(), d.sel.TotalCount(), d.Funds().Amount)
}

// ExportEnabled reports whether an export may start right now.
func (d *Desk) ExportEnabled() bool {
	return investment.ExportEnabled(
		d.Investment(),
		d.sel.TotalCount(),
		d.Funds().Amount,
		d.pipeline.Running(),
	)
}

// RefreshBalance re-reads the wallet balance. Without a configured provider
// or address the balance stays zero.
func (d *Desk) RefreshBalance(ctx context.Context) {
	if d.balance == nil || d.address == "" {
		return
	}

	d.mu.Lock()
	d.funds.Loading = true
	d.mu.Unlock()

	amount, err := d.balance.BalanceOf(ctx, d.address)

	d.mu.Lock()
	d.funds.Loading = false
	if err != nil {
		d.funds.Error = err.Error()
	} else {
		d.funds = domain.Balance{Amount: amount}
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.WarnContext(ctx, "balance fetch failed", slog.String("error", err.Error()))
	}
}

// Funds returns the current wallet balance view.
func (d *Desk) Funds() domain.Balance {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.funds
}

// Preview assembles the export payload from the current selections,
// allocations, and investment. It is recomputed on every call.
func (d *Desk) Preview() domain.ExportPayload {
	datasets := make(map[domain.SourceTab][]domain.Market, len(domain.Tabs))
	selected := make(map[domain.SourceTab]map[string]struct{}, len(domain.Tabs))
	for _, tab := range domain.Tabs {
		datasets[tab] = d.refresh.Snapshot(tab)
		selected[tab] = d.sel.Selected(tab)
	}

	return export.Build(export.BuildInput{
		Datasets:    datasets,
		Selected:    selected,
		Allocs:      d.alloc,
		Total:       d.Investment(),
		PerQuestion: d.PerQuestion(),
		Wallet:      d.address,
		Balance:     d.Funds().Amount,
	})
}

// StartExport assembles the payload and drives the pipeline to completion.
// It is rejected while a run is in flight or when validation fails.
func (d *Desk) StartExport(ctx context.Context) error {
	payload := d.Preview()

	err := d.pipeline.Start(ctx, payload, d.exportValidate)
	if err != nil {
		// Rejected starts (already running, validation) are not failed runs.
		if !errors.Is(err, domain.ErrExportRunning) && !errors.Is(err, domain.ErrExportBlocked) {
			d.notify(ctx, notify.EventExportFailed, "Export failed", err.Error())
		}
		return err
	}

	d.notify(ctx, notify.EventExportCompleted,
		"Export completed",
		fmt.Sprintf("Successfully exported %d questions", len(payload.Questions)),
	)
	return nil
}

// ExportStatus returns the pipeline's progress snapshot.
func (d *Desk) ExportStatus() export.Status {
	return d.pipeline.Status()
}

// exportValidate is the pipeline's start gate: selections exist, an
// investment is entered, and the balance rules pass.
func (d *Desk) exportValidate(domain.ExportPayload) error {
	count := d.sel.TotalCount()
	if count == 0 {
		return fmt.Errorf("no markets selected")
	}
	amount := d.Investment()
	if amount <= 0 {
		return fmt.Errorf("no investment entered")
	}
	return investment.Validate(amount, count, d.Funds().Amount)
}

func (d *Desk) notify(ctx context.Context, event, title, message string) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(ctx, event, title, message); err != nil {
		d.logger.WarnContext(ctx, "notification failed", slog.String("error", err.Error()))
	}
}
