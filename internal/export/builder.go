// Package export assembles the validated export payload and drives the
// sequential export run with progress reporting.
package export

import (
	"github.com/TokenTimes/dropsd/internal/domain"
)

// Allocations is the read-only slice of the allocation store the builder
// consumes.
type Allocations interface {
	Snapshot(marketID string) map[int]float64
}

// BuildInput carries everything the builder needs: both tabs' full datasets,
// both selection sets, the allocation map, the per-question budget, and the
// wallet view.
type BuildInput struct {
	Datasets    map[domain.SourceTab][]domain.Market
	Selected    map[domain.SourceTab]map[string]struct{}
	Allocs      Allocations
	Total       float64
	PerQuestion float64
	Wallet      string
	Balance     float64
}

// Build composes the export payload. Selected markets are drawn from
// whichever tab's dataset they belong to, primary tab first, preserving
// dataset order. Each question's invested amount is the per-question budget
// when a total investment is set, 0 otherwise; per-outcome amounts follow the
// allocation percentages.
func Build(in BuildInput) domain.ExportPayload {
	var selected []domain.Market
	for _, tab := range domain.Tabs {
		set := in.Selected[tab]
		if len(set) == 0 {
			continue
		}
		for _, m := range in.Datasets[tab] {
			if _, ok := set[m.ID]; ok {
				selected = append(selected, m)
			}
		}
	}

	var perQuestion float64
	if in.Total > 0 {
		perQuestion = in.PerQuestion
	}

	questions := make([]domain.QuestionExport, 0, len(selected))
	for _, m := range selected {
		allocs := in.Allocs.Snapshot(m.ID)

		options := make([]string, 0, len(m.Outcomes))
		breakdown := make([]domain.OutcomeAllocation, 0, len(m.Outcomes))
		for i, o := range m.Outcomes {
			options = append(options, o.Name)
			pct := allocs[i]
			breakdown = append(breakdown, domain.OutcomeAllocation{
				Outcome:    o.Name,
				Percentage: pct,
				Amount:     perQuestion * (pct / 100),
			})
		}

		var totalPct float64
		for _, v := range allocs {
			totalPct += v
		}

		questions = append(questions, domain.QuestionExport{
			Question:                  m.Title,
			Options:                   options,
			Invested:                  perQuestion,
			OutcomeAllocations:        breakdown,
			TotalAllocationPercentage: totalPct,
		})
	}

	return domain.ExportPayload{
		Questions:        questions,
		FundingWallet:    in.Wallet,
		RemainingBalance: in.Balance,
		TotalInvested:    in.Total,
	}
}
