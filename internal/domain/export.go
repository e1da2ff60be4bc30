package domain

// OutcomeAllocation is the per-outcome breakdown of a question's investment.
type OutcomeAllocation struct {
	Outcome    string  `json:"outcome"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// QuestionExport is one selected market in the export payload.
//
// TotalAllocationPercentage is the raw sum of the market's allocation entries.
// It is carried for display and debugging; it may differ from 100 only
// transiently during interactive edits, before rebalancing completes.
type QuestionExport struct {
	Question                  string              `json:"question"`
	Options                   []string            `json:"options"`
	Invested                  float64             `json:"invested"`
	OutcomeAllocations        []OutcomeAllocation `json:"outcome_allocations"`
	TotalAllocationPercentage float64             `json:"total_allocation_percentage"`
}

// ExportPayload is the normalized export document assembled from both tabs'
// selections. It is derived on demand and never persisted independently.
type ExportPayload struct {
	Questions        []QuestionExport `json:"questions"`
	FundingWallet    string           `json:"funding_wallet"`
	RemainingBalance float64          `json:"remaining_usdt_balance"`
	TotalInvested    float64          `json:"total_invested_usdt"`
}
