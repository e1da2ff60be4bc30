package domain

import "time"

// SourceTab identifies one of the two independent market data origins. Each
// tab has its own market snapshot and its own persisted selection memory.
type SourceTab string

const (
	// SourcePolymarket is the primary source (Polymarket prediction markets).
	SourcePolymarket SourceTab = "polymarket"
	// SourceBet365 is the secondary source (bookmaker odds feed).
	SourceBet365 SourceTab = "bet365"
)

// Tabs lists all source tabs in display order.
var Tabs = []SourceTab{SourcePolymarket, SourceBet365}

// Valid reports whether t is a known source tab.
func (t SourceTab) Valid() bool {
	return t == SourcePolymarket || t == SourceBet365
}

// SelectionKey returns the storage key under which this tab's selection set
// is persisted, e.g. "polymarket-selections".
func (t SourceTab) SelectionKey() string {
	return string(t) + "-selections"
}

// Outcome is one possible resolution of a market. ImpliedProb is the
// probability implied by the source's current odds; nil when the source does
// not quote one.
type Outcome struct {
	Name        string   `json:"name"`
	ImpliedProb *float64 `json:"implied_prob"`
}

// HasImpliedProb reports whether the outcome carries a positive implied
// probability.
func (o Outcome) HasImpliedProb() bool {
	return o.ImpliedProb != nil && *o.ImpliedProb > 0
}

// Market is a single wagered proposition with mutually exclusive outcomes.
// Markets are externally sourced and treated as read-only by the engine.
type Market struct {
	ID           string     `json:"market_id"`
	Title        string     `json:"title"`
	Category     string     `json:"category,omitempty"`
	Liquidity    float64    `json:"liquidity,omitempty"`
	Volume       float64    `json:"volume,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	CommenceTime *time.Time `json:"commence_time,omitempty"`
	Outcomes     []Outcome  `json:"outcomes"`
}

// EventTime returns the market's end date, falling back to its commence time.
// Markets with neither sort to the Unix epoch.
func (m Market) EventTime() time.Time {
	if m.EndDate != nil {
		return *m.EndDate
	}
	if m.CommenceTime != nil {
		return *m.CommenceTime
	}
	return time.Unix(0, 0).UTC()
}

// MarketFilters are the source-side query parameters for a market fetch.
// OnlyOpen applies to the primary source; Sport and Regions apply to the
// secondary (odds) source.
type MarketFilters struct {
	OnlyOpen bool
	Sport    string
	Regions  string
	Limit    int
}

// Balance is the wallet collaborator's view of the funding balance.
type Balance struct {
	Amount  float64
	Loading bool
	Error   string
}
