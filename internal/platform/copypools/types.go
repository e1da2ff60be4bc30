package copypools

import (
	"time"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// apiOutcome mirrors one outcome entry in the backend's market listing.
type apiOutcome struct {
	Name        string   `json:"name"`
	ImpliedProb *float64 `json:"implied_prob"`
}

// apiMarket mirrors one market entry in the backend's market listing. Both
// the Polymarket and the odds endpoints share this shape; fields absent for a
// source are simply omitted.
type apiMarket struct {
	MarketID     string       `json:"market_id"`
	Title        string       `json:"title"`
	Category     string       `json:"category"`
	Liquidity    float64      `json:"liquidity"`
	Volume       float64      `json:"volume"`
	EndDate      *time.Time   `json:"end_date"`
	CommenceTime *time.Time   `json:"commence_time"`
	Outcomes     []apiOutcome `json:"outcomes"`
}

// marketsResponse is the envelope returned by both market endpoints.
type marketsResponse struct {
	Markets []apiMarket `json:"markets"`
	Error   string      `json:"error"`
}

func (am apiMarket) toDomain() domain.Market {
	outcomes := make([]domain.Outcome, 0, len(am.Outcomes))
	for _, o := range am.Outcomes {
		outcomes = append(outcomes, domain.Outcome{
			Name:        o.Name,
			ImpliedProb: o.ImpliedProb,
		})
	}
	return domain.Market{
		ID:           am.MarketID,
		Title:        am.Title,
		Category:     am.Category,
		Liquidity:    am.Liquidity,
		Volume:       am.Volume,
		EndDate:      am.EndDate,
		CommenceTime: am.CommenceTime,
		Outcomes:     outcomes,
	}
}
