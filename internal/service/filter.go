package service

import (
	"sort"
	"strings"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// SortColumn selects the field rows are ordered by.
type SortColumn string

const (
	SortDate      SortColumn = "date"
	SortLiquidity SortColumn = "liquidity"
	SortTitle     SortColumn = "title"
	SortVolume    SortColumn = "volume"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// RowFilter narrows and orders a tab's market list to the visible rows.
// Select-all operates on exactly this filtered view.
type RowFilter struct {
	Query        string  // case-insensitive substring over title and category
	MinLiquidity float64 // 0 disables the liquidity floor
	Limit        int     // 0 disables the display cap
	SortBy       SortColumn
	Order        SortOrder
}

// FilterRows applies the filter to the market list and returns the visible
// rows in display order. Unknown sort columns fall back to date; the default
// order is descending.
func FilterRows(markets []domain.Market, f RowFilter) []domain.Market {
	q := strings.ToLower(f.Query)

	visible := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if q != "" &&
			!strings.Contains(strings.ToLower(m.Title), q) &&
			!strings.Contains(strings.ToLower(m.Category), q) {
			continue
		}
		if f.MinLiquidity > 0 && m.Liquidity < f.MinLiquidity {
			continue
		}
		visible = append(visible, m)
	}

	asc := f.Order == OrderAsc
	sort.SliceStable(visible, func(i, j int) bool {
		a, b := visible[i], visible[j]
		if !asc {
			a, b = b, a
		}
		switch f.SortBy {
		case SortLiquidity:
			return a.Liquidity < b.Liquidity
		case SortTitle:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case SortVolume:
			return a.Volume < b.Volume
		default:
			return a.EventTime().Before(b.EventTime())
		}
	})

	if f.Limit > 0 && len(visible) > f.Limit {
		visible = visible[:f.Limit]
	}
	return visible
}
