package export

import (
	"math"
	"testing"

	"github.com/TokenTimes/dropsd/internal/domain"
)

type stubAllocs map[string]map[int]float64

func (s stubAllocs) Snapshot(marketID string) map[int]float64 { return s[marketID] }

func mk(id, title string, outcomes ...string) domain.Market {
	m := domain.Market{ID: id, Title: title}
	for _, o := range outcomes {
		m.Outcomes = append(m.Outcomes, domain.Outcome{Name: o})
	}
	return m
}

func TestBuild_ComposesPayload(t *testing.T) {
	in := BuildInput{
		Datasets: map[domain.SourceTab][]domain.Market{
			domain.SourcePolymarket: {
				mk("p1", "Will X happen?", "Yes", "No"),
				mk("p2", "Unselected", "Yes", "No"),
			},
			domain.SourceBet365: {
				mk("b1", "Team A vs Team B", "Home", "Draw", "Away"),
			},
		},
		Selected: map[domain.SourceTab]map[string]struct{}{
			domain.SourcePolymarket: {"p1": {}},
			domain.SourceBet365:     {"b1": {}},
		},
		Allocs: stubAllocs{
			"p1": {0: 60, 1: 40},
			"b1": {0: 50, 1: 30, 2: 20},
		},
		Total:       100,
		PerQuestion: 50,
		Wallet:      "0xabc",
		Balance:     250,
	}

	payload := Build(in)

	if len(payload.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(payload.Questions))
	}
	if payload.FundingWallet != "0xabc" || payload.RemainingBalance != 250 || payload.TotalInvested != 100 {
		t.Errorf("payload header = %+v", payload)
	}

	q := payload.Questions[0]
	if q.Question != "Will X happen?" {
		t.Errorf("question 0 = %q, want the primary-tab selection first", q.Question)
	}
	if len(q.Options) != 2 || q.Options[0] != "Yes" {
		t.Errorf("options = %v", q.Options)
	}
	if q.Invested != 50 {
		t.Errorf("invested = %v, want per-question budget 50", q.Invested)
	}
	if q.TotalAllocationPercentage != 100 {
		t.Errorf("total allocation = %v, want 100", q.TotalAllocationPercentage)
	}
	if got := q.OutcomeAllocations[0]; got.Outcome != "Yes" || got.Percentage != 60 || got.Amount != 30 {
		t.Errorf("allocation 0 = %+v, want Yes/60/30", got)
	}
	if got := q.OutcomeAllocations[1].Amount; got != 20 {
		t.Errorf("allocation 1 amount = %v, want 20", got)
	}

	q = payload.Questions[1]
	if q.Question != "Team A vs Team B" {
		t.Errorf("question 1 = %q, want the secondary-tab selection second", q.Question)
	}
	if got := q.OutcomeAllocations[2].Amount; math.Abs(got-10) > 1e-9 {
		t.Errorf("away amount = %v, want 10", got)
	}
}

func TestBuild_PreservesDatasetOrder(t *testing.T) {
	in := BuildInput{
		Datasets: map[domain.SourceTab][]domain.Market{
			domain.SourcePolymarket: {
				mk("p1", "first", "Yes", "No"),
				mk("p2", "second", "Yes", "No"),
				mk("p3", "third", "Yes", "No"),
			},
		},
		Selected: map[domain.SourceTab]map[string]struct{}{
			domain.SourcePolymarket: {"p3": {}, "p1": {}},
		},
		Allocs: stubAllocs{},
	}

	payload := Build(in)

	if len(payload.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(payload.Questions))
	}
	if payload.Questions[0].Question != "first" || payload.Questions[1].Question != "third" {
		t.Errorf("order = %q, %q; want dataset order regardless of selection order",
			payload.Questions[0].Question, payload.Questions[1].Question)
	}
}

func TestBuild_NoInvestmentYieldsZeroAmounts(t *testing.T) {
	in := BuildInput{
		Datasets: map[domain.SourceTab][]domain.Market{
			domain.SourcePolymarket: {mk("p1", "q", "Yes", "No")},
		},
		Selected: map[domain.SourceTab]map[string]struct{}{
			domain.SourcePolymarket: {"p1": {}},
		},
		Allocs: stubAllocs{"p1": {0: 50, 1: 50}},
		Total:  0,
	}

	payload := Build(in)

	q := payload.Questions[0]
	if q.Invested != 0 {
		t.Errorf("invested = %v, want 0 without a total investment", q.Invested)
	}
	for _, a := range q.OutcomeAllocations {
		if a.Amount != 0 {
			t.Errorf("amount for %s = %v, want 0", a.Outcome, a.Amount)
		}
	}
	if q.TotalAllocationPercentage != 100 {
		t.Errorf("percentages should still be reported, got %v", q.TotalAllocationPercentage)
	}
}

func TestBuild_UnallocatedMarketReportsZeros(t *testing.T) {
	in := BuildInput{
		Datasets: map[domain.SourceTab][]domain.Market{
			domain.SourcePolymarket: {mk("p1", "q", "Yes", "No")},
		},
		Selected: map[domain.SourceTab]map[string]struct{}{
			domain.SourcePolymarket: {"p1": {}},
		},
		Allocs:      stubAllocs{},
		Total:       100,
		PerQuestion: 100,
	}

	payload := Build(in)

	q := payload.Questions[0]
	if q.TotalAllocationPercentage != 0 {
		t.Errorf("total allocation = %v, want 0", q.TotalAllocationPercentage)
	}
	if len(q.OutcomeAllocations) != 2 {
		t.Fatalf("breakdown length = %d, want one entry per outcome", len(q.OutcomeAllocations))
	}
	for _, a := range q.OutcomeAllocations {
		if a.Percentage != 0 || a.Amount != 0 {
			t.Errorf("entry %+v, want zero percentage and amount", a)
		}
	}
}

func TestBuild_EmptySelection(t *testing.T) {
	payload := Build(BuildInput{
		Datasets: map[domain.SourceTab][]domain.Market{
			domain.SourcePolymarket: {mk("p1", "q", "Yes", "No")},
		},
		Selected: map[domain.SourceTab]map[string]struct{}{},
		Allocs:   stubAllocs{},
		Wallet:   "0xabc",
	})

	if len(payload.Questions) != 0 {
		t.Errorf("questions = %d, want 0", len(payload.Questions))
	}
	if payload.FundingWallet != "0xabc" {
		t.Error("header fields should still be populated")
	}
}
