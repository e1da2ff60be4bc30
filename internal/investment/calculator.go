// Package investment derives per-question budgets from the total investment
// and validates them against the available balance.
package investment

import "github.com/TokenTimes/dropsd/internal/domain"

// MinPerQuestion is the minimum investment per selected question, in currency
// units.
const MinPerQuestion = 10.0

// PerQuestion returns the budget assigned to each selected question: the
// total investment divided evenly. Zero selections yield zero.
func PerQuestion(totalInvestment float64, selectedCount int) float64 {
	if selectedCount <= 0 {
		return 0
	}
	return totalInvestment / float64(selectedCount)
}

// Validate checks the investment against the balance rules. Rules are
// evaluated in precedence order and only the first failure is reported:
//
//  1. no investment entered: no error (export stays disabled);
//  2. investment exceeds the available balance;
//  3. the per-question share falls below MinPerQuestion.
func Validate(totalInvestment float64, selectedCount int, availableBalance float64) error {
	if totalInvestment <= 0 {
		return nil
	}
	if totalInvestment > availableBalance {
		return domain.ErrExceedsBalance
	}
	if selectedCount > 0 && PerQuestion(totalInvestment, selectedCount) < MinPerQuestion {
		return domain.ErrPerQuestionMinimum
	}
	return nil
}

// ExportEnabled reports whether an export may start: at least one market is
// selected across both tabs, a non-zero investment is entered, validation
// passes, and no export is already in progress.
func ExportEnabled(totalInvestment float64, selectedCount int, availableBalance float64, exporting bool) bool {
	if exporting {
		return false
	}
	if selectedCount == 0 {
		return false
	}
	if totalInvestment <= 0 {
		return false
	}
	return Validate(totalInvestment, selectedCount, availableBalance) == nil
}
