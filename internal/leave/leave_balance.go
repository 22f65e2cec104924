package leave

import (
	"context"
)

// DefaultAnnualCap is the number of accepted leave days a user may take per request year.
const DefaultAnnualCap = 18

type BalanceReader interface {
	SumAcceptedDays(ctx context.Context, userID string, year *int) (int, error)
}

// BalanceAggregator derives totals and remaining days from accepted requests only.
type BalanceAggregator struct {
	reader    BalanceReader
	annualCap int
}

func NewBalanceAggregator(reader BalanceReader, annualCap int) *BalanceAggregator {
	if annualCap <= 0 {
		annualCap = DefaultAnnualCap
	}
	return &BalanceAggregator{reader: reader, annualCap: annualCap}
}

func (a *BalanceAggregator) AnnualCap() int {
	return a.annualCap
}

// TotalAcceptedDays sums accepted requests for userID, across all years when year is nil.
func (a *BalanceAggregator) TotalAcceptedDays(ctx context.Context, userID string, year *int) (int, error) {
	return a.reader.SumAcceptedDays(ctx, userID, year)
}

// RemainingDays may be negative when data predates the cap.
func (a *BalanceAggregator) RemainingDays(ctx context.Context, userID string, year int) (int, error) {
	total, err := a.reader.SumAcceptedDays(ctx, userID, &year)
	if err != nil {
		return 0, err
	}
	return a.annualCap - total, nil
}
