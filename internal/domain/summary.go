package domain

import "github.com/shopspring/decimal"

// ContractSummary holds the derived progress figures of a contract.
// None of them are stored.
type ContractSummary struct {
	TotalMilestones     int
	CompletedMilestones int
	PaidAmount          decimal.Decimal
	MilestoneTotal      decimal.Decimal
	ProgressPercentage  decimal.Decimal
	AmountValid         bool
}

var hundred = decimal.NewFromInt(100)

// Summarize computes the contract aggregates. It never fails: a nil
// contract yields the zero summary and nil milestones are skipped.
//
// Completed counts both completed and paid milestones. Paid amount sums
// paid milestones only.
func Summarize(c *Contract, milestones []*Milestone) ContractSummary {
	s := ContractSummary{
		PaidAmount:         decimal.Zero,
		MilestoneTotal:     decimal.Zero,
		ProgressPercentage: decimal.Zero,
	}
	if c == nil {
		return s
	}
	for _, m := range milestones {
		if m == nil {
			continue
		}
		s.TotalMilestones++
		s.MilestoneTotal = s.MilestoneTotal.Add(m.Amount)
		switch m.Status {
		case MilestoneCompleted:
			s.CompletedMilestones++
		case MilestonePaid:
			s.CompletedMilestones++
			s.PaidAmount = s.PaidAmount.Add(m.Amount)
		}
	}
	if s.TotalMilestones > 0 {
		s.ProgressPercentage = decimal.NewFromInt(int64(s.CompletedMilestones)).
			Mul(hundred).
			DivRound(decimal.NewFromInt(int64(s.TotalMilestones)), 2)
	}
	s.AmountValid = WithinTolerance(s.MilestoneTotal, c.TotalAmount)
	return s
}

// AmountValid is the standalone form of ContractSummary.AmountValid.
func AmountValid(c *Contract, milestones []*Milestone) bool {
	return Summarize(c, milestones).AmountValid
}
