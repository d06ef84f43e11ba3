package domain

// LifecyclePolicy switches the lifecycle behaviours that deployments
// disagree on.
type LifecyclePolicy struct {
	// AutoStartMilestones moves pending milestones to in_progress when the
	// contract is accepted, and starts milestones added to an active contract.
	AutoStartMilestones bool
	// RequireBalancedMilestones refuses contract acceptance unless the
	// milestone amounts add up to the contract total.
	RequireBalancedMilestones bool
}

// CheckAcceptable applies the policy's acceptance preconditions.
func (p LifecyclePolicy) CheckAcceptable(c *Contract, milestones []*Milestone) error {
	if !p.RequireBalancedMilestones {
		return nil
	}
	s := Summarize(c, milestones)
	if !s.AmountValid {
		return Errorf(ErrValidation, "milestones total %s %s but contract total is %s %s",
			s.MilestoneTotal.StringFixed(2), c.Currency, c.TotalAmount.StringFixed(2), c.Currency)
	}
	return nil
}

// InitialMilestoneStatus is the status a new milestone gets on c.
func (p LifecyclePolicy) InitialMilestoneStatus(c *Contract) MilestoneStatus {
	if p.AutoStartMilestones && c.Status == ContractActive {
		return MilestoneInProgress
	}
	return MilestonePending
}
