package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Contract struct {
	ID           string
	ProjectID    string
	ClientID     string
	FreelancerID string
	ProposalID   string
	Title        string
	Description  string
	TotalAmount  decimal.Decimal
	Currency     string
	StartDate    time.Time
	EndDate      time.Time
	Status       ContractStatus
	AcceptedAt   *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the fields a contract must carry from the moment it is created.
func (c *Contract) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return Errorf(ErrValidation, "contract title is required")
	}
	if c.ClientID == "" || c.FreelancerID == "" {
		return Errorf(ErrValidation, "contract requires both a client and a freelancer")
	}
	if c.ClientID == c.FreelancerID {
		return Errorf(ErrValidation, "client and freelancer must be different users")
	}
	if err := ValidatePositiveAmount("total amount", c.TotalAmount); err != nil {
		return err
	}
	if err := ValidateCurrency(c.Currency); err != nil {
		return err
	}
	if c.EndDate.Before(c.StartDate) {
		return Errorf(ErrValidation, "end date %s is before start date %s",
			c.EndDate.Format(DateLayout), c.StartDate.Format(DateLayout))
	}
	return nil
}

// IsTerminal reports whether the contract accepts no further mutation.
func (c *Contract) IsTerminal() bool {
	return c.Status == ContractCompleted || c.Status == ContractCancelled
}

// PartyRole returns the role userID plays on this contract, or "" if none.
func (c *Contract) PartyRole(userID string) Role {
	switch userID {
	case c.ClientID:
		return RoleClient
	case c.FreelancerID:
		return RoleFreelancer
	}
	return ""
}

// Accept moves a pending contract to active.
func (c *Contract) Accept(now time.Time) error {
	if c.Status != ContractPending {
		return Errorf(ErrInvalidState, "contract is %s; only pending contracts can be accepted", c.Status)
	}
	c.Status = ContractActive
	c.AcceptedAt = &now
	c.UpdatedAt = now
	return nil
}

// Reject is the freelancer declining a pending contract.
func (c *Contract) Reject(now time.Time) error {
	if c.Status != ContractPending {
		return Errorf(ErrInvalidState, "contract is %s; only pending contracts can be rejected", c.Status)
	}
	c.Status = ContractCancelled
	c.CancelledAt = &now
	c.UpdatedAt = now
	return nil
}

// Cancel ends a pending or active contract.
func (c *Contract) Cancel(now time.Time) error {
	if c.Status != ContractPending && c.Status != ContractActive {
		return Errorf(ErrInvalidState, "contract is %s and cannot be cancelled", c.Status)
	}
	c.Status = ContractCancelled
	c.CancelledAt = &now
	c.UpdatedAt = now
	return nil
}

// Complete marks an active contract completed. Callers decide when every
// milestone has been paid; see AllMilestonesPaid.
func (c *Contract) Complete(now time.Time) error {
	if c.Status != ContractActive {
		return Errorf(ErrInvalidState, "contract is %s; only active contracts can complete", c.Status)
	}
	c.Status = ContractCompleted
	c.CompletedAt = &now
	c.UpdatedAt = now
	return nil
}
