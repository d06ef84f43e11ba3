package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentRequest struct {
	ID               string
	ContractID       string
	MilestoneID      string
	Amount           decimal.Decimal
	Currency         string
	Description      string
	Status           PaymentRequestStatus
	RequestedAt      time.Time
	ApprovedAt       *time.Time
	PaidAt           *time.Time
	RejectedAt       *time.Time
	RejectionReason  string
	WithdrawnAt      *time.Time
	PaymentReference string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewPaymentRequest raises a request for a completed milestone. The amount
// is always the milestone amount; callers cannot override it.
func NewPaymentRequest(id string, c *Contract, m *Milestone, description string, now time.Time) (*PaymentRequest, error) {
	if m.ContractID != c.ID {
		return nil, Errorf(ErrValidation, "milestone %s does not belong to contract %s", m.ID, c.ID)
	}
	if err := m.CheckPayable(); err != nil {
		return nil, err
	}
	return &PaymentRequest{
		ID:          id,
		ContractID:  c.ID,
		MilestoneID: m.ID,
		Amount:      m.Amount,
		Currency:    c.Currency,
		Description: strings.TrimSpace(description),
		Status:      PaymentPending,
		RequestedAt: now,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsActive reports whether the request still occupies its milestone's
// payment slot.
func (p *PaymentRequest) IsActive() bool {
	switch p.Status {
	case PaymentPending, PaymentApproved, PaymentPaid:
		return true
	}
	return false
}

func (p *PaymentRequest) IsTerminal() bool {
	switch p.Status {
	case PaymentRejected, PaymentWithdrawn, PaymentPaid:
		return true
	}
	return false
}

func (p *PaymentRequest) Approve(now time.Time) error {
	if p.Status != PaymentPending {
		return Errorf(ErrInvalidState, "payment request is %s; only pending requests can be approved", p.Status)
	}
	p.Status = PaymentApproved
	p.ApprovedAt = &now
	p.UpdatedAt = now
	return nil
}

// Reject requires a non-blank reason, checked before the status.
func (p *PaymentRequest) Reject(reason string, now time.Time) error {
	if err := ValidateRejectReason(reason); err != nil {
		return err
	}
	if p.Status != PaymentPending {
		return Errorf(ErrInvalidState, "payment request is %s; only pending requests can be rejected", p.Status)
	}
	p.Status = PaymentRejected
	p.RejectionReason = strings.TrimSpace(reason)
	p.RejectedAt = &now
	p.UpdatedAt = now
	return nil
}

func (p *PaymentRequest) Withdraw(now time.Time) error {
	if p.Status != PaymentPending {
		return Errorf(ErrInvalidState, "payment request is %s; only pending requests can be withdrawn", p.Status)
	}
	p.Status = PaymentWithdrawn
	p.WithdrawnAt = &now
	p.UpdatedAt = now
	return nil
}

// MarkPaid records gateway settlement of an approved request.
func (p *PaymentRequest) MarkPaid(reference string, now time.Time) error {
	if p.Status != PaymentApproved {
		return Errorf(ErrInvalidState, "payment request is %s; only approved requests can be paid", p.Status)
	}
	p.Status = PaymentPaid
	p.PaidAt = &now
	p.PaymentReference = reference
	p.UpdatedAt = now
	return nil
}

// ValidateRejectReason is the check clients run before sending a rejection.
func ValidateRejectReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return Errorf(ErrValidation, "a rejection reason is required")
	}
	return nil
}
