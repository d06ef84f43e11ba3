package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date wire format shared by contracts and milestones.
const DateLayout = "2006-01-02"

type Milestone struct {
	ID            string
	ContractID    string
	Title         string
	Description   string
	Amount        decimal.Decimal
	DueDate       *time.Time
	OrderIndex    int
	Status        MilestoneStatus
	CompletedDate *time.Time
	PaidDate      *time.Time
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MilestonePatch carries the client-editable fields of a milestone.
// Nil fields are left untouched.
type MilestonePatch struct {
	Title       *string
	Description *string
	Amount      *decimal.Decimal
	DueDate     *time.Time
	OrderIndex  *int
}

// IsEmpty reports whether the patch changes nothing.
func (p MilestonePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Amount == nil && p.DueDate == nil && p.OrderIndex == nil
}

func (m *Milestone) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return Errorf(ErrValidation, "milestone title is required")
	}
	if err := ValidatePositiveAmount("milestone amount", m.Amount); err != nil {
		return err
	}
	if m.OrderIndex < 0 {
		return Errorf(ErrValidation, "milestone order index must be >= 0 (got %d)", m.OrderIndex)
	}
	return nil
}

// ApplyPatch edits a pending milestone in place. The milestone is left
// unchanged when the patch does not validate.
func (m *Milestone) ApplyPatch(p MilestonePatch, now time.Time) error {
	if m.Status != MilestonePending {
		return Errorf(ErrInvalidState, "milestone is %s; only pending milestones can be edited", m.Status)
	}
	next := *m
	if p.Title != nil {
		next.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Amount != nil {
		next.Amount = *p.Amount
	}
	if p.DueDate != nil {
		next.DueDate = p.DueDate
	}
	if p.OrderIndex != nil {
		next.OrderIndex = *p.OrderIndex
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = now
	*m = next
	return nil
}

// CheckDeletable returns an error unless the milestone is still pending.
func (m *Milestone) CheckDeletable() error {
	if m.Status != MilestonePending {
		return Errorf(ErrInvalidState, "milestone is %s; only pending milestones can be deleted", m.Status)
	}
	return nil
}

// Start moves a pending milestone into progress.
func (m *Milestone) Start(now time.Time) error {
	if m.Status != MilestonePending {
		return Errorf(ErrInvalidState, "milestone is %s; only pending milestones can be started", m.Status)
	}
	m.Status = MilestoneInProgress
	m.UpdatedAt = now
	return nil
}

// MarkComplete records the freelancer's delivery. Only in-progress
// milestones can complete; a pending one must be started first.
func (m *Milestone) MarkComplete(now time.Time) error {
	if m.Status != MilestoneInProgress {
		return Errorf(ErrInvalidState, "milestone is %s; only in-progress milestones can be marked complete", m.Status)
	}
	m.Status = MilestoneCompleted
	m.CompletedDate = &now
	m.UpdatedAt = now
	return nil
}

// CheckPayable reports whether a payment request may be raised against the
// milestone in its current status.
func (m *Milestone) CheckPayable() error {
	if m.Status != MilestoneCompleted {
		return Errorf(ErrConflict, "milestone is %s; payment can only be requested for completed milestones", m.Status)
	}
	return nil
}

// MarkPaid is driven by the linked payment request reaching paid.
func (m *Milestone) MarkPaid(now time.Time) error {
	if m.Status != MilestoneCompleted {
		return Errorf(ErrInvalidState, "milestone is %s; only completed milestones can be paid", m.Status)
	}
	m.Status = MilestonePaid
	m.PaidDate = &now
	m.UpdatedAt = now
	return nil
}

// AllMilestonesPaid is true when ms is non-empty and every milestone is paid.
func AllMilestonesPaid(ms []*Milestone) bool {
	if len(ms) == 0 {
		return false
	}
	for _, m := range ms {
		if m.Status != MilestonePaid {
			return false
		}
	}
	return true
}
