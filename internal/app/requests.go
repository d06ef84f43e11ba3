package app

import (
	"strings"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/shopspring/decimal"
)

// CreateContractRequest is raised when a client accepts a proposal.
type CreateContractRequest struct {
	ProjectID    string                   `json:"projectId"`
	ClientID     string                   `json:"clientId"`
	FreelancerID string                   `json:"freelancerId" binding:"required"`
	ProposalID   string                   `json:"proposalId"`
	Title        string                   `json:"title" binding:"required"`
	Description  string                   `json:"description"`
	TotalAmount  decimal.Decimal          `json:"totalAmount"`
	Currency     string                   `json:"currency"`
	StartDate    string                   `json:"startDate" binding:"required"`
	EndDate      string                   `json:"endDate" binding:"required"`
	Milestones   []CreateMilestoneRequest `json:"milestones"`
}

type CreateMilestoneRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     *string         `json:"dueDate,omitempty"`
	OrderIndex  *int            `json:"orderIndex,omitempty"`
}

// Validate runs the field checks that need no server state.
func (r CreateMilestoneRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return domain.Errorf(domain.ErrValidation, "milestone title is required")
	}
	if err := domain.ValidatePositiveAmount("milestone amount", r.Amount); err != nil {
		return err
	}
	if r.OrderIndex != nil && *r.OrderIndex < 0 {
		return domain.Errorf(domain.ErrValidation, "milestone order index must be >= 0 (got %d)", *r.OrderIndex)
	}
	_, err := ParseOptionalDate("dueDate", r.DueDate)
	return err
}

// UpdateMilestoneRequest carries a partial edit; omitted fields stay as they are.
type UpdateMilestoneRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	DueDate     *string          `json:"dueDate,omitempty"`
	OrderIndex  *int             `json:"orderIndex,omitempty"`
}

// Patch converts the request into a domain patch.
func (r UpdateMilestoneRequest) Patch() (domain.MilestonePatch, error) {
	if r.Amount != nil {
		if err := domain.ValidatePositiveAmount("milestone amount", *r.Amount); err != nil {
			return domain.MilestonePatch{}, err
		}
	}
	due, err := ParseOptionalDate("dueDate", r.DueDate)
	if err != nil {
		return domain.MilestonePatch{}, err
	}
	return domain.MilestonePatch{
		Title:       r.Title,
		Description: r.Description,
		Amount:      r.Amount,
		DueDate:     due,
		OrderIndex:  r.OrderIndex,
	}, nil
}

type UpdateMilestoneStatusRequest struct {
	Status domain.MilestoneStatus `json:"status" binding:"required"`
}

// CreatePaymentRequestRequest raises payment for a completed milestone.
// Amount is optional; when present it must equal the milestone amount.
type CreatePaymentRequestRequest struct {
	ContractID  string           `json:"contractId" binding:"required"`
	MilestoneID string           `json:"milestoneId" binding:"required"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description string           `json:"description"`
}

func (r CreatePaymentRequestRequest) Validate() error {
	if r.ContractID == "" || r.MilestoneID == "" {
		return domain.Errorf(domain.ErrValidation, "contractId and milestoneId are required")
	}
	if r.Amount != nil {
		return domain.ValidatePositiveAmount("payment amount", *r.Amount)
	}
	return nil
}

type RejectPaymentRequestRequest struct {
	Reason string `json:"reason"`
}

// SettlePaymentRequest is the gateway's confirmation that funds moved.
type SettlePaymentRequest struct {
	Reference string `json:"reference"`
}
