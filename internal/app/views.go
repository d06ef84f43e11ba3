package app

import (
	"fmt"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/shopspring/decimal"
)

// ContractView is the wire form of a contract.
type ContractView struct {
	ID           string                `json:"id"`
	ProjectID    string                `json:"projectId,omitempty"`
	ClientID     string                `json:"clientId"`
	FreelancerID string                `json:"freelancerId"`
	ProposalID   string                `json:"proposalId,omitempty"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	TotalAmount  decimal.Decimal       `json:"totalAmount"`
	Currency     string                `json:"currency"`
	StartDate    string                `json:"startDate"`
	EndDate      string                `json:"endDate"`
	Status       domain.ContractStatus `json:"status"`
	AcceptedAt   *time.Time            `json:"acceptedAt,omitempty"`
	CompletedAt  *time.Time            `json:"completedAt,omitempty"`
	CancelledAt  *time.Time            `json:"cancelledAt,omitempty"`
	Version      int                   `json:"version"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

func NewContractView(c *domain.Contract) ContractView {
	return ContractView{
		ID:           c.ID,
		ProjectID:    c.ProjectID,
		ClientID:     c.ClientID,
		FreelancerID: c.FreelancerID,
		ProposalID:   c.ProposalID,
		Title:        c.Title,
		Description:  c.Description,
		TotalAmount:  c.TotalAmount,
		Currency:     c.Currency,
		StartDate:    c.StartDate.Format(domain.DateLayout),
		EndDate:      c.EndDate.Format(domain.DateLayout),
		Status:       c.Status,
		AcceptedAt:   c.AcceptedAt,
		CompletedAt:  c.CompletedAt,
		CancelledAt:  c.CancelledAt,
		Version:      c.Version,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// Domain converts the view back into an entity.
func (v ContractView) Domain() (*domain.Contract, error) {
	start, err := ParseDate("startDate", v.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate("endDate", v.EndDate)
	if err != nil {
		return nil, err
	}
	return &domain.Contract{
		ID:           v.ID,
		ProjectID:    v.ProjectID,
		ClientID:     v.ClientID,
		FreelancerID: v.FreelancerID,
		ProposalID:   v.ProposalID,
		Title:        v.Title,
		Description:  v.Description,
		TotalAmount:  v.TotalAmount,
		Currency:     v.Currency,
		StartDate:    start,
		EndDate:      end,
		Status:       v.Status,
		AcceptedAt:   v.AcceptedAt,
		CompletedAt:  v.CompletedAt,
		CancelledAt:  v.CancelledAt,
		Version:      v.Version,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}, nil
}

// MilestoneView is the wire form of a milestone.
type MilestoneView struct {
	ID            string                 `json:"id"`
	ContractID    string                 `json:"contractId"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Amount        decimal.Decimal        `json:"amount"`
	DueDate       *string                `json:"dueDate,omitempty"`
	OrderIndex    int                    `json:"orderIndex"`
	Status        domain.MilestoneStatus `json:"status"`
	CompletedDate *time.Time             `json:"completedDate,omitempty"`
	PaidDate      *time.Time             `json:"paidDate,omitempty"`
	Version       int                    `json:"version"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

func NewMilestoneView(m *domain.Milestone) MilestoneView {
	v := MilestoneView{
		ID:            m.ID,
		ContractID:    m.ContractID,
		Title:         m.Title,
		Description:   m.Description,
		Amount:        m.Amount,
		OrderIndex:    m.OrderIndex,
		Status:        m.Status,
		CompletedDate: m.CompletedDate,
		PaidDate:      m.PaidDate,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.DueDate != nil {
		s := m.DueDate.Format(domain.DateLayout)
		v.DueDate = &s
	}
	return v
}

func NewMilestoneViews(ms []*domain.Milestone) []MilestoneView {
	out := make([]MilestoneView, 0, len(ms))
	for _, m := range ms {
		out = append(out, NewMilestoneView(m))
	}
	return out
}

func (v MilestoneView) Domain() (*domain.Milestone, error) {
	due, err := ParseOptionalDate("dueDate", v.DueDate)
	if err != nil {
		return nil, err
	}
	return &domain.Milestone{
		ID:            v.ID,
		ContractID:    v.ContractID,
		Title:         v.Title,
		Description:   v.Description,
		Amount:        v.Amount,
		DueDate:       due,
		OrderIndex:    v.OrderIndex,
		Status:        v.Status,
		CompletedDate: v.CompletedDate,
		PaidDate:      v.PaidDate,
		Version:       v.Version,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}, nil
}

// PaymentRequestView is the wire form of a payment request.
type PaymentRequestView struct {
	ID               string                      `json:"id"`
	ContractID       string                      `json:"contractId"`
	MilestoneID      string                      `json:"milestoneId"`
	Amount           decimal.Decimal             `json:"amount"`
	Currency         string                      `json:"currency"`
	Description      string                      `json:"description"`
	Status           domain.PaymentRequestStatus `json:"status"`
	RequestedAt      time.Time                   `json:"requestedAt"`
	ApprovedAt       *time.Time                  `json:"approvedAt,omitempty"`
	PaidAt           *time.Time                  `json:"paidAt,omitempty"`
	RejectedAt       *time.Time                  `json:"rejectedAt,omitempty"`
	RejectionReason  string                      `json:"rejectionReason,omitempty"`
	WithdrawnAt      *time.Time                  `json:"withdrawnAt,omitempty"`
	PaymentReference string                      `json:"paymentReference,omitempty"`
	Version          int                         `json:"version"`
	CreatedAt        time.Time                   `json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

func NewPaymentRequestView(p *domain.PaymentRequest) PaymentRequestView {
	return PaymentRequestView{
		ID:               p.ID,
		ContractID:       p.ContractID,
		MilestoneID:      p.MilestoneID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Description:      p.Description,
		Status:           p.Status,
		RequestedAt:      p.RequestedAt,
		ApprovedAt:       p.ApprovedAt,
		PaidAt:           p.PaidAt,
		RejectedAt:       p.RejectedAt,
		RejectionReason:  p.RejectionReason,
		WithdrawnAt:      p.WithdrawnAt,
		PaymentReference: p.PaymentReference,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func NewPaymentRequestViews(ps []*domain.PaymentRequest) []PaymentRequestView {
	out := make([]PaymentRequestView, 0, len(ps))
	for _, p := range ps {
		out = append(out, NewPaymentRequestView(p))
	}
	return out
}

func (v PaymentRequestView) Domain() *domain.PaymentRequest {
	return &domain.PaymentRequest{
		ID:               v.ID,
		ContractID:       v.ContractID,
		MilestoneID:      v.MilestoneID,
		Amount:           v.Amount,
		Currency:         v.Currency,
		Description:      v.Description,
		Status:           v.Status,
		RequestedAt:      v.RequestedAt,
		ApprovedAt:       v.ApprovedAt,
		PaidAt:           v.PaidAt,
		RejectedAt:       v.RejectedAt,
		RejectionReason:  v.RejectionReason,
		WithdrawnAt:      v.WithdrawnAt,
		PaymentReference: v.PaymentReference,
		Version:          v.Version,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

// SummaryView is the wire form of the derived contract figures.
type SummaryView struct {
	TotalMilestones     int             `json:"totalMilestones"`
	CompletedMilestones int             `json:"completedMilestones"`
	PaidAmount          decimal.Decimal `json:"paidAmount"`
	MilestoneTotal      decimal.Decimal `json:"milestoneTotal"`
	ProgressPercentage  decimal.Decimal `json:"progressPercentage"`
	AmountValid         bool            `json:"amountValid"`
}

func NewSummaryView(s domain.ContractSummary) SummaryView {
	return SummaryView{
		TotalMilestones:     s.TotalMilestones,
		CompletedMilestones: s.CompletedMilestones,
		PaidAmount:          s.PaidAmount,
		MilestoneTotal:      s.MilestoneTotal,
		ProgressPercentage:  s.ProgressPercentage,
		AmountValid:         s.AmountValid,
	}
}

// ContractDetail bundles a contract with everything its page shows.
type ContractDetail struct {
	Contract        ContractView         `json:"contract"`
	Milestones      []MilestoneView      `json:"milestones"`
	PaymentRequests []PaymentRequestView `json:"paymentRequests"`
	Summary         SummaryView          `json:"summary"`
	AllowedActions  []domain.Action      `json:"allowedActions"`
}

// ParseDate parses a YYYY-MM-DD field, reporting failures as validation errors.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, domain.Errorf(domain.ErrValidation, "%s %q must be YYYY-MM-DD", field, s)
	}
	return t, nil
}

// ParseOptionalDate is ParseDate for nullable fields; nil and "" give nil.
func ParseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseDate(field, *s)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", field, err)
	}
	return &t, nil
}
