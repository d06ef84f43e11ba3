package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/shopspring/decimal"
)

// Fixed party ids used across fixtures.
const (
	ClientID     = "client-1"
	FreelancerID = "freelancer-1"
)

var (
	Client     = domain.Actor{UserID: ClientID, Role: domain.RoleClient}
	Freelancer = domain.Actor{UserID: FreelancerID, Role: domain.RoleFreelancer}
)

// Now returns the current UTC time at the second precision the store keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Dec parses a decimal literal and panics on bad input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Contract options
type ContractOption func(*domain.Contract)

func WithContractStatus(s domain.ContractStatus) ContractOption {
	return func(c *domain.Contract) {
		c.Status = s
	}
}

func WithTotal(amount string) ContractOption {
	return func(c *domain.Contract) {
		c.TotalAmount = Dec(amount)
	}
}

func WithParties(clientID, freelancerID string) ContractOption {
	return func(c *domain.Contract) {
		c.ClientID = clientID
		c.FreelancerID = freelancerID
	}
}

func NewTestContract(title string, opts ...ContractOption) *domain.Contract {
	now := Now()
	c := &domain.Contract{
		ID:           uuid.New().String(),
		ProjectID:    uuid.New().String(),
		ClientID:     ClientID,
		FreelancerID: FreelancerID,
		ProposalID:   uuid.New().String(),
		Title:        title,
		TotalAmount:  Dec("1000.00"),
		Currency:     "USD",
		StartDate:    now.Truncate(24 * time.Hour),
		EndDate:      now.Truncate(24*time.Hour).AddDate(0, 2, 0),
		Status:       domain.ContractPending,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Milestone options
type MilestoneOption func(*domain.Milestone)

func WithMilestoneStatus(s domain.MilestoneStatus) MilestoneOption {
	return func(m *domain.Milestone) {
		m.Status = s
	}
}

func WithOrderIndex(i int) MilestoneOption {
	return func(m *domain.Milestone) {
		m.OrderIndex = i
	}
}

func WithDueDate(d time.Time) MilestoneOption {
	return func(m *domain.Milestone) {
		m.DueDate = &d
	}
}

func NewTestMilestone(contractID, title, amount string, opts ...MilestoneOption) *domain.Milestone {
	now := Now()
	m := &domain.Milestone{
		ID:         uuid.New().String(),
		ContractID: contractID,
		Title:      title,
		Amount:     Dec(amount),
		Status:     domain.MilestonePending,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewTestPaymentRequest builds a pending request for m on c.
func NewTestPaymentRequest(c *domain.Contract, m *domain.Milestone) *domain.PaymentRequest {
	now := Now()
	return &domain.PaymentRequest{
		ID:          uuid.New().String(),
		ContractID:  c.ID,
		MilestoneID: m.ID,
		Amount:      m.Amount,
		Currency:    c.Currency,
		Status:      domain.PaymentPending,
		RequestedAt: now,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
