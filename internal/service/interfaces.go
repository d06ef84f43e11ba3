package service

import (
	"context"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/shopspring/decimal"
)

// Mutations take an expectedVersion. Zero means "whatever is stored now";
// any other value must match the stored version or the call fails with
// domain.ErrConflict before anything is written.

type ContractService interface {
	Create(ctx context.Context, actor domain.Actor, in NewContract) (*ContractDetail, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*ContractDetail, error)
	ListForUser(ctx context.Context, actor domain.Actor) ([]*domain.Contract, error)
	Summary(ctx context.Context, actor domain.Actor, id string) (domain.ContractSummary, error)
	Accept(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.Contract, error)
	Reject(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.Contract, error)
	Cancel(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.Contract, error)
}

type MilestoneService interface {
	Create(ctx context.Context, actor domain.Actor, contractID string, in NewMilestone) (*domain.Milestone, error)
	Get(ctx context.Context, actor domain.Actor, contractID, milestoneID string) (*domain.Milestone, error)
	ListByContract(ctx context.Context, actor domain.Actor, contractID string) ([]*domain.Milestone, error)
	Update(ctx context.Context, actor domain.Actor, contractID, milestoneID string, patch domain.MilestonePatch, expectedVersion int) (*domain.Milestone, error)
	Delete(ctx context.Context, actor domain.Actor, contractID, milestoneID string, expectedVersion int) error
	UpdateStatus(ctx context.Context, actor domain.Actor, contractID, milestoneID string, status domain.MilestoneStatus, expectedVersion int) (*domain.Milestone, error)
	Start(ctx context.Context, actor domain.Actor, contractID, milestoneID string, expectedVersion int) (*domain.Milestone, error)
	MarkComplete(ctx context.Context, actor domain.Actor, contractID, milestoneID string, expectedVersion int) (*domain.Milestone, error)
}

type PaymentService interface {
	Create(ctx context.Context, actor domain.Actor, in NewPaymentRequest) (*domain.PaymentRequest, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.PaymentRequest, error)
	ListByContract(ctx context.Context, actor domain.Actor, contractID string) ([]*domain.PaymentRequest, error)
	Approve(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.PaymentRequest, error)
	Reject(ctx context.Context, actor domain.Actor, id, reason string, expectedVersion int) (*domain.PaymentRequest, error)
	Withdraw(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.PaymentRequest, error)
	MarkPaid(ctx context.Context, actor domain.Actor, id, reference string) (*domain.PaymentRequest, error)
	ListApprovedUnsettled(ctx context.Context, olderThan time.Duration) ([]*domain.PaymentRequest, error)
	DispatchPayouts(ctx context.Context, olderThan time.Duration) (int, error)
}

// NewContract is the input for a contract created from an accepted proposal.
type NewContract struct {
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
	Milestones   []NewMilestone
}

// NewMilestone is the input for a milestone. A nil OrderIndex appends.
type NewMilestone struct {
	Title       string
	Description string
	Amount      decimal.Decimal
	DueDate     *time.Time
	OrderIndex  *int
}

// NewPaymentRequest raises payment for a completed milestone. Amount, when
// set, must match the milestone amount.
type NewPaymentRequest struct {
	ContractID  string
	MilestoneID string
	Amount      *decimal.Decimal
	Description string
}

// ContractDetail is a contract with its milestones, payment requests and
// the figures derived from them.
type ContractDetail struct {
	Contract        *domain.Contract
	Milestones      []*domain.Milestone
	PaymentRequests []*domain.PaymentRequest
	Summary         domain.ContractSummary
	AllowedActions  []domain.Action
}
