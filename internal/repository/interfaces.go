package repository

import (
	"context"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

// Update methods are versioned: they write only when the stored version
// equals the entity's Version, then bump both. A stale version yields
// domain.ErrConflict.

type ContractRepo interface {
	Create(ctx context.Context, c *domain.Contract) error
	GetByID(ctx context.Context, id string) (*domain.Contract, error)
	ListByParty(ctx context.Context, userID string) ([]*domain.Contract, error)
	Update(ctx context.Context, c *domain.Contract) error
}

type MilestoneRepo interface {
	Create(ctx context.Context, m *domain.Milestone) error
	GetByID(ctx context.Context, id string) (*domain.Milestone, error)
	ListByContract(ctx context.Context, contractID string) ([]*domain.Milestone, error)
	NextOrderIndex(ctx context.Context, contractID string) (int, error)
	Update(ctx context.Context, m *domain.Milestone) error
	Delete(ctx context.Context, m *domain.Milestone) error
}

type PaymentRequestRepo interface {
	Create(ctx context.Context, p *domain.PaymentRequest) error
	GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error)
	ListByContract(ctx context.Context, contractID string) ([]*domain.PaymentRequest, error)
	GetActiveByMilestone(ctx context.Context, milestoneID string) (*domain.PaymentRequest, error)
	CountByContract(ctx context.Context, contractID string) (int, error)
	ListApprovedBefore(ctx context.Context, cutoff time.Time) ([]*domain.PaymentRequest, error)
	Update(ctx context.Context, p *domain.PaymentRequest) error
}
