package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matic113/freelance-platform-sub003/internal/db"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/repository"
)

type milestoneService struct {
	contracts  repository.ContractRepo
	milestones repository.MilestoneRepo
	uow        db.UnitOfWork
	policy     domain.LifecyclePolicy
	publisher  events.Publisher
	observer   UseCaseObserver
}

func NewMilestoneService(
	contracts repository.ContractRepo,
	milestones repository.MilestoneRepo,
	uow db.UnitOfWork,
	policy domain.LifecyclePolicy,
	publisher events.Publisher,
	observers ...UseCaseObserver,
) MilestoneService {
	return &milestoneService{
		contracts:  contracts,
		milestones: milestones,
		uow:        uow,
		policy:     policy,
		publisher:  publisherOrNoop(publisher),
		observer:   useCaseObserverOrNoop(observers),
	}
}

// checkPlanOpen refuses plan changes on an active contract once any
// payment request has been raised against it.
func checkPlanOpen(ctx context.Context, payments repository.PaymentRequestRepo, c *domain.Contract) error {
	if c.Status != domain.ContractActive {
		return nil
	}
	n, err := payments.CountByContract(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("counting payment requests: %w", err)
	}
	if n > 0 {
		return domain.Errorf(domain.ErrInvalidState,
			"contract %s already has payment requests; its milestone plan is fixed", c.ID)
	}
	return nil
}

// loadPair reads a contract and one of its milestones. A milestone that
// belongs to another contract is reported as not found.
func loadPair(ctx context.Context, contracts repository.ContractRepo, milestones repository.MilestoneRepo, contractID, milestoneID string) (*domain.Contract, *domain.Milestone, error) {
	c, err := contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	m, err := milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, nil, err
	}
	if m.ContractID != c.ID {
		return nil, nil, domain.Errorf(domain.ErrNotFound, "milestone %s not found on contract %s", milestoneID, contractID)
	}
	return c, m, nil
}

func (s *milestoneService) Create(ctx context.Context, actor domain.Actor, contractID string, in NewMilestone) (m *domain.Milestone, err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "contract_id", contractID)
	defer observe(ctx, s.observer, "create-milestone", startedAt, fields, &err)

	ts := now()
	m = &domain.Milestone{
		ID:          uuid.New().String(),
		ContractID:  contractID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Amount:      in.Amount,
		DueDate:     in.DueDate,
		Version:     1,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if in.OrderIndex != nil {
		m.OrderIndex = *in.OrderIndex
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var c *domain.Contract
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContracts := repository.NewSQLiteContractRepo(tx)
		txMilestones := repository.NewSQLiteMilestoneRepo(tx)
		txPayments := repository.NewSQLitePaymentRequestRepo(tx)

		var err error
		c, err = txContracts.GetByID(ctx, contractID)
		if err != nil {
			return err
		}
		if err := domain.Permit(actor, c, domain.ActionAddMilestone); err != nil {
			return err
		}
		if err := checkPlanOpen(ctx, txPayments, c); err != nil {
			return err
		}
		if in.OrderIndex == nil {
			next, err := txMilestones.NextOrderIndex(ctx, contractID)
			if err != nil {
				return fmt.Errorf("allocating order index: %w", err)
			}
			m.OrderIndex = next
		}
		m.Status = s.policy.InitialMilestoneStatus(c)
		return txMilestones.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	fields["milestone_id"] = m.ID

	publishAll(ctx, s.publisher, []events.Event{events.ForMilestone(events.MilestoneCreated, c, m, actor, ts)})
	return m, nil
}

func (s *milestoneService) Get(ctx context.Context, actor domain.Actor, contractID, milestoneID string) (*domain.Milestone, error) {
	c, m, err := loadPair(ctx, s.contracts, s.milestones, contractID, milestoneID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(actor, c); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *milestoneService) ListByContract(ctx context.Context, actor domain.Actor, contractID string) ([]*domain.Milestone, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(actor, c); err != nil {
		return nil, err
	}
	return s.milestones.ListByContract(ctx, contractID)
}

// Update applies a client edit to a pending milestone. An empty patch
// writes nothing and returns the stored milestone.
func (s *milestoneService) Update(ctx context.Context, actor domain.Actor, contractID, milestoneID string, patch domain.MilestonePatch, expectedVersion int) (m *domain.Milestone, err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "contract_id", contractID, "milestone_id", milestoneID)
	defer observe(ctx, s.observer, "update-milestone", startedAt, fields, &err)

	ts := now()
	var c *domain.Contract
	changed := false
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContracts := repository.NewSQLiteContractRepo(tx)
		txMilestones := repository.NewSQLiteMilestoneRepo(tx)
		txPayments := repository.NewSQLitePaymentRequestRepo(tx)

		var err error
		c, m, err = loadPair(ctx, txContracts, txMilestones, contractID, milestoneID)
		if err != nil {
			return err
		}
		if err := checkVersion("milestone", milestoneID, expectedVersion, m.Version); err != nil {
			return err
		}
		if err := domain.Permit(actor, c, domain.ActionEditMilestone, domain.MilestoneTarget(m)); err != nil {
			return err
		}
		if patch.IsEmpty() {
			return nil
		}
		if err := checkPlanOpen(ctx, txPayments, c); err != nil {
			return err
		}
		if err := m.ApplyPatch(patch, ts); err != nil {
			return err
		}
		changed = true
		return txMilestones.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		publishAll(ctx, s.publisher, []events.Event{events.ForMilestone(events.MilestoneUpdated, c, m, actor, ts)})
	}
	return m, nil
}

func (s *milestoneService) Delete(ctx context.Context, actor domain.Actor, contractID, milestoneID string, expectedVersion int) (err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "contract_id", contractID, "milestone_id", milestoneID)
	defer observe(ctx, s.observer, "delete-milestone", startedAt, fields, &err)

	ts := now()
	var c *domain.Contract
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContracts := repository.NewSQLiteContractRepo(tx)
		txMilestones := repository.NewSQLiteMilestoneRepo(tx)
		txPayments := repository.NewSQLitePaymentRequestRepo(tx)

		var (
			m   *domain.Milestone
			err error
		)
		c, m, err = loadPair(ctx, txContracts, txMilestones, contractID, milestoneID)
		if err != nil {
			return err
		}
		if err := checkVersion("milestone", milestoneID, expectedVersion, m.Version); err != nil {
			return err
		}
		if err := domain.Permit(actor, c, domain.ActionDeleteMilestone, domain.MilestoneTarget(m)); err != nil {
			return err
		}
		if err := checkPlanOpen(ctx, txPayments, c); err != nil {
			return err
		}
		if err := m.CheckDeletable(); err != nil {
			return err
		}
		return txMilestones.Delete(ctx, m)
	})
	if err != nil {
		return err
	}
	publishAll(ctx, s.publisher, []events.Event{events.ForMilestoneDeleted(c, milestoneID, actor, ts)})
	return nil
}

// UpdateStatus moves a milestone forward on the freelancer's request.
// Paid is reached only through payment settlement.
func (s *milestoneService) UpdateStatus(ctx context.Context, actor domain.Actor, contractID, milestoneID string, status domain.MilestoneStatus, expectedVersion int) (*domain.Milestone, error) {
	switch status {
	case domain.MilestoneInProgress:
		return s.Start(ctx, actor, contractID, milestoneID, expectedVersion)
	case domain.MilestoneCompleted:
		return s.MarkComplete(ctx, actor, contractID, milestoneID, expectedVersion)
	case domain.MilestonePaid:
		return nil, domain.Errorf(domain.ErrAuthorization, "milestones become paid only when their payment request is settled")
	case domain.MilestonePending:
		return nil, domain.Errorf(domain.ErrInvalidState, "milestones never move back to pending")
	}
	_, err := domain.ParseMilestoneStatus(string(status))
	return nil, err
}

func (s *milestoneService) Start(ctx context.Context, actor domain.Actor, contractID, milestoneID string, expectedVersion int) (*domain.Milestone, error) {
	return s.transition(ctx, "start-milestone", actor, contractID, milestoneID, expectedVersion, domain.ActionStartMilestone,
		func(m *domain.Milestone, ts time.Time) error { return m.Start(ts) })
}

func (s *milestoneService) MarkComplete(ctx context.Context, actor domain.Actor, contractID, milestoneID string, expectedVersion int) (*domain.Milestone, error) {
	return s.transition(ctx, "complete-milestone", actor, contractID, milestoneID, expectedVersion, domain.ActionCompleteMilestone,
		func(m *domain.Milestone, ts time.Time) error { return m.MarkComplete(ts) })
}

func (s *milestoneService) transition(
	ctx context.Context,
	name string,
	actor domain.Actor,
	contractID, milestoneID string,
	expectedVersion int,
	action domain.Action,
	apply func(*domain.Milestone, time.Time) error,
) (m *domain.Milestone, err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "contract_id", contractID, "milestone_id", milestoneID)
	defer observe(ctx, s.observer, name, startedAt, fields, &err)

	ts := now()
	var c *domain.Contract
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContracts := repository.NewSQLiteContractRepo(tx)
		txMilestones := repository.NewSQLiteMilestoneRepo(tx)

		var err error
		c, m, err = loadPair(ctx, txContracts, txMilestones, contractID, milestoneID)
		if err != nil {
			return err
		}
		if err := checkVersion("milestone", milestoneID, expectedVersion, m.Version); err != nil {
			return err
		}
		if err := domain.Permit(actor, c, action, domain.MilestoneTarget(m)); err != nil {
			return err
		}
		if err := apply(m, ts); err != nil {
			return err
		}
		return txMilestones.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.publisher, []events.Event{events.ForMilestone(events.MilestoneUpdated, c, m, actor, ts)})
	return m, nil
}
