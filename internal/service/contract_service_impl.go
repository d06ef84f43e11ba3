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

type contractService struct {
	contracts  repository.ContractRepo
	milestones repository.MilestoneRepo
	payments   repository.PaymentRequestRepo
	uow        db.UnitOfWork
	policy     domain.LifecyclePolicy
	publisher  events.Publisher
	observer   UseCaseObserver
}

func NewContractService(
	contracts repository.ContractRepo,
	milestones repository.MilestoneRepo,
	payments repository.PaymentRequestRepo,
	uow db.UnitOfWork,
	policy domain.LifecyclePolicy,
	publisher events.Publisher,
	observers ...UseCaseObserver,
) ContractService {
	return &contractService{
		contracts:  contracts,
		milestones: milestones,
		payments:   payments,
		uow:        uow,
		policy:     policy,
		publisher:  publisherOrNoop(publisher),
		observer:   useCaseObserverOrNoop(observers),
	}
}

// Create records a contract for an accepted proposal, with any initial
// milestones, in one transaction. Only the system or the contract's own
// client may create it.
func (s *contractService) Create(ctx context.Context, actor domain.Actor, in NewContract) (detail *ContractDetail, err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "proposal_id", in.ProposalID, "milestones", len(in.Milestones))
	defer observe(ctx, s.observer, "create-contract", startedAt, fields, &err)

	switch {
	case actor.Role == domain.RoleSystem:
	case actor.Role == domain.RoleClient && actor.UserID == in.ClientID:
	default:
		return nil, domain.Errorf(domain.ErrAuthorization, "only the client or the system may create a contract")
	}

	ts := now()
	c := &domain.Contract{
		ID:           uuid.New().String(),
		ProjectID:    in.ProjectID,
		ClientID:     in.ClientID,
		FreelancerID: in.FreelancerID,
		ProposalID:   in.ProposalID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		TotalAmount:  in.TotalAmount,
		Currency:     domain.NormalizeCurrency(in.Currency),
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Status:       domain.ContractPending,
		Version:      1,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ms := make([]*domain.Milestone, 0, len(in.Milestones))
	for i, nm := range in.Milestones {
		order := i
		if nm.OrderIndex != nil {
			order = *nm.OrderIndex
		}
		m := &domain.Milestone{
			ID:          uuid.New().String(),
			ContractID:  c.ID,
			Title:       strings.TrimSpace(nm.Title),
			Description: nm.Description,
			Amount:      nm.Amount,
			DueDate:     nm.DueDate,
			OrderIndex:  order,
			Status:      domain.MilestonePending,
			Version:     1,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("milestone %d: %w", i+1, err)
		}
		ms = append(ms, m)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContracts := repository.NewSQLiteContractRepo(tx)
		txMilestones := repository.NewSQLiteMilestoneRepo(tx)

		if err := txContracts.Create(ctx, c); err != nil {
			return err
		}
		for _, m := range ms {
			if err := txMilestones.Create(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["contract_id"] = c.ID

	publishAll(ctx, s.publisher, []events.Event{events.ForContract(c, actor, ts)})
	return &ContractDetail{
		Contract:        c,
		Milestones:      ms,
		PaymentRequests: []*domain.PaymentRequest{},
		Summary:         domain.Summarize(c, ms),
		AllowedActions:  domain.ContractActions(actor, c),
	}, nil
}

func (s *contractService) Get(ctx context.Context, actor domain.Actor, id string) (*ContractDetail, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(actor, c); err != nil {
		return nil, err
	}
	ms, err := s.milestones.ListByContract(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing milestones: %w", err)
	}
	prs, err := s.payments.ListByContract(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing payment requests: %w", err)
	}
	return &ContractDetail{
		Contract:        c,
		Milestones:      ms,
		PaymentRequests: prs,
		Summary:         domain.Summarize(c, ms),
		AllowedActions:  domain.ContractActions(actor, c),
	}, nil
}

func (s *contractService) ListForUser(ctx context.Context, actor domain.Actor) ([]*domain.Contract, error) {
	if actor.UserID == "" {
		return nil, domain.Errorf(domain.ErrAuthorization, "an authenticated user is required")
	}
	return s.contracts.ListByParty(ctx, actor.UserID)
}

func (s *contractService) Summary(ctx context.Context, actor domain.Actor, id string) (domain.ContractSummary, error) {
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return domain.ContractSummary{}, err
	}
	return d.Summary, nil
}

// Accept activates a pending contract. With AutoStartMilestones every
// pending milestone starts in the same transaction.
func (s *contractService) Accept(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (c *domain.Contract, err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "contract_id", id)
	defer observe(ctx, s.observer, "accept-contract", startedAt, fields, &err)

	ts := now()
	var evs []events.Event
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContracts := repository.NewSQLiteContractRepo(tx)
		txMilestones := repository.NewSQLiteMilestoneRepo(tx)

		var err error
		c, err = txContracts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion("contract", id, expectedVersion, c.Version); err != nil {
			return err
		}
		if err := domain.Permit(actor, c, domain.ActionAcceptContract); err != nil {
			return err
		}
		ms, err := txMilestones.ListByContract(ctx, id)
		if err != nil {
			return fmt.Errorf("listing milestones: %w", err)
		}
		if err := s.policy.CheckAcceptable(c, ms); err != nil {
			return err
		}
		if err := c.Accept(ts); err != nil {
			return err
		}
		if err := txContracts.Update(ctx, c); err != nil {
			return err
		}
		evs = append(evs, events.ForContract(c, actor, ts))

		if !s.policy.AutoStartMilestones {
			return nil
		}
		for _, m := range ms {
			if m.Status != domain.MilestonePending {
				continue
			}
			if err := m.Start(ts); err != nil {
				return err
			}
			if err := txMilestones.Update(ctx, m); err != nil {
				return fmt.Errorf("starting milestone %s: %w", m.ID, err)
			}
			evs = append(evs, events.ForMilestone(events.MilestoneUpdated, c, m, actor, ts))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.publisher, evs)
	return c, nil
}

func (s *contractService) Reject(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.Contract, error) {
	return s.transition(ctx, "reject-contract", actor, id, expectedVersion, domain.ActionRejectContract,
		func(_ context.Context, _ db.DBTX, c *domain.Contract, ts time.Time) error { return c.Reject(ts) })
}

// Cancel is refused while an approved payout awaits settlement.
func (s *contractService) Cancel(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.Contract, error) {
	return s.transition(ctx, "cancel-contract", actor, id, expectedVersion, domain.ActionCancelContract,
		func(ctx context.Context, tx db.DBTX, c *domain.Contract, ts time.Time) error {
			requests, err := repository.NewSQLitePaymentRequestRepo(tx).ListByContract(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("listing payment requests: %w", err)
			}
			for _, p := range requests {
				if p.Status == domain.PaymentApproved {
					return domain.Errorf(domain.ErrInvalidState,
						"contract %s has approved payment request %s awaiting settlement", c.ID, p.ID)
				}
			}
			return c.Cancel(ts)
		})
}

func (s *contractService) transition(
	ctx context.Context,
	name string,
	actor domain.Actor,
	id string,
	expectedVersion int,
	action domain.Action,
	apply func(context.Context, db.DBTX, *domain.Contract, time.Time) error,
) (c *domain.Contract, err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "contract_id", id)
	defer observe(ctx, s.observer, name, startedAt, fields, &err)

	ts := now()
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContracts := repository.NewSQLiteContractRepo(tx)

		var err error
		c, err = txContracts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion("contract", id, expectedVersion, c.Version); err != nil {
			return err
		}
		if err := domain.Permit(actor, c, action); err != nil {
			return err
		}
		if err := apply(ctx, tx, c, ts); err != nil {
			return err
		}
		return txContracts.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.publisher, []events.Event{events.ForContract(c, actor, ts)})
	return c, nil
}
