package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matic113/freelance-platform-sub003/internal/db"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/gateway"
	"github.com/matic113/freelance-platform-sub003/internal/logger"
	"github.com/matic113/freelance-platform-sub003/internal/repository"
)

type paymentService struct {
	contracts  repository.ContractRepo
	milestones repository.MilestoneRepo
	payments   repository.PaymentRequestRepo
	uow        db.UnitOfWork
	gateway    gateway.Gateway
	publisher  events.Publisher
	observer   UseCaseObserver
}

// NewPaymentService wires the payment use cases. gw may be nil, in which
// case approved requests wait for the sweep or a manual settlement.
func NewPaymentService(
	contracts repository.ContractRepo,
	milestones repository.MilestoneRepo,
	payments repository.PaymentRequestRepo,
	uow db.UnitOfWork,
	gw gateway.Gateway,
	publisher events.Publisher,
	observers ...UseCaseObserver,
) PaymentService {
	return &paymentService{
		contracts:  contracts,
		milestones: milestones,
		payments:   payments,
		uow:        uow,
		gateway:    gw,
		publisher:  publisherOrNoop(publisher),
		observer:   useCaseObserverOrNoop(observers),
	}
}

// Create raises a payment request for a completed milestone that has no
// active request.
func (s *paymentService) Create(ctx context.Context, actor domain.Actor, in NewPaymentRequest) (p *domain.PaymentRequest, err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "contract_id", in.ContractID, "milestone_id", in.MilestoneID)
	defer observe(ctx, s.observer, "create-payment-request", startedAt, fields, &err)

	if in.ContractID == "" || in.MilestoneID == "" {
		return nil, domain.Errorf(domain.ErrValidation, "contract and milestone are required")
	}

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
		c, m, err = loadPair(ctx, txContracts, txMilestones, in.ContractID, in.MilestoneID)
		if err != nil {
			return err
		}
		if err := domain.Permit(actor, c, domain.ActionRequestPayment); err != nil {
			return err
		}
		if err := m.CheckPayable(); err != nil {
			return err
		}
		if in.Amount != nil && !in.Amount.Equal(m.Amount) {
			return domain.Errorf(domain.ErrValidation, "requested amount %s does not match milestone amount %s",
				in.Amount.StringFixed(2), m.Amount.StringFixed(2))
		}

		active, err := txPayments.GetActiveByMilestone(ctx, m.ID)
		switch {
		case err == nil:
			return domain.Errorf(domain.ErrConflict, "milestone %s already has payment request %s (%s)", m.ID, active.ID, active.Status)
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("checking active payment request: %w", err)
		}

		p, err = domain.NewPaymentRequest(uuid.New().String(), c, m, in.Description, ts)
		if err != nil {
			return err
		}
		return txPayments.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	fields["payment_request_id"] = p.ID

	publishAll(ctx, s.publisher, []events.Event{events.ForPaymentRequest(events.PaymentRequestCreated, c, p, actor, ts)})
	return p, nil
}

func (s *paymentService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.PaymentRequest, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.contracts.GetByID(ctx, p.ContractID)
	if err != nil {
		return nil, fmt.Errorf("loading contract: %w", err)
	}
	if err := checkVisible(actor, c); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *paymentService) ListByContract(ctx context.Context, actor domain.Actor, contractID string) ([]*domain.PaymentRequest, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(actor, c); err != nil {
		return nil, err
	}
	return s.payments.ListByContract(ctx, contractID)
}

// Approve accepts a pending request and hands a payout order to the
// gateway once the approval is committed.
func (s *paymentService) Approve(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.PaymentRequest, error) {
	p, c, err := s.transition(ctx, "approve-payment-request", actor, id, expectedVersion, domain.ActionApprovePayment,
		func(p *domain.PaymentRequest, ts time.Time) error { return p.Approve(ts) })
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, c, p)
	return p, nil
}

// Reject declines a pending request. The reason is checked first, so a
// blank reason never reaches the store.
func (s *paymentService) Reject(ctx context.Context, actor domain.Actor, id, reason string, expectedVersion int) (*domain.PaymentRequest, error) {
	if err := domain.ValidateRejectReason(reason); err != nil {
		return nil, err
	}
	p, _, err := s.transition(ctx, "reject-payment-request", actor, id, expectedVersion, domain.ActionRejectPayment,
		func(p *domain.PaymentRequest, ts time.Time) error { return p.Reject(reason, ts) })
	return p, err
}

func (s *paymentService) Withdraw(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.PaymentRequest, error) {
	p, _, err := s.transition(ctx, "withdraw-payment-request", actor, id, expectedVersion, domain.ActionWithdrawPayment,
		func(p *domain.PaymentRequest, ts time.Time) error { return p.Withdraw(ts) })
	return p, err
}

func (s *paymentService) transition(
	ctx context.Context,
	name string,
	actor domain.Actor,
	id string,
	expectedVersion int,
	action domain.Action,
	apply func(*domain.PaymentRequest, time.Time) error,
) (p *domain.PaymentRequest, c *domain.Contract, err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "payment_request_id", id)
	defer observe(ctx, s.observer, name, startedAt, fields, &err)

	ts := now()
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContracts := repository.NewSQLiteContractRepo(tx)
		txPayments := repository.NewSQLitePaymentRequestRepo(tx)

		var err error
		p, err = txPayments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion("payment request", id, expectedVersion, p.Version); err != nil {
			return err
		}
		c, err = txContracts.GetByID(ctx, p.ContractID)
		if err != nil {
			return fmt.Errorf("loading contract: %w", err)
		}
		if err := domain.Permit(actor, c, action, domain.PaymentTarget(p)); err != nil {
			return err
		}
		if err := apply(p, ts); err != nil {
			return err
		}
		return txPayments.Update(ctx, p)
	})
	if err != nil {
		return nil, nil, err
	}
	fields["contract_id"] = c.ID

	publishAll(ctx, s.publisher, []events.Event{events.ForPaymentRequest(events.PaymentRequestUpdated, c, p, actor, ts)})
	return p, c, nil
}

// MarkPaid applies a gateway settlement: the request becomes paid, its
// milestone becomes paid and, when that was the last unpaid milestone, the
// contract completes. All three writes share one transaction.
func (s *paymentService) MarkPaid(ctx context.Context, actor domain.Actor, id, reference string) (p *domain.PaymentRequest, err error) {
	startedAt := time.Now()
	fields := actorFields(actor, "payment_request_id", id, "reference", reference)
	defer observe(ctx, s.observer, "settle-payment-request", startedAt, fields, &err)

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.Errorf(domain.ErrValidation, "a payment reference is required")
	}

	ts := now()
	var evs []events.Event
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContracts := repository.NewSQLiteContractRepo(tx)
		txMilestones := repository.NewSQLiteMilestoneRepo(tx)
		txPayments := repository.NewSQLitePaymentRequestRepo(tx)

		var err error
		p, err = txPayments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		c, m, err := loadPair(ctx, txContracts, txMilestones, p.ContractID, p.MilestoneID)
		if err != nil {
			return fmt.Errorf("loading settlement targets: %w", err)
		}
		if err := domain.Permit(actor, c, domain.ActionSettlePayment, domain.PaymentTarget(p)); err != nil {
			return err
		}

		if err := p.MarkPaid(reference, ts); err != nil {
			return err
		}
		if err := txPayments.Update(ctx, p); err != nil {
			return err
		}
		if err := m.MarkPaid(ts); err != nil {
			return err
		}
		if err := txMilestones.Update(ctx, m); err != nil {
			return fmt.Errorf("marking milestone paid: %w", err)
		}
		evs = append(evs,
			events.ForPaymentRequest(events.PaymentRequestUpdated, c, p, actor, ts),
			events.ForMilestone(events.MilestoneUpdated, c, m, actor, ts),
		)

		ms, err := txMilestones.ListByContract(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("listing milestones: %w", err)
		}
		if !domain.AllMilestonesPaid(ms) {
			return nil
		}
		if err := c.Complete(ts); err != nil {
			return err
		}
		if err := txContracts.Update(ctx, c); err != nil {
			return fmt.Errorf("completing contract: %w", err)
		}
		fields["contract_completed"] = true
		evs = append(evs, events.ForContract(c, actor, ts))
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.publisher, evs)
	return p, nil
}

func (s *paymentService) ListApprovedUnsettled(ctx context.Context, olderThan time.Duration) ([]*domain.PaymentRequest, error) {
	return s.payments.ListApprovedBefore(ctx, now().Add(-olderThan))
}

// DispatchPayouts re-sends payout orders for requests approved more than
// olderThan ago that are still unsettled. It returns how many orders the
// gateway accepted.
func (s *paymentService) DispatchPayouts(ctx context.Context, olderThan time.Duration) (n int, err error) {
	startedAt := time.Now()
	fields := map[string]any{"older_than": olderThan.String()}
	defer observe(ctx, s.observer, "dispatch-payouts", startedAt, fields, &err)

	if s.gateway == nil {
		return 0, nil
	}
	pending, err := s.ListApprovedUnsettled(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("listing approved requests: %w", err)
	}

	var errs []error
	for _, p := range pending {
		c, err := s.contracts.GetByID(ctx, p.ContractID)
		if err != nil {
			errs = append(errs, fmt.Errorf("loading contract for %s: %w", p.ID, err))
			continue
		}
		if err := s.gateway.Dispatch(ctx, payoutOrder(c, p)); err != nil {
			errs = append(errs, fmt.Errorf("dispatching %s: %w", p.ID, domain.Errorf(domain.ErrNetwork, "%v", err)))
			continue
		}
		n++
	}
	fields["dispatched"] = n
	fields["candidates"] = len(pending)
	return n, errors.Join(errs...)
}

func (s *paymentService) dispatch(ctx context.Context, c *domain.Contract, p *domain.PaymentRequest) {
	if s.gateway == nil {
		return
	}
	if err := s.gateway.Dispatch(ctx, payoutOrder(c, p)); err != nil {
		logger.Warn(ctx, "payout dispatch failed; the sweep will retry",
			"payment_request_id", p.ID,
			"error", err,
		)
	}
}

func payoutOrder(c *domain.Contract, p *domain.PaymentRequest) gateway.PayoutOrder {
	return gateway.PayoutOrder{
		PaymentRequestID: p.ID,
		ContractID:       c.ID,
		FreelancerID:     c.FreelancerID,
		Amount:           p.Amount,
		Currency:         p.Currency,
	}
}
