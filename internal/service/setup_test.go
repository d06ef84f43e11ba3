package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/db"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/gateway"
	"github.com/matic113/freelance-platform-sub003/internal/repository"
	"github.com/matic113/freelance-platform-sub003/internal/testutil"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordingPublisher) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type recordingGateway struct {
	mu     sync.Mutex
	orders []gateway.PayoutOrder
	err    error
}

func (g *recordingGateway) Dispatch(_ context.Context, o gateway.PayoutOrder) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.orders = append(g.orders, o)
	return nil
}

type harness struct {
	db         *sql.DB
	contracts  *repository.SQLiteContractRepo
	milestones *repository.SQLiteMilestoneRepo
	payments   *repository.SQLitePaymentRequestRepo
	uow        db.UnitOfWork
	pub        *recordingPublisher
	gw         *recordingGateway

	Contracts  ContractService
	Milestones MilestoneService
	Payments   PaymentService
}

func newHarness(t *testing.T, policy domain.LifecyclePolicy) *harness {
	t.Helper()
	database := testutil.NewTestDB(t)
	return newHarnessWithUoW(database, testutil.NewTestUoW(database), policy)
}

func newHarnessWithUoW(database *sql.DB, uow db.UnitOfWork, policy domain.LifecyclePolicy) *harness {
	h := &harness{
		db:         database,
		contracts:  repository.NewSQLiteContractRepo(database),
		milestones: repository.NewSQLiteMilestoneRepo(database),
		payments:   repository.NewSQLitePaymentRequestRepo(database),
		uow:        uow,
		pub:        &recordingPublisher{},
		gw:         &recordingGateway{},
	}
	h.Contracts = NewContractService(h.contracts, h.milestones, h.payments, uow, policy, h.pub)
	h.Milestones = NewMilestoneService(h.contracts, h.milestones, uow, policy, h.pub)
	h.Payments = NewPaymentService(h.contracts, h.milestones, h.payments, uow, h.gw, h.pub)
	return h
}

func newContractInput(total string, amounts ...string) NewContract {
	start := testutil.Now().Truncate(24 * time.Hour)
	in := NewContract{
		ProjectID:    "project-1",
		ClientID:     testutil.ClientID,
		FreelancerID: testutil.FreelancerID,
		ProposalID:   "proposal-1",
		Title:        "Marketing site",
		TotalAmount:  testutil.Dec(total),
		Currency:     "usd",
		StartDate:    start,
		EndDate:      start.AddDate(0, 1, 0),
	}
	for i, a := range amounts {
		in.Milestones = append(in.Milestones, NewMilestone{
			Title:  []string{"Design", "Build", "Launch", "Support"}[i%4],
			Amount: testutil.Dec(a),
		})
	}
	return in
}

// pendingContract creates a contract as the client.
func (h *harness) pendingContract(t *testing.T, total string, amounts ...string) *ContractDetail {
	t.Helper()
	d, err := h.Contracts.Create(context.Background(), testutil.Client, newContractInput(total, amounts...))
	require.NoError(t, err)
	return d
}

// activeContract creates and accepts a contract; milestones stay pending
// unless the policy auto-starts them.
func (h *harness) activeContract(t *testing.T, total string, amounts ...string) *ContractDetail {
	t.Helper()
	ctx := context.Background()
	d := h.pendingContract(t, total, amounts...)
	_, err := h.Contracts.Accept(ctx, testutil.Freelancer, d.Contract.ID, 0)
	require.NoError(t, err)
	d, err = h.Contracts.Get(ctx, testutil.Freelancer, d.Contract.ID)
	require.NoError(t, err)
	h.pub.reset()
	return d
}

// complete drives a milestone to completed as the freelancer.
func (h *harness) complete(t *testing.T, m *domain.Milestone) *domain.Milestone {
	t.Helper()
	ctx := context.Background()
	if m.Status == domain.MilestonePending {
		_, err := h.Milestones.Start(ctx, testutil.Freelancer, m.ContractID, m.ID, 0)
		require.NoError(t, err)
	}
	done, err := h.Milestones.MarkComplete(ctx, testutil.Freelancer, m.ContractID, m.ID, 0)
	require.NoError(t, err)
	return done
}

func (h *harness) requestPayment(t *testing.T, m *domain.Milestone) *domain.PaymentRequest {
	t.Helper()
	p, err := h.Payments.Create(context.Background(), testutil.Freelancer, NewPaymentRequest{
		ContractID:  m.ContractID,
		MilestoneID: m.ID,
		Description: "invoice for " + m.Title,
	})
	require.NoError(t, err)
	return p
}

func (h *harness) milestone(t *testing.T, id string) *domain.Milestone {
	t.Helper()
	m, err := h.milestones.GetByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func (h *harness) contract(t *testing.T, id string) *domain.Contract {
	t.Helper()
	c, err := h.contracts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

var errGatewayDown = errors.New("gateway unavailable")
