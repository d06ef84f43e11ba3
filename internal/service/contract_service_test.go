package service

import (
	"context"
	"testing"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractService_Create_WithMilestones(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})

	d := h.pendingContract(t, "1000.00", "600.00", "400.00")

	assert.Equal(t, domain.ContractPending, d.Contract.Status)
	assert.Equal(t, "USD", d.Contract.Currency)
	assert.Equal(t, 1, d.Contract.Version)
	require.Len(t, d.Milestones, 2)
	assert.Equal(t, 0, d.Milestones[0].OrderIndex)
	assert.Equal(t, 1, d.Milestones[1].OrderIndex)
	assert.True(t, d.Summary.AmountValid)
	assert.Contains(t, d.AllowedActions, domain.ActionAddMilestone)

	stored, err := h.milestones.ListByContract(context.Background(), d.Contract.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, []events.Type{events.ContractUpdated}, h.pub.types())
}

func TestContractService_Create_Authorization(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()

	_, err := h.Contracts.Create(ctx, testutil.Freelancer, newContractInput("1000.00"))
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	other := domain.Actor{UserID: "client-2", Role: domain.RoleClient}
	_, err = h.Contracts.Create(ctx, other, newContractInput("1000.00"))
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	_, err = h.Contracts.Create(ctx, domain.SystemActor, newContractInput("1000.00"))
	assert.NoError(t, err)
}

func TestContractService_Create_Validation(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()

	same := newContractInput("1000.00")
	same.FreelancerID = same.ClientID
	_, err := h.Contracts.Create(ctx, testutil.Client, same)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.Contracts.Create(ctx, testutil.Client, newContractInput("0"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.Contracts.Create(ctx, testutil.Client, newContractInput("1000.00", "-5"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := h.Contracts.ListForUser(ctx, testutil.Client)
	require.NoError(t, err)
	assert.Empty(t, list, "failed creates leave nothing behind")
}

func TestContractService_Accept(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.pendingContract(t, "1000.00", "600.00", "400.00")
	h.pub.reset()

	_, err := h.Contracts.Accept(ctx, testutil.Client, d.Contract.ID, 0)
	assert.ErrorIs(t, err, domain.ErrAuthorization, "clients never accept")

	c, err := h.Contracts.Accept(ctx, testutil.Freelancer, d.Contract.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractActive, c.Status)
	assert.Equal(t, 2, c.Version)
	require.NotNil(t, c.AcceptedAt)
	assert.Equal(t, []events.Type{events.ContractUpdated}, h.pub.types())

	for _, m := range d.Milestones {
		assert.Equal(t, domain.MilestonePending, h.milestone(t, m.ID).Status)
	}

	_, err = h.Contracts.Accept(ctx, testutil.Freelancer, d.Contract.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestContractService_Accept_StaleVersion(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	d := h.pendingContract(t, "1000.00")

	_, err := h.Contracts.Accept(context.Background(), testutil.Freelancer, d.Contract.ID, 7)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.ContractPending, h.contract(t, d.Contract.ID).Status)
}

func TestContractService_Accept_AutoStartMilestones(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{AutoStartMilestones: true})
	d := h.pendingContract(t, "1000.00", "600.00", "400.00")
	h.pub.reset()

	_, err := h.Contracts.Accept(context.Background(), testutil.Freelancer, d.Contract.ID, 0)
	require.NoError(t, err)

	for _, m := range d.Milestones {
		assert.Equal(t, domain.MilestoneInProgress, h.milestone(t, m.ID).Status)
	}
	assert.Equal(t, []events.Type{
		events.ContractUpdated, events.MilestoneUpdated, events.MilestoneUpdated,
	}, h.pub.types())
}

func TestContractService_Accept_RequireBalancedMilestones(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{RequireBalancedMilestones: true})
	ctx := context.Background()

	unbalanced := h.pendingContract(t, "1000.00", "600.00")
	_, err := h.Contracts.Accept(ctx, testutil.Freelancer, unbalanced.Contract.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, domain.ContractPending, h.contract(t, unbalanced.Contract.ID).Status)

	balanced := h.pendingContract(t, "1000.00", "600.00", "400.00")
	_, err = h.Contracts.Accept(ctx, testutil.Freelancer, balanced.Contract.ID, 0)
	assert.NoError(t, err)
}

func TestContractService_Accept_RollbackOnMilestoneFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	setup := newHarnessWithUoW(database, testutil.NewTestUoW(database), domain.LifecyclePolicy{})
	d := setup.pendingContract(t, "1000.00", "600.00", "400.00")

	// Exec #1 updates the contract, #2 starts the first milestone.
	failing := &testutil.FailOnNthExecUoW{DB: database, FailOn: 2, Err: errGatewayDown}
	h := newHarnessWithUoW(database, failing, domain.LifecyclePolicy{AutoStartMilestones: true})

	_, err := h.Contracts.Accept(context.Background(), testutil.Freelancer, d.Contract.ID, 0)
	require.ErrorIs(t, err, errGatewayDown)

	assert.Equal(t, domain.ContractPending, h.contract(t, d.Contract.ID).Status)
	for _, m := range d.Milestones {
		assert.Equal(t, domain.MilestonePending, h.milestone(t, m.ID).Status)
	}
	assert.Empty(t, h.pub.types(), "nothing is published for a rolled back change")
}

func TestContractService_Reject_FreezesContract(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.pendingContract(t, "1000.00", "600.00")

	c, err := h.Contracts.Reject(ctx, testutil.Freelancer, d.Contract.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractCancelled, c.Status)
	require.NotNil(t, c.CancelledAt)

	_, err = h.Milestones.Create(ctx, testutil.Client, d.Contract.ID, NewMilestone{Title: "Extra", Amount: testutil.Dec("100.00")})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	err = h.Milestones.Delete(ctx, testutil.Client, d.Contract.ID, d.Milestones[0].ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = h.Contracts.Cancel(ctx, testutil.Client, d.Contract.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestContractService_Cancel_Active(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.activeContract(t, "1000.00", "1000.00")

	_, err := h.Contracts.Cancel(ctx, testutil.Freelancer, d.Contract.ID, 0)
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	c, err := h.Contracts.Cancel(ctx, testutil.Client, d.Contract.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractCancelled, c.Status)

	_, err = h.Milestones.Start(ctx, testutil.Freelancer, d.Contract.ID, d.Milestones[0].ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// An approved payout must settle before the contract can be cancelled.
func TestContractService_Cancel_ApprovedPaymentPending(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.activeContract(t, "1000.00", "600.00", "400.00")

	p := h.requestPayment(t, h.complete(t, d.Milestones[0]))
	_, err := h.Payments.Approve(ctx, testutil.Client, p.ID, 0)
	require.NoError(t, err)

	_, err = h.Contracts.Cancel(ctx, testutil.Client, d.Contract.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, domain.ContractActive, h.contract(t, d.Contract.ID).Status)

	_, err = h.Payments.MarkPaid(ctx, domain.SystemActor, p.ID, "TX-600")
	require.NoError(t, err)
	c, err := h.Contracts.Cancel(ctx, testutil.Client, d.Contract.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractCancelled, c.Status)
}

func TestContractService_Get_Visibility(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.pendingContract(t, "1000.00", "600.00", "400.00")

	stranger := domain.Actor{UserID: "someone-else", Role: domain.RoleFreelancer}
	_, err := h.Contracts.Get(ctx, stranger, d.Contract.ID)
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	got, err := h.Contracts.Get(ctx, testutil.Freelancer, d.Contract.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Action{domain.ActionAcceptContract, domain.ActionRejectContract}, got.AllowedActions)
	assert.Len(t, got.Milestones, 2)
	assert.Empty(t, got.PaymentRequests)

	_, err = h.Contracts.Get(ctx, testutil.Client, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContractService_ListForUser(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	h.pendingContract(t, "1000.00")
	h.pendingContract(t, "2000.00")

	mine, err := h.Contracts.ListForUser(ctx, testutil.Freelancer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := h.Contracts.ListForUser(ctx, domain.Actor{UserID: "nobody", Role: domain.RoleClient})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestContractService_Summary_ZeroMilestones(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	d := h.pendingContract(t, "1000.00")

	s, err := h.Contracts.Summary(context.Background(), testutil.Client, d.Contract.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalMilestones)
	assert.True(t, s.ProgressPercentage.IsZero())
	assert.False(t, s.AmountValid)
}
