package service

import (
	"context"
	"sync"
	"testing"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_BalancedPlanBeforeWork(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	d := h.activeContract(t, "1000.00", "600.00", "400.00")

	assert.True(t, d.Summary.AmountValid)
	assert.True(t, d.Summary.ProgressPercentage.IsZero())
	assert.Equal(t, 0, d.Summary.CompletedMilestones)
}

func TestLifecycle_FirstMilestonePaid(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.activeContract(t, "1000.00", "600.00", "400.00")

	p := h.requestPayment(t, h.complete(t, d.Milestones[0]))
	_, err := h.Payments.Approve(ctx, testutil.Client, p.ID, 0)
	require.NoError(t, err)
	_, err = h.Payments.MarkPaid(ctx, domain.SystemActor, p.ID, "TX-600")
	require.NoError(t, err)

	got, err := h.Contracts.Get(ctx, testutil.Client, d.Contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MilestonePaid, got.Milestones[0].Status)
	assert.True(t, got.Summary.PaidAmount.Equal(testutil.Dec("600.00")))
	assert.Equal(t, 1, got.Summary.CompletedMilestones)
	assert.True(t, got.Summary.ProgressPercentage.Equal(testutil.Dec("50")))
	assert.Equal(t, domain.ContractActive, got.Contract.Status)
	require.Len(t, got.PaymentRequests, 1)
	assert.Equal(t, domain.PaymentPaid, got.PaymentRequests[0].Status)
}

func TestLifecycle_WithdrawThenRequestAgain(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.activeContract(t, "1000.00", "600.00", "400.00")
	m2 := h.complete(t, d.Milestones[1])

	first := h.requestPayment(t, m2)
	assert.True(t, first.Amount.Equal(testutil.Dec("400.00")))

	w, err := h.Payments.Withdraw(ctx, testutil.Freelancer, first.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentWithdrawn, w.Status)
	assert.Equal(t, domain.MilestoneCompleted, h.milestone(t, m2.ID).Status)

	second := h.requestPayment(t, m2)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, domain.PaymentPending, second.Status)
}

func TestLifecycle_RejectThenRequestAgain(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.activeContract(t, "1000.00", "1000.00")
	m := h.complete(t, d.Milestones[0])

	p := h.requestPayment(t, m)
	_, err := h.Payments.Reject(ctx, testutil.Client, p.ID, "wrong bank details", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.MilestoneCompleted, h.milestone(t, m.ID).Status, "rejection never reverts the milestone")

	h.requestPayment(t, m)
}

// A milestone is paid only after it was completed and its request settled.
func TestLifecycle_NoSkipToPaid(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.activeContract(t, "1000.00", "1000.00")
	m := d.Milestones[0]

	_, err := h.Milestones.UpdateStatus(ctx, testutil.Freelancer, d.Contract.ID, m.ID, domain.MilestonePaid, 0)
	assert.ErrorIs(t, err, domain.ErrAuthorization)
	_, err = h.Payments.Create(ctx, testutil.Freelancer, NewPaymentRequest{ContractID: d.Contract.ID, MilestoneID: m.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)

	done := h.complete(t, m)
	p := h.requestPayment(t, done)
	_, err = h.Payments.MarkPaid(ctx, domain.SystemActor, p.ID, "TX")
	assert.ErrorIs(t, err, domain.ErrInvalidState, "unapproved requests cannot settle")
	assert.Equal(t, domain.MilestoneCompleted, h.milestone(t, m.ID).Status)
}

func TestLifecycle_FullContractCompletes(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{AutoStartMilestones: true, RequireBalancedMilestones: true})
	ctx := context.Background()
	d := h.activeContract(t, "900.00", "300.00", "300.00", "300.00")

	for _, m := range d.Milestones {
		assert.Equal(t, domain.MilestoneInProgress, m.Status)
		p := h.requestPayment(t, h.complete(t, m))
		_, err := h.Payments.Approve(ctx, testutil.Client, p.ID, 0)
		require.NoError(t, err)
		_, err = h.Payments.MarkPaid(ctx, domain.SystemActor, p.ID, "TX-"+m.ID)
		require.NoError(t, err)
	}

	got, err := h.Contracts.Get(ctx, testutil.Client, d.Contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractCompleted, got.Contract.Status)
	assert.True(t, got.Summary.PaidAmount.Equal(testutil.Dec("900.00")))
	assert.True(t, got.Summary.ProgressPercentage.Equal(testutil.Dec("100")))
	assert.Empty(t, got.AllowedActions)
}

func TestLifecycle_ConcurrentApprovalsOneWins(t *testing.T) {
	h := newHarness(t, domain.LifecyclePolicy{})
	ctx := context.Background()
	d := h.activeContract(t, "1000.00", "1000.00")
	p := h.requestPayment(t, h.complete(t, d.Milestones[0]))

	const racers = 4
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.Payments.Approve(ctx, testutil.Client, p.ID, p.Version)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, wins)
	h.gw.mu.Lock()
	assert.Len(t, h.gw.orders, 1)
	h.gw.mu.Unlock()
}
