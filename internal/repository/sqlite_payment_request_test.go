package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCompletedMilestone(t *testing.T, db *sql.DB, c *domain.Contract, order int) *domain.Milestone {
	t.Helper()
	m := testutil.NewTestMilestone(c.ID, "Deliverable", "400.00",
		testutil.WithOrderIndex(order), testutil.WithMilestoneStatus(domain.MilestoneCompleted))
	require.NoError(t, NewSQLiteMilestoneRepo(db).Create(context.Background(), m))
	return m
}

func TestPaymentRequestRepo_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := seedContract(t, db, testutil.WithContractStatus(domain.ContractActive))
	m := seedCompletedMilestone(t, db, c, 0)
	repo := NewSQLitePaymentRequestRepo(db)
	ctx := context.Background()

	pr := testutil.NewTestPaymentRequest(c, m)
	pr.Description = "second half"
	require.NoError(t, repo.Create(ctx, pr))

	fetched, err := repo.GetByID(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, fetched.Status)
	assert.True(t, testutil.Dec("400").Equal(fetched.Amount))
	assert.Equal(t, "second half", fetched.Description)
	assert.True(t, pr.RequestedAt.Equal(fetched.RequestedAt))

	active, err := repo.GetActiveByMilestone(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, pr.ID, active.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentRequestRepo_SecondActiveRequestConflicts(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := seedContract(t, db, testutil.WithContractStatus(domain.ContractActive))
	m := seedCompletedMilestone(t, db, c, 0)
	repo := NewSQLitePaymentRequestRepo(db)
	ctx := context.Background()

	first := testutil.NewTestPaymentRequest(c, m)
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, testutil.NewTestPaymentRequest(c, m)), domain.ErrConflict)

	// withdrawing frees the slot
	require.NoError(t, first.Withdraw(testutil.Now()))
	require.NoError(t, repo.Update(ctx, first))

	_, err := repo.GetActiveByMilestone(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, repo.Create(ctx, testutil.NewTestPaymentRequest(c, m)))

	n, err := repo.CountByContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPaymentRequestRepo_Update_RejectPersistsReason(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := seedContract(t, db, testutil.WithContractStatus(domain.ContractActive))
	m := seedCompletedMilestone(t, db, c, 0)
	repo := NewSQLitePaymentRequestRepo(db)
	ctx := context.Background()

	pr := testutil.NewTestPaymentRequest(c, m)
	require.NoError(t, repo.Create(ctx, pr))
	stale := *pr

	require.NoError(t, pr.Reject("missing source files", testutil.Now()))
	require.NoError(t, repo.Update(ctx, pr))

	fetched, err := repo.GetByID(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRejected, fetched.Status)
	assert.Equal(t, "missing source files", fetched.RejectionReason)
	require.NotNil(t, fetched.RejectedAt)
	assert.Equal(t, 2, fetched.Version)

	require.NoError(t, stale.Approve(testutil.Now()))
	assert.ErrorIs(t, repo.Update(ctx, &stale), domain.ErrConflict)
}

func TestPaymentRequestRepo_ListApprovedBefore(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := seedContract(t, db, testutil.WithContractStatus(domain.ContractActive))
	repo := NewSQLitePaymentRequestRepo(db)
	ctx := context.Background()

	now := testutil.Now()
	old := testutil.NewTestPaymentRequest(c, seedCompletedMilestone(t, db, c, 0))
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, old.Approve(now.Add(-time.Hour)))
	require.NoError(t, repo.Update(ctx, old))

	fresh := testutil.NewTestPaymentRequest(c, seedCompletedMilestone(t, db, c, 1))
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, fresh.Approve(now))
	require.NoError(t, repo.Update(ctx, fresh))

	pending := testutil.NewTestPaymentRequest(c, seedCompletedMilestone(t, db, c, 2))
	require.NoError(t, repo.Create(ctx, pending))

	due, err := repo.ListApprovedBefore(ctx, now.Add(-10*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, old.ID, due[0].ID)

	all, err := repo.ListByContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPaymentRequestRepo_ListApprovedBefore_SkipsInactiveContracts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLitePaymentRequestRepo(db)
	ctx := context.Background()
	now := testutil.Now()

	var live *domain.PaymentRequest
	for _, status := range []domain.ContractStatus{domain.ContractActive, domain.ContractCancelled} {
		c := seedContract(t, db, testutil.WithContractStatus(status))
		p := testutil.NewTestPaymentRequest(c, seedCompletedMilestone(t, db, c, 0))
		require.NoError(t, repo.Create(ctx, p))
		require.NoError(t, p.Approve(now.Add(-time.Hour)))
		require.NoError(t, repo.Update(ctx, p))
		if status == domain.ContractActive {
			live = p
		}
	}

	due, err := repo.ListApprovedBefore(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, live.ID, due[0].ID)
}
